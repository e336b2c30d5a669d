package store

import (
	"context"
	"errors"

	"familytree/internal/model"
	"familytree/internal/syncgw"
)

// LocalGateway serves the family document straight from a BlobStore, for
// offline use without a running store server.
type LocalGateway struct {
	Blobs BlobStore
}

func (g LocalGateway) Fetch(ctx context.Context) (*model.FamilyTree, error) {
	rev, err := g.Blobs.Latest(ctx)
	if err != nil {
		return nil, &syncgw.LoadFailure{Err: err}
	}
	ft, err := DecodeFamilyBytes(rev.Body)
	if err != nil {
		return nil, &syncgw.LoadFailure{Err: err}
	}
	return ft, nil
}

func (g LocalGateway) Push(ctx context.Context, ft *model.FamilyTree) error {
	if ft == nil {
		return &syncgw.PersistFailure{Err: errors.New("no family tree to save")}
	}
	b, err := syncgw.Encode(ft)
	if err != nil {
		return &syncgw.PersistFailure{Err: err}
	}
	if _, err := g.Blobs.Put(ctx, b); err != nil {
		return &syncgw.PersistFailure{Err: err}
	}
	return nil
}

var _ syncgw.Gateway = LocalGateway{}
