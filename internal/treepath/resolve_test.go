package treepath

import (
	"errors"
	"testing"

	"familytree/internal/model"
)

func TestResolve_EncodedPathsRoundTripToSameNode(t *testing.T) {
	root := sampleTree()

	count := 0
	Walk(root, func(n *model.PersonNode, p Path) bool {
		count++
		got, err := ResolveString(root, p.String())
		if err != nil {
			t.Fatalf("resolve %s: %v", p, err)
		}
		if got != n {
			t.Fatalf("resolve %s: got a different node (%q vs %q)", p, got.Name, n.Name)
		}
		return true
	})
	if count != 7 {
		t.Fatalf("expected walk to visit 7 nodes, got %d", count)
	}
}

func TestResolve_Root(t *testing.T) {
	root := sampleTree()
	got, err := ResolveString(root, "root")
	if err != nil || got != root {
		t.Fatalf("expected root, got %v %v", got, err)
	}
}

func TestResolve_NotFound(t *testing.T) {
	root := sampleTree()
	for _, s := range []string{
		"root.children[2]",
		"root.children[0].children[0]",
		"root.spouses[0].spouses[0]",
	} {
		_, err := ResolveString(root, s)
		if !errors.Is(err, ErrNodeNotFound) {
			t.Fatalf("resolve %s: expected ErrNodeNotFound, got %v", s, err)
		}
	}

	var nf *NodeNotFoundError
	_, err := ResolveString(root, "root.children[1].children[5]")
	if !errors.As(err, &nf) {
		t.Fatalf("expected NodeNotFoundError, got %T", err)
	}
	if nf.Depth != 1 {
		t.Fatalf("expected failure at depth 1, got %d", nf.Depth)
	}

	if _, err := Resolve(nil, Root()); !errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("nil root: expected ErrNodeNotFound, got %v", err)
	}
}

func TestResolve_InvalidPathIsNotNotFound(t *testing.T) {
	_, err := ResolveString(sampleTree(), "root.children[x]")
	if !errors.Is(err, ErrInvalidPath) || errors.Is(err, ErrNodeNotFound) {
		t.Fatalf("expected only ErrInvalidPath, got %v", err)
	}
}

func TestWalk_OrderSpousesBeforeChildren(t *testing.T) {
	var got []int
	Walk(sampleTree(), func(n *model.PersonNode, _ Path) bool {
		got = append(got, n.Serial)
		return true
	})
	want := []int{1, 2, 7, 3, 4, 5, 6}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}

func TestFindBySerial(t *testing.T) {
	root := sampleTree()
	p, ok := FindBySerial(root, 5)
	if !ok || p.String() != "root.children[1].spouses[0]" {
		t.Fatalf("FindBySerial(5): %v %q", ok, p.String())
	}
	if _, ok := FindBySerial(root, 99); ok {
		t.Fatalf("expected serial 99 to be missing")
	}
}
