package app

import (
	"familytree/internal/render"
)

type PatchKind string

const (
	// PatchTree replaces the whole rendered tree.
	PatchTree PatchKind = "tree"
	// PatchCard replaces one card (and its rendered sections) in place.
	PatchCard PatchKind = "card"
	// PatchSection replaces one section: header, toggle and content.
	PatchSection PatchKind = "section"
	// PatchSectionAppend appends Card to the end of an expanded section.
	PatchSectionAppend PatchKind = "section-append"
	// PatchSectionHeader updates only a section's title and count.
	PatchSectionHeader PatchKind = "section-header"
	// PatchSync updates the persistence indicator.
	PatchSync PatchKind = "sync"
)

// Patch is one display update. Only the fields relevant to Kind are set.
// Target is the element id the update applies to.
type Patch struct {
	Kind    PatchKind              `json:"kind"`
	Target  string                 `json:"target,omitempty"`
	Tree    *render.DisplayTree    `json:"tree,omitempty"`
	Card    *render.DisplayCard    `json:"card,omitempty"`
	Section *render.DisplaySection `json:"section,omitempty"`
	Sync    *SyncState             `json:"sync,omitempty"`
}
