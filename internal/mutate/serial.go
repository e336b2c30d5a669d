package mutate

import (
	"familytree/internal/model"
	"familytree/internal/treepath"
)

// MaxSerial returns the largest serial anywhere in the tree (0 for an empty
// tree). The scan is depth-first, spouses before children, and covers
// spouses' own subtrees as well as blood-line children.
func MaxSerial(root *model.PersonNode) int {
	max := 0
	treepath.Walk(root, func(n *model.PersonNode, _ treepath.Path) bool {
		if n.Serial > max {
			max = n.Serial
		}
		return true
	})
	return max
}
