package treepath

import (
	"fmt"

	"familytree/internal/model"
)

type NodeNotFoundError struct {
	Path string
	// Depth is the number of steps that resolved before the walk failed.
	Depth  int
	Reason string
}

func (e *NodeNotFoundError) Error() string {
	return fmt.Sprintf("node not found at %s: %s", e.Path, e.Reason)
}

func (e *NodeNotFoundError) Is(target error) bool { return target == ErrNodeNotFound }

// Resolve walks from root along p and returns the live node. Every call
// re-walks from the root.
func Resolve(root *model.PersonNode, p Path) (*model.PersonNode, error) {
	if root == nil {
		return nil, &NodeNotFoundError{Path: p.String(), Reason: "tree has no root person"}
	}
	cur := root
	for i, st := range p.steps {
		sec := cur.Section(st.Field)
		if sec == nil {
			return nil, &NodeNotFoundError{Path: p.String(), Depth: i, Reason: fmt.Sprintf("no field %q", st.Field)}
		}
		if st.Index < 0 || st.Index >= len(*sec) {
			return nil, &NodeNotFoundError{Path: p.String(), Depth: i, Reason: fmt.Sprintf("%s has %d entries", st, len(*sec))}
		}
		cur = &(*sec)[st.Index]
	}
	return cur, nil
}

// ResolveString parses s and resolves it.
func ResolveString(root *model.PersonNode, s string) (*model.PersonNode, error) {
	p, err := Parse(s)
	if err != nil {
		return nil, err
	}
	return Resolve(root, p)
}

// Walk visits every node depth-first: the node itself, then its spouses'
// subtrees, then its children's subtrees. Returning false stops the walk.
func Walk(root *model.PersonNode, fn func(n *model.PersonNode, p Path) bool) {
	if root == nil {
		return
	}
	walk(root, Root(), fn)
}

func walk(n *model.PersonNode, p Path, fn func(*model.PersonNode, Path) bool) bool {
	if !fn(n, p) {
		return false
	}
	for i := range n.Spouses {
		if !walk(&n.Spouses[i], p.Child(model.FieldSpouses, i), fn) {
			return false
		}
	}
	for i := range n.Children {
		if !walk(&n.Children[i], p.Child(model.FieldChildren, i), fn) {
			return false
		}
	}
	return true
}

// FindBySerial returns the current path of the node with the given serial.
func FindBySerial(root *model.PersonNode, serial int) (Path, bool) {
	var found Path
	ok := false
	Walk(root, func(n *model.PersonNode, p Path) bool {
		if n.Serial == serial {
			found, ok = p, true
			return false
		}
		return true
	})
	return found, ok
}
