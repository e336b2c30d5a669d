package mutate

import (
	"errors"
	"fmt"

	"familytree/internal/model"
	"familytree/internal/treepath"
)

type AddResult struct {
	Person  *model.PersonNode
	Path    treepath.Path
	Section treepath.SectionPath
	// Count is the section length after the add.
	Count int
}

// AddMember appends a new spouse or child under parentPath. The new node gets
// MaxSerial+1 and empty sections. Callers push the tree afterwards.
func AddMember(tree *model.FamilyTree, parentPath treepath.Path, role model.Role, fields model.Fields) (AddResult, error) {
	return AddMemberAbove(tree, parentPath, role, fields, 0)
}

// AddMemberAbove is AddMember with a lower bound on the assigned serial.
// Passing the highest serial handed out so far keeps serials unique even
// after the node holding the tree's maximum has been deleted.
func AddMemberAbove(tree *model.FamilyTree, parentPath treepath.Path, role model.Role, fields model.Fields, floor int) (AddResult, error) {
	field, ok := role.SectionField()
	if !ok {
		return AddResult{}, fmt.Errorf("invalid role %q", role)
	}
	if err := validateNewMember(fields); err != nil {
		return AddResult{}, err
	}
	root, err := rootOf(tree)
	if err != nil {
		return AddResult{}, err
	}
	parent, err := treepath.Resolve(root, parentPath)
	if err != nil {
		return AddResult{}, err
	}

	serial := MaxSerial(root)
	if floor > serial {
		serial = floor
	}
	n := model.PersonNode{
		Serial:   serial + 1,
		Spouses:  []model.PersonNode{},
		Children: []model.PersonNode{},
	}
	fields.ApplyTo(&n)

	sec := parent.Section(field)
	*sec = append(*sec, n)
	idx := len(*sec) - 1
	return AddResult{
		Person:  &(*sec)[idx],
		Path:    parentPath.Child(field, idx),
		Section: parentPath.Section(field),
		Count:   len(*sec),
	}, nil
}

type EditResult struct {
	Person  *model.PersonNode
	Path    treepath.Path
	Changed bool
}

// EditMember merges fields onto the node at path. Omitted keys, the serial
// and both sections are left alone. The root is editable.
func EditMember(tree *model.FamilyTree, path treepath.Path, fields model.Fields) (EditResult, error) {
	root, err := rootOf(tree)
	if err != nil {
		return EditResult{}, err
	}
	n, err := treepath.Resolve(root, path)
	if err != nil {
		return EditResult{}, err
	}
	before := model.FieldsOf(n)
	fields.ApplyTo(n)
	after := model.FieldsOf(n)
	return EditResult{Person: n, Path: path, Changed: !sameFields(before, after)}, nil
}

type DeleteResult struct {
	Removed model.PersonNode
	Path    treepath.Path
	Section treepath.SectionPath
	// Count is the section length after the delete.
	Count int
}

// DeleteMember removes the node at path together with its whole subtree.
// Later siblings shift down by one, so their old paths are stale afterwards.
func DeleteMember(tree *model.FamilyTree, path treepath.Path) (DeleteResult, error) {
	parentPath, last, ok := path.Parent()
	if !ok {
		return DeleteResult{}, ErrRootDelete
	}
	root, err := rootOf(tree)
	if err != nil {
		return DeleteResult{}, err
	}
	if _, err := treepath.Resolve(root, path); err != nil {
		return DeleteResult{}, err
	}
	parent, err := treepath.Resolve(root, parentPath)
	if err != nil {
		return DeleteResult{}, err
	}
	sec := parent.Section(last.Field)
	removed := (*sec)[last.Index]
	*sec = append((*sec)[:last.Index], (*sec)[last.Index+1:]...)
	return DeleteResult{
		Removed: removed,
		Path:    path,
		Section: parentPath.Section(last.Field),
		Count:   len(*sec),
	}, nil
}

func rootOf(tree *model.FamilyTree) (*model.PersonNode, error) {
	if tree == nil || tree.RootPerson == nil {
		return nil, errors.New("no family tree loaded")
	}
	return tree.RootPerson, nil
}

func sameFields(a, b model.Fields) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if b[k] != v {
			return false
		}
	}
	return true
}
