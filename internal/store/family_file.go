package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"familytree/internal/model"
	"familytree/internal/syncgw"

	"github.com/go-playground/validator/v10"
)

var ErrInvalidImport = errors.New("invalid family tree JSON structure")

type InvalidImportError struct {
	Reason string
	Err    error
}

func (e *InvalidImportError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", ErrInvalidImport, e.Reason, e.Err)
	}
	return fmt.Sprintf("%s: %s", ErrInvalidImport, e.Reason)
}

func (e *InvalidImportError) Unwrap() error        { return e.Err }
func (e *InvalidImportError) Is(target error) bool { return target == ErrInvalidImport }

var validate = validator.New(validator.WithRequiredStructEnabled())

// DecodeFamily parses an imported or uploaded document. It only checks the
// shape: a non-empty familyName and a rootPerson object must be present.
func DecodeFamily(r io.Reader) (*model.FamilyTree, error) {
	b, err := io.ReadAll(r)
	if err != nil {
		return nil, &InvalidImportError{Reason: "read", Err: err}
	}
	return DecodeFamilyBytes(b)
}

func DecodeFamilyBytes(b []byte) (*model.FamilyTree, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return nil, &InvalidImportError{Reason: "error parsing JSON", Err: err}
	}
	if isNullOrEmpty(raw["rootPerson"]) || !isObject(raw["rootPerson"]) {
		return nil, &InvalidImportError{Reason: "rootPerson is missing"}
	}
	var ft model.FamilyTree
	if err := json.Unmarshal(b, &ft); err != nil {
		return nil, &InvalidImportError{Reason: "error parsing JSON", Err: err}
	}
	ft.FamilyName = strings.TrimSpace(ft.FamilyName)
	if err := validate.Struct(ft); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			return nil, &InvalidImportError{Reason: lowerFirst(verrs[0].Field()) + " is missing"}
		}
		return nil, &InvalidImportError{Reason: "validation", Err: err}
	}
	return &ft, nil
}

func isNullOrEmpty(b []byte) bool {
	if len(b) == 0 {
		return true
	}
	s := strings.TrimSpace(string(b))
	return s == "" || s == "null"
}

func isObject(b []byte) bool {
	return strings.HasPrefix(strings.TrimSpace(string(b)), "{")
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

// ExportFileName is "<familyName>.json", or "family_tree.json" without a name.
func ExportFileName(ft *model.FamilyTree) string {
	name := ""
	if ft != nil {
		name = strings.TrimSpace(ft.FamilyName)
	}
	if name == "" {
		name = "family_tree"
	}
	name = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|':
			return '_'
		}
		return r
	}, name)
	return name + ".json"
}

// WriteFamilyFile writes ft to path atomically, in the export format.
func WriteFamilyFile(path string, ft *model.FamilyTree) error {
	b, err := syncgw.Encode(ft)
	if err != nil {
		return err
	}
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return atomicWriteFile(dir, filepath.Base(path)+".*.tmp", path, b, 0o644)
}

// ReadFamilyFile reads and shape-checks an exported document.
func ReadFamilyFile(path string) (*model.FamilyTree, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeFamily(f)
}
