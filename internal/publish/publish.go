// Package publish writes the family tree as a small static markdown site:
// an index with the whole outline and one page per person.
package publish

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"familytree/internal/render"
)

type WriteOptions struct {
	Overwrite bool
}

type WriteResult struct {
	Written []string `json:"written"`
}

// WriteFamily renders t, which must have every section expanded, under toDir.
func WriteFamily(t render.DisplayTree, toDir string, opt WriteOptions) (WriteResult, error) {
	toDir = strings.TrimSpace(toDir)
	if toDir == "" {
		return WriteResult{}, errors.New("missing --to")
	}
	if t.Root == nil {
		return WriteResult{}, errors.New("nothing to publish: the tree has no root person")
	}
	toDir = filepath.Clean(toDir)
	peopleDir := filepath.Join(toDir, "people")
	if err := os.MkdirAll(peopleDir, 0o755); err != nil {
		return WriteResult{}, err
	}

	indexPath := filepath.Join(toDir, "index.md")
	if err := writeFile(indexPath, []byte(RenderIndexMarkdown(t)), opt.Overwrite); err != nil {
		return WriteResult{}, err
	}
	written := []string{indexPath}

	// Stop on the first error.
	var walkErr error
	var walk func(c *render.DisplayCard)
	walk = func(c *render.DisplayCard) {
		if walkErr != nil {
			return
		}
		p := filepath.Join(peopleDir, personFile(c))
		if err := writeFile(p, []byte(RenderPersonMarkdown(t.FamilyName, c)), opt.Overwrite); err != nil {
			walkErr = err
			return
		}
		written = append(written, p)
		for i := range c.Sections {
			for j := range c.Sections[i].Members {
				walk(&c.Sections[i].Members[j])
			}
		}
	}
	walk(t.Root)
	if walkErr != nil {
		return WriteResult{}, walkErr
	}
	return WriteResult{Written: written}, nil
}

func writeFile(path string, b []byte, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return errors.New("file exists (use --overwrite): " + path)
		}
	}
	return os.WriteFile(path, b, 0o644)
}
