package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
)

// Dir serves jobs from a directory tree: job <id> is the directory
// <root>/<id>, and its pages are the *.json files in it, in lexical order.
// A page without its own NextToken links to the following file.
type Dir struct {
	root string
}

// NewDir returns a provider rooted at dir.
func NewDir(dir string) *Dir {
	return &Dir{root: dir}
}

// JobPath returns the directory holding a job's pages.
func (d *Dir) JobPath(jobID string) string {
	return filepath.Join(d.root, jobID)
}

func (d *Dir) GetPage(ctx context.Context, jobID, token string) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}
	if jobID == "" || !filepath.IsLocal(jobID) {
		return Page{}, fmt.Errorf("invalid job id %q", jobID)
	}

	files, err := d.pageFiles(jobID)
	if err != nil {
		return Page{}, err
	}
	if len(files) == 0 {
		return Page{}, fmt.Errorf("job %s has no pages: %w", jobID, ErrJobNotFound)
	}

	i := 0
	if token != "" {
		i = slices.Index(files, token)
		if i < 0 {
			return Page{}, fmt.Errorf("job %s: unknown page token %q", jobID, token)
		}
	}

	data, err := os.ReadFile(filepath.Join(d.JobPath(jobID), files[i]))
	if err != nil {
		return Page{}, fmt.Errorf("reading page %s: %w", files[i], err)
	}
	var page Page
	if err := json.Unmarshal(data, &page); err != nil {
		return Page{}, fmt.Errorf("parsing page %s: %w", files[i], err)
	}
	if page.NextToken == "" && i+1 < len(files) {
		page.NextToken = files[i+1]
	}
	return page, nil
}

func (d *Dir) pageFiles(jobID string) ([]string, error) {
	entries, err := os.ReadDir(d.JobPath(jobID))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("job %s: %w", jobID, ErrJobNotFound)
		}
		return nil, fmt.Errorf("reading job %s: %w", jobID, err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".json") {
			files = append(files, e.Name())
		}
	}
	slices.Sort(files)
	return files, nil
}
