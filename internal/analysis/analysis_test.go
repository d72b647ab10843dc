package analysis

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cleared-dev/stmtqbo/internal/model"
)

type fakeProvider struct {
	pages map[string]Page
	calls []string
	err   error
}

func (f *fakeProvider) GetPage(_ context.Context, jobID, token string) (Page, error) {
	f.calls = append(f.calls, token)
	if f.err != nil {
		return Page{}, f.err
	}
	p, ok := f.pages[token]
	if !ok {
		return Page{}, ErrJobNotFound
	}
	return p, nil
}

func ids(blocks []model.Block) []string {
	var out []string
	for _, b := range blocks {
		out = append(out, b.ID)
	}
	return out
}

func TestFetchAll_PreservesOrder(t *testing.T) {
	p := &fakeProvider{pages: map[string]Page{
		"":   {Blocks: []model.Block{{ID: "a"}, {ID: "b"}}, NextToken: "t1"},
		"t1": {Blocks: []model.Block{{ID: "c"}}, NextToken: "t2"},
		"t2": {Blocks: []model.Block{{ID: "d"}}},
	}}
	blocks, pages, err := FetchAll(context.Background(), p, "job")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(blocks))
	assert.Equal(t, 3, pages)
	assert.Equal(t, []string{"", "t1", "t2"}, p.calls)
}

func TestFetchAll_Error(t *testing.T) {
	p := &fakeProvider{err: errors.New("throttled")}
	_, _, err := FetchAll(context.Background(), p, "job")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "throttled")
}

func TestFetchAll_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := FetchAll(ctx, &fakeProvider{}, "job")
	assert.ErrorIs(t, err, context.Canceled)
}

func writePage(t *testing.T, dir, name string, p Page) {
	t.Helper()
	data, err := json.Marshal(p)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), data, 0o644))
}

func TestDir_FetchAll(t *testing.T) {
	root := t.TempDir()
	job := filepath.Join(root, "job-1")
	require.NoError(t, os.MkdirAll(job, 0o755))
	writePage(t, job, "002.json", Page{Blocks: []model.Block{{ID: "c"}}})
	writePage(t, job, "001.json", Page{Blocks: []model.Block{{ID: "a"}, {ID: "b"}}})
	require.NoError(t, os.WriteFile(filepath.Join(job, "notes.txt"), []byte("ignored"), 0o644))

	blocks, pages, err := FetchAll(context.Background(), NewDir(root), "job-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids(blocks))
	assert.Equal(t, 2, pages)
}

func TestDir_ExplicitNextToken(t *testing.T) {
	root := t.TempDir()
	job := filepath.Join(root, "job")
	require.NoError(t, os.MkdirAll(job, 0o755))
	writePage(t, job, "a.json", Page{Blocks: []model.Block{{ID: "1"}}, NextToken: "c.json"})
	writePage(t, job, "b.json", Page{Blocks: []model.Block{{ID: "skipped"}}})
	writePage(t, job, "c.json", Page{Blocks: []model.Block{{ID: "2"}}})

	blocks, _, err := FetchAll(context.Background(), NewDir(root), "job")
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2"}, ids(blocks))
}

func TestDir_PageJSON(t *testing.T) {
	root := t.TempDir()
	job := filepath.Join(root, "job")
	require.NoError(t, os.MkdirAll(job, 0o755))
	raw := `{"Blocks":[{"BlockType":"CELL","Id":"c1","Page":2,"RowIndex":1,"ColumnIndex":3,"Relationships":[{"Type":"CHILD","Ids":["w1"]}]}]}`
	require.NoError(t, os.WriteFile(filepath.Join(job, "p.json"), []byte(raw), 0o644))

	page, err := NewDir(root).GetPage(context.Background(), "job", "")
	require.NoError(t, err)
	require.Len(t, page.Blocks, 1)
	b := page.Blocks[0]
	assert.Equal(t, model.BlockCell, b.Type)
	assert.Equal(t, 2, b.Page)
	assert.Equal(t, 3, b.ColumnIndex)
	assert.Equal(t, []string{"w1"}, b.Children())
	assert.Empty(t, page.NextToken)
}

func TestDir_Errors(t *testing.T) {
	root := t.TempDir()
	d := NewDir(root)
	ctx := context.Background()

	_, err := d.GetPage(ctx, "missing", "")
	assert.ErrorIs(t, err, ErrJobNotFound)

	require.NoError(t, os.MkdirAll(filepath.Join(root, "empty"), 0o755))
	_, err = d.GetPage(ctx, "empty", "")
	assert.ErrorIs(t, err, ErrJobNotFound)

	_, err = d.GetPage(ctx, "../outside", "")
	assert.Error(t, err)

	job := filepath.Join(root, "bad")
	require.NoError(t, os.MkdirAll(job, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(job, "1.json"), []byte("{"), 0o644))
	_, err = d.GetPage(ctx, "bad", "")
	assert.Error(t, err)
	_, err = d.GetPage(ctx, "bad", "nope.json")
	assert.Error(t, err)
}
