// Package analysis fetches the block graph produced by a document analysis
// job.
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/cleared-dev/stmtqbo/internal/model"
)

// ErrJobNotFound is returned by providers for an unknown job id.
var ErrJobNotFound = errors.New("analysis job not found")

// Page is one page of a job's result.
type Page struct {
	Blocks    []model.Block `json:"Blocks"`
	NextToken string        `json:"NextToken,omitempty"`
}

// Provider returns the pages of a job. An empty token requests the first
// page; an empty NextToken ends the result.
type Provider interface {
	GetPage(ctx context.Context, jobID, token string) (Page, error)
}

// maxPages stops a provider that keeps returning tokens.
const maxPages = 10000

// FetchAll concatenates the blocks of every page of a job, in page order.
func FetchAll(ctx context.Context, p Provider, jobID string) ([]model.Block, int, error) {
	var blocks []model.Block
	token := ""
	for pages := 0; ; pages++ {
		if pages == maxPages {
			return nil, pages, fmt.Errorf("job %s: more than %d pages", jobID, maxPages)
		}
		if err := ctx.Err(); err != nil {
			return nil, pages, err
		}
		page, err := p.GetPage(ctx, jobID, token)
		if err != nil {
			return nil, pages, fmt.Errorf("fetching page %d of job %s: %w", pages+1, jobID, err)
		}
		blocks = append(blocks, page.Blocks...)
		if page.NextToken == "" {
			return blocks, pages + 1, nil
		}
		token = page.NextToken
	}
}
