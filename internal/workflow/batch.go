package workflow

import (
	"context"

	"go-outreach-automation/internal/scraper"
)

type BatchItem struct {
	Request Request      `json:"request"`
	Result  *Result      `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`
	Kind    scraper.Kind `json:"kind,omitempty"`
}

// RunBatch runs companies one after another with a pause in between. A failed company
// is recorded and the batch moves on. Only cancellation stops it early.
func (e *Engine) RunBatch(ctx context.Context, reqs []Request) ([]BatchItem, error) {
	items := make([]BatchItem, 0, len(reqs))
	for i, req := range reqs {
		if i > 0 {
			if err := e.sleep(ctx, e.opts.CompanyDelay); err != nil {
				return items, err
			}
		}
		res, err := e.Run(ctx, req)
		item := BatchItem{Request: req, Result: res}
		if err != nil {
			if ctx.Err() != nil {
				return items, ctx.Err()
			}
			item.Error = err.Error()
			item.Kind = scraper.KindOf(err)
		}
		items = append(items, item)
		e.Log.Infof("📦 Batch %d/%d done", i+1, len(reqs))
	}
	return items, nil
}
