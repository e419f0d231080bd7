package convert

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/mdorg/internal/models"
)

// Failure describes one source that failed to convert.
type Failure struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// Summary counts the outcomes of a tree run. Refreshed counts outputs
// rewritten after the walk because a title they link to entered the index
// later in the same run.
type Summary struct {
	Converted int       `json:"converted"`
	Skipped   int       `json:"skipped"`
	Failed    int       `json:"failed"`
	Removed   int       `json:"removed"`
	Refreshed int       `json:"refreshed"`
	Failures  []Failure `json:"failures,omitempty"`
}

// ConvertTree converts every source under the source root, one at a time in
// walk order, so that links in later files resolve to earlier ones. With the
// ledger enabled, outputs of sources that have disappeared are removed first,
// and sources linking to a title first indexed during the walk are converted
// again once the walk is done.
//
// A failed file is logged and counted; the run continues unless the
// converter was built with WithContinueOnError(false).
func (c *Converter) ConvertTree(ctx context.Context) (Summary, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var sum Summary
	metas, err := c.src.List("", c.sourceExt)
	if err != nil {
		return sum, fmt.Errorf("convert: scan sources: %w", err)
	}

	removed, err := c.prune(metas)
	if err != nil {
		return sum, err
	}
	sum.Removed = removed

	var added []string
	for _, m := range metas {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		conv, isNew, err := c.convertFile(ctx, m.Path)
		if err != nil {
			sum.Failed++
			sum.Failures = append(sum.Failures, Failure{Source: m.Path, Error: err.Error()})
			if !c.continueOnError {
				return sum, err
			}
			continue
		}
		if conv.Status == models.StatusSkipped {
			sum.Skipped++
		} else {
			sum.Converted++
		}
		if isNew {
			added = append(added, conv.Title)
		}
	}

	for _, title := range added {
		if err := ctx.Err(); err != nil {
			return sum, err
		}
		sum.Refreshed += c.refreshDependents(ctx, title)
	}

	c.logger.Info("convert: run complete",
		slog.Int("converted", sum.Converted),
		slog.Int("skipped", sum.Skipped),
		slog.Int("failed", sum.Failed),
		slog.Int("removed", sum.Removed),
		slog.Int("refreshed", sum.Refreshed),
		slog.Int("indexed", c.index.Len()))
	return sum, nil
}

// prune removes outputs whose sources are recorded in the ledger but are no
// longer present on disk.
func (c *Converter) prune(metas []models.FileMeta) (int, error) {
	if c.ledger == nil {
		return 0, nil
	}
	recorded, err := c.ledger.AllChecksums()
	if err != nil {
		return 0, fmt.Errorf("convert: %w", err)
	}
	disk := make(map[string]struct{}, len(metas))
	for _, m := range metas {
		disk[m.Path] = struct{}{}
	}
	n := 0
	for source := range recorded {
		if _, ok := disk[source]; ok {
			continue
		}
		if _, err := c.remove(source); err != nil {
			c.logger.Warn("convert: prune failed", slog.String("source", source), slog.String("error", err.Error()))
			continue
		}
		n++
	}
	return n, nil
}
