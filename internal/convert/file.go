package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"time"

	"github.com/starford/mdorg/internal/checksum"
	"github.com/starford/mdorg/internal/ids"
	"github.com/starford/mdorg/internal/links"
	"github.com/starford/mdorg/internal/models"
	"github.com/starford/mdorg/internal/parser"
	"github.com/starford/mdorg/internal/render"
)

// ConvertFile converts the source at rel and writes its Org output.
// The returned conversion carries status StatusConverted or StatusSkipped;
// on failure the error is returned and the failure is recorded.
//
// When rel brings a new title into the index, sources already converted
// with a link to that title are converted again so the link resolves.
func (c *Converter) ConvertFile(ctx context.Context, rel string) (*models.Conversion, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	conv, added, err := c.convertFile(ctx, rel)
	if err != nil {
		return nil, err
	}
	if added {
		c.refreshDependents(ctx, conv.Title)
	}
	return conv, nil
}

// convertFile also reports whether the title of rel had no identifier in the
// index before this call and has one now.
func (c *Converter) convertFile(ctx context.Context, rel string) (*models.Conversion, bool, error) {
	title := parser.Title(rel)
	outRel := c.OutputPath(rel)
	conv := models.Conversion{
		Source: rel,
		Output: outRel,
		Title:  title,
	}

	data, err := c.src.Read(rel)
	if err != nil {
		return nil, false, c.fail(conv, fmt.Errorf("convert: read: %w", err))
	}
	conv.Checksum = checksum.Sum(data)

	if skipped, ok := c.unchanged(conv, data); ok {
		c.logger.Debug("convert: unchanged", slog.String("source", rel))
		return skipped, false, nil
	}

	note := parser.Parse(data)
	body, refs := c.rewriter.Rewrite(note.Body)

	workDir, err := c.out.EnsureDir(path.Dir(outRel))
	if err != nil {
		return nil, false, c.fail(conv, fmt.Errorf("convert: %w", err))
	}
	rendered, err := c.renderer.Render(ctx, body, render.Options{Name: rel, WorkDir: workDir})
	if err != nil {
		return nil, false, c.fail(conv, err)
	}

	_, had := c.index.Lookup(title)
	id, collision := c.index.Assign(title, outRel)
	if collision {
		owner, _ := c.index.Get(title)
		c.logger.Warn("convert: title already indexed, links resolve to the first file",
			slog.String("title", title),
			slog.String("source", rel),
			slog.String("owner", owner.Path))
	}
	conv.ID = id

	content := c.headers.Generate(title, note.Tags, note.Aliases, id) + rendered
	if err := c.out.Write(outRel, []byte(content)); err != nil {
		return nil, false, c.fail(conv, fmt.Errorf("convert: %w", err))
	}
	owns := c.index.Record(ids.Entry{Title: title, ID: id, Path: outRel})

	conv.Status = models.StatusConverted
	conv.ConvertedAt = time.Now().UTC()
	if c.ledger != nil {
		if err := c.ledger.UpsertConversion(conv, c.linkRows(rel, refs)); err != nil {
			c.logger.Warn("convert: ledger update failed", slog.String("source", rel), slog.String("error", err.Error()))
		}
	}
	c.notify(conv)
	c.logger.Info("converted",
		slog.String("source", rel),
		slog.String("output", outRel),
		slog.Int("links", len(refs)),
		slog.Int("unresolved", len(links.Unresolved(refs))))
	return &conv, !had && owns, nil
}

// unchanged reports whether rel can be skipped: the ledger holds the same
// checksum from a successful conversion, the output still exists with an
// identifier in the index, and every recorded link still resolves the way
// it did when the output was written.
func (c *Converter) unchanged(conv models.Conversion, data []byte) (*models.Conversion, bool) {
	if c.force || c.ledger == nil {
		return nil, false
	}
	prev, err := c.ledger.GetChecksum(conv.Source)
	if err != nil || !checksum.Matches(data, prev) {
		return nil, false
	}
	if !c.out.Exists(conv.Output) {
		return nil, false
	}
	e, ok := c.index.ByPath(conv.Output)
	if !ok || e.Title != conv.Title {
		return nil, false
	}
	if !c.linksCurrent(conv.Source) {
		return nil, false
	}
	conv.ID = e.ID
	conv.Status = models.StatusSkipped
	return &conv, true
}

// linksCurrent compares the link rows recorded for source with the index:
// an unresolved target that now has an identifier, or a resolved target
// whose identifier changed or disappeared, makes the output stale.
func (c *Converter) linksCurrent(source string) bool {
	if c.mode == links.ModePlain {
		return true
	}
	rows, err := c.ledger.Links(source)
	if err != nil {
		c.logger.Warn("convert: ledger links failed", slog.String("source", source), slog.String("error", err.Error()))
		return false
	}
	for _, l := range rows {
		id, _ := c.index.Lookup(l.Target)
		if id != l.ID {
			return false
		}
	}
	return true
}

// refreshDependents converts again every recorded source still present that
// links to title. It does not recurse: a dependent's own title is already
// in the index. It returns how many outputs were rewritten.
func (c *Converter) refreshDependents(ctx context.Context, title string) int {
	if c.ledger == nil {
		return 0
	}
	sources, err := c.ledger.Backlinks(title)
	if err != nil {
		c.logger.Warn("convert: backlinks failed", slog.String("title", title), slog.String("error", err.Error()))
		return 0
	}
	n := 0
	for _, source := range sources {
		if !c.src.Exists(source) {
			continue
		}
		conv, _, err := c.convertFile(ctx, source)
		if err != nil {
			continue
		}
		if conv.Status == models.StatusConverted {
			n++
		}
	}
	if n > 0 {
		c.logger.Info("convert: refreshed dependents", slog.String("title", title), slog.Int("count", n))
	}
	return n
}

func (c *Converter) fail(conv models.Conversion, err error) error {
	conv.Status = models.StatusFailed
	conv.Error = err.Error()
	conv.Checksum = ""
	conv.ConvertedAt = time.Now().UTC()
	if c.ledger != nil {
		if lerr := c.ledger.UpsertConversion(conv, nil); lerr != nil {
			c.logger.Warn("convert: ledger update failed", slog.String("source", conv.Source), slog.String("error", lerr.Error()))
		}
	}
	c.notify(conv)
	c.logger.Warn("convert: failed", slog.String("source", conv.Source), slog.String("error", err.Error()))
	return fmt.Errorf("%s: %w", conv.Source, err)
}

func (c *Converter) notify(conv models.Conversion) {
	if c.notifier != nil {
		c.notifier.ConversionDone(conv)
	}
}

// linkRows turns rewrite references into ledger rows. A reference counts as
// resolved when its target has an identifier, whatever the link mode.
func (c *Converter) linkRows(source string, refs []links.Ref) []models.Link {
	rows := make([]models.Link, 0, len(refs))
	for _, r := range refs {
		id := r.ID
		if id == "" {
			id, _ = c.index.Lookup(r.Target)
		}
		rows = append(rows, models.Link{
			Source:   source,
			Target:   r.Target,
			ID:       id,
			Resolved: id != "",
		})
	}
	return rows
}

// Remove deletes the output of a source that no longer exists, forgets its
// identifier and drops its ledger record. Sources linking to the removed
// title are converted again so they stop pointing at its identifier.
func (c *Converter) Remove(ctx context.Context, rel string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	title, err := c.remove(rel)
	if err != nil {
		return err
	}
	if title != "" {
		c.refreshDependents(ctx, title)
	}
	return nil
}

// remove returns the title whose identifier was forgotten, if any.
func (c *Converter) remove(rel string) (string, error) {
	outRel := c.OutputPath(rel)
	forgotten, _ := c.index.Forget(outRel)

	if err := c.out.Delete(outRel); err != nil && !errors.Is(err, os.ErrNotExist) {
		return "", fmt.Errorf("convert: remove %s: %w", outRel, err)
	}
	if c.ledger != nil {
		if err := c.ledger.DeleteConversion(rel); err != nil {
			return "", fmt.Errorf("convert: %w", err)
		}
	}
	if c.notifier != nil {
		c.notifier.OutputRemoved(rel, outRel)
	}
	c.logger.Info("removed", slog.String("source", rel), slog.String("output", outRel))
	return forgotten.Title, nil
}
