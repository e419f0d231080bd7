package ledger

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/mdorg/internal/apperr"
	"github.com/starford/mdorg/internal/models"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "state", "ledger.db"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func conv(source, cs, status string) models.Conversion {
	return models.Conversion{
		Source:      source,
		Output:      source[:len(source)-3] + ".org",
		Title:       source[:len(source)-3],
		ID:          "id-" + source,
		Checksum:    cs,
		Status:      status,
		ConvertedAt: time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func TestSchemaCreation(t *testing.T) {
	db := testDB(t)
	var count int
	if err := db.conn.QueryRow(`SELECT count(*) FROM conversions`).Scan(&count); err != nil {
		t.Fatalf("conversions table missing: %v", err)
	}
	if err := db.conn.QueryRow(`SELECT count(*) FROM links`).Scan(&count); err != nil {
		t.Fatalf("links table missing: %v", err)
	}
}

func TestUpsertAndGet(t *testing.T) {
	db := testDB(t)
	c := conv("A.md", "abc", models.StatusConverted)
	if err := db.UpsertConversion(c, nil); err != nil {
		t.Fatalf("UpsertConversion: %v", err)
	}
	got, err := db.GetConversion("A.md")
	if err != nil {
		t.Fatalf("GetConversion: %v", err)
	}
	if diff := cmp.Diff(c, *got, cmp.Comparer(func(a, b time.Time) bool { return a.Equal(b) })); diff != "" {
		t.Errorf("GetConversion mismatch (-want +got):\n%s", diff)
	}
}

func TestGetConversion_NotFound(t *testing.T) {
	db := testDB(t)
	_, err := db.GetConversion("missing.md")
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestGetChecksum(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertConversion(conv("ok.md", "1", models.StatusConverted), nil)
	_ = db.UpsertConversion(conv("bad.md", "2", models.StatusFailed), nil)

	if cs, _ := db.GetChecksum("ok.md"); cs != "1" {
		t.Errorf("checksum = %q, want %q", cs, "1")
	}
	if cs, _ := db.GetChecksum("bad.md"); cs != "" {
		t.Errorf("failed conversion checksum = %q, want empty", cs)
	}
	cs, err := db.GetChecksum("nonexistent.md")
	if err != nil || cs != "" {
		t.Errorf("GetChecksum(missing) = (%q, %v)", cs, err)
	}
}

func TestUpsertReplacesLinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertConversion(conv("B.md", "1", models.StatusConverted), []models.Link{
		{Target: "A", ID: "u", Resolved: true},
		{Target: "Missing"},
	})
	_ = db.UpsertConversion(conv("B.md", "2", models.StatusConverted), []models.Link{
		{Target: "C"},
	})

	if bl, _ := db.Backlinks("A"); len(bl) != 0 {
		t.Errorf("old link should be removed on upsert, got %v", bl)
	}
	bl, _ := db.Backlinks("C")
	if diff := cmp.Diff([]string{"B.md"}, bl); diff != "" {
		t.Errorf("Backlinks mismatch (-want +got):\n%s", diff)
	}
}

func TestLinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertConversion(conv("B.md", "1", models.StatusConverted), []models.Link{
		{Target: "Zed"},
		{Target: "A", ID: "u", Resolved: true},
	})
	_ = db.UpsertConversion(conv("C.md", "1", models.StatusConverted), []models.Link{
		{Target: "A", ID: "u", Resolved: true},
	})

	got, err := db.Links("B.md")
	if err != nil {
		t.Fatalf("Links: %v", err)
	}
	want := []models.Link{
		{Source: "B.md", Target: "A", ID: "u", Resolved: true},
		{Source: "B.md", Target: "Zed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Links mismatch (-want +got):\n%s", diff)
	}
	if got, _ := db.Links("none.md"); len(got) != 0 {
		t.Errorf("Links(none.md) = %v, want empty", got)
	}
}

func TestUnresolvedLinks(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertConversion(conv("B.md", "1", models.StatusConverted), []models.Link{
		{Target: "A", ID: "u", Resolved: true},
		{Target: "Zed"},
		{Target: "Missing"},
	})
	got, err := db.UnresolvedLinks()
	if err != nil {
		t.Fatalf("UnresolvedLinks: %v", err)
	}
	want := []models.Link{
		{Source: "B.md", Target: "Missing"},
		{Source: "B.md", Target: "Zed"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("UnresolvedLinks mismatch (-want +got):\n%s", diff)
	}
}

func TestDeleteConversion(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertConversion(conv("del.md", "x", models.StatusConverted), []models.Link{{Target: "T"}})

	if err := db.DeleteConversion("del.md"); err != nil {
		t.Fatalf("DeleteConversion: %v", err)
	}
	if _, err := db.GetConversion("del.md"); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("deleted conversion still present: %v", err)
	}
	if bl, _ := db.Backlinks("T"); len(bl) != 0 {
		t.Errorf("expected 0 backlinks after delete, got %d", len(bl))
	}
}

func TestListConversions(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertConversion(conv("c.md", "3", models.StatusConverted), nil)
	_ = db.UpsertConversion(conv("a.md", "1", models.StatusConverted), nil)
	_ = db.UpsertConversion(conv("b.md", "2", models.StatusFailed), nil)

	all, total, err := db.ListConversions("", 0, 0)
	if err != nil {
		t.Fatalf("ListConversions: %v", err)
	}
	if total != 3 || len(all) != 3 || all[0].Source != "a.md" || all[2].Source != "c.md" {
		t.Errorf("ListConversions = %d rows (total %d), first %+v", len(all), total, all)
	}

	page, total, _ := db.ListConversions("", 1, 1)
	if total != 3 || len(page) != 1 || page[0].Source != "b.md" {
		t.Errorf("page = %+v (total %d), want b.md", page, total)
	}

	failed, total, _ := db.ListConversions(models.StatusFailed, 0, 0)
	if total != 1 || len(failed) != 1 || failed[0].Source != "b.md" {
		t.Errorf("failed = %+v (total %d)", failed, total)
	}
}

func TestSummary(t *testing.T) {
	db := testDB(t)
	_ = db.UpsertConversion(conv("a.md", "1", models.StatusConverted), []models.Link{{Target: "X", Resolved: true, ID: "x"}})
	_ = db.UpsertConversion(conv("b.md", "2", models.StatusFailed), []models.Link{{Target: "Y"}})

	got, err := db.Summary()
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	want := Summary{Total: 2, Converted: 1, Failed: 1, Links: 2, Unresolved: 1}
	if got != want {
		t.Errorf("Summary = %+v, want %+v", got, want)
	}
}
