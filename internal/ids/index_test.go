package ids

import (
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/starford/mdorg/internal/storage"
)

func counterGen() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func TestAssign_NewTitleMintsID(t *testing.T) {
	x := New(WithGenerator(counterGen()))
	id, collision := x.Assign("A", "A.org")
	if id != "id-1" || collision {
		t.Errorf("Assign = (%q, %v), want (id-1, false)", id, collision)
	}
	if _, ok := x.Lookup("A"); ok {
		t.Error("Assign must not record the entry")
	}
}

func TestAssign_ReusesIDForSamePath(t *testing.T) {
	x := New(WithGenerator(counterGen()))
	x.Record(Entry{Title: "A", ID: "keep", Path: "A.org"})
	id, collision := x.Assign("A", "A.org")
	if id != "keep" || collision {
		t.Errorf("Assign = (%q, %v), want (keep, false)", id, collision)
	}
}

func TestAssign_CollisionGetsFreshID(t *testing.T) {
	x := New(WithGenerator(counterGen()))
	x.Record(Entry{Title: "A", ID: "first", Path: "x/A.org"})
	id, collision := x.Assign("A", "y/A.org")
	if id == "first" || !collision {
		t.Errorf("Assign = (%q, %v), want fresh id and collision", id, collision)
	}
}

func TestAssign_CollisionKeepsRecordedID(t *testing.T) {
	x := New(WithGenerator(counterGen()))
	x.Record(Entry{Title: "A", ID: "first", Path: "x/A.org"})
	x.Record(Entry{Title: "A", ID: "second", Path: "y/A.org"})

	id, collision := x.Assign("A", "y/A.org")
	if id != "second" || !collision {
		t.Errorf("Assign = (%q, %v), want (second, true)", id, collision)
	}
	if e, ok := x.ByPath("y/A.org"); !ok || e.ID != "second" {
		t.Errorf("ByPath = (%+v, %v)", e, ok)
	}
	if got, _ := x.Lookup("A"); got != "first" {
		t.Errorf("Lookup = %q, want first", got)
	}
	if x.Len() != 1 {
		t.Errorf("Len = %d, want 1", x.Len())
	}
}

func TestForget_PromotesCollidingEntry(t *testing.T) {
	x := New()
	x.Record(Entry{Title: "A", ID: "1", Path: "a/A.org"})
	x.Record(Entry{Title: "A", ID: "3", Path: "c/A.org"})
	x.Record(Entry{Title: "A", ID: "2", Path: "b/A.org"})

	if _, ok := x.Forget("a/A.org"); !ok {
		t.Fatal("Forget owner reported nothing removed")
	}
	if got, _ := x.Lookup("A"); got != "2" {
		t.Errorf("Lookup after forgetting owner = %q, want 2", got)
	}
	if e, ok := x.Forget("c/A.org"); !ok || e.ID != "3" {
		t.Errorf("Forget shadowed = (%+v, %v)", e, ok)
	}
	if got, _ := x.Lookup("A"); got != "2" {
		t.Errorf("Lookup after forgetting collider = %q, want 2", got)
	}
	if _, ok := x.ByPath("c/A.org"); ok {
		t.Error("forgotten collider still reported by ByPath")
	}
}

func TestRecord_FirstWriterWins(t *testing.T) {
	x := New()
	if !x.Record(Entry{Title: "A", ID: "1", Path: "x/A.org"}) {
		t.Fatal("first record should succeed")
	}
	if x.Record(Entry{Title: "A", ID: "2", Path: "y/A.org"}) {
		t.Error("second path must not take over the title")
	}
	if id, _ := x.Lookup("A"); id != "1" {
		t.Errorf("Lookup = %q, want 1", id)
	}
	if !x.Record(Entry{Title: "A", ID: "3", Path: "x/A.org"}) {
		t.Error("owner path should be able to update its entry")
	}
	if id, _ := x.Lookup("A"); id != "3" {
		t.Errorf("Lookup = %q, want 3", id)
	}
}

func TestStableWithinRun(t *testing.T) {
	x := New()
	id, _ := x.Assign("Note", "Note.org")
	x.Record(Entry{Title: "Note", ID: id, Path: "Note.org"})
	for i := 0; i < 3; i++ {
		got, ok := x.Lookup("Note")
		if !ok || got != id {
			t.Fatalf("lookup %d = (%q, %v), want %q", i, got, ok, id)
		}
	}
}

func TestForget(t *testing.T) {
	x := New()
	x.Record(Entry{Title: "A", ID: "1", Path: "A.org"})
	e, ok := x.Forget("A.org")
	if !ok || e.ID != "1" {
		t.Errorf("Forget = (%+v, %v)", e, ok)
	}
	if x.Len() != 0 {
		t.Errorf("Len = %d, want 0", x.Len())
	}
	if _, ok := x.Forget("A.org"); ok {
		t.Error("second Forget should report nothing removed")
	}
}

func TestSnapshotSorted(t *testing.T) {
	x := New()
	x.Record(Entry{Title: "b", ID: "2", Path: "b.org"})
	x.Record(Entry{Title: "a", ID: "1", Path: "a.org"})
	want := []Entry{{Title: "a", ID: "1", Path: "a.org"}, {Title: "b", ID: "2", Path: "b.org"}}
	if diff := cmp.Diff(want, x.Snapshot()); diff != "" {
		t.Errorf("snapshot mismatch (-want +got):\n%s", diff)
	}
}

func TestConcurrentAccess(t *testing.T) {
	x := New()
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			title := fmt.Sprintf("n%d", i%5)
			x.Record(Entry{Title: title, ID: "x", Path: title + ".org"})
			x.Lookup(title)
			x.Snapshot()
		}(i)
	}
	wg.Wait()
	if x.Len() != 5 {
		t.Errorf("Len = %d, want 5", x.Len())
	}
}

func TestNewID_Unique(t *testing.T) {
	a, b := NewID(), NewID()
	if a == b || len(a) != 36 {
		t.Errorf("NewID produced %q and %q", a, b)
	}
}

func TestExtractID(t *testing.T) {
	cases := []struct {
		name, in, want string
		ok             bool
	}{
		{"drawer", ":PROPERTIES:\n:ID: abc-123\n:END:\n#+title: A\n", "abc-123", true},
		{"directive", "#+title: A\n#+filetags:\n#+id: def-456\n", "def-456", true},
		{"directive upper", "#+ID: up\n", "up", true},
		{"none", "#+title: A\nbody\n", "", false},
		{"empty value", ":ID:\n", "", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := ExtractID([]byte(tc.in))
			if got != tc.want || ok != tc.ok {
				t.Errorf("ExtractID = (%q, %v), want (%q, %v)", got, ok, tc.want, tc.ok)
			}
		})
	}
}

func TestBuild(t *testing.T) {
	dir := t.TempDir()
	store, err := storage.NewFS(dir)
	if err != nil {
		t.Fatal(err)
	}
	_ = store.Write("A.org", []byte(":PROPERTIES:\n:ID: id-a\n:END:\n#+title: A\n"))
	_ = store.Write("sub/B.org", []byte("#+title: B\n#+id: id-b\n"))
	_ = store.Write("NoID.org", []byte("#+title: NoID\n"))
	_ = store.Write("C.md", []byte(":ID: not-org\n"))

	x, err := Build(store, ".org")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	want := []Entry{
		{Title: "A", ID: "id-a", Path: "A.org"},
		{Title: "B", ID: "id-b", Path: "sub/B.org"},
	}
	if diff := cmp.Diff(want, x.Snapshot()); diff != "" {
		t.Errorf("index mismatch (-want +got):\n%s", diff)
	}
}

func TestBuild_TitleCollisionFirstWins(t *testing.T) {
	dir := t.TempDir()
	store, _ := storage.NewFS(dir)
	_ = store.Write("a/Same.org", []byte("#+id: first\n"))
	_ = store.Write("b/Same.org", []byte("#+id: second\n"))

	x, err := Build(store, ".org")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if id, _ := x.Lookup("Same"); id != "first" {
		t.Errorf("Lookup = %q, want first", id)
	}
	if e, _ := x.ByPath("b/Same.org"); e.ID != "second" {
		t.Errorf("ByPath(b/Same.org) = %q, want second", e.ID)
	}
}

func TestBuild_EmptyDir(t *testing.T) {
	store, _ := storage.NewFS(t.TempDir())
	x, err := Build(store, ".org")
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if x.Len() != 0 {
		t.Errorf("Len = %d, want 0", x.Len())
	}
}
