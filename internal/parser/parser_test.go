package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestExtractTags_Block(t *testing.T) {
	body, tags := ExtractTags("tags:\n- a\n- b\n")
	if body != "" {
		t.Errorf("body = %q, want empty", body)
	}
	if diff := cmp.Diff([]string{"a", "b"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTags_NoBlock(t *testing.T) {
	cases := []string{
		"",
		"# Heading\nplain text\n",
		"tags: inline value\n",
		"tags:\n- \"quoted\"\n",
		"tags:\n- two words\n",
		"tags:\n* star\n",
		"hashtags:\n- a\n",
	}
	for _, in := range cases {
		body, tags := ExtractTags(in)
		if body != in {
			t.Errorf("ExtractTags(%q) body = %q, want unchanged", in, body)
		}
		if len(tags) != 0 {
			t.Errorf("ExtractTags(%q) tags = %v, want none", in, tags)
		}
	}
}

func TestExtractTags_KeepsSurroundingText(t *testing.T) {
	in := "intro\ntags:\n  - go\n  - notes\n  - go\nafter\n"
	body, tags := ExtractTags(in)
	if body != "intro\nafter\n" {
		t.Errorf("body = %q", body)
	}
	if diff := cmp.Diff([]string{"go", "notes", "go"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTags_BlockAtEOF(t *testing.T) {
	body, tags := ExtractTags("text\ntags:\n- last")
	if body != "text\n" {
		t.Errorf("body = %q", body)
	}
	if diff := cmp.Diff([]string{"last"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTags_Unicode(t *testing.T) {
	_, tags := ExtractTags("tags:\n- заметки\n- día_1\n")
	if diff := cmp.Diff([]string{"заметки", "día_1"}, tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
}

func TestExtractTags_Idempotent(t *testing.T) {
	once, _ := ExtractTags("---\ntags:\n- a\n---\nbody\n")
	twice, tags := ExtractTags(once)
	if once != twice {
		t.Errorf("second pass changed text: %q -> %q", once, twice)
	}
	if len(tags) != 0 {
		t.Errorf("second pass found tags %v", tags)
	}
}

func TestStripHeader(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"simple", "---\ntitle: x\n---\nbody\n", "body\n"},
		{"multiline", "---\na: 1\nb: 2\n---\n# H\n", "# H\n"},
		{"empty header", "---\n---\nbody\n", "body\n"},
		{"empty header then rule", "---\n---\nbody\n---\nmore\n", "body\n---\nmore\n"},
		{"closing at eof", "---\na: 1\n---", ""},
		{"crlf", "---\r\na: 1\r\n---\r\nbody", "body"},
		{"not at start", "intro\n---\na\n---\nbody\n", "intro\n---\na\n---\nbody\n"},
		{"unterminated", "---\na: 1\nbody\n", "---\na: 1\nbody\n"},
		{"only first removed", "---\na\n---\nx\n---\nb\n---\n", "x\n---\nb\n---\n"},
		{"four dashes not a delimiter", "---\na\n----\nb\n---\nc\n", "c\n"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := StripHeader(tc.in); got != tc.want {
				t.Errorf("StripHeader(%q) = %q, want %q", tc.in, got, tc.want)
			}
		})
	}
}

func TestStripHeader_Idempotent(t *testing.T) {
	once := StripHeader("---\na: 1\n---\nbody\n")
	if twice := StripHeader(once); twice != once {
		t.Errorf("second pass changed text: %q -> %q", once, twice)
	}
}

func TestAliases(t *testing.T) {
	got := Aliases("---\naliases:\n  - First\n  - \" \"\n  - Second\n---\nbody\n")
	if diff := cmp.Diff([]string{"First", "Second"}, got); diff != "" {
		t.Errorf("aliases mismatch (-want +got):\n%s", diff)
	}
}

func TestAliases_Missing(t *testing.T) {
	cases := []string{
		"no front matter\n",
		"---\ntitle: x\n---\nbody\n",
		"---\n: invalid: yaml: {{{\n---\nbody\n",
	}
	for _, in := range cases {
		if got := Aliases(in); got != nil {
			t.Errorf("Aliases(%q) = %v, want nil", in, got)
		}
	}
}

func TestParse_Pipeline(t *testing.T) {
	in := []byte("---\ntags:\n- go\n- org\naliases:\n- Alt\n---\n# Hello\nBody text.\n")
	r := Parse(in)
	if r.Body != "# Hello\nBody text.\n" {
		t.Errorf("body = %q", r.Body)
	}
	if diff := cmp.Diff([]string{"go", "org"}, r.Tags); diff != "" {
		t.Errorf("tags mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"Alt"}, r.Aliases); diff != "" {
		t.Errorf("aliases mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_PlainNote(t *testing.T) {
	in := "# Just a heading\nSome text.\n"
	r := Parse([]byte(in))
	if r.Body != in {
		t.Errorf("body = %q, want unchanged", r.Body)
	}
	if r.Tags != nil || r.Aliases != nil {
		t.Errorf("expected no tags or aliases, got %v %v", r.Tags, r.Aliases)
	}
}

func TestTitle(t *testing.T) {
	cases := map[string]string{
		"Note.md":             "Note",
		"dir/sub/My Note.md":  "My Note",
		"out/x.org":           "x",
		"no-ext":              "no-ext",
		"dotted.name.test.md": "dotted.name.test",
	}
	for in, want := range cases {
		if got := Title(in); got != want {
			t.Errorf("Title(%q) = %q, want %q", in, got, want)
		}
	}
}
