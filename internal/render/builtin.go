package render

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	east "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"github.com/starford/mdorg/internal/links"
)

// Builtin renders Org in-process from a goldmark AST. It covers the
// CommonMark and GFM constructs found in typical vault notes and needs no
// external binary.
type Builtin struct {
	md goldmark.Markdown
}

// NewBuiltin creates a Builtin renderer with GFM extensions enabled.
// Org links already present in the text are kept verbatim.
func NewBuiltin() *Builtin {
	return &Builtin{
		md: goldmark.New(
			goldmark.WithExtensions(extension.GFM),
			goldmark.WithParserOptions(
				parser.WithInlineParsers(util.Prioritized(orgLinkParser{}, 199)),
			),
		),
	}
}

// orgLinkRe matches an Org link, [[dest]] or [[dest][description]], at the
// start of the input.
var orgLinkRe = regexp.MustCompile(`^\[\[[^\[\]\n]+\](?:\[[^\[\]\n]*\])?\]`)

var kindOrgLink = ast.NewNodeKind("OrgLink")

// orgLink is an Org link copied through untouched. Without it a Markdown
// reference definition whose label matches the description would turn the
// inner brackets into a Markdown link.
type orgLink struct {
	ast.BaseInline
	Value []byte
}

func (n *orgLink) Kind() ast.NodeKind { return kindOrgLink }

func (n *orgLink) Dump(source []byte, level int) {
	ast.DumpHelper(n, source, level, map[string]string{"Value": string(n.Value)}, nil)
}

// orgLinkParser runs ahead of goldmark's link parser on '['.
type orgLinkParser struct{}

func (orgLinkParser) Trigger() []byte { return []byte{'['} }

func (orgLinkParser) Parse(_ ast.Node, block text.Reader, _ parser.Context) ast.Node {
	line, _ := block.PeekLine()
	m := orgLinkRe.Find(line)
	if m == nil || (len(line) > len(m) && line[len(m)] == '(') {
		return nil
	}
	block.Advance(len(m))
	return &orgLink{Value: append([]byte(nil), m...)}
}

// Render parses markdown and writes it back out as Org.
func (b *Builtin) Render(ctx context.Context, markdown string, opts Options) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", &RenderError{Source: opts.Name, Err: err}
	}
	src := []byte(markdown)
	doc := b.md.Parser().Parse(text.NewReader(src))
	w := orgWriter{src: src}
	out := w.children(doc, "\n\n")
	if out == "" {
		return "", nil
	}
	return out + "\n", nil
}

type orgWriter struct {
	src []byte
}

// children renders each block child of n and joins the results with sep.
func (w orgWriter) children(n ast.Node, sep string) string {
	var parts []string
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if s := w.block(c); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, sep)
}

func (w orgWriter) block(n ast.Node) string {
	switch n := n.(type) {
	case *ast.Heading:
		return strings.Repeat("*", n.Level) + " " + w.inline(n)
	case *ast.Paragraph, *ast.TextBlock:
		return w.inline(n)
	case *ast.ThematicBreak:
		return "-----"
	case *ast.FencedCodeBlock:
		lang := string(n.Language(w.src))
		if lang == "" {
			return "#+begin_example\n" + w.lines(n) + "#+end_example"
		}
		return "#+begin_src " + lang + "\n" + w.lines(n) + "#+end_src"
	case *ast.CodeBlock:
		return "#+begin_example\n" + w.lines(n) + "#+end_example"
	case *ast.HTMLBlock:
		body := w.lines(n)
		if n.HasClosure() {
			body += string(n.ClosureLine.Value(w.src))
		}
		if !strings.HasSuffix(body, "\n") {
			body += "\n"
		}
		return "#+begin_export html\n" + body + "#+end_export"
	case *ast.Blockquote:
		return "#+begin_quote\n" + w.children(n, "\n\n") + "\n#+end_quote"
	case *ast.List:
		return w.list(n)
	case *east.Table:
		return w.table(n)
	default:
		return w.children(n, "\n\n")
	}
}

func (w orgWriter) lines(n ast.Node) string {
	var buf bytes.Buffer
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		buf.Write(seg.Value(w.src))
	}
	return buf.String()
}

func (w orgWriter) list(n *ast.List) string {
	itemSep, blockSep := "\n\n", "\n\n"
	if n.IsTight {
		itemSep, blockSep = "\n", "\n"
	}
	var items []string
	num := n.Start
	if num == 0 {
		num = 1
	}
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		marker := "- "
		if n.IsOrdered() {
			marker = fmt.Sprintf("%d. ", num)
			num++
		}
		items = append(items, hang(marker, w.children(c, blockSep)))
	}
	return strings.Join(items, itemSep)
}

// hang prefixes the first line of s with marker and indents the rest to
// line up under the marker's text.
func hang(marker, s string) string {
	pad := strings.Repeat(" ", len(marker))
	lines := strings.Split(s, "\n")
	for i, l := range lines {
		switch {
		case i == 0:
			lines[i] = marker + l
		case l != "":
			lines[i] = pad + l
		}
	}
	return strings.Join(lines, "\n")
}

func (w orgWriter) table(n *east.Table) string {
	var rows []string
	cols := 0
	for r := n.FirstChild(); r != nil; r = r.NextSibling() {
		var cells []string
		for c := r.FirstChild(); c != nil; c = c.NextSibling() {
			cells = append(cells, strings.TrimSpace(w.inline(c)))
		}
		if len(cells) > cols {
			cols = len(cells)
		}
		rows = append(rows, "| "+strings.Join(cells, " | ")+" |")
		if _, ok := r.(*east.TableHeader); ok {
			rows = append(rows, "")
		}
	}
	rule := "|" + strings.TrimSuffix(strings.Repeat("---+", cols), "+") + "|"
	for i, r := range rows {
		if r == "" {
			rows[i] = rule
		}
	}
	return strings.Join(rows, "\n")
}

// inline renders the inline children of n.
func (w orgWriter) inline(n ast.Node) string {
	var b strings.Builder
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		w.writeInline(&b, c)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (w orgWriter) writeInline(b *strings.Builder, n ast.Node) {
	switch n := n.(type) {
	case *ast.Text:
		b.Write(util.UnescapePunctuations(n.Segment.Value(w.src)))
		switch {
		case n.HardLineBreak():
			b.WriteString("\\\\\n")
		case n.SoftLineBreak():
			b.WriteString("\n")
		}
	case *ast.String:
		b.Write(n.Value)
	case *orgLink:
		b.Write(n.Value)
	case *ast.Emphasis:
		mark := "/"
		if n.Level >= 2 {
			mark = "*"
		}
		b.WriteString(mark + w.inline(n) + mark)
	case *east.Strikethrough:
		b.WriteString("+" + w.inline(n) + "+")
	case *ast.CodeSpan:
		var code strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				code.Write(t.Segment.Value(w.src))
			}
		}
		b.WriteString("=" + code.String() + "=")
	case *ast.Link:
		dest := string(n.Destination)
		label := w.inline(n)
		if label == "" || label == dest {
			b.WriteString("[[" + dest + "]]")
		} else {
			b.WriteString("[[" + dest + "][" + label + "]]")
		}
	case *ast.AutoLink:
		url := string(n.URL(w.src))
		if n.AutoLinkType == ast.AutoLinkEmail && !strings.HasPrefix(url, "mailto:") {
			url = "mailto:" + url
		}
		b.WriteString("[[" + url + "]]")
	case *ast.Image:
		dest := string(n.Destination)
		if strings.Contains(dest, "://") {
			b.WriteString("[[" + dest + "]]")
		} else {
			b.WriteString(links.FileLink(dest, w.inline(n)))
		}
	case *ast.RawHTML:
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(w.src))
		}
	case *east.TaskCheckBox:
		if n.IsChecked {
			b.WriteString("[X] ")
		} else {
			b.WriteString("[ ] ")
		}
	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			w.writeInline(b, c)
		}
	}
}
