package index

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	extast "github.com/yuin/goldmark/extension/ast"
	"github.com/yuin/goldmark/text"
)

// Columns is the expected header of the overview table.
var Columns = []string{"Name", "Folder", "Provider", "Tasks", "Files"}

var totalPattern = regexp.MustCompile(`^Total:\s*(\d+)\s*$`)

// Document is a parsed overview page.
type Document struct {
	Title    string
	Total    int
	HasTotal bool
	HasTable bool
	Columns  []string
	Rows     []Row
}

// Row is one data row of the overview table.
type Row struct {
	Name     string
	Folder   string
	Provider string
	TasksRaw string
	Tasks    []string
	Links    []Link
}

// Link is a markdown link found in the Files column.
type Link struct {
	Label  string
	Target string
}

// Link returns the target of the first link with the given label.
func (r Row) Link(label string) (string, bool) {
	for _, l := range r.Links {
		if strings.EqualFold(l.Label, label) {
			return l.Target, true
		}
	}
	return "", false
}

var parser = goldmark.New(goldmark.WithExtensions(extension.Table))

// Parse reads an overview page. Only the first table is considered.
func Parse(source []byte) *Document {
	root := parser.Parser().Parse(text.NewReader(source))
	doc := &Document{}

	for n := root.FirstChild(); n != nil; n = n.NextSibling() {
		switch node := n.(type) {
		case *ast.Heading:
			if node.Level == 1 && doc.Title == "" {
				doc.Title = plainText(node, source)
			}
		case *ast.Paragraph:
			if doc.HasTotal {
				continue
			}
			if m := totalPattern.FindStringSubmatch(plainText(node, source)); m != nil {
				if total, err := strconv.Atoi(m[1]); err == nil {
					doc.Total = total
					doc.HasTotal = true
				}
			}
		case *extast.Table:
			if doc.HasTable {
				continue
			}
			doc.HasTable = true
			parseTable(doc, node, source)
		}
	}
	return doc
}

func parseTable(doc *Document, table *extast.Table, source []byte) {
	for n := table.FirstChild(); n != nil; n = n.NextSibling() {
		switch row := n.(type) {
		case *extast.TableHeader:
			for c := row.FirstChild(); c != nil; c = c.NextSibling() {
				doc.Columns = append(doc.Columns, plainText(c, source))
			}
		case *extast.TableRow:
			doc.Rows = append(doc.Rows, parseRow(row, source))
		}
	}
}

func parseRow(row *extast.TableRow, source []byte) Row {
	var cells []ast.Node
	for c := row.FirstChild(); c != nil; c = c.NextSibling() {
		cells = append(cells, c)
	}
	cell := func(i int) ast.Node {
		if i < len(cells) {
			return cells[i]
		}
		return nil
	}

	r := Row{
		Name:     plainText(cell(0), source),
		Folder:   strings.Trim(plainText(cell(1), source), "`"),
		Provider: plainText(cell(2), source),
		TasksRaw: plainText(cell(3), source),
		Links:    links(cell(4), source),
	}
	if r.Provider == "-" {
		r.Provider = ""
	}
	r.Tasks = SplitTasks(r.TasksRaw)
	return r
}

// SplitTasks splits a comma-separated task list, dropping empty entries.
func SplitTasks(raw string) []string {
	var tasks []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			tasks = append(tasks, part)
		}
	}
	return tasks
}

func links(n ast.Node, source []byte) []Link {
	if n == nil {
		return nil
	}
	var out []Link
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		if l, ok := c.(*ast.Link); ok {
			out = append(out, Link{
				Label:  plainText(l, source),
				Target: string(l.Destination),
			})
			return ast.WalkSkipChildren, nil
		}
		return ast.WalkContinue, nil
	})
	return out
}

// plainText concatenates the text under n, dropping inline markup.
func plainText(n ast.Node, source []byte) string {
	if n == nil {
		return ""
	}
	var sb strings.Builder
	_ = ast.Walk(n, func(c ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch t := c.(type) {
		case *ast.Text:
			sb.Write(t.Segment.Value(source))
			if t.SoftLineBreak() || t.HardLineBreak() {
				sb.WriteByte(' ')
			}
		case *ast.String:
			sb.Write(t.Value)
		}
		return ast.WalkContinue, nil
	})
	return strings.TrimSpace(sb.String())
}
