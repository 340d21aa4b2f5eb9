package index

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/neuroserve/neuroserve/internal/domain"
)

// Labels every row must link to, in order.
var requiredLinks = []string{"README", "code", "manifest"}

var taskTokenPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

const linkCheckConcurrency = 8

// Issue is a single lint finding. Row is the 1-based data row, or 0 for
// findings about the page as a whole.
type Issue struct {
	Row     int    `json:"row"`
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (i Issue) String() string {
	if i.Row == 0 {
		return fmt.Sprintf("%s: %s", i.Field, i.Message)
	}
	return fmt.Sprintf("row %d %s: %s", i.Row, i.Field, i.Message)
}

// LintFile parses the overview at path and lints it against root.
func LintFile(ctx context.Context, path, root string) ([]Issue, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, domain.IOError(fmt.Sprintf("failed to read %s", path), err)
	}
	return Lint(ctx, Parse(data), root)
}

// Lint checks the overview page for consistency with the files under root:
// every link resolves to a file, the Total line matches the row count, every
// Tasks cell is a non-empty comma-separated list, and names are unique.
// Link targets are resolved relative to root.
func Lint(ctx context.Context, doc *Document, root string) ([]Issue, error) {
	var issues []Issue

	if !doc.HasTable {
		issues = append(issues, Issue{Field: "Table", Message: "no services table found"})
		return issues, nil
	}
	if !sameColumns(doc.Columns, Columns) {
		issues = append(issues, Issue{
			Field:   "Header",
			Message: fmt.Sprintf("expected columns %s, got %s", strings.Join(Columns, " | "), strings.Join(doc.Columns, " | ")),
		})
	}

	switch {
	case !doc.HasTotal:
		issues = append(issues, Issue{Field: "Total", Message: "missing Total line"})
	case doc.Total != len(doc.Rows):
		issues = append(issues, Issue{
			Field:   "Total",
			Message: fmt.Sprintf("Total is %d but the table has %d rows", doc.Total, len(doc.Rows)),
		})
	}

	seen := make(map[string]int, len(doc.Rows))
	for i, row := range doc.Rows {
		n := i + 1
		if row.Name == "" {
			issues = append(issues, Issue{Row: n, Field: "Name", Message: "name is empty"})
		} else if first, dup := seen[row.Name]; dup {
			issues = append(issues, Issue{Row: n, Field: "Name", Message: fmt.Sprintf("duplicate name %q (first in row %d)", row.Name, first)})
		} else {
			seen[row.Name] = n
		}
		issues = append(issues, lintTasks(n, row)...)
		for _, label := range requiredLinks {
			if _, ok := row.Link(label); !ok {
				issues = append(issues, Issue{Row: n, Field: "Files", Message: fmt.Sprintf("missing %s link", label)})
			}
		}
	}

	linkIssues, err := checkLinks(ctx, doc.Rows, root)
	if err != nil {
		return nil, err
	}
	issues = append(issues, linkIssues...)

	sort.SliceStable(issues, func(i, j int) bool { return issues[i].Row < issues[j].Row })
	return issues, nil
}

func lintTasks(n int, row Row) []Issue {
	raw := strings.TrimSpace(row.TasksRaw)
	if raw == "" {
		return []Issue{{Row: n, Field: "Tasks", Message: "tasks are empty"}}
	}

	var issues []Issue
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		switch {
		case part == "":
			issues = append(issues, Issue{Row: n, Field: "Tasks", Message: fmt.Sprintf("empty entry in %q", raw)})
		case !taskTokenPattern.MatchString(part):
			issues = append(issues, Issue{Row: n, Field: "Tasks", Message: fmt.Sprintf("%q is not a comma-separated task list", raw)})
		}
	}
	return issues
}

type linkCheck struct {
	row    int
	label  string
	target string
}

// checkLinks stats every local link target concurrently.
func checkLinks(ctx context.Context, rows []Row, root string) ([]Issue, error) {
	var checks []linkCheck
	for i, row := range rows {
		for _, l := range row.Links {
			if isExternal(l.Target) {
				continue
			}
			checks = append(checks, linkCheck{row: i + 1, label: l.Label, target: l.Target})
		}
	}

	results := make([]*Issue, len(checks))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(linkCheckConcurrency)
	for i, c := range checks {
		i, c := i, c
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if msg := resolveLink(root, c.target); msg != "" {
				results[i] = &Issue{Row: c.row, Field: "Files", Message: fmt.Sprintf("%s link %s", c.label, msg)}
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var issues []Issue
	for _, is := range results {
		if is != nil {
			issues = append(issues, *is)
		}
	}
	return issues, nil
}

// resolveLink returns an empty string when target is a file under root,
// otherwise a description of the problem.
func resolveLink(root, target string) string {
	if target == "" {
		return "has an empty target"
	}
	if i := strings.IndexAny(target, "#?"); i >= 0 {
		target = target[:i]
	}
	if filepath.IsAbs(target) || strings.HasPrefix(target, "/") {
		return fmt.Sprintf("target %q must be relative to the repository root", target)
	}

	path := filepath.Join(root, filepath.FromSlash(target))
	fi, err := os.Stat(path)
	switch {
	case os.IsNotExist(err):
		return fmt.Sprintf("target %q does not exist", target)
	case err != nil:
		return fmt.Sprintf("target %q: %v", target, err)
	case fi.IsDir():
		return fmt.Sprintf("target %q is a directory", target)
	}
	return ""
}

func isExternal(target string) bool {
	return strings.HasPrefix(target, "http://") || strings.HasPrefix(target, "https://") || strings.HasPrefix(target, "mailto:")
}

func sameColumns(got, want []string) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}
