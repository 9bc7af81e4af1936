package cmd

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/arloliu/streamgrid"
)

// ConsoleSurface renders each flush as a table of row operations.
//
// Primitive calls between BeginTransaction and CommitTransaction are collected and
// printed once on commit. Calls outside a transaction are printed immediately.
type ConsoleSurface struct {
	mu      sync.Mutex
	w       io.Writer
	columns []streamgrid.Column
	now     func() time.Time

	open    bool
	pending [][]string
	rows    int
	flushes int
}

var _ streamgrid.TransactionalSurface = (*ConsoleSurface)(nil)

// NewConsoleSurface creates a surface writing to w. With no columns, rows are
// printed as sorted field=value pairs.
func NewConsoleSurface(w io.Writer, columns []streamgrid.Column) *ConsoleSurface {
	return &ConsoleSurface{
		w:       w,
		columns: slices.Clone(columns),
		now:     time.Now,
	}
}

// BeginTransaction implements streamgrid.TransactionalSurface.
func (s *ConsoleSurface) BeginTransaction() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = true
	s.pending = s.pending[:0]
}

// CommitTransaction implements streamgrid.TransactionalSurface.
func (s *ConsoleSurface) CommitTransaction() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.open = false
	s.renderLocked()
}

// AddRows implements streamgrid.Surface.
func (s *ConsoleSurface) AddRows(rows []streamgrid.Row) {
	s.record("+", rows)
}

// UpdateRows implements streamgrid.Surface.
func (s *ConsoleSurface) UpdateRows(rows []streamgrid.Row) {
	s.record("~", rows)
}

// RemoveRows implements streamgrid.Surface.
func (s *ConsoleSurface) RemoveRows(keys []streamgrid.Key) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, k := range keys {
		s.pending = append(s.pending, s.line("-", streamgrid.Row{Key: k}))
	}
	s.rows -= len(keys)
	if !s.open {
		s.renderLocked()
	}
}

// Stats returns the number of displayed rows and rendered flushes.
func (s *ConsoleSurface) Stats() (rows, flushes int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.rows, s.flushes
}

func (s *ConsoleSurface) record(op string, rows []streamgrid.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, r := range rows {
		s.pending = append(s.pending, s.line(op, r))
	}
	if op == "+" {
		s.rows += len(rows)
	}
	if !s.open {
		s.renderLocked()
	}
}

func (s *ConsoleSurface) line(op string, row streamgrid.Row) []string {
	out := []string{op, string(row.Key)}
	if op == "-" {
		if len(s.columns) > 0 {
			out = append(out, make([]string, len(s.columns))...)
		} else {
			out = append(out, "")
		}

		return out
	}

	if len(s.columns) == 0 {
		return append(out, formatFields(row.Fields))
	}
	for _, c := range s.columns {
		v, ok := row.Value(c.Field)
		if !ok {
			out = append(out, "")
			continue
		}
		out = append(out, fmt.Sprint(v))
	}

	return out
}

func (s *ConsoleSurface) header() []any {
	header := []any{"op", "key"}
	if len(s.columns) == 0 {
		return append(header, "fields")
	}
	for _, c := range s.columns {
		header = append(header, c.Title())
	}

	return header
}

func (s *ConsoleSurface) renderLocked() {
	if len(s.pending) == 0 {
		return
	}
	s.flushes++

	fmt.Fprintf(s.w, "%s  flush #%d  %d change(s), %d row(s)\n",
		s.now().Format(time.TimeOnly), s.flushes, len(s.pending), s.rows)

	table := tablewriter.NewTable(s.w, tablewriter.WithConfig(tablewriter.Config{}))
	table.Header(s.header()...)
	for _, line := range s.pending {
		cells := make([]any, len(line))
		for i, c := range line {
			cells[i] = c
		}
		_ = table.Append(cells...)
	}
	_ = table.Render()

	s.pending = s.pending[:0]
}

func formatFields(fields map[string]any) string {
	keys := make([]string, 0, len(fields))
	for k := range fields {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	var b strings.Builder
	for i, k := range keys {
		if i > 0 {
			b.WriteByte(' ')
		}
		fmt.Fprintf(&b, "%s=%v", k, fields[k])
	}

	return b.String()
}
