package cmd

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/arloliu/streamgrid"
	"github.com/arloliu/streamgrid/grid"
)

// parseColumns parses "field[:Header]" specs.
func parseColumns(specs []string) ([]streamgrid.Column, error) {
	cols := make([]streamgrid.Column, 0, len(specs))
	for _, spec := range specs {
		field, header, _ := strings.Cut(strings.TrimSpace(spec), ":")
		if field == "" {
			return nil, fmt.Errorf("%w: empty column in %q", streamgrid.ErrInvalidConfig, spec)
		}
		cols = append(cols, streamgrid.Column{Field: field, Header: header})
	}

	return cols, nil
}

// parseFilters parses "field:op:value" specs. Values that parse as numbers are
// compared numerically.
func parseFilters(specs []string) ([]streamgrid.Criterion, error) {
	criteria := make([]streamgrid.Criterion, 0, len(specs))
	for _, spec := range specs {
		parts := strings.SplitN(spec, ":", 3)
		if len(parts) != 3 {
			return nil, fmt.Errorf("%w: filter %q must be field:op:value", streamgrid.ErrInvalidConfig, spec)
		}

		var value any = parts[2]
		if f, err := strconv.ParseFloat(parts[2], 64); err == nil {
			value = f
		}
		criteria = append(criteria, streamgrid.Criterion{
			Field: parts[0],
			Op:    grid.Operator(parts[1]),
			Value: value,
		})
	}

	return criteria, nil
}
