package grid

import (
	"fmt"

	"github.com/arloliu/streamgrid/types"
)

// Column describes one registered grid column.
type Column struct {
	// Field is the row field the column displays.
	Field string `yaml:"field"`

	// Header is the display name. Defaults to Field.
	Header string `yaml:"header,omitempty"`
}

// Title returns the header text.
func (c Column) Title() string {
	if c.Header != "" {
		return c.Header
	}

	return c.Field
}

func validateColumns(cols []Column) error {
	seen := make(map[string]struct{}, len(cols))
	for i, c := range cols {
		if c.Field == "" {
			return fmt.Errorf("%w: column %d has no field", types.ErrInvalidConfig, i)
		}
		if _, dup := seen[c.Field]; dup {
			return fmt.Errorf("%w: duplicate column field %q", types.ErrInvalidConfig, c.Field)
		}
		seen[c.Field] = struct{}{}
	}

	return nil
}
