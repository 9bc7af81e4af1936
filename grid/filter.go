package grid

import (
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/arloliu/streamgrid/types"
)

// Operator is a filter comparison.
type Operator string

// Supported operators. Ordering operators compare numbers numerically and
// everything else as text.
const (
	OpEq       Operator = "eq"
	OpNeq      Operator = "neq"
	OpContains Operator = "contains"
	OpGt       Operator = "gt"
	OpGte      Operator = "gte"
	OpLt       Operator = "lt"
	OpLte      Operator = "lte"
)

// Valid reports whether op is a supported operator.
func (op Operator) Valid() bool {
	switch op {
	case OpEq, OpNeq, OpContains, OpGt, OpGte, OpLt, OpLte:
		return true
	default:
		return false
	}
}

// Criterion is one filter condition on a field.
type Criterion struct {
	Field string   `yaml:"field"`
	Op    Operator `yaml:"op"`
	Value any      `yaml:"value"`
}

// Criteria are AND-ed conditions. An empty Criteria matches every row.
type Criteria []Criterion

// Match reports whether row satisfies every criterion.
func (c Criteria) Match(row types.Row) bool {
	for _, cr := range c {
		if !cr.Match(row) {
			return false
		}
	}

	return true
}

// Match reports whether row satisfies the criterion. A missing field matches
// only OpNeq.
func (c Criterion) Match(row types.Row) bool {
	v, ok := row.Value(c.Field)
	if !ok {
		return c.Op == OpNeq
	}

	switch c.Op {
	case OpEq:
		return equal(v, c.Value)
	case OpNeq:
		return !equal(v, c.Value)
	case OpContains:
		return strings.Contains(strings.ToLower(text(v)), strings.ToLower(text(c.Value)))
	case OpGt:
		return compare(v, c.Value) > 0
	case OpGte:
		return compare(v, c.Value) >= 0
	case OpLt:
		return compare(v, c.Value) < 0
	case OpLte:
		return compare(v, c.Value) <= 0
	default:
		return false
	}
}

func equal(a, b any) bool {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			return fa == fb
		}
	}
	if sa, ok := a.(string); ok {
		if sb, ok := b.(string); ok {
			return sa == sb
		}
	}

	return reflect.DeepEqual(a, b)
}

func compare(a, b any) int {
	if fa, ok := number(a); ok {
		if fb, ok := number(b); ok {
			switch {
			case fa < fb:
				return -1
			case fa > fb:
				return 1
			default:
				return 0
			}
		}
	}

	return strings.Compare(text(a), text(b))
}

func number(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func text(v any) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return s
	case fmt.Stringer:
		return s.String()
	default:
		return fmt.Sprint(v)
	}
}

func validateCriteria(criteria Criteria, cols []Column) error {
	known := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		known[c.Field] = struct{}{}
	}

	for _, cr := range criteria {
		if !cr.Op.Valid() {
			return fmt.Errorf("%w: unknown filter operator %q", types.ErrInvalidConfig, cr.Op)
		}
		if cr.Field == "" {
			return fmt.Errorf("%w: filter criterion has no field", types.ErrInvalidConfig)
		}
		if len(known) == 0 || cr.Field == types.KeyField {
			continue
		}
		if _, ok := known[cr.Field]; !ok {
			return fmt.Errorf("%w: %q", types.ErrUnknownColumn, cr.Field)
		}
	}

	return nil
}
