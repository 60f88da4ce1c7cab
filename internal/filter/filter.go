// Package filter normalizes caller-supplied filter predicates before they
// reach the vector backend.
package filter

import (
	"fmt"
	"log"
	"sort"
	"strconv"

	"github.com/dshills/queryopt-mcp/pkg/types"
)

// Clause is a single normalized condition. One value means equality; more
// than one means set membership.
type Clause struct {
	Field  string
	Values []string
}

// Predicate is the normalized filter expression passed to the backend.
// Clauses are sorted by field name so equivalent filter maps always produce
// the same predicate.
type Predicate struct {
	Clauses []Clause
}

// IsEmpty reports whether the predicate constrains nothing
func (p *Predicate) IsEmpty() bool {
	return p == nil || len(p.Clauses) == 0
}

// Shaper converts caller filter maps into backend predicates. Shaping is a
// pure function over its input; the only side effect is the truncation
// warning.
type Shaper struct {
	maxValues int
	logger    *log.Logger
}

// NewShaper creates a filter shaper. maxValues bounds list-valued filters;
// non-positive values fall back to 10. A nil logger uses the stdlib default.
func NewShaper(maxValues int, logger *log.Logger) *Shaper {
	if maxValues <= 0 {
		maxValues = 10
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Shaper{maxValues: maxValues, logger: logger}
}

// Shape normalizes a filter map into a backend predicate.
//
// Keys with nil values are dropped. List values become set-membership
// clauses; lists longer than the configured maximum are truncated to their
// first maxValues elements in input order, with a diagnostic warning. This
// is an intentional precision/performance trade-off rather than silent data
// loss. Scalar values become equality clauses. Any other value shape is a
// caller error.
func (s *Shaper) Shape(filters map[string]any) (*Predicate, error) {
	if len(filters) == 0 {
		return &Predicate{}, nil
	}

	clauses := make([]Clause, 0, len(filters))
	for field, raw := range filters {
		if raw == nil {
			continue
		}

		values, err := coerceValues(field, raw)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			continue
		}

		if len(values) > s.maxValues {
			s.logger.Printf("filter %q has %d values, truncating to first %d",
				field, len(values), s.maxValues)
			values = values[:s.maxValues]
		}

		clauses = append(clauses, Clause{Field: field, Values: values})
	}

	sort.Slice(clauses, func(i, j int) bool {
		return clauses[i].Field < clauses[j].Field
	})

	return &Predicate{Clauses: clauses}, nil
}

// coerceValues converts a raw filter value into its string form(s)
func coerceValues(field string, raw any) ([]string, error) {
	switch v := raw.(type) {
	case []string:
		return append([]string(nil), v...), nil
	case []any:
		values := make([]string, 0, len(v))
		for _, elem := range v {
			if elem == nil {
				continue
			}
			s, err := coerceScalar(field, elem)
			if err != nil {
				return nil, err
			}
			values = append(values, s)
		}
		return values, nil
	default:
		s, err := coerceScalar(field, raw)
		if err != nil {
			return nil, err
		}
		return []string{s}, nil
	}
}

// coerceScalar converts a single scalar filter value to a string
func coerceScalar(field string, raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		// JSON decodes all numbers as float64; render whole values
		// without a fractional part
		if v == float64(int64(v)) {
			return strconv.FormatInt(int64(v), 10), nil
		}
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	default:
		return "", fmt.Errorf("%w: filter %q has unsupported value type %T",
			types.ErrInvalidFilterShape, field, raw)
	}
}
