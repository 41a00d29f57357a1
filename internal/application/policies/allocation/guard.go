package allocation

import (
	"fmt"
	"strconv"
)

// Limit is the maximum combined percentage across active siblings of a scope.
const Limit = 100.0

// Error reports a rejected allocation change with the numeric context the
// caller needs to render an actionable message.
type Error struct {
	Field     string // "allocation" for pies, "weight" for slices
	Current   float64
	Attempted float64
	Total     float64
}

func (e *Error) Error() string {
	return fmt.Sprintf("Total %s would exceed 100%%. Current: %s%%, Attempted: %s%%, Total would be: %s%%",
		e.Field, pct(e.Current), pct(e.Attempted), pct(e.Total))
}

// Details returns the numeric context for the error response body.
func (e *Error) Details() map[string]interface{} {
	return map[string]interface{}{
		"current":   e.Current,
		"attempted": e.Attempted,
		"total":     e.Total,
	}
}

// Check validates that replacing previous with attempted keeps the scope total
// within the limit. current is the sum over active siblings including the
// entity being updated; previous is 0 for creates. The caller must run Check
// and the following write inside one transaction so concurrent siblings of the
// same scope cannot jointly overshoot.
func Check(field string, current, previous, attempted float64) error {
	base := current - previous
	total := base + attempted
	if total > Limit {
		return &Error{Field: field, Current: base, Attempted: attempted, Total: total}
	}
	return nil
}

func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
