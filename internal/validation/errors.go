// Package validation collects field-level input problems.
package validation

import (
	"fmt"
	"sort"
	"strings"
)

// Errors maps a field name to a human readable problem.
type Errors map[string]string

// Add records a problem for field unless one is already present.
func (e Errors) Add(field, format string, args ...any) {
	if _, exists := e[field]; exists {
		return
	}
	e[field] = fmt.Sprintf(format, args...)
}

// Merge copies problems from err into e when err is an Errors value.
// Any other non-nil error is returned unchanged.
func (e Errors) Merge(err error) error {
	if err == nil {
		return nil
	}
	other, ok := err.(Errors)
	if !ok {
		return err
	}
	for field, msg := range other {
		e.Add(field, "%s", msg)
	}
	return nil
}

// Err returns nil when no problems were recorded.
func (e Errors) Err() error {
	if len(e) == 0 {
		return nil
	}
	return e
}

func (e Errors) Error() string {
	fields := make([]string, 0, len(e))
	for f := range e {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		parts = append(parts, f+" "+e[f])
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

// Details converts the problems into a JSON-friendly map.
func (e Errors) Details() map[string]any {
	out := make(map[string]any, len(e))
	for k, v := range e {
		out[k] = v
	}
	return out
}
