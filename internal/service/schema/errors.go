package schema

import (
	"fmt"
	"strings"
)

// SchemaError reports required canonical columns that could not be resolved
// in a source's header row. It aborts the whole run.
type SchemaError struct {
	Source  string
	Missing []Field
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: missing required columns: %s", e.Source, strings.Join(e.MissingNames(), ", "))
}

// MissingNames returns the missing canonical field names.
func (e *SchemaError) MissingNames() []string {
	names := make([]string, 0, len(e.Missing))
	for _, f := range e.Missing {
		names = append(names, string(f))
	}
	return names
}

// EmptyInputError reports a source with no data rows after cleaning.
// Callers decide whether that is fatal.
type EmptyInputError struct {
	Source string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("%s: no data rows", e.Source)
}
