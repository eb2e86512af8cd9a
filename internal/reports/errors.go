package reports

import (
	"errors"
	"fmt"
)

const (
	EntityWebsite = "website"
	EntityReport  = "report"
)

// ErrForbidden means the report exists for the user but does not cover the
// website it was requested through.
var ErrForbidden = errors.New("report does not cover the requested website")

type InvalidIdentifierError struct {
	Field string
	Value string
}

func (e *InvalidIdentifierError) Error() string {
	return fmt.Sprintf("invalid %s: %q", e.Field, e.Value)
}

type NotFoundError struct {
	Entity string
}

func (e *NotFoundError) Error() string {
	return e.Entity + " not found"
}
