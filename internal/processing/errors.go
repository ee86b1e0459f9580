package processing

import (
	"errors"
	"fmt"
)

// Failure kinds reported by ExtractJSON and Validate.
var (
	ErrNoJSONFound       = errors.New("no json object found")
	ErrMalformedJSON     = errors.New("malformed json")
	ErrMissingNewsArray  = errors.New("missing news array")
	ErrAllRecordsInvalid = errors.New("all records invalid")
)

// ExtractionError is returned when no candidate payload can be isolated.
type ExtractionError struct {
	Err error
}

func (e *ExtractionError) Error() string { return fmt.Sprintf("extract json: %v", e.Err) }

func (e *ExtractionError) Unwrap() error { return e.Err }

// ValidationError is returned when a payload yields no usable records.
type ValidationError struct {
	Err     error
	Dropped []RecordError
}

func (e *ValidationError) Error() string {
	if len(e.Dropped) > 0 {
		return fmt.Sprintf("validate news: %v (%d records dropped)", e.Err, len(e.Dropped))
	}
	return fmt.Sprintf("validate news: %v", e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// RecordError describes why a single record was dropped from a batch.
type RecordError struct {
	Index  int
	Field  string
	Reason string
}

func (e RecordError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("record %d: %s", e.Index, e.Reason)
	}
	return fmt.Sprintf("record %d: %s: %s", e.Index, e.Field, e.Reason)
}
