package pipeline

import (
	"errors"
	"fmt"

	"github.com/DeafMist/ai-news-radar/backend/internal/processing"
)

// ErrTransport marks failures of the outbound search request, timeouts included.
var ErrTransport = errors.New("transport failure")

// TransportError wraps the cause of a failed search request.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string { return fmt.Sprintf("search request: %v", e.Err) }

func (e *TransportError) Unwrap() []error { return []error{ErrTransport, e.Err} }

// Failure kinds as reported to logs and observers.
const (
	KindTransport         = "transport_failure"
	KindNoJSONFound       = "no_json_found"
	KindMalformedJSON     = "malformed_json"
	KindMissingNewsArray  = "missing_news_array"
	KindAllRecordsInvalid = "all_records_invalid"
	KindUnknown           = "unknown"
)

// FailureKind classifies err. It returns "" for nil.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrTransport):
		return KindTransport
	case errors.Is(err, processing.ErrNoJSONFound):
		return KindNoJSONFound
	case errors.Is(err, processing.ErrMalformedJSON):
		return KindMalformedJSON
	case errors.Is(err, processing.ErrMissingNewsArray):
		return KindMissingNewsArray
	case errors.Is(err, processing.ErrAllRecordsInvalid):
		return KindAllRecordsInvalid
	default:
		return KindUnknown
	}
}
