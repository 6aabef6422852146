package strand

import (
	"encoding/json"

	"github.com/strand/strand-go/src/internal/wire"
)

// OperationKind distinguishes the three remote operation types.
type OperationKind int

const (
	// OpQuery is a read returning a cacheable result.
	OpQuery OperationKind = iota

	// OpMutation is a write that may invalidate cached queries.
	OpMutation

	// OpAction is a side-effecting call with no cache interaction.
	OpAction
)

func (k OperationKind) String() string {
	switch k {
	case OpQuery:
		return "query"
	case OpMutation:
		return "mutation"
	case OpAction:
		return "action"
	default:
		return "unknown"
	}
}

// Request describes one outbound operation. Interceptors and middleware may
// mutate it before it reaches the transport.
type Request struct {
	Kind OperationKind
	Name string
	Args any

	// Cursor is the snapshot cursor for consistent reads, if any.
	Cursor string

	// Metadata carries application-defined key/value pairs to the
	// transport.
	Metadata map[string]string
}

// Response is the standard envelope returned by the remote source.
type Response struct {
	Status       string          `json:"status"`
	Value        json.RawMessage `json:"value"`
	ErrorMessage string          `json:"errorMessage"`
}

const (
	// StatusSuccess marks a response carrying a value.
	StatusSuccess = "success"

	// StatusError marks a response carrying application error data.
	StatusError = "error"
)

// Err returns the application-level failure carried by an error-status
// response, or nil for a success.
func (r *Response) Err() error {
	if r.Status != StatusError {
		return nil
	}

	return Failure{Message: r.ErrorMessage}
}

// ParseResponse decodes the standard response envelope.
//
// An unknown status is always a *ValidationError. A success response with
// no value field is a *ValidationError in strict mode; otherwise it is
// treated as a success carrying a JSON null.
func ParseResponse(body []byte, strict bool) (*Response, error) {
	var res Response
	if err := wire.DecodeBytes(body, &res); err != nil {
		return nil, &ValidationError{Reason: "response body is not a valid envelope", Err: err}
	}

	switch res.Status {
	case StatusSuccess:
		if res.Value == nil && strict {
			return nil, &ValidationError{Reason: "success response carries no value"}
		}
		return &res, nil

	case StatusError:
		return &res, nil

	default:
		return nil, &ValidationError{Reason: "response status is neither success nor error"}
	}
}
