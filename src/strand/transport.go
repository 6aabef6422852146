package strand

import "context"

// ConnectionState describes the transport's link to the remote source.
type ConnectionState int

const (
	// Disconnected means no connection is established or being attempted.
	Disconnected ConnectionState = iota

	// Connecting means the initial connection attempt is in progress.
	Connecting

	// Connected means the transport is usable.
	Connected

	// Reconnecting means the connection was lost and the transport is
	// re-establishing it.
	Reconnecting

	// Failed means the transport has given up reconnecting.
	Failed
)

func (s ConnectionState) String() string {
	switch s {
	case Disconnected:
		return "disconnected"
	case Connecting:
		return "connecting"
	case Connected:
		return "connected"
	case Reconnecting:
		return "reconnecting"
	case Failed:
		return "failed"
	default:
		return "unknown"
	}
}

// Transport performs operations against the remote data source.
type Transport interface {
	// Execute performs one query, mutation or action. Application-level
	// errors are reported inside the response envelope; only
	// transport-level problems produce an error.
	Execute(ctx context.Context, req *Request) (*Response, error)

	// SnapshotCursor fetches an opaque cursor identifying a consistent
	// point in time for subsequent reads.
	SnapshotCursor(ctx context.Context) (string, error)

	// ConnectionStates returns a stream of connection state transitions.
	// Transports with no meaningful link state may return nil.
	ConnectionStates() <-chan ConnectionState

	// Close releases the transport's resources.
	Close() error
}

// Serializer converts values to and from canonical wire text, and produces
// the string suffix used to build composite cache keys.
type Serializer interface {
	EncodeKey(v any) (string, error)
	DecodeKey(s string, out any) error
	Marshal(v any) ([]byte, error)
	Unmarshal(b []byte, out any) error
}
