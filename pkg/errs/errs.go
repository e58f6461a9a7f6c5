// Package errs classifies errors so request boundaries can map them to HTTP
// responses without string matching, and so infrastructure failures
// (cache store, event bus) can be contained instead of surfaced.
package errs

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for handling purposes.
type Kind int

const (
	// KindUnknown is any unclassified failure. Maps to 500.
	KindUnknown Kind = iota
	// KindValidation is a malformed request the client must correct.
	KindValidation
	// KindNotFound means the referenced entity is absent.
	KindNotFound
	// KindConflict is a uniqueness violation such as duplicate registration.
	KindConflict
	// KindAuth is a missing, invalid or expired credential.
	KindAuth
	// KindRateLimit means an admission-control quota was exceeded.
	KindRateLimit
	// KindUpstream is a backend that could not be reached or timed out.
	KindUpstream
	// KindStoreUnavailable is a cache/counting-store failure. Never shown to
	// clients; callers degrade per their fail-open/fail-closed policy.
	KindStoreUnavailable
	// KindBusUnavailable is a publish/subscribe failure. Logged; the request
	// that triggered the publish still completes if persistence succeeded.
	KindBusUnavailable
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindAuth:
		return "auth"
	case KindRateLimit:
		return "rate_limit"
	case KindUpstream:
		return "upstream"
	case KindStoreUnavailable:
		return "store_unavailable"
	case KindBusUnavailable:
		return "bus_unavailable"
	default:
		return "unknown"
	}
}

// E is a classified error with the operation that produced it.
type E struct {
	Kind Kind
	Op   string
	Msg  string
	Err  error
}

func (e *E) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
	case e.Msg != "":
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	default:
		return e.Op
	}
}

func (e *E) Unwrap() error { return e.Err }

// New builds a classified error with a client-safe message.
func New(kind Kind, op, msg string) error {
	return &E{Kind: kind, Op: op, Msg: msg}
}

// Wrap classifies an underlying error.
func Wrap(kind Kind, op string, err error) error {
	return &E{Kind: kind, Op: op, Err: err}
}

// KindOf extracts the classification, KindUnknown when unclassified.
func KindOf(err error) Kind {
	var e *E
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// Message returns the client-safe message, empty when none was recorded.
func Message(err error) string {
	var e *E
	if errors.As(err, &e) {
		return e.Msg
	}
	return ""
}

// HTTPStatus maps a kind to the status the request boundary returns.
// Infrastructure kinds map to 500 but are expected to be contained before
// reaching a client.
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindConflict:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAuth:
		return http.StatusUnauthorized
	case KindRateLimit:
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}
