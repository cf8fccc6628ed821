package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"syscall"
	"time"
	"unicode/utf8"

	"github.com/codefionn/kael/internal/consts"
	"github.com/codefionn/kael/internal/logger"
	"github.com/codefionn/kael/internal/provider"
)

// Kind classifies adapter failures.
type Kind int

const (
	KindTimeout Kind = iota + 1
	KindUnavailable
	KindMissingCredential
	KindAuthRequired
	KindToolMissing
	KindBackendError
	KindParseError
	KindEmptyResponse
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timed out"
	case KindUnavailable:
		return "unavailable"
	case KindMissingCredential:
		return "no API key configured"
	case KindAuthRequired:
		return "authentication required"
	case KindToolMissing:
		return "tool not installed"
	case KindBackendError:
		return "backend error"
	case KindParseError:
		return "unreadable response"
	case KindEmptyResponse:
		return "empty response"
	default:
		return "unknown error"
	}
}

// Label is a stable identifier for k, used as a metric label.
func (k Kind) Label() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindUnavailable:
		return "unavailable"
	case KindMissingCredential:
		return "missing_credential"
	case KindAuthRequired:
		return "auth_required"
	case KindToolMissing:
		return "tool_missing"
	case KindBackendError:
		return "backend_error"
	case KindParseError:
		return "parse_error"
	case KindEmptyResponse:
		return "empty_response"
	default:
		return "other"
	}
}

// Error is returned by every adapter. Match kinds with errors.Is against the
// Err* sentinels.
type Error struct {
	Kind     Kind
	Provider provider.ID
	// Status is the HTTP status or process exit code, zero when not applicable.
	Status  int
	Body    string
	Message string
	Err     error

	sentinel bool
}

var (
	ErrTimeout           = &Error{Kind: KindTimeout, sentinel: true}
	ErrUnavailable       = &Error{Kind: KindUnavailable, sentinel: true}
	ErrMissingCredential = &Error{Kind: KindMissingCredential, sentinel: true}
	ErrAuthRequired      = &Error{Kind: KindAuthRequired, sentinel: true}
	ErrToolMissing       = &Error{Kind: KindToolMissing, sentinel: true}
	ErrBackendError      = &Error{Kind: KindBackendError, sentinel: true}
	ErrParseError        = &Error{Kind: KindParseError, sentinel: true}
	ErrEmptyResponse     = &Error{Kind: KindEmptyResponse, sentinel: true}
)

// Error renders the failure with every registered secret redacted.
func (e *Error) Error() string {
	var b strings.Builder
	if e.Provider != "" {
		b.WriteString(e.Provider.Label())
		b.WriteString(": ")
	}
	b.WriteString(e.Kind.String())
	if e.Status != 0 {
		fmt.Fprintf(&b, " (status %d)", e.Status)
	}
	if e.Message != "" {
		b.WriteString(": ")
		b.WriteString(e.Message)
	}
	if e.Body != "" {
		b.WriteString(": ")
		b.WriteString(e.Body)
	} else if e.Err != nil && e.Message == "" {
		b.WriteString(": ")
		b.WriteString(e.Err.Error())
	}
	return logger.Redact(b.String())
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches sentinels by kind.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.sentinel && t.Kind == e.Kind
}

// KindOf returns the kind of the first *Error in err's chain, or zero.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return 0
}

func newError(id provider.ID, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Provider: id, Message: msg}
}

func missingKey(id provider.ID) *Error {
	return newError(id, KindMissingCredential, "add a key with `kael keys set "+string(id)+"`")
}

// truncateBody trims body and caps it for inclusion in error text. The cut
// never splits a UTF-8 sequence.
func truncateBody(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > consts.MaxErrorBodyBytes {
		cut := consts.MaxErrorBodyBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		s = s[:cut] + "..."
	}
	return s
}

// statusError maps a non-2xx HTTP status. 401 and 403 mean the key was
// rejected; everything else is a backend failure.
func statusError(id provider.ID, status int, body []byte) *Error {
	kind := KindBackendError
	if status == http.StatusUnauthorized || status == http.StatusForbidden {
		kind = KindAuthRequired
	}
	return &Error{Kind: kind, Provider: id, Status: status, Body: truncateBody(body)}
}

// transportError maps a failed round trip. Deadline expiry is a timeout;
// undecodable replies are parse errors; anything else kept the request from
// reaching the backend and is unavailable.
func transportError(ctx context.Context, id provider.ID, timeout time.Duration, err error) *Error {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return &Error{
			Kind:     KindTimeout,
			Provider: id,
			Message:  fmt.Sprintf("no response within %s", timeout),
			Err:      err,
		}
	}
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return &Error{Kind: KindParseError, Provider: id, Err: err}
	}
	if errors.Is(err, syscall.ECONNREFUSED) {
		return &Error{Kind: KindUnavailable, Provider: id, Message: "connection refused", Err: err}
	}
	return &Error{Kind: KindUnavailable, Provider: id, Err: err}
}
