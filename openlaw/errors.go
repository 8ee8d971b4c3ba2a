package openlaw

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

// Sentinels for the failure classes of a fetch. Match them with errors.Is.
var (
	ErrHTTPStatus = errors.New("upstream returned non-2xx status")
	ErrDecode     = errors.New("upstream returned invalid json")
	ErrNetwork    = errors.New("upstream request failed")
)

// ErrorKind classifies a FetchError.
type ErrorKind int

const (
	KindHTTP ErrorKind = iota + 1
	KindDecode
	KindNetwork
)

func (k ErrorKind) String() string {
	switch k {
	case KindHTTP:
		return "http"
	case KindDecode:
		return "decode"
	case KindNetwork:
		return "network"
	default:
		return "unknown"
	}
}

// maxErrorBody bounds the response body kept for diagnostics.
const maxErrorBody = 500

// FetchError is the failed outcome of one upstream call.
type FetchError struct {
	Kind   ErrorKind
	URL    string // credential redacted
	Status int    // KindHTTP only
	Body   string // bounded prefix of the response body
	Err    error  // underlying cause, if any
}

func (e *FetchError) Error() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("request failed: HTTP %d\nURL: %s\nbody: %s", e.Status, e.URL, e.Body)
	case KindDecode:
		if e.Err != nil {
			return fmt.Sprintf("invalid JSON response: %v\nURL: %s\nbody: %s", e.Err, e.URL, e.Body)
		}
		return fmt.Sprintf("invalid JSON response\nURL: %s\nbody: %s", e.URL, e.Body)
	default:
		return fmt.Sprintf("request failed: %v\nURL: %s", e.Err, e.URL)
	}
}

func (e *FetchError) Unwrap() error { return e.Err }

// Is lets errors.Is match a FetchError against the sentinel of its kind.
func (e *FetchError) Is(target error) bool {
	switch target {
	case ErrHTTPStatus:
		return e.Kind == KindHTTP
	case ErrDecode:
		return e.Kind == KindDecode
	case ErrNetwork:
		return e.Kind == KindNetwork
	}
	return false
}

// Summary is a one-line description used when logging.
func (e *FetchError) Summary() string {
	switch e.Kind {
	case KindHTTP:
		return fmt.Sprintf("http %d", e.Status)
	case KindDecode:
		return "decode: " + truncate(e.Body, 80)
	default:
		return fmt.Sprintf("network: %v", e.Err)
	}
}

// DetailError is returned when both detail attempts fail. It behaves like the
// fallback error; the primary failure is kept for diagnostics.
type DetailError struct {
	Primary  error
	Fallback error
}

func (e *DetailError) Error() string { return e.Fallback.Error() }

func (e *DetailError) Unwrap() error { return e.Fallback }

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
