package openlaw

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
)

// DefaultBaseURL is the DRF root of the open API.
const DefaultBaseURL = "https://www.law.go.kr/DRF"

const (
	searchEndpoint = "lawSearch.do"
	detailEndpoint = "lawService.do"

	// ParamID and ParamMST are the two ways the detail endpoint accepts an
	// identifier.
	ParamID  = "ID"
	ParamMST = "MST"
)

// Params are query parameters. A nil value (or nil pointer) means unset and
// the parameter is left out of the URL.
type Params map[string]any

// EncodeURL merges params into the query of base. Every defined value is
// stringified and percent-encoded exactly once.
func EncodeURL(base string, params Params) (string, error) {
	u, err := url.Parse(base)
	if err != nil {
		return "", fmt.Errorf("parse base url: %w", err)
	}
	q := u.Query()
	for k, v := range params {
		s, ok := stringify(v)
		if !ok {
			continue
		}
		q.Set(k, s)
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// BuildURL builds the URL of a search or detail call. params carries the
// mode-specific parameters (query, display, page, ID, MST).
func BuildURL(base string, kind Kind, mode Mode, credential string, params Params) (string, error) {
	endpoint := searchEndpoint
	if mode == ModeDetail {
		endpoint = detailEndpoint
	}
	all := Params{
		"OC":     credential,
		"target": string(kind),
		"type":   "JSON",
	}
	for k, v := range params {
		all[k] = v
	}
	return EncodeURL(strings.TrimRight(base, "/")+"/"+endpoint, all)
}

func stringify(v any) (string, bool) {
	switch x := v.(type) {
	case nil:
		return "", false
	case string:
		return x, true
	case *string:
		if x == nil {
			return "", false
		}
		return *x, true
	case int:
		return strconv.Itoa(x), true
	case *int:
		if x == nil {
			return "", false
		}
		return strconv.Itoa(*x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	case *bool:
		if x == nil {
			return "", false
		}
		return strconv.FormatBool(*x), true
	case fmt.Stringer:
		return x.String(), true
	default:
		return fmt.Sprint(x), true
	}
}

// RedactURL hides the OC credential so a URL can be logged.
func RedactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return raw
	}
	q := u.Query()
	if q.Has("OC") {
		q.Set("OC", "***")
		u.RawQuery = q.Encode()
	}
	return u.String()
}

// optionalInt maps the zero value to unset.
func optionalInt(n int) any {
	if n == 0 {
		return nil
	}
	return n
}
