package openlaw

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// detailState is a step of the ID-then-MST lookup.
type detailState int

const (
	tryPrimary detailState = iota
	tryFallback
	done
)

// Detail fetches a single record. The identifier is first sent as ID; if that
// attempt fails for any reason it is sent once more as MST. The fallback runs
// only after the primary attempt has completed, and its outcome is returned.
func (c *Client) Detail(ctx context.Context, kind Kind, identifier string) (json.RawMessage, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, fmt.Errorf("%w: detail requires an id", ErrValidation)
	}

	var (
		state      = tryPrimary
		primaryErr error
		result     json.RawMessage
		err        error
	)
	for state != done {
		switch state {
		case tryPrimary:
			result, err = c.get(ctx, kind, ModeDetail, Params{ParamID: identifier})
			if err == nil {
				state = done
				break
			}
			primaryErr = err
			if ctx.Err() != nil {
				return nil, err
			}
			c.log.Debug().Str("attempt", ParamID).Str("error", summarize(err)).Msg("detail lookup failed, retrying with MST")
			state = tryFallback
		case tryFallback:
			result, err = c.get(ctx, kind, ModeDetail, Params{ParamMST: identifier})
			if err != nil {
				c.log.Debug().
					Str("primary", summarize(primaryErr)).
					Str("fallback", summarize(err)).
					Msg("detail lookup failed on both ID and MST")
				return nil, &DetailError{Primary: primaryErr, Fallback: err}
			}
			state = done
		}
	}
	return result, nil
}

func summarize(err error) string {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Summary()
	}
	return err.Error()
}
