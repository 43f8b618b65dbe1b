package ghapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/adamwoolhether/artifetch/client"
)

// rateLimitMarker is what the API puts in a 403 body once the anonymous quota is spent.
const rateLimitMarker = "rate limit exceeded"

// authState tracks whether a request already carries a credential.
// It only ever moves from anonymous to authenticated.
type authState uint8

const (
	stateAnonymous authState = iota
	stateAuthenticated
)

func (s authState) String() string {
	switch s {
	case stateAnonymous:
		return "anonymous"
	case stateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// next returns the state that follows a failed attempt and whether the
// caller must attach a credential and restart its attempt count.
func (s authState) next(err error) (authState, bool) {
	if s == stateAnonymous && wantsAuth(err) {
		return stateAuthenticated, true
	}

	return s, false
}

// wantsAuth reports a rate limited 403 or a 404, which the API also
// returns for private resources requested anonymously.
func wantsAuth(err error) bool {
	var statusErr *client.UnexpectedStatusError
	if !errors.As(err, &statusErr) {
		return false
	}

	switch statusErr.StatusCode {
	case http.StatusForbidden:
		return strings.Contains(statusErr.Body, rateLimitMarker)
	case http.StatusNotFound:
		return true
	default:
		return false
	}
}
