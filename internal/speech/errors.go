package speech

import "fmt"

// Kind classifies synthesis failures so callers can decide whether to
// retry, surface a config problem, or count the failure against a line.
type Kind int

const (
	KindUnknown Kind = iota
	// KindUnauthorized means the API key was rejected.
	KindUnauthorized
	// KindBadVoice means the voice ID or synthesis parameters were rejected.
	KindBadVoice
	// KindRateLimited means the account hit its quota or request limit.
	KindRateLimited
	// KindUnavailable means the service returned a server-side error.
	KindUnavailable
	// KindNetwork means the request never got a response.
	KindNetwork
)

func (k Kind) String() string {
	switch k {
	case KindUnauthorized:
		return "unauthorized"
	case KindBadVoice:
		return "bad voice config"
	case KindRateLimited:
		return "rate limited"
	case KindUnavailable:
		return "service unavailable"
	case KindNetwork:
		return "network error"
	default:
		return "unknown error"
	}
}

// APIError is a classified synthesis failure.
type APIError struct {
	Kind   Kind
	Status int    // HTTP status, 0 for network errors
	Detail string // response body excerpt or transport error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("elevenlabs: %s (status %d): %s", e.Kind, e.Status, e.Detail)
	}
	return fmt.Sprintf("elevenlabs: %s: %s", e.Kind, e.Detail)
}

// classify maps an HTTP status to an error kind.
func classify(status int) Kind {
	switch {
	case status == 401 || status == 403:
		return KindUnauthorized
	case status == 400 || status == 404 || status == 422:
		return KindBadVoice
	case status == 429:
		return KindRateLimited
	case status >= 500:
		return KindUnavailable
	default:
		return KindUnknown
	}
}
