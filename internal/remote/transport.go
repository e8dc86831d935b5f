package remote

import "net/http"

// tokenTransport authenticates every request with an admin access token.
type tokenTransport struct {
	token string
	base  http.RoundTripper
}

func (t *tokenTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())
	if t.token != "" {
		clone.Header.Set("Authorization", "token "+t.token)
	}
	clone.Header.Set("Accept", "application/json")
	base := t.base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}

// withSudo makes the remote execute the request as the named account.
func withSudo(username string) func(*http.Request) {
	return func(req *http.Request) {
		if username != "" {
			req.Header.Set("Sudo", username)
		}
	}
}
