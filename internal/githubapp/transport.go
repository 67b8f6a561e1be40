package github

import "net/http"

// Transport is an http.RoundTripper that attaches a fresh GitHub App
// installation token to every request, refreshing it through tm as
// needed. It never mutates the request passed to RoundTrip.
type Transport struct {
	tm   *TokenManager
	base http.RoundTripper
}

// NewTransport wraps base (http.DefaultTransport if nil) with tm's
// installation tokens.
func NewTransport(tm *TokenManager, base http.RoundTripper) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{tm: tm, base: base}
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.tm.Token()
	if err != nil {
		return nil, err
	}
	cloned := req.Clone(req.Context())
	cloned.Header.Set("Authorization", "Bearer "+token)
	return t.base.RoundTrip(cloned)
}

// Client builds an *http.Client authenticating every request as tm's
// GitHub App installation.
func (t *Transport) Client() *http.Client {
	return &http.Client{Transport: t}
}
