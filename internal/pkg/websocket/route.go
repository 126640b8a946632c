package websocket

import (
	"fmt"
	"net/url"
)

// RouteTarget identifies one logical route: base transport URL, route path
// and optional static query parameters. It is never mutated after a connect
// attempt begins.
type RouteTarget struct {
	BaseURL string
	Path    string
	Params  map[string]string
}

// URL builds the concrete connection URL from the target plus per-connect
// parameters. Per-connect parameters override static ones on key collision.
func (r RouteTarget) URL(params map[string]string) (string, error) {
	u, err := url.Parse(r.BaseURL + r.Path)
	if err != nil {
		return "", fmt.Errorf("invalid route target %q: %w", r.BaseURL+r.Path, err)
	}

	query := u.Query()
	for key, value := range r.Params {
		query.Set(key, value)
	}
	for key, value := range params {
		query.Set(key, value)
	}
	u.RawQuery = query.Encode()

	return u.String(), nil
}
