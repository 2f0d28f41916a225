// Package fetchproxy performs cross-origin page fetches on behalf of
// extractors. Unprivileged view sessions cannot reach arbitrary hosts
// themselves; they go through a proxy that sets realistic browser
// headers and reports failures as data, not errors.
package fetchproxy

import "context"

// Result is the wire contract shared by every proxy transport.
// Non-2xx responses and transport failures arrive as Success=false
// with Error set; Data carries raw HTML on success.
type Result struct {
	Success bool   `json:"success"`
	Data    string `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

type Proxy interface {
	Fetch(ctx context.Context, url string) (*Result, error)
}
