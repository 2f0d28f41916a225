package fetchproxy

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"time"
)

const userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36"

// Direct fetches pages with a plain HTTP client. This is the
// privileged implementation used by the background process.
type Direct struct {
	client *http.Client
}

func NewDirect(timeout time.Duration) *Direct {
	jar, _ := cookiejar.New(nil)
	return &Direct{
		client: &http.Client{
			Timeout: timeout,
			Jar:     jar,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// Fetch retrieves a page. The error return is reserved for
// request-construction problems; network and HTTP-status failures are
// folded into the Result so callers can relay them verbatim.
func (d *Direct) Fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	req.Header.Set("Accept-Language", "ko-KR,ko;q=0.8,en-US;q=0.5,en;q=0.3")
	req.Header.Set("Connection", "keep-alive")
	req.Header.Set("Cache-Control", "max-age=0")

	resp, err := d.client.Do(req)
	if err != nil {
		return &Result{Success: false, Error: err.Error()}, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &Result{Success: false, Error: fmt.Sprintf("HTTP error! status: %d", resp.StatusCode)}, nil
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Result{Success: false, Error: fmt.Sprintf("read body: %v", err)}, nil
	}

	return &Result{Success: true, Data: string(body)}, nil
}
