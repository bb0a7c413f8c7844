package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/okian/rtmonitor/internal/domain/linelist"
)

// HTTPSource pulls the line list from a Socrata-style JSON endpoint.
type HTTPSource struct {
	url    string
	limit  int
	client *http.Client
}

// HTTPOption configures an HTTPSource.
type HTTPOption func(*HTTPSource)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(s *HTTPSource) {
		if c != nil {
			s.client = c
		}
	}
}

// WithLimit sets the $limit query parameter. Zero leaves the URL as is.
func WithLimit(n int) HTTPOption {
	return func(s *HTTPSource) {
		if n >= 0 {
			s.limit = n
		}
	}
}

// NewHTTPSource builds a source for rawURL. Deadlines come from the Fetch
// context.
func NewHTTPSource(rawURL string, opts ...HTTPOption) *HTTPSource {
	s := &HTTPSource{url: rawURL, client: http.DefaultClient}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Name implements Source.
func (s *HTTPSource) Name() string { return "http" }

// Fetch implements Source.
func (s *HTTPSource) Fetch(ctx context.Context) ([]linelist.Raw, error) {
	u, err := s.requestURL()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept", "application/json, text/csv")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
		return nil, fmt.Errorf("%w: %s", ErrStatus, resp.Status)
	}

	format := FormatJSON
	if strings.Contains(resp.Header.Get("Content-Type"), "csv") {
		format = FormatCSV
	}
	return Decode(resp.Body, format, false)
}

func (s *HTTPSource) requestURL() (string, error) {
	u, err := url.Parse(s.url)
	if err != nil {
		return "", err
	}
	if s.limit > 0 {
		q := u.Query()
		if q.Get("$limit") == "" {
			q.Set("$limit", strconv.Itoa(s.limit))
			u.RawQuery = q.Encode()
		}
	}
	return u.String(), nil
}
