package names

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DefaultListURL returns every species name in one page.
const DefaultListURL = "https://pokeapi.co/api/v2/pokemon?limit=1025"

// HTTPSource reads the name list from a JSON endpoint shaped like
// {"results":[{"name":"bulbasaur"}, ...]}.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

// ListPayload is the wire shape of the name list.
type ListPayload struct {
	Count   int         `json:"count,omitempty"`
	Results []ListEntry `json:"results"`
}

// ListEntry is one element of ListPayload.Results.
type ListEntry struct {
	Name string `json:"name"`
	URL  string `json:"url,omitempty"`
}

// FetchNames performs a single GET and decodes the result names in order.
func (s *HTTPSource) FetchNames(ctx context.Context) ([]string, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	target := DefaultListURL
	if s != nil && s.URL != "" {
		target = s.URL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("build name list request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	client := &http.Client{Timeout: 15 * time.Second}
	if s != nil && s.Client != nil {
		client = s.Client
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch name list: %w", err)
	}
	defer resp.Body.Close() // nolint:errcheck // best-effort cleanup on HTTP response body

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch name list: unexpected status %d", resp.StatusCode)
	}

	var payload ListPayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode name list: %w", err)
	}
	if len(payload.Results) == 0 {
		return nil, ErrEmptyList
	}

	out := make([]string, 0, len(payload.Results))
	for _, entry := range payload.Results {
		out = append(out, entry.Name)
	}
	return out, nil
}
