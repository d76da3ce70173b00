package viewer

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/Vasu1712/scenyx-present/internal/models"
	"github.com/Vasu1712/scenyx-present/internal/storage"
)

// HTTPLoader fetches presentations from a server's presentations API.
type HTTPLoader struct {
	BaseURL string
	Client  *http.Client
}

// Get fetches one presentation. A 404 maps to storage.ErrNotFound.
func (l *HTTPLoader) Get(ctx context.Context, filename string) (*models.Presentation, error) {
	client := l.Client
	if client == nil {
		client = http.DefaultClient
	}
	endpoint := strings.TrimSuffix(l.BaseURL, "/") + "/api/presentations/" + url.PathEscape(filename)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	res, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", filename, err)
	}
	defer res.Body.Close()

	switch {
	case res.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("%w: %s", storage.ErrNotFound, filename)
	case res.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("fetch %s: unexpected status %s", filename, res.Status)
	}

	var body struct {
		models.Presentation
		Content json.RawMessage `json:"content"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode %s: %w", filename, err)
	}
	p := body.Presentation
	// Markdown arrives as a JSON string, decks as an object.
	var text string
	if err := json.Unmarshal(body.Content, &text); err == nil {
		p.Content = []byte(text)
	} else {
		p.Content = []byte(body.Content)
	}
	return &p, nil
}
