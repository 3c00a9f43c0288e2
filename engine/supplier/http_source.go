package supplier

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/opencircuit/core/engine/domain"
)

// HTTPSource queries a single REST-backed parts catalog. The endpoint is
// expected to expose GET /search?q=...&limit=... and GET /parts/{partNumber}
// returning JSON bodies shaped like wireComponent.
type HTTPSource struct {
	name    string
	baseURL string
	client  *http.Client
}

func NewHTTPSource(name, baseURL string, client *http.Client) *HTTPSource {
	if client == nil {
		client = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return &HTTPSource{name: name, baseURL: baseURL, client: client}
}

func (h *HTTPSource) Name() string { return h.name }

func (h *HTTPSource) Search(ctx context.Context, query string, limit int) ([]domain.Component, error) {
	u := fmt.Sprintf("%s/search?q=%s&limit=%d", h.baseURL, url.QueryEscape(query), limit)
	var wire []wireComponent
	if err := h.getJSON(ctx, u, &wire); err != nil {
		return nil, err
	}
	out := make([]domain.Component, 0, len(wire))
	for _, w := range wire {
		out = append(out, w.toDomain())
	}
	return out, nil
}

func (h *HTTPSource) Details(ctx context.Context, partNumber string) (*domain.Component, error) {
	u := fmt.Sprintf("%s/parts/%s", h.baseURL, url.PathEscape(partNumber))
	var wire wireComponent
	if err := h.getJSON(ctx, u, &wire); err != nil {
		return nil, err
	}
	c := wire.toDomain()
	return &c, nil
}

func (h *HTTPSource) getJSON(ctx context.Context, rawURL string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &Error{Kind: InvalidQuery, Detail: err.Error()}
	}

	resp, err := h.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: Unreachable, Detail: "request timed out: " + err.Error()}
		}
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return &Error{Kind: NotFound, Detail: rawURL}
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Kind: QuotaExhausted, Detail: rawURL}
	case resp.StatusCode == http.StatusBadRequest:
		return &Error{Kind: InvalidQuery, Detail: rawURL}
	case resp.StatusCode >= 500:
		return &Error{Kind: Unreachable, Detail: fmt.Sprintf("http %d from %s", resp.StatusCode, rawURL)}
	case resp.StatusCode != http.StatusOK:
		return &Error{Kind: Unreachable, Detail: fmt.Sprintf("unexpected status %d from %s", resp.StatusCode, rawURL)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &Error{Kind: InvalidQuery, Detail: "malformed response: " + err.Error()}
	}
	return nil
}
