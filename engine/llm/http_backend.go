package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/opencircuit/core/engine/domain"
)

// HTTPBackend talks to a local Ollama-compatible inference server over
// its literal REST contract. It generalizes the teacher's embed-only
// HTTP client into the full generate/chat/embed/list/pull/delete/show
// surface.
type HTTPBackend struct {
	baseURL string
	client  *http.Client
}

func NewHTTPBackend(baseURL string, client *http.Client) *HTTPBackend {
	if client == nil {
		client = &http.Client{}
	}
	return &HTTPBackend{baseURL: baseURL, client: client}
}

func (b *HTTPBackend) Generate(ctx context.Context, model, prompt string) (string, error) {
	var resp generateResponse
	if err := b.doJSON(ctx, "/api/generate", generateRequest{Model: model, Prompt: prompt, Stream: false}, &resp); err != nil {
		return "", err
	}
	return resp.Response, nil
}

func (b *HTTPBackend) Chat(ctx context.Context, model string, messages []domain.Message) (domain.Message, error) {
	wire := make([]chatMessageWire, len(messages))
	for i, m := range messages {
		wire[i] = chatMessageWire{Role: string(m.Role), Content: m.Content}
	}
	var resp chatResponse
	if err := b.doJSON(ctx, "/api/chat", chatRequest{Model: model, Messages: wire, Stream: false}, &resp); err != nil {
		return domain.Message{}, err
	}
	return domain.Message{Role: domain.Role(resp.Message.Role), Content: resp.Message.Content}, nil
}

func (b *HTTPBackend) Embed(ctx context.Context, model, text string) ([]float32, error) {
	var resp embedResponse
	if err := b.doJSON(ctx, "/api/embeddings", embedRequest{Model: model, Prompt: text}, &resp); err != nil {
		return nil, err
	}
	out := make([]float32, len(resp.Embedding))
	for i, v := range resp.Embedding {
		out[i] = float32(v)
	}
	return out, nil
}

func (b *HTTPBackend) ListModels(ctx context.Context) ([]ModelInfo, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, b.baseURL+"/api/tags", nil)
	if err != nil {
		return nil, &Error{Kind: Unreachable, Detail: err.Error()}
	}
	resp, err := b.client.Do(req)
	if err != nil {
		return nil, &Error{Kind: Unreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, &Error{Kind: Unreachable, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	var tags tagsResponse
	if err := json.NewDecoder(resp.Body).Decode(&tags); err != nil {
		return nil, &Error{Kind: InvalidResponse, Detail: err.Error()}
	}
	out := make([]ModelInfo, len(tags.Models))
	for i, m := range tags.Models {
		out[i] = ModelInfo{Name: m.Name, Size: m.Size}
	}
	return out, nil
}

func (b *HTTPBackend) PullModel(ctx context.Context, model string) error {
	body, _ := json.Marshal(pullRequest{Name: model, Stream: true})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/api/pull", bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: Unreachable, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}

	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		var progress pullProgress
		if err := json.Unmarshal(scanner.Bytes(), &progress); err != nil {
			continue
		}
		if progress.Error != "" {
			return &Error{Kind: ModelUnavailable, Detail: progress.Error}
		}
	}
	return scanner.Err()
}

func (b *HTTPBackend) DeleteModel(ctx context.Context, model string) error {
	body, _ := json.Marshal(deleteRequest{Name: model})
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, b.baseURL+"/api/delete", bytes.NewReader(body))
	if err != nil {
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := b.client.Do(req)
	if err != nil {
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: Unreachable, Detail: fmt.Sprintf("status %d", resp.StatusCode)}
	}
	return nil
}

func (b *HTTPBackend) ShowModel(ctx context.Context, model string) (ModelDetails, error) {
	var resp showResponse
	if err := b.doJSON(ctx, "/api/show", showRequest{Name: model}, &resp); err != nil {
		return ModelDetails{}, err
	}
	return ModelDetails{Modelfile: resp.Modelfile, Parameters: resp.Parameters, Template: resp.Template}, nil
}

func (b *HTTPBackend) doJSON(ctx context.Context, path string, reqBody, respBody any) error {
	data, err := json.Marshal(reqBody)
	if err != nil {
		return &Error{Kind: InvalidResponse, Detail: err.Error()}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(data))
	if err != nil {
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: Timeout, Detail: err.Error()}
		}
		return &Error{Kind: Unreachable, Detail: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return &Error{Kind: ModelUnavailable, Detail: path + ": model not loaded"}
	}
	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: Unreachable, Detail: fmt.Sprintf("%s: status %d", path, resp.StatusCode)}
	}
	if respBody == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(respBody); err != nil {
		return &Error{Kind: InvalidResponse, Detail: err.Error()}
	}
	return nil
}
