package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"

	"github.com/opencircuit/core/engine/domain"
)

// GenerateStream streams a completion as newline-delimited JSON chunks,
// decoded internally — no SSE framing leaks out of the orchestrator.
func (b *HTTPBackend) GenerateStream(ctx context.Context, model, prompt string) <-chan StreamToken {
	out := make(chan StreamToken)
	go func() {
		defer close(out)
		body, _ := json.Marshal(generateRequest{Model: model, Prompt: prompt, Stream: true})
		b.streamNDJSON(ctx, "/api/generate", body, out, func(line []byte) (string, bool, error) {
			var chunk generateResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				return "", false, nil
			}
			return chunk.Response, chunk.Done, nil
		})
	}()
	return out
}

// ChatStream streams a chat completion as newline-delimited JSON chunks.
func (b *HTTPBackend) ChatStream(ctx context.Context, model string, messages []domain.Message) <-chan StreamToken {
	out := make(chan StreamToken)
	go func() {
		defer close(out)
		wire := make([]chatMessageWire, len(messages))
		for i, m := range messages {
			wire[i] = chatMessageWire{Role: string(m.Role), Content: m.Content}
		}
		body, _ := json.Marshal(chatRequest{Model: model, Messages: wire, Stream: true})
		b.streamNDJSON(ctx, "/api/chat", body, out, func(line []byte) (string, bool, error) {
			var chunk chatResponse
			if err := json.Unmarshal(line, &chunk); err != nil {
				return "", false, nil
			}
			return chunk.Message.Content, chunk.Done, nil
		})
	}()
	return out
}

func (b *HTTPBackend) streamNDJSON(ctx context.Context, path string, body []byte, out chan<- StreamToken, decode func([]byte) (string, bool, error)) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+path, bytes.NewReader(body))
	if err != nil {
		out <- StreamToken{Err: &Error{Kind: Unreachable, Detail: err.Error()}}
		return
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		out <- StreamToken{Err: &Error{Kind: Unreachable, Detail: err.Error()}}
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		out <- StreamToken{Err: &Error{Kind: Unreachable, Detail: "unexpected status"}}
		return
	}

	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 64*1024), 64*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		content, done, err := decode(line)
		if err != nil {
			out <- StreamToken{Err: err}
			return
		}
		select {
		case out <- StreamToken{Content: content, Done: done}:
		case <-ctx.Done():
			return
		}
		if done {
			return
		}
	}
	if err := scanner.Err(); err != nil {
		out <- StreamToken{Err: &Error{Kind: Unreachable, Detail: err.Error()}}
	}
}
