package llm

// Wire types mirror the inference server's literal REST contract
// (spec.md §6: /api/generate, /api/chat, /api/embeddings, /api/tags,
// /api/pull, /api/show, /api/delete). They stay package-private —
// callers interact only with Orchestrator's domain-shaped methods.

type generateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

type generateResponse struct {
	Model    string `json:"model"`
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

type chatMessageWire struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string            `json:"model"`
	Messages []chatMessageWire `json:"messages"`
	Stream   bool              `json:"stream"`
}

type chatResponse struct {
	Model   string          `json:"model"`
	Message chatMessageWire `json:"message"`
	Done    bool            `json:"done"`
}

type embedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type embedResponse struct {
	Embedding []float64 `json:"embedding"`
}

type tagsResponse struct {
	Models []modelInfoWire `json:"models"`
}

type modelInfoWire struct {
	Name       string `json:"name"`
	Size       int64  `json:"size"`
	ModifiedAt string `json:"modified_at"`
}

type pullRequest struct {
	Name   string `json:"name"`
	Stream bool   `json:"stream"`
}

type pullProgress struct {
	Status string `json:"status"`
	Error  string `json:"error"`
}

type showRequest struct {
	Name string `json:"name"`
}

type showResponse struct {
	Modelfile  string `json:"modelfile"`
	Parameters string `json:"parameters"`
	Template   string `json:"template"`
}

type deleteRequest struct {
	Name string `json:"name"`
}
