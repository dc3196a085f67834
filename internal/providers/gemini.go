package providers

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"time"
)

// DefaultGeminiURL is the public Generative Language API endpoint.
const DefaultGeminiURL = "https://generativelanguage.googleapis.com"

// GeminiOptions configures a Gemini REST client.
type GeminiOptions struct {
	Name       string
	BaseURL    string
	APIKey     string
	Models     []string
	Timeout    time.Duration
	MaxRetries int
	Backoff    time.Duration
	HTTPClient *http.Client
}

// Gemini calls the Gemini generateContent REST API.
type Gemini struct {
	name    string
	baseURL string
	models  []string
	http    *transport
}

// NewGemini creates a client. Declared models short-circuit the model listing call.
func NewGemini(opts GeminiOptions, logger *slog.Logger) *Gemini {
	base := opts.BaseURL
	if base == "" {
		base = DefaultGeminiURL
	}

	headers := map[string]string{}
	if opts.APIKey != "" {
		headers["x-goog-api-key"] = opts.APIKey
	}

	return &Gemini{
		name:    opts.Name,
		baseURL: strings.TrimRight(base, "/"),
		models:  slices.Clone(opts.Models),
		http:    newTransport(opts.Name, opts.HTTPClient, opts.Timeout, headers, opts.MaxRetries, opts.Backoff, logger),
	}
}

func (c *Gemini) Name() string {
	return c.name
}

func (c *Gemini) ListModels(ctx context.Context) ([]string, error) {
	if len(c.models) > 0 {
		return slices.Clone(c.models), nil
	}

	var resp struct {
		Models []struct {
			Name    string   `json:"name"`
			Methods []string `json:"supportedGenerationMethods"`
		} `json:"models"`
	}
	if err := c.http.do(ctx, http.MethodGet, c.baseURL+"/v1beta/models", "", nil, &resp); err != nil {
		return nil, err
	}

	models := make([]string, 0, len(resp.Models))
	for _, m := range resp.Models {
		if len(m.Methods) > 0 && !slices.Contains(m.Methods, "generateContent") {
			continue
		}
		models = append(models, strings.TrimPrefix(m.Name, "models/"))
	}
	return models, nil
}

type geminiPart struct {
	Text       string            `json:"text,omitempty"`
	InlineData *geminiInlineData `json:"inline_data,omitempty"`
}

type geminiInlineData struct {
	MimeType string `json:"mime_type"`
	Data     string `json:"data"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []geminiPart `json:"parts"`
}

type geminiRequest struct {
	Contents         []geminiContent `json:"contents"`
	GenerationConfig struct {
		Temperature float64 `json:"temperature"`
	} `json:"generationConfig"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	PromptFeedback struct {
		BlockReason string `json:"blockReason"`
	} `json:"promptFeedback"`
}

func (c *Gemini) Generate(ctx context.Context, req Request) (string, error) {
	files, err := loadAttachments(req.Files)
	if err != nil {
		return "", &ProviderError{Provider: c.name, Model: req.Model, Message: err.Error()}
	}

	text, binary := splitAttachments(req.Prompt, files)

	parts := []geminiPart{{Text: text}}
	for _, f := range binary {
		parts = append(parts, geminiPart{InlineData: &geminiInlineData{MimeType: f.mime, Data: f.base64()}})
	}

	var body geminiRequest
	body.Contents = []geminiContent{{Role: "user", Parts: parts}}
	body.GenerationConfig.Temperature = req.Temperature

	endpoint := c.baseURL + "/v1beta/models/" + url.PathEscape(req.Model) + ":generateContent"

	var resp geminiResponse
	if err := c.http.do(ctx, http.MethodPost, endpoint, req.Model, body, &resp); err != nil {
		return "", err
	}

	if len(resp.Candidates) == 0 {
		msg := "response contained no candidates"
		if resp.PromptFeedback.BlockReason != "" {
			msg = "prompt blocked: " + resp.PromptFeedback.BlockReason
		}
		return "", &ProviderError{Provider: c.name, Model: req.Model, Message: msg}
	}

	var out strings.Builder
	for _, p := range resp.Candidates[0].Content.Parts {
		out.WriteString(p.Text)
	}
	return out.String(), nil
}

var _ Client = (*Gemini)(nil)
