// AI-backed translation provider over HTTP JSON APIs.
//
// Supports OpenAI-compatible chat endpoints and the Google Gemini
// generateContent endpoint. Retries with exponential backoff on transient
// failures and honors the retry delay advertised in 429 responses; by the
// time a ProviderError reaches the filler, retries are already exhausted.
package translate

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/strsync/strsync/langmeta"
)

// Format selects the request/response wire format.
type Format int

const (
	// FormatOpenAIChat is the OpenAI chat/completions shape (also used by
	// Groq, Ollama, and other compatible services).
	FormatOpenAIChat Format = iota
	// FormatGemini is the Google generateContent shape.
	FormatGemini
)

// DefaultSystemPrompt instructs the model to behave as a batch translator.
// {{targetLang}} is replaced with the native name of the target language.
const DefaultSystemPrompt = `You are a professional translator specializing in software localization. You are translating UI strings for an application.

TRANSLATION PRINCIPLES:
- Translate for naturalness and fluency in {{targetLang}}, not word-for-word.
- Use established software terminology in {{targetLang}}.
- Keep brand names and proper nouns unchanged.

TECHNICAL REQUIREMENTS:
- Return ONLY a JSON array of translated strings, one for each input entry, in the same order.
- Preserve all format specifiers exactly as-is (%s, %d, %@, etc.).
- Preserve leading/trailing whitespace, newlines, and punctuation patterns.
- Return ONLY the JSON array, no explanations or markdown code blocks.`

// AIConfig configures an AI provider.
type AIConfig struct {
	// ID is a short identifier used in diagnostics (e.g. "openai", "gemini").
	ID string
	// BaseURL is the API base URL.
	BaseURL string
	// APIKey authenticates the request (empty for local services).
	APIKey string
	// Model is the model identifier.
	Model string
	// Format selects the wire format.
	Format Format
	// Batch is the per-request text limit reported via BatchLimit.
	Batch int
	// Timeout is the per-request timeout (default 120s).
	Timeout time.Duration
	// MaxRetries is the retry budget for transient failures (default 3).
	MaxRetries int
	// SystemPrompt overrides DefaultSystemPrompt when set.
	SystemPrompt string
	// Proxy is an optional HTTP/HTTPS proxy URL.
	Proxy string
}

// AIProvider implements Provider against an HTTP JSON API.
type AIProvider struct {
	cfg    AIConfig
	client *http.Client
}

// NewAIProvider creates a provider from cfg.
func NewAIProvider(cfg AIConfig) *AIProvider {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 120 * time.Second
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.Proxy != "" {
		if parsed, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(parsed)
		}
	} else {
		transport.Proxy = http.ProxyFromEnvironment
	}
	return &AIProvider{
		cfg: cfg,
		client: &http.Client{
			Transport: transport,
			Timeout:   cfg.Timeout,
		},
	}
}

// Name identifies the provider in diagnostics.
func (p *AIProvider) Name() string { return p.cfg.ID }

// BatchLimit is the configured per-request text limit.
func (p *AIProvider) BatchLimit() int { return p.cfg.Batch }

// Translate submits texts for translation and returns one translation per
// input, in order.
func (p *AIProvider) Translate(ctx context.Context, sourceLang, targetLang string, texts []string) ([]string, error) {
	systemPrompt := p.cfg.SystemPrompt
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}
	systemPrompt = strings.ReplaceAll(systemPrompt, "{{targetLang}}", langmeta.Name(targetLang))

	userPrompt, err := buildUserPrompt(sourceLang, targetLang, texts)
	if err != nil {
		return nil, p.wrap(KindNetwork, err)
	}

	raw, err := p.call(ctx, systemPrompt, userPrompt)
	if err != nil {
		return nil, err
	}

	translations, err := parseJSONArray(raw)
	if err != nil {
		return nil, p.wrap(KindNetwork, err)
	}
	return translations, nil
}

func (p *AIProvider) wrap(kind ErrorKind, err error) *ProviderError {
	return &ProviderError{Provider: p.cfg.ID, Kind: kind, Err: err}
}

// buildUserPrompt renders the translation request body the model sees.
func buildUserPrompt(sourceLang, targetLang string, texts []string) (string, error) {
	payload, err := json.Marshal(texts)
	if err != nil {
		return "", fmt.Errorf("encoding texts: %w", err)
	}
	return fmt.Sprintf("Translate the following strings from %s to %s:\n%s",
		langmeta.Name(sourceLang), langmeta.Name(targetLang), payload), nil
}

// call performs the HTTP exchange with retry and backoff.
func (p *AIProvider) call(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	endpoint, headers, body, err := p.buildRequest(systemPrompt, userPrompt)
	if err != nil {
		return "", p.wrap(KindNetwork, fmt.Errorf("building request: %w", err))
	}

	for attempt := 0; attempt <= p.cfg.MaxRetries; attempt++ {
		select {
		case <-ctx.Done():
			return "", p.wrap(KindNetwork, ctx.Err())
		default:
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
		if err != nil {
			return "", p.wrap(KindNetwork, err)
		}
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := p.client.Do(req)
		if err != nil {
			if attempt < p.cfg.MaxRetries {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return "", p.wrap(KindNetwork, err)
				}
				continue
			}
			return "", p.wrap(KindNetwork, fmt.Errorf("API request failed: %w", err))
		}

		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusOK:
			text, err := extractResponseText(respBody)
			if err != nil {
				return "", p.wrap(KindNetwork, err)
			}
			return text, nil

		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			return "", p.wrap(KindAuth, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))

		case resp.StatusCode == http.StatusTooManyRequests:
			if attempt < p.cfg.MaxRetries {
				if err := sleepCtx(ctx, parseRetryDelay(respBody)); err != nil {
					return "", p.wrap(KindNetwork, err)
				}
				continue
			}
			return "", p.wrap(KindQuota, fmt.Errorf("rate limited after %d retries", p.cfg.MaxRetries))

		case resp.StatusCode >= 500:
			if attempt < p.cfg.MaxRetries {
				if err := sleepCtx(ctx, backoff(attempt)); err != nil {
					return "", p.wrap(KindNetwork, err)
				}
				continue
			}
			return "", p.wrap(KindNetwork, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))

		default:
			return "", p.wrap(KindNetwork, fmt.Errorf("API returned status %d: %s", resp.StatusCode, truncate(string(respBody), 200)))
		}
	}

	return "", p.wrap(KindNetwork, fmt.Errorf("exhausted all %d retries", p.cfg.MaxRetries))
}

// buildRequest constructs the endpoint, headers, and body for the
// configured wire format.
func (p *AIProvider) buildRequest(systemPrompt, userPrompt string) (string, map[string]string, []byte, error) {
	headers := map[string]string{"Content-Type": "application/json"}
	base := strings.TrimRight(p.cfg.BaseURL, "/")

	switch p.cfg.Format {
	case FormatGemini:
		endpoint := fmt.Sprintf("%s/v1beta/models/%s:generateContent", base, p.cfg.Model)
		if p.cfg.APIKey != "" {
			headers["x-goog-api-key"] = p.cfg.APIKey
		}
		body, err := buildGeminiBody(systemPrompt, userPrompt)
		return endpoint, headers, body, err

	default:
		endpoint := base + "/chat/completions"
		if p.cfg.APIKey != "" {
			headers["Authorization"] = "Bearer " + p.cfg.APIKey
		}
		body, err := buildChatBody(p.cfg.Model, systemPrompt, userPrompt)
		return endpoint, headers, body, err
	}
}

func buildChatBody(model, systemPrompt, userPrompt string) ([]byte, error) {
	type msg struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	}
	req := struct {
		Model       string  `json:"model"`
		Messages    []msg   `json:"messages"`
		Temperature float64 `json:"temperature"`
		Stream      bool    `json:"stream"`
	}{
		Model: model,
		Messages: []msg{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
	}
	return json.Marshal(req)
}

func buildGeminiBody(systemPrompt, userPrompt string) ([]byte, error) {
	type part struct {
		Text string `json:"text"`
	}
	type content struct {
		Role  string `json:"role,omitempty"`
		Parts []part `json:"parts"`
	}
	type genConfig struct {
		Temperature float64 `json:"temperature"`
	}
	req := struct {
		Contents          []content `json:"contents"`
		GenerationConfig  genConfig `json:"generationConfig"`
		SystemInstruction *content  `json:"systemInstruction,omitempty"`
	}{
		Contents:         []content{{Role: "user", Parts: []part{{Text: userPrompt}}}},
		GenerationConfig: genConfig{Temperature: 0.3},
	}
	if systemPrompt != "" {
		req.SystemInstruction = &content{Parts: []part{{Text: systemPrompt}}}
	}
	return json.Marshal(req)
}

// extractResponseText pulls the model output out of either response shape.
func extractResponseText(body []byte) (string, error) {
	var raw map[string]any
	if err := json.Unmarshal(body, &raw); err != nil {
		return "", fmt.Errorf("invalid JSON response: %w", err)
	}

	if errObj, ok := raw["error"]; ok {
		if errMap, ok := errObj.(map[string]any); ok {
			if msg, ok := errMap["message"].(string); ok {
				return "", fmt.Errorf("API error: %s", msg)
			}
		}
		return "", fmt.Errorf("API error: %v", errObj)
	}

	// OpenAI chat: choices[0].message.content
	if choices, ok := raw["choices"].([]any); ok && len(choices) > 0 {
		if choice, ok := choices[0].(map[string]any); ok {
			if message, ok := choice["message"].(map[string]any); ok {
				if content, ok := message["content"].(string); ok {
					return content, nil
				}
			}
		}
	}

	// Gemini: candidates[0].content.parts[0].text
	if candidates, ok := raw["candidates"].([]any); ok && len(candidates) > 0 {
		if candidate, ok := candidates[0].(map[string]any); ok {
			if content, ok := candidate["content"].(map[string]any); ok {
				if parts, ok := content["parts"].([]any); ok && len(parts) > 0 {
					if part, ok := parts[0].(map[string]any); ok {
						if text, ok := part["text"].(string); ok {
							return text, nil
						}
					}
				}
			}
		}
	}

	return "", fmt.Errorf("could not extract text from response: %s", truncate(string(body), 200))
}

// parseJSONArray decodes the model output as a JSON string array, tolerating
// markdown code fences around the payload.
func parseJSONArray(text string) ([]string, error) {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		trimmed = strings.TrimPrefix(trimmed, "```json")
		trimmed = strings.TrimPrefix(trimmed, "```")
		trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
		trimmed = strings.TrimSpace(trimmed)
	}

	var result []string
	if err := json.Unmarshal([]byte(trimmed), &result); err != nil {
		return nil, fmt.Errorf("response is not a JSON string array: %w", err)
	}
	return result, nil
}

// parseRetryDelay extracts the advertised retry delay from a 429 response
// body (Google's RetryInfo detail), defaulting to 65s.
func parseRetryDelay(body []byte) time.Duration {
	const defaultDelay = 65 * time.Second

	var errResp struct {
		Error struct {
			Details []struct {
				Type       string `json:"@type"`
				RetryDelay string `json:"retryDelay"`
			} `json:"details"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &errResp); err != nil {
		return defaultDelay
	}

	for _, detail := range errResp.Error.Details {
		if strings.Contains(detail.Type, "RetryInfo") && detail.RetryDelay != "" {
			d := strings.TrimSuffix(detail.RetryDelay, "s")
			if secs, err := strconv.ParseFloat(d, 64); err == nil {
				return time.Duration(secs*1000)*time.Millisecond + 5*time.Second
			}
		}
	}
	return defaultDelay
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
