package ai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DetectedItem is one recyclable the vision model identified in an image.
type DetectedItem struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Category   string  `json:"category"`
	TokenValue int64   `json:"tokenValue"`
}

// Classifier identifies recyclable items in a photo.
type Classifier interface {
	Classify(ctx context.Context, image []byte, mimeType string) ([]DetectedItem, error)
}

// OpenRouterClassifier calls a hosted vision model through OpenRouter's
// OpenAI-compatible chat-completions endpoint.
type OpenRouterClassifier struct {
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewOpenRouterClassifier(apiKey, model string, httpClient *http.Client) *OpenRouterClassifier {
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout: 55 * time.Second,
		}
	}
	if model == "" {
		model = "meta-llama/llama-4-scout:free"
	}
	return &OpenRouterClassifier{
		apiKey:     apiKey,
		model:      model,
		httpClient: httpClient,
	}
}

func (c *OpenRouterClassifier) Classify(ctx context.Context, image []byte, mimeType string) ([]DetectedItem, error) {
	if c == nil {
		return nil, errors.New("classifier is nil")
	}
	if c.apiKey == "" {
		return nil, errors.New("OPENROUTER_API_KEY is not set")
	}
	if len(image) == 0 {
		return nil, errors.New("image is required")
	}

	mime := strings.TrimSpace(mimeType)
	if mime == "" {
		mime = "image/jpeg"
	}
	dataURL := fmt.Sprintf("data:%s;base64,%s", mime, base64.StdEncoding.EncodeToString(image))

	body := map[string]interface{}{
		"model": c.model,
		"messages": []map[string]interface{}{
			{
				"role": "user",
				"content": []map[string]interface{}{
					{"type": "text", "text": classifyPrompt},
					{"type": "image_url", "image_url": map[string]string{"url": dataURL}},
				},
			},
		},
		"temperature": 0.2,
	}

	payload, _ := json.Marshal(body)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://openrouter.ai/api/v1/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	httpReq.Header.Set("HTTP-Referer", "https://trash2cash.io")
	httpReq.Header.Set("X-Title", "Trash2Cash")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	resBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("openrouter status %d: %s", resp.StatusCode, truncate(string(resBody), 500))
	}

	var parsed struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.Unmarshal(resBody, &parsed); err != nil {
		return nil, err
	}
	if len(parsed.Choices) == 0 || parsed.Choices[0].Message.Content == "" {
		return nil, errors.New("openrouter response has no content")
	}

	return ParseDetectedItems(parsed.Choices[0].Message.Content)
}

func truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
