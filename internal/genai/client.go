package genai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var ErrNoImage = errors.New("provider returned no image")

// Client talks to an OpenAI-compatible responses endpoint with the
// image_generation tool enabled.
type Client struct {
	baseURL    string
	apiKey     string
	model      string
	httpClient *http.Client
}

func NewClient(baseURL, apiKey, model string) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		model:   model,
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

type message struct {
	Role    string `json:"role"`
	Content any    `json:"content"`
}

type generateRequest struct {
	Model string    `json:"model"`
	Input []message `json:"input"`
	Tools []tool    `json:"tools"`
}

type tool struct {
	Type string `json:"type"`
}

type generateResponse struct {
	Output []struct {
		Type   string `json:"type"`
		Result string `json:"result"`
	} `json:"output"`
}

// Generate performs a single request with no retries; a remote failure
// is the caller's to surface.
func (c *Client) Generate(ctx context.Context, genReq Request) ([]byte, error) {
	body := generateRequest{
		Model: c.model,
		Input: []message{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserContent(genReq)},
		},
		Tools: []tool{{Type: "image_generation"}},
	}

	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(body); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/responses", &buf)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("generation request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("generation request failed: %s: %s", resp.Status, detail)
	}

	var out generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	for _, o := range out.Output {
		if o.Type != "image_generation_call" || o.Result == "" {
			continue
		}
		img, err := base64.StdEncoding.DecodeString(o.Result)
		if err != nil {
			return nil, fmt.Errorf("decode image payload: %w", err)
		}
		return img, nil
	}

	return nil, ErrNoImage
}
