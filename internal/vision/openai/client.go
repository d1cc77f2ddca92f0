package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/purrup/auto-overtime/internal/config"
	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/vision"
)

const (
	apiURL       = "https://api.openai.com/v1/chat/completions"
	providerName = "openai"
)

// Client implements port.VisionExtractor using the OpenAI Chat Completions
// API with image input. It holds no cross-call state beyond the HTTP client.
type Client struct {
	apiKey      string
	model       string
	endpoint    string
	temperature float32
	inPer1M     float64
	outPer1M    float64
	client      *http.Client
}

// NewClient creates an OpenAI-backed extractor from the vision config.
func NewClient(cfg *config.VisionConfig) *Client {
	return newClient(cfg, apiURL)
}

// NewClientWithEndpoint creates a client pointing at a custom API endpoint
// (for testing).
func NewClientWithEndpoint(cfg *config.VisionConfig, endpoint string) *Client {
	return newClient(cfg, endpoint)
}

func newClient(cfg *config.VisionConfig, endpoint string) *Client {
	model := cfg.Model
	if model == "" {
		model = "gpt-5-mini"
	}
	timeout := time.Duration(cfg.TimeoutSecs) * time.Second
	if timeout == 0 {
		timeout = 120 * time.Second
	}
	return &Client{
		apiKey:      cfg.APIKey,
		model:       model,
		endpoint:    endpoint,
		temperature: cfg.Temperature,
		inPer1M:     cfg.InputPricePer1M,
		outPer1M:    cfg.OutputPricePer1M,
		client:      &http.Client{Timeout: timeout},
	}
}

func (c *Client) Extract(ctx context.Context, task domain.RecognitionTask) (*domain.RawExtractionResponse, error) {
	prompt := vision.BuildOvertimePrompt()

	contentBlocks, err := buildContentBlocks(task, prompt)
	if err != nil {
		return nil, vision.NewFatalError(providerName, vision.ReasonInvalidImage, err)
	}

	reqBody := map[string]interface{}{
		"model":                 c.model,
		"temperature":           c.temperature,
		"max_completion_tokens": 16384,
		"messages": []map[string]interface{}{
			{
				"role":    "user",
				"content": contentBlocks,
			},
		},
		"response_format": map[string]interface{}{
			"type": "json_object",
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, vision.NewTransientError(providerName, fmt.Errorf("calling openai API: %w", err), 0)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, vision.NewTransientError(providerName, fmt.Errorf("reading response: %w", err), 0)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, classifyStatus(resp, respBody)
	}

	return c.parseResponse(task.ID, respBody)
}

// classifyStatus maps an API error status onto the transient/fatal taxonomy.
func classifyStatus(resp *http.Response, body []byte) error {
	baseErr := fmt.Errorf("openai API error (status %d): %s", resp.StatusCode, truncate(string(body), 500))

	switch resp.StatusCode {
	case http.StatusTooManyRequests:
		if strings.Contains(string(body), "insufficient_quota") {
			return vision.NewFatalError(providerName, vision.ReasonQuota, baseErr)
		}
		retryAfter := vision.ParseRetryAfterHeader(resp.Header.Get("Retry-After"))
		return vision.NewTransientError(providerName, baseErr, retryAfter)
	case http.StatusUnauthorized, http.StatusForbidden:
		return vision.NewFatalError(providerName, vision.ReasonAuth, baseErr)
	case http.StatusBadRequest, http.StatusRequestEntityTooLarge, http.StatusUnsupportedMediaType:
		if strings.Contains(string(body), "image") {
			return vision.NewFatalError(providerName, vision.ReasonInvalidImage, baseErr)
		}
		return vision.NewFatalError(providerName, vision.ReasonBadRequest, baseErr)
	default:
		// 5xx and anything unexpected: retryable
		return vision.NewTransientError(providerName, baseErr, 0)
	}
}

func buildContentBlocks(task domain.RecognitionTask, prompt string) ([]map[string]interface{}, error) {
	if _, ok := domain.AllowedContentTypes[task.ContentType]; !ok {
		return nil, fmt.Errorf("unsupported content type for extraction: %s", task.ContentType)
	}
	encoded := base64.StdEncoding.EncodeToString(task.ImageBytes)
	dataURI := fmt.Sprintf("data:%s;base64,%s", task.ContentType, encoded)

	return []map[string]interface{}{
		{
			"type": "image_url",
			"image_url": map[string]interface{}{
				"url":    dataURI,
				"detail": "high",
			},
		},
		{
			"type": "text",
			"text": prompt,
		},
	}, nil
}

// apiResponse models the OpenAI Chat Completions API response.
type apiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

func (c *Client) parseResponse(taskID string, body []byte) (*domain.RawExtractionResponse, error) {
	var resp apiResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, vision.NewTransientError(providerName, fmt.Errorf("unmarshaling response: %w", err), 0)
	}

	if len(resp.Choices) == 0 {
		return nil, vision.NewTransientError(providerName, fmt.Errorf("empty response from API: no choices"), 0)
	}

	if resp.Choices[0].FinishReason == "length" {
		return nil, vision.NewTransientError(providerName,
			fmt.Errorf("output truncated (finish_reason: length): response exceeded output token limit"), 0)
	}

	usage := domain.TokenUsage{
		PromptTokens:     resp.Usage.PromptTokens,
		CompletionTokens: resp.Usage.CompletionTokens,
		TotalTokens:      resp.Usage.TotalTokens,
	}

	return &domain.RawExtractionResponse{
		TaskID:     taskID,
		RawPayload: []byte(resp.Choices[0].Message.Content),
		ModelName:  c.model,
		ReceivedAt: time.Now().UTC(),
		Usage:      usage,
		CostUSD:    c.calculateCost(usage),
	}, nil
}

// calculateCost prices a call from the configured per-1M-token rates.
func (c *Client) calculateCost(u domain.TokenUsage) float64 {
	inputCost := float64(u.PromptTokens) * c.inPer1M / 1_000_000
	outputCost := float64(u.CompletionTokens) * c.outPer1M / 1_000_000
	return inputCost + outputCost
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
