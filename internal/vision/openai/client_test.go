package openai_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/purrup/auto-overtime/internal/config"
	"github.com/purrup/auto-overtime/internal/domain"
	"github.com/purrup/auto-overtime/internal/vision"
	"github.com/purrup/auto-overtime/internal/vision/openai"
)

func newTestClient(serverURL string) *openai.Client {
	cfg := &config.VisionConfig{
		APIKey:           "test-key",
		Model:            "gpt-5-mini",
		TimeoutSecs:      30,
		InputPricePer1M:  0.25,
		OutputPricePer1M: 2.0,
	}
	return openai.NewClientWithEndpoint(cfg, serverURL)
}

func testTask() domain.RecognitionTask {
	return domain.RecognitionTask{
		ID:             "task-1",
		ImageBytes:     []byte{0xFF, 0xD8, 0xFF, 0xE0},
		SourceFilename: "slip.jpg",
		ContentType:    "image/jpeg",
	}
}

func successResponse(content string) map[string]interface{} {
	return map[string]interface{}{
		"choices": []map[string]interface{}{
			{
				"message":       map[string]interface{}{"role": "assistant", "content": content},
				"finish_reason": "stop",
			},
		},
		"usage": map[string]interface{}{
			"prompt_tokens":     1000,
			"completion_tokens": 500,
			"total_tokens":      1500,
		},
	}
}

func TestExtract_Success(t *testing.T) {
	payload := `{"entries":[{"employee_name":"王小明"}]}`

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var reqBody map[string]interface{}
		err := json.NewDecoder(r.Body).Decode(&reqBody)
		assert.NoError(t, err)
		assert.Equal(t, "gpt-5-mini", reqBody["model"])
		assert.Equal(t, float64(16384), reqBody["max_completion_tokens"])

		respFormat := reqBody["response_format"].(map[string]interface{})
		assert.Equal(t, "json_object", respFormat["type"])

		messages := reqBody["messages"].([]interface{})
		assert.Len(t, messages, 1)
		msg := messages[0].(map[string]interface{})
		assert.Equal(t, "user", msg["role"])

		content := msg["content"].([]interface{})
		assert.Len(t, content, 2)

		imgBlock := content[0].(map[string]interface{})
		assert.Equal(t, "image_url", imgBlock["type"])
		imgURL := imgBlock["image_url"].(map[string]interface{})
		assert.True(t, strings.HasPrefix(imgURL["url"].(string), "data:image/jpeg;base64,"))
		assert.Equal(t, "high", imgURL["detail"])

		textBlock := content[1].(map[string]interface{})
		assert.Equal(t, "text", textBlock["type"])
		assert.Contains(t, textBlock["text"].(string), "無法辨識")

		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(successResponse(payload))
	}))
	defer server.Close()

	c := newTestClient(server.URL)
	resp, err := c.Extract(context.Background(), testTask())

	require.NoError(t, err)
	assert.Equal(t, "task-1", resp.TaskID)
	assert.Equal(t, payload, string(resp.RawPayload))
	assert.Equal(t, "gpt-5-mini", resp.ModelName)
	assert.Equal(t, 1500, resp.Usage.TotalTokens)
	// 1000 input at $0.25/1M plus 500 output at $2.00/1M
	assert.InDelta(t, 0.00125, resp.CostUSD, 1e-9)
}

func TestExtract_UnsupportedContentTypeIsFatal(t *testing.T) {
	c := newTestClient("http://unused.invalid")
	task := testTask()
	task.ContentType = "application/pdf"

	_, err := c.Extract(context.Background(), task)
	var fe *vision.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, vision.ReasonInvalidImage, fe.Reason)
}

func TestExtract_AuthFailureIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), testTask())
	var fe *vision.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, vision.ReasonAuth, fe.Reason)
	assert.False(t, vision.IsTransient(err))
}

func TestExtract_RateLimitIsTransientWithRetryAfter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "7")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"Rate limit reached"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), testTask())
	var te *vision.TransientError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 7, int(te.RetryAfter.Seconds()))
}

func TestExtract_QuotaExhaustionIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"type":"insufficient_quota","message":"You exceeded your current quota"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), testTask())
	var fe *vision.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, vision.ReasonQuota, fe.Reason)
}

func TestExtract_BadImageIsFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"Invalid image data"}}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), testTask())
	var fe *vision.FatalError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, vision.ReasonInvalidImage, fe.Reason)
}

func TestExtract_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), testTask())
	assert.True(t, vision.IsTransient(err))
}

func TestExtract_TruncatedOutputIsTransient(t *testing.T) {
	resp := successResponse("{\"entries\":[")
	choices := resp["choices"].([]map[string]interface{})
	choices[0]["finish_reason"] = "length"

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), testTask())
	assert.True(t, vision.IsTransient(err))
}

func TestExtract_EmptyChoicesIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL).Extract(context.Background(), testTask())
	assert.True(t, vision.IsTransient(err))
	assert.False(t, errors.Is(err, context.Canceled))
}
