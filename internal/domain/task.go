package domain

import "time"

// RecognitionTask is the immutable unit of work handed to the extraction
// client: one pre-processed slip image plus a batch-unique identifier.
// Image bytes live only here; they are never persisted.
type RecognitionTask struct {
	ID             string
	ImageBytes     []byte
	SourceFilename string
	ContentType    string
}

// TokenUsage holds the token counts reported by the vision model for a
// single extraction call.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// Add accumulates another call's usage.
func (u *TokenUsage) Add(other TokenUsage) {
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}

// RawExtractionResponse is the untouched structured payload returned by the
// vision model for one task. It is produced by the extraction client and
// passed by value to the validator; nothing mutates it.
type RawExtractionResponse struct {
	TaskID     string
	RawPayload []byte
	ModelName  string
	ReceivedAt time.Time
	Usage      TokenUsage
	CostUSD    float64
}
