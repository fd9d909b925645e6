package model

import "time"

// UsageStatus is the outcome of one classification call for accounting purposes.
type UsageStatus string

const (
	UsageStatusSuccess UsageStatus = "success"
	UsageStatusError   UsageStatus = "error"
)

// TokenUsage is the token count reported by the classification service.
type TokenUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// IsZero reports whether no tokens were reported.
func (u TokenUsage) IsZero() bool {
	return u.InputTokens == 0 && u.OutputTokens == 0
}

// Pricing holds USD rates per million tokens.
type Pricing struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// CostBreakdown is the monetary cost derived from a TokenUsage.
type CostBreakdown struct {
	InputCost  float64 `json:"input_cost"`
	OutputCost float64 `json:"output_cost"`
	TotalCost  float64 `json:"total_cost"`
}

// UsageRecord is one append-only accounting row per classification call.
type UsageRecord struct {
	ID           string      `json:"id"`
	Endpoint     string      `json:"endpoint"`
	Model        string      `json:"model,omitempty"`
	InputTokens  int         `json:"input_tokens"`
	OutputTokens int         `json:"output_tokens"`
	InputCost    float64     `json:"input_cost"`
	OutputCost   float64     `json:"output_cost"`
	TotalCost    float64     `json:"total_cost"`
	LatencyMS    int64       `json:"latency_ms"`
	Status       UsageStatus `json:"status"`
	PostID       *string     `json:"post_id,omitempty"`
	CreatedAt    time.Time   `json:"created_at"`
}
