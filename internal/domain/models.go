package domain

import (
	"time"
)

// Page is a single rasterized drawing sheet.
type Page struct {
	Number int // 1-based, file order
	PNG    []byte
	Width  int
	Height int
}

// Document is an immutable ordered set of rasterized pages produced
// from one source PDF. Page order always matches file order.
type Document struct {
	ID    string
	Pages []Page
	DPI   int
}

// PageCount returns the number of rasterized pages.
func (d *Document) PageCount() int {
	return len(d.Pages)
}

// FieldKind describes the JSON shape a required field must carry.
type FieldKind int

const (
	FieldList FieldKind = iota
	FieldMapping
	FieldText
)

// Default returns the empty value injected when the field is absent.
func (k FieldKind) Default() any {
	switch k {
	case FieldList:
		return []any{}
	case FieldMapping:
		return map[string]any{}
	default:
		return ""
	}
}

// FieldSpec names one required payload field by dotted path.
type FieldSpec struct {
	Path string
	Kind FieldKind
}

// PromptInput carries everything a stage prompt template can draw on.
type PromptInput struct {
	Context      string // reference context block, may be empty
	PriorOutputs string // accumulated JSON outputs of earlier stages
	MinFindings  int
}

// PromptBuilder renders the user prompt for one oracle attempt.
type PromptBuilder func(in PromptInput) string

// StageSpec describes one named extraction stage: its prompts, the
// payload shape it must yield, and its quality floor.
type StageSpec struct {
	Name           string
	SystemPrompt   string
	Prompt         PromptBuilder
	RequiredFields []FieldSpec
	FindingsPath   string // dotted path to the primary findings list
	DescriptionKey string // finding field holding descriptive text
	MinResultCount int
	MaxTokens      int
	Schema         string // optional JSON schema, advisory only
	IncludePages   bool
}

// Usage holds token accounting reported by the oracle.
type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// OracleRequest is one fully-materialized oracle attempt.
type OracleRequest struct {
	Stage       string
	System      string
	Prompt      string
	Pages       []Page
	Temperature float64
	MaxTokens   int
}

// OracleResponse is the raw outcome of a single oracle call.
type OracleResponse struct {
	RawText string
	Model   string
	Usage   Usage
	Latency time.Duration
}

// Confidence is the heuristic quality label attached to a result.
type Confidence string

const (
	ConfidenceLow      Confidence = "low"
	ConfidenceModerate Confidence = "moderate"
	ConfidenceGood     Confidence = "good"
	ConfidenceHigh     Confidence = "high"
	ConfidenceVeryHigh Confidence = "very_high"
)

// ExtractionResult is the outcome of one stage run. Success is false
// only when every attempt failed to yield a structured payload and the
// payload is a synthesized placeholder.
type ExtractionResult struct {
	Stage        string         `json:"stage"`
	Payload      map[string]any `json:"payload"`
	Success      bool           `json:"success"`
	Confidence   Confidence     `json:"confidence"`
	Attempts     int            `json:"attempts"`
	Temperature  float64        `json:"temperature"`
	Model        string         `json:"model,omitempty"`
	Usage        Usage          `json:"usage"`
	Elapsed      time.Duration  `json:"elapsed"`
	ContextChars int            `json:"context_chars"`
	Warnings     []string       `json:"warnings,omitempty"`
	ErrorDetail  string         `json:"error_detail,omitempty"`
}
