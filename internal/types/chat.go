package types

import "time"

// Turn is one entry of a session's conversation history.
type Turn struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Images    []string  `json:"images,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// GenerationRecord is one entry of a session's generation log.
type GenerationRecord struct {
	Timestamp time.Time      `json:"timestamp"`
	Intent    IntentCategory `json:"intent"`
	Prompt    string         `json:"prompt"`
	Style     string         `json:"style,omitempty"`
	Images    []string       `json:"images"`
	Segment   Segment        `json:"user_type"`
}

// ChatRequest is the body of POST /chat and POST /refine.
type ChatRequest struct {
	SessionID string `json:"session_id"`
	Message   string `json:"message"`
	// Mode is the caller's declared UI mode: "chat" or "image".
	Mode       string `json:"mode,omitempty"`
	NumImages  int    `json:"num_images,omitempty"`
	Refinement string `json:"refinement,omitempty"`
}

const (
	ModeChat  = "chat"
	ModeImage = "image"
)

// Reply is the response body shared by /chat and /refine.
type Reply struct {
	SessionID            string             `json:"session_id"`
	Copy                 string             `json:"copy"`
	Images               []string           `json:"images"`
	ImageDescriptions    []string           `json:"image_descriptions"`
	IntentCategory       IntentCategory     `json:"intent_category"`
	UserType             Segment            `json:"user_type"`
	LLMModel             string             `json:"llm_model"`
	ImageModel           string             `json:"image_model"`
	RefinementSuggestion string             `json:"refinement_suggestion,omitempty"`
	ConversationHistory  []Turn             `json:"conversation_history"`
	RecentGenerations    []GenerationRecord `json:"recent_generations"`
	DailyImageCount      int                `json:"daily_image_count"`
	// DailyImageLimit is null when the session is unlimited.
	DailyImageLimit *int `json:"daily_image_limit"`
}
