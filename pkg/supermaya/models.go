package supermaya

// DefaultSystemPrompt is the persona assigned to new accounts.
const DefaultSystemPrompt = "You are a helpful assistant."

// User is an account row. HashedPassword never leaves the package through
// the JSON surface.
type User struct {
	ID             int64  `json:"id"`
	Email          string `json:"email"`
	HashedPassword string `json:"-"`
	IsActive       bool   `json:"is_active"`
	SystemPrompt   string `json:"system_prompt"`
	CreatedAt      string `json:"created_at"`
}

// Interaction is one persisted chat turn: the user's query plus the
// serialized envelope the orchestrator produced.
type Interaction struct {
	ID            int64  `json:"id"`
	OwnerID       int64  `json:"owner_id"`
	UserQuery     string `json:"user_query"`
	AIResponse    string `json:"ai_response"`
	FeedbackScore int    `json:"feedback_score"`
	CreatedAt     string `json:"created_at"`
}
