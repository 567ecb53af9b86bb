package mobile

import (
	"context"
	"encoding/json"

	"supermaya/pkg/supermaya"
)

// Core wraps the SuperMaya core for gomobile bindings. Methods exchange
// JSON strings because gomobile cannot bind rich Go types.
type Core struct {
	core *supermaya.Core
}

// Open initializes the core with a database path. Model credentials are not
// configured here, so chat turns run degraded; on-device use is storage only.
func Open(dbPath string) (*Core, error) {
	core, err := supermaya.Open(dbPath)
	if err != nil {
		return nil, err
	}
	return &Core{core: core}, nil
}

// Close releases resources.
func (c *Core) Close() error {
	if c == nil || c.core == nil {
		return nil
	}
	return c.core.Close()
}

// RegisterJSON creates an account from JSON credentials and returns the user
// as JSON.
func (c *Core) RegisterJSON(payloadJSON string) (string, error) {
	var payload credentialsPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", err
	}
	user, err := c.core.CreateUser(payload.Email, payload.Password)
	if err != nil {
		return "", err
	}
	return marshalJSON(user)
}

// AuthenticateJSON verifies credentials. It returns the user as JSON, or
// "null" when the credentials do not match an active account.
func (c *Core) AuthenticateJSON(payloadJSON string) (string, error) {
	var payload credentialsPayload
	if err := json.Unmarshal([]byte(payloadJSON), &payload); err != nil {
		return "", err
	}
	user, err := c.core.AuthenticateUser(payload.Email, payload.Password)
	if err != nil {
		return "", err
	}
	return marshalJSON(user)
}

// UpdatePromptJSON replaces a user's persona and returns the user as JSON.
func (c *Core) UpdatePromptJSON(userID int64, prompt string) (string, error) {
	user, err := c.core.UpdateUserPrompt(userID, prompt)
	if err != nil {
		return "", err
	}
	return marshalJSON(user)
}

// ChatTextJSON runs one text chat turn for the user and returns the stored
// interaction as JSON.
func (c *Core) ChatTextJSON(userID int64, query string) (string, error) {
	user, err := c.core.GetUser(userID)
	if err != nil {
		return "", err
	}
	if user == nil {
		return "", supermaya.NewError(supermaya.ErrCodeNotFound, "user not found")
	}
	interaction, err := c.core.ChatText(context.Background(), user, query)
	if err != nil {
		return "", err
	}
	return marshalJSON(interaction)
}

// GetHistoryJSON returns a page of the user's chat history as JSON.
func (c *Core) GetHistoryJSON(userID int64, skip, limit int) (string, error) {
	history, err := c.core.GetUserInteractions(userID, skip, limit)
	if err != nil {
		return "", err
	}
	return marshalJSON(history)
}

// SubmitFeedback records a thumbs up or down on an interaction.
func (c *Core) SubmitFeedback(interactionID, userID int64, isGood bool) error {
	score := -1
	if isGood {
		score = 1
	}
	return c.core.UpdateFeedbackScore(interactionID, userID, score)
}

func marshalJSON(value any) (string, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

type credentialsPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
