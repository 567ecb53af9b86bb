package supermaya

import (
	"database/sql"
	"errors"
)

// CreateInteraction stores one chat turn for the owning user and returns the
// persisted row. The response string is stored verbatim; retrieval hands the
// same bytes back.
func (c *Core) CreateInteraction(ownerID int64, query, response string) (*Interaction, error) {
	result, err := c.db.Exec(
		`INSERT INTO chat_interactions (owner_id, user_query, ai_response) VALUES (?, ?, ?)`,
		ownerID, query, response,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "insert interaction", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "read interaction id", err)
	}
	return c.GetInteraction(id, ownerID)
}

// GetInteraction returns one interaction owned by ownerID, or nil when no
// such row exists.
func (c *Core) GetInteraction(id, ownerID int64) (*Interaction, error) {
	var it Interaction
	var response sql.NullString
	err := c.db.QueryRow(
		`SELECT id, owner_id, user_query, ai_response, feedback_score, created_at
		 FROM chat_interactions WHERE id = ? AND owner_id = ?`, id, ownerID,
	).Scan(&it.ID, &it.OwnerID, &it.UserQuery, &response, &it.FeedbackScore, &it.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query interaction", err)
	}
	it.AIResponse = response.String
	return &it, nil
}

// UpdateFeedbackScore records feedback on an interaction. Only the owning
// user may score a turn; a non-owned id is reported as not found.
func (c *Core) UpdateFeedbackScore(id, ownerID int64, score int) error {
	if score < -1 || score > 1 {
		return NewError(ErrCodeInvalidInput, "feedback score must be -1, 0 or 1")
	}
	result, err := c.db.Exec(
		`UPDATE chat_interactions SET feedback_score = ? WHERE id = ? AND owner_id = ?`,
		score, id, ownerID,
	)
	if err != nil {
		return WrapError(ErrCodeDatabase, "update feedback score", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return WrapError(ErrCodeDatabase, "read affected rows", err)
	}
	if affected == 0 {
		return NewError(ErrCodeNotFound, "interaction not found")
	}
	return nil
}

// GetUserInteractions returns the user's chat history, newest first.
func (c *Core) GetUserInteractions(ownerID int64, skip, limit int) ([]Interaction, error) {
	if limit <= 0 {
		limit = 10
	}
	if skip < 0 {
		skip = 0
	}
	rows, err := c.db.Query(
		`SELECT id, owner_id, user_query, ai_response, feedback_score, created_at
		 FROM chat_interactions WHERE owner_id = ?
		 ORDER BY id DESC LIMIT ? OFFSET ?`, ownerID, limit, skip,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query interactions", err)
	}
	defer rows.Close()

	results := []Interaction{}
	for rows.Next() {
		var it Interaction
		var response sql.NullString
		if err := rows.Scan(&it.ID, &it.OwnerID, &it.UserQuery, &response, &it.FeedbackScore, &it.CreatedAt); err != nil {
			return nil, WrapError(ErrCodeDatabase, "scan interaction row", err)
		}
		it.AIResponse = response.String
		results = append(results, it)
	}
	if err := rows.Err(); err != nil {
		return nil, WrapError(ErrCodeDatabase, "iterate interactions", err)
	}
	return results, nil
}
