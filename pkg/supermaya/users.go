package supermaya

import (
	"database/sql"
	"errors"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

// CreateUser registers a new account with a bcrypt-hashed password.
func (c *Core) CreateUser(email, password string) (*User, error) {
	email = normalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, NewError(ErrCodeInvalidInput, "a valid email is required")
	}
	if password == "" {
		return nil, NewError(ErrCodeInvalidInput, "password is required")
	}

	existing, err := c.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, NewError(ErrCodeDuplicate, "email already registered")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, WrapError(ErrCodeInvalidInput, "hash password", err)
	}

	result, err := c.db.Exec(
		`INSERT INTO users (email, hashed_password, system_prompt) VALUES (?, ?, ?)`,
		email, string(hash), DefaultSystemPrompt,
	)
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "insert user", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "read user id", err)
	}
	return c.GetUser(id)
}

// GetUser returns the user with the given id, or nil when absent.
func (c *Core) GetUser(id int64) (*User, error) {
	return c.scanUser(c.db.QueryRow(
		`SELECT id, email, hashed_password, is_active, system_prompt, created_at
		 FROM users WHERE id = ?`, id,
	))
}

// GetUserByEmail returns the user with the given email, or nil when absent.
func (c *Core) GetUserByEmail(email string) (*User, error) {
	return c.scanUser(c.db.QueryRow(
		`SELECT id, email, hashed_password, is_active, system_prompt, created_at
		 FROM users WHERE email = ?`, normalizeEmail(email),
	))
}

func (c *Core) scanUser(row *sql.Row) (*User, error) {
	var user User
	var isActive int
	err := row.Scan(&user.ID, &user.Email, &user.HashedPassword, &isActive, &user.SystemPrompt, &user.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, WrapError(ErrCodeDatabase, "query user", err)
	}
	user.IsActive = isActive != 0
	return &user, nil
}

// AuthenticateUser verifies email/password and returns the account, or nil
// when the credentials do not match an active user.
func (c *Core) AuthenticateUser(email, password string) (*User, error) {
	user, err := c.GetUserByEmail(email)
	if err != nil {
		return nil, err
	}
	if user == nil || !user.IsActive {
		return nil, nil
	}
	if bcrypt.CompareHashAndPassword([]byte(user.HashedPassword), []byte(password)) != nil {
		return nil, nil
	}
	return user, nil
}

// UpdateUserPrompt replaces the user's persona string.
func (c *Core) UpdateUserPrompt(userID int64, prompt string) (*User, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		prompt = DefaultSystemPrompt
	}
	if _, err := c.db.Exec(`UPDATE users SET system_prompt = ? WHERE id = ?`, prompt, userID); err != nil {
		return nil, WrapError(ErrCodeDatabase, "update system prompt", err)
	}
	user, err := c.GetUser(userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, NewError(ErrCodeNotFound, "user not found")
	}
	return user, nil
}
