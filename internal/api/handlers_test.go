package api

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"supermaya/pkg/supermaya"
)

func TestHealth(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp, err := http.Get(server.URL + "/api/health")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
}

func TestRegister(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := postJSON(t, server, "/auth/register", "", map[string]string{
		"email":    "new@example.com",
		"password": "pw123",
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var user supermaya.User
	decodeBody(t, resp, &user)
	if user.Email != "new@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
	if user.HashedPassword != "" {
		t.Error("hashed password must not be serialized")
	}
}

func TestRegister_DuplicateAndInvalid(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := postJSON(t, server, "/auth/register", "", map[string]string{"email": "dup@example.com", "password": "pw"})
	resp.Body.Close()

	tests := []struct {
		name    string
		payload map[string]string
	}{
		{"duplicate", map[string]string{"email": "dup@example.com", "password": "pw"}},
		{"bad email", map[string]string{"email": "not-an-email", "password": "pw"}},
		{"no password", map[string]string{"email": "x@example.com", "password": ""}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp := postJSON(t, server, "/auth/register", "", tt.payload)
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusBadRequest {
				t.Errorf("expected 400, got %d", resp.StatusCode)
			}
		})
	}
}

func TestIssueToken_Form(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := postJSON(t, server, "/auth/register", "", map[string]string{"email": "form@example.com", "password": "pw"})
	resp.Body.Close()

	// OAuth2 password flow uses a form body.
	form := url.Values{"username": {"form@example.com"}, "password": {"pw"}}
	resp, err := http.Post(server.URL+"/auth/token", "application/x-www-form-urlencoded", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var token tokenResponse
	decodeBody(t, resp, &token)
	if token.TokenType != "bearer" || token.AccessToken == "" {
		t.Errorf("unexpected token response %+v", token)
	}
}

func TestIssueToken_BadCredentials(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	resp := postJSON(t, server, "/auth/token", "", map[string]string{"username": "ghost@example.com", "password": "pw"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", resp.StatusCode)
	}
	if got := resp.Header.Get("WWW-Authenticate"); got != "Bearer" {
		t.Errorf("expected WWW-Authenticate: Bearer, got %q", got)
	}
}

func TestGetCurrentUser(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "me@example.com", "pw")

	resp := getWithToken(t, server, "/users/me", token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var user supermaya.User
	decodeBody(t, resp, &user)
	if user.Email != "me@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
	if user.SystemPrompt != supermaya.DefaultSystemPrompt {
		t.Errorf("unexpected system prompt %q", user.SystemPrompt)
	}
}

func TestUpdatePrompt(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "prompt@example.com", "pw")

	form := url.Values{"prompt": {"You are a pirate."}}
	req, err := http.NewRequest(http.MethodPut, server.URL+"/users/me/prompt", strings.NewReader(form.Encode()))
	if err != nil {
		t.Fatalf("build request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+token)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var user supermaya.User
	decodeBody(t, resp, &user)
	if user.SystemPrompt != "You are a pirate." {
		t.Errorf("unexpected prompt %q", user.SystemPrompt)
	}
}

func TestChatText(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "chat@example.com", "pw")

	resp := postJSON(t, server, "/chat/text", token, map[string]string{"user_query": "hello"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var interaction supermaya.Interaction
	decodeBody(t, resp, &interaction)
	if interaction.UserQuery != "hello" {
		t.Errorf("unexpected query %q", interaction.UserQuery)
	}
	var envelope supermaya.TextResponse
	if err := json.Unmarshal([]byte(interaction.AIResponse), &envelope); err != nil {
		t.Fatalf("stored response is not a valid envelope: %v", err)
	}
	if envelope.PrimaryResponse != "text reply" {
		t.Errorf("unexpected envelope %+v", envelope)
	}
}

func TestChatText_FinancialRoute(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "fin@example.com", "pw")

	resp := postJSON(t, server, "/chat/text", token, map[string]string{"user_query": "how is nifty50?"})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var interaction supermaya.Interaction
	decodeBody(t, resp, &interaction)
	if !strings.Contains(interaction.AIResponse, "^NSEI") {
		t.Errorf("expected financial envelope, got %q", interaction.AIResponse)
	}
	if !strings.Contains(interaction.AIResponse, "110.00") {
		t.Errorf("expected latest close in envelope, got %q", interaction.AIResponse)
	}
}

func TestChatText_MissingQuery(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "empty@example.com", "pw")

	resp := postJSON(t, server, "/chat/text", token, map[string]string{"user_query": "   "})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", resp.StatusCode)
	}
}

func TestChatImage(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "img@example.com", "pw")

	resp := multipartImageRequest(t, server, token, "what is this?", testPNG(t))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var interaction supermaya.Interaction
	decodeBody(t, resp, &interaction)
	var envelope supermaya.VisionResponse
	if err := json.Unmarshal([]byte(interaction.AIResponse), &envelope); err != nil {
		t.Fatalf("stored response is not a vision envelope: %v", err)
	}
	if envelope.ImageDescription != "a scene" {
		t.Errorf("unexpected envelope %+v", envelope)
	}
}

func TestChatImage_BadUpload(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "badimg@example.com", "pw")

	resp := multipartImageRequest(t, server, token, "what is this?", []byte("not an image"))
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for a non-image upload, got %d", resp.StatusCode)
	}
}

func TestFeedbackFlow(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "fb@example.com", "pw")

	resp := postJSON(t, server, "/chat/text", token, map[string]string{"user_query": "hello"})
	var interaction supermaya.Interaction
	decodeBody(t, resp, &interaction)
	resp.Body.Close()

	resp = postJSON(t, server, "/chat/feedback", token, map[string]any{
		"interaction_id": interaction.ID,
		"is_good":        true,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var status map[string]string
	decodeBody(t, resp, &status)
	if status["status"] != "Feedback received" {
		t.Errorf("unexpected status %+v", status)
	}
}

func TestFeedback_ForeignInteraction(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	ownerToken := registerAndLogin(t, server, "owner@example.com", "pw")
	otherToken := registerAndLogin(t, server, "other@example.com", "pw")

	resp := postJSON(t, server, "/chat/text", ownerToken, map[string]string{"user_query": "hello"})
	var interaction supermaya.Interaction
	decodeBody(t, resp, &interaction)
	resp.Body.Close()

	resp = postJSON(t, server, "/chat/feedback", otherToken, map[string]any{
		"interaction_id": interaction.ID,
		"is_good":        false,
	})
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("expected 404 for foreign interaction, got %d", resp.StatusCode)
	}
}

func TestGetHistory(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()
	token := registerAndLogin(t, server, "hist@example.com", "pw")

	for _, q := range []string{"one", "two", "three"} {
		resp := postJSON(t, server, "/chat/text", token, map[string]string{"user_query": q})
		resp.Body.Close()
	}

	resp := getWithToken(t, server, "/chat/history?skip=0&limit=2", token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var history []supermaya.Interaction
	decodeBody(t, resp, &history)
	if len(history) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(history))
	}
	if history[0].UserQuery != "three" || history[1].UserQuery != "two" {
		t.Errorf("expected newest first, got %q, %q", history[0].UserQuery, history[1].UserQuery)
	}
}

func TestProtectedRoutesRequireAuth(t *testing.T) {
	server, _, cleanup := setupTestServer(t)
	defer cleanup()

	paths := []struct {
		method string
		path   string
	}{
		{http.MethodGet, "/users/me"},
		{http.MethodPost, "/chat/text"},
		{http.MethodPost, "/chat/feedback"},
		{http.MethodGet, "/chat/history"},
	}
	for _, p := range paths {
		req, err := http.NewRequest(p.method, server.URL+p.path, nil)
		if err != nil {
			t.Fatalf("build request: %v", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatalf("request failed: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("%s %s: expected 401, got %d", p.method, p.path, resp.StatusCode)
		}
	}
}
