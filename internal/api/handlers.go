package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"supermaya/pkg/supermaya"
)

// maxImageUploadSize caps chat image uploads at 10MB.
const maxImageUploadSize = 10 << 20

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) register(w http.ResponseWriter, r *http.Request) {
	var payload registerPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	user, err := h.core.CreateUser(payload.Email, payload.Password)
	if err != nil {
		if supermaya.IsErrorCode(err, supermaya.ErrCodeDuplicate) {
			writeError(w, http.StatusBadRequest, "email already registered")
			return
		}
		if supermaya.IsErrorCode(err, supermaya.ErrCodeInvalidInput) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// issueToken accepts both the OAuth2 password form (username/password) and a
// JSON body with the same fields.
func (h *handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var payload tokenPayload
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "application/json") {
		if err := decodeJSON(r, &payload); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	} else {
		if err := r.ParseForm(); err != nil {
			writeError(w, http.StatusBadRequest, "invalid form body")
			return
		}
		payload.Username = r.PostFormValue("username")
		payload.Password = r.PostFormValue("password")
	}

	user, err := h.core.AuthenticateUser(payload.Username, payload.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if user == nil {
		w.Header().Set("WWW-Authenticate", "Bearer")
		writeError(w, http.StatusUnauthorized, "incorrect email or password")
		return
	}

	token, err := h.tokens.IssueToken(user.Email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, tokenResponse{AccessToken: token, TokenType: "bearer"})
}

func (h *handler) getCurrentUser(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, currentUser(r))
}

func (h *handler) updatePrompt(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form body")
		return
	}
	prompt := r.PostFormValue("prompt")
	if prompt == "" {
		writeError(w, http.StatusBadRequest, "prompt is required")
		return
	}
	user, err := h.core.UpdateUserPrompt(currentUser(r).ID, prompt)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *handler) chatText(w http.ResponseWriter, r *http.Request) {
	var payload chatTextPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if strings.TrimSpace(payload.UserQuery) == "" {
		writeError(w, http.StatusBadRequest, "user_query is required")
		return
	}

	interaction, err := h.core.ChatText(r.Context(), currentUser(r), payload.UserQuery)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}

func (h *handler) chatImage(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxImageUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart body")
		return
	}
	query := r.PostFormValue("user_query")
	if strings.TrimSpace(query) == "" {
		writeError(w, http.StatusBadRequest, "user_query is required")
		return
	}

	file, _, err := r.FormFile("image")
	if err != nil {
		writeError(w, http.StatusBadRequest, "image file is required")
		return
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, maxImageUploadSize))
	if err != nil {
		writeError(w, http.StatusBadRequest, "read image upload")
		return
	}

	image, err := decodeImage(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	interaction, err := h.core.ChatImage(r.Context(), currentUser(r), query, image)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, interaction)
}

func (h *handler) submitFeedback(w http.ResponseWriter, r *http.Request) {
	var payload feedbackPayload
	if err := decodeJSON(r, &payload); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	score := -1
	if payload.IsGood {
		score = 1
	}
	err := h.core.UpdateFeedbackScore(payload.InteractionID, currentUser(r).ID, score)
	if err != nil {
		if supermaya.IsErrorCode(err, supermaya.ErrCodeNotFound) {
			writeError(w, http.StatusNotFound, "interaction not found")
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "Feedback received"})
}

func (h *handler) getHistory(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	skip := parseIntDefault(query.Get("skip"), 0)
	limit := parseIntDefault(query.Get("limit"), 10)
	if limit > 100 {
		limit = 100
	}

	history, err := h.core.GetUserInteractions(currentUser(r).ID, skip, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, history)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	decoder := json.NewDecoder(r.Body)
	if err := decoder.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON body: %w", err)
	}
	return nil
}

func parseIntDefault(value string, fallback int) int {
	if value == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return parsed
}
