package api

type registerPayload struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPayload struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type chatTextPayload struct {
	UserQuery string `json:"user_query"`
}

type feedbackPayload struct {
	InteractionID int64 `json:"interaction_id"`
	IsGood        bool  `json:"is_good"`
}
