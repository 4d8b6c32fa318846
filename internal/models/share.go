package models

// ShareTokenResponse - ответ POST /share.
// ShareToken намеренно any: сервер может прислать не строку, это проверяет auth.
type ShareTokenResponse struct {
	ShareToken any `json:"shareToken"`
}

// LoginRequest - тело POST /login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// RefreshRequest - тело POST /refresh.
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}
