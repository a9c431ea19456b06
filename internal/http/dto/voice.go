package dto

type TranscribeResponse struct {
	Success bool   `json:"success"`
	Text    string `json:"text"`
}

// RealtimeSessionResponse is consumed by the browser's realtime client, which
// expects snake_case keys.
type RealtimeSessionResponse struct {
	ClientSecret string `json:"client_secret"`
	SessionID    string `json:"session_id"`
	ExpiresAt    int64  `json:"expires_at"`
	Model        string `json:"model"`
	Voice        string `json:"voice"`
}
