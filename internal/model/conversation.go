package model

import "time"

const DefaultConversationTitle = "Nuova Chat"

// Conversation is a local chat thread owned by one user.
// UpstreamID caches the provider-side conversation handle once it has been created;
// it is reused for every later turn in the thread.
type Conversation struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Title      string    `json:"title"`
	Pinned     bool      `json:"pinned"`
	UpstreamID *string   `json:"openai_conversation_id,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// HasUpstream reports whether a provider handle is already cached.
func (c *Conversation) HasUpstream() bool {
	return c.UpstreamID != nil && *c.UpstreamID != ""
}

// ConversationUpdate carries the optional fields of a partial update.
type ConversationUpdate struct {
	Title  *string
	Pinned *bool
}
