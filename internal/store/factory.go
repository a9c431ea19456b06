package store

import (
	"basegraph.app/chat/core/db"
)

type Stores struct {
	queries db.Querier
}

func NewStores(queries db.Querier) *Stores {
	return &Stores{queries: queries}
}

func (s *Stores) Users() UserStore {
	return newUserStore(s.queries)
}

func (s *Stores) Conversations() ConversationStore {
	return newConversationStore(s.queries)
}

func (s *Stores) Messages() MessageStore {
	return newMessageStore(s.queries)
}
