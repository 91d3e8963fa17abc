package allowlist

import (
	"context"

	"glucose-bot/internal/ports/auth"
)

// Authorizer implementa auth.Authorizer con una lista fija de chat ids.
// Se compara el chat id, no el user id: en un grupo cuenta el grupo. En
// chats privados ambos coinciden.
type Authorizer struct {
	ids map[int64]struct{}
}

func New(ids []int64) *Authorizer {
	m := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return &Authorizer{ids: m}
}

func (a *Authorizer) Authorized(_ context.Context, p auth.Principal) bool {
	if a == nil {
		return false
	}
	_, ok := a.ids[p.ChatID]
	return ok
}

func (a *Authorizer) Len() int {
	if a == nil {
		return 0
	}
	return len(a.ids)
}
