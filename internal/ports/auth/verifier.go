package auth

import "context"

// Authorizer decide si un principal puede usar el bot.
type Authorizer interface {
	Authorized(ctx context.Context, p Principal) bool
}
