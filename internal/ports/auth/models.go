package auth

// Principal identifica a quien escribe al bot, tal como lo entrega Telegram.
type Principal struct {
	ChatID   int64
	UserID   int64
	Username string
}
