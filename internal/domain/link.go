package domain

import "time"

// Link ties a Telegram chat to an app user. ChatID is the primary key, so an
// external identity can be linked to at most one account at a time.
type Link struct {
	ChatID   int64
	UserID   string
	LinkedAt time.Time
}
