package domain

import "time"

// User is a registered account.
type User struct {
	ID           uint
	Nickname     string // unique
	PasswordHash string
	CDate        time.Time
}

// Principal is the authenticated requester, resolved once per request
// and passed explicitly; handlers never reach into ambient session
// state.
type Principal struct {
	UserID   uint
	Nickname string
	Session  string
}

// Anonymous reports whether no user is logged in.
func (p Principal) Anonymous() bool {
	return p.UserID == 0
}
