package domain

import "time"

// Board is the top-level container a user owns.
type Board struct {
	ID      uint
	Slug    string // public identifier used in URLs
	Title   string
	OwnerID uint
	CDate   time.Time
	MDate   time.Time

	Lists []List
}

// List is one ordered column of cards on a board. Deleting a board
// deletes its lists.
type List struct {
	ID       uint
	BoardID  uint
	Title    string
	Position int

	Cards []Card
}

// Card is the primary record: it belongs to a list, may be assigned to
// a user, and may carry labels. Deleting a list deletes its cards.
type Card struct {
	ID         uint
	ListID     uint
	Title      string
	Body       string
	Position   int
	Done       bool
	AssigneeID *uint
	CDate      time.Time
	MDate      time.Time

	Labels []Label
}

// Label classifies cards within one board; names are unique per board.
type Label struct {
	ID      uint
	BoardID uint
	Name    string
	Color   string
}

// BoardEvent is published when a board's content changes, so connected
// pages can receive the replacement fragment.
type BoardEvent struct {
	BoardSlug string `json:"boardSlug"`
	Kind      string `json:"kind"` // card-created, card-updated, card-deleted, list-created, list-deleted
	ListID    uint   `json:"listId,omitempty"`
	CardID    uint   `json:"cardId,omitempty"`
}
