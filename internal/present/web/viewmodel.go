package web

import (
	"github.com/stitchweb/stitch/internal/domain"
)

// Base carries what every full page needs: the signed-in user and the
// token its forms must echo back.
type Base struct {
	Title     string
	Principal domain.Principal
	CSRF      string
}

type LoginPage struct {
	Base
	Nickname string
	Error    string
}

type BoardsPage struct {
	Base
	Boards []BoardRow
}

type BoardRow struct {
	Slug  string
	Title string
	CSRF  string
}

type BoardPage struct {
	Base
	Slug       string
	BoardTitle string
	Lists      []ListColumn
}

type ListColumn struct {
	ID        uint
	BoardSlug string
	Title     string
	Cards     []CardItem
	CSRF      string
}

type CardItem struct {
	ID        uint
	ListID    uint
	BoardSlug string
	Title     string
	Body      string
	Done      bool
	Labels    []domain.Label
	CSRF      string
}

type SearchResults struct {
	Query string
	Cards []CardItem
}

func newBoardRow(board domain.Board, csrf string) BoardRow {
	return BoardRow{
		Slug:  board.Slug,
		Title: board.Title,
		CSRF:  csrf,
	}
}

func newListColumn(boardSlug string, list domain.List, csrf string) ListColumn {
	column := ListColumn{
		ID:        list.ID,
		BoardSlug: boardSlug,
		Title:     list.Title,
		CSRF:      csrf,
	}
	for _, card := range list.Cards {
		column.Cards = append(column.Cards, newCardItem(boardSlug, card, csrf))
	}
	return column
}

func newCardItem(boardSlug string, card domain.Card, csrf string) CardItem {
	return CardItem{
		ID:        card.ID,
		ListID:    card.ListID,
		BoardSlug: boardSlug,
		Title:     card.Title,
		Body:      card.Body,
		Done:      card.Done,
		Labels:    card.Labels,
		CSRF:      csrf,
	}
}

func newBoardPage(board domain.Board, p domain.Principal, csrf string) BoardPage {
	page := BoardPage{
		Base:       Base{Title: board.Title, Principal: p, CSRF: csrf},
		Slug:       board.Slug,
		BoardTitle: board.Title,
	}
	for _, list := range board.Lists {
		page.Lists = append(page.Lists, newListColumn(board.Slug, list, csrf))
	}
	return page
}
