package web

import (
	"context"
	"embed"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/stitchweb/stitch"
	"github.com/stitchweb/stitch/internal/domain"
	"github.com/stitchweb/stitch/internal/present/web/middleware"
	"github.com/stitchweb/stitch/internal/present/web/presenter"
	"github.com/stitchweb/stitch/internal/usecase"
)

//go:embed templates
var templateFS embed.FS

// Authenticator is the account and session surface the handlers need.
type Authenticator interface {
	Register(ctx context.Context, nickname, password string) (domain.Principal, error)
	Login(ctx context.Context, nickname, password string) (domain.Principal, error)
	Logout(ctx context.Context, session string) error
}

// Signaler publishes board change events and delivers them back per
// board, for the realtime push path.
type Signaler interface {
	Publish(ctx context.Context, event domain.BoardEvent) error
	Subscribe(ctx context.Context, boardSlug string) (<-chan domain.BoardEvent, error)
}

// TokenIssuer mints the csrf token pages embed in their forms.
type TokenIssuer interface {
	Issue(session string) (string, error)
}

// FragmentStore memoizes rendered fragments per board.
type FragmentStore interface {
	Get(ctx context.Context, board, name, params string) (string, bool)
	Set(ctx context.Context, board, name, params, markup string)
	Invalidate(ctx context.Context, board string)
}

type Handler struct {
	boards *usecase.BoardUsecase
	cards  *usecase.CardUsecase
	auth   Authenticator
	signal Signaler
	csrf   TokenIssuer
	cache  FragmentStore
	render *presenter.Renderer
}

func NewHandler(
	boards *usecase.BoardUsecase,
	cards *usecase.CardUsecase,
	auth Authenticator,
	signal Signaler,
	csrf TokenIssuer,
	cache FragmentStore,
) (*Handler, error) {
	render, err := presenter.NewRenderer(templateFS)
	if err != nil {
		return nil, err
	}
	return &Handler{
		boards: boards,
		cards:  cards,
		auth:   auth,
		signal: signal,
		csrf:   csrf,
		cache:  cache,
		render: render,
	}, nil
}

func (h *Handler) RegisterRoutes(e *echo.Echo, auth *middleware.AuthMiddleware) {
	e.Use(auth.IdentifySession, auth.VerifyCSRF)

	e.GET("/login", h.handleLoginPage)
	e.POST("/login", h.handleLogin)
	e.GET("/register", h.handleRegisterPage)
	e.POST("/register", h.handleRegister)
	e.POST("/logout", h.handleLogout)

	e.GET("/", h.handleBoards)
	e.POST("/boards", h.handleBoardCreate)
	e.GET("/boards/:slug", h.handleBoard)
	e.PUT("/boards/:slug", h.handleBoardRename)
	e.DELETE("/boards/:slug", h.handleBoardDelete)
	e.GET("/boards/:slug/cards", h.handleCardSearch)
	e.GET("/boards/:slug/realtime", h.handleRealtime)

	e.POST("/boards/:slug/lists", h.handleListCreate)
	e.DELETE("/lists/:id", h.handleListDelete)
	e.POST("/lists/:id/cards", h.handleCardCreate)

	e.PUT("/cards/:id", h.handleCardUpdate)
	e.PUT("/cards/:id/toggle", h.handleCardToggle)
	e.PUT("/cards/:id/move", h.handleCardMove)
	e.DELETE("/cards/:id", h.handleCardDelete)
}

func (h *Handler) base(c echo.Context, title string) Base {
	p := middleware.PrincipalFor(c.Request().Context())
	token := ""
	if !p.Anonymous() {
		if minted, err := h.csrf.Issue(p.Session); err == nil {
			token = minted
		}
	}
	return Base{Title: title, Principal: p, CSRF: token}
}

func (h *Handler) handleLoginPage(c echo.Context) error {
	if !middleware.PrincipalFor(c.Request().Context()).Anonymous() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return h.render.Page(c, http.StatusOK, "login", LoginPage{Base: h.base(c, "Sign in")})
}

func (h *Handler) handleLogin(c echo.Context) error {
	ctx := c.Request().Context()

	nickname := c.FormValue("nickname")
	principal, err := h.auth.Login(ctx, nickname, c.FormValue("password"))
	if err != nil {
		return h.render.Page(c, http.StatusUnauthorized, "login", LoginPage{
			Base:     h.base(c, "Sign in"),
			Nickname: nickname,
			Error:    "invalid credentials",
		})
	}

	setSessionCookie(c, principal.Session)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) handleRegisterPage(c echo.Context) error {
	if !middleware.PrincipalFor(c.Request().Context()).Anonymous() {
		return c.Redirect(http.StatusSeeOther, "/")
	}
	return h.render.Page(c, http.StatusOK, "register", LoginPage{Base: h.base(c, "Register")})
}

func (h *Handler) handleRegister(c echo.Context) error {
	ctx := c.Request().Context()

	nickname := c.FormValue("nickname")
	principal, err := h.auth.Register(ctx, nickname, c.FormValue("password"))
	if err != nil {
		return h.render.Page(c, http.StatusBadRequest, "register", LoginPage{
			Base:     h.base(c, "Register"),
			Nickname: nickname,
			Error:    err.Error(),
		})
	}

	setSessionCookie(c, principal.Session)
	return c.Redirect(http.StatusSeeOther, "/")
}

func (h *Handler) handleLogout(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	if !p.Anonymous() {
		if err := h.auth.Logout(ctx, p.Session); err != nil {
			return presenter.Error(c, err)
		}
	}

	clearSessionCookie(c)
	return c.Redirect(http.StatusSeeOther, "/login")
}

func (h *Handler) handleBoards(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	if p.Anonymous() {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	boards, err := h.boards.ListForUser(ctx, p)
	if err != nil {
		return presenter.Error(c, err)
	}

	page := BoardsPage{Base: h.base(c, "Your boards")}
	for _, board := range boards {
		page.Boards = append(page.Boards, newBoardRow(board, page.CSRF))
	}
	return h.render.Page(c, http.StatusOK, "boards", page)
}

func (h *Handler) handleBoardCreate(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	board, err := h.boards.Create(ctx, p, c.FormValue("title"))
	if err != nil {
		return presenter.Error(c, err)
	}

	if stitch.IsFragmentRequest(c.Request().Header) {
		return h.render.Fragment(c, "board_row", newBoardRow(board, h.base(c, "").CSRF))
	}
	return c.Redirect(http.StatusSeeOther, "/boards/"+board.Slug)
}

func (h *Handler) handleBoard(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	if p.Anonymous() {
		return c.Redirect(http.StatusSeeOther, "/login")
	}

	board, err := h.boards.Get(ctx, p, c.Param("slug"))
	if err != nil {
		return presenter.Error(c, err)
	}

	return h.render.Page(c, http.StatusOK, "board", newBoardPage(board, p, h.base(c, "").CSRF))
}

func (h *Handler) handleBoardRename(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	board, err := h.boards.Rename(ctx, p, c.Param("slug"), c.FormValue("title"))
	if err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, board.Slug)
	return h.render.Fragment(c, "board_title", echo.Map{"BoardTitle": board.Title})
}

func (h *Handler) handleBoardDelete(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	slug := c.Param("slug")
	if err := h.boards.Delete(ctx, p, slug); err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, slug)
	return presenter.Empty(c)
}

func (h *Handler) handleCardSearch(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	slug := c.Param("slug")
	query := c.QueryParam("q")

	// ownership gate before touching the shared cache
	if _, err := h.boards.Get(ctx, p, slug); err != nil {
		return presenter.Error(c, err)
	}

	params := "q=" + query
	if markup, found := h.cache.Get(ctx, slug, "search_results", params); found {
		return c.HTML(http.StatusOK, markup)
	}

	cards, err := h.cards.Search(ctx, p, slug, query)
	if err != nil {
		return presenter.Error(c, err)
	}

	vm := SearchResults{Query: query}
	for _, card := range cards {
		vm.Cards = append(vm.Cards, newCardItem(slug, card, ""))
	}

	markup, err := h.render.FragmentString("search_results", vm)
	if err != nil {
		return presenter.Error(c, err)
	}
	h.cache.Set(ctx, slug, "search_results", params, markup)
	return c.HTML(http.StatusOK, markup)
}

func (h *Handler) handleListCreate(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	slug := c.Param("slug")
	list, err := h.boards.AddList(ctx, p, slug, c.FormValue("title"))
	if err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, slug)
	h.signal.Publish(ctx, domain.BoardEvent{
		BoardSlug: slug,
		Kind:      domain.EventListCreated,
		ListID:    list.ID,
	})
	return h.render.Fragment(c, "list", newListColumn(slug, list, h.base(c, "").CSRF))
}

func (h *Handler) handleListDelete(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	listID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	board, err := h.boards.DeleteList(ctx, p, listID)
	if err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, board.Slug)
	h.signal.Publish(ctx, domain.BoardEvent{
		BoardSlug: board.Slug,
		Kind:      domain.EventListDeleted,
		ListID:    listID,
	})
	return presenter.Empty(c)
}

func (h *Handler) handleCardCreate(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	listID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	card, err := h.cards.Create(ctx, p, listID, c.FormValue("title"), c.FormValue("body"))
	if err != nil {
		return presenter.Error(c, err)
	}

	board, err := h.cards.BoardFor(ctx, p, listID)
	if err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, board.Slug)
	h.signal.Publish(ctx, domain.BoardEvent{
		BoardSlug: board.Slug,
		Kind:      domain.EventCardCreated,
		ListID:    listID,
		CardID:    card.ID,
	})
	return h.render.Fragment(c, "card", newCardItem(board.Slug, card, h.base(c, "").CSRF))
}

func (h *Handler) handleCardUpdate(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	cardID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	card, err := h.cards.Update(ctx, p, cardID, c.FormValue("title"), c.FormValue("body"))
	if err != nil {
		return presenter.Error(c, err)
	}

	return h.respondCard(c, p, card, domain.EventCardUpdated)
}

func (h *Handler) handleCardToggle(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	cardID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	card, err := h.cards.ToggleDone(ctx, p, cardID)
	if err != nil {
		return presenter.Error(c, err)
	}

	return h.respondCard(c, p, card, domain.EventCardUpdated)
}

func (h *Handler) handleCardMove(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	cardID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	toListID, err := strconv.ParseUint(c.FormValue("list_id"), 10, 32)
	if err != nil {
		return presenter.Error(c, domain.ValidationError{Field: "list_id", Reason: "must be a number"})
	}
	position, err := strconv.Atoi(c.FormValue("position"))
	if err != nil {
		return presenter.Error(c, domain.ValidationError{Field: "position", Reason: "must be a number"})
	}

	card, err := h.cards.Move(ctx, p, cardID, uint(toListID), position)
	if err != nil {
		return presenter.Error(c, err)
	}

	board, err := h.cards.BoardFor(ctx, p, card.ListID)
	if err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, board.Slug)
	h.signal.Publish(ctx, domain.BoardEvent{
		BoardSlug: board.Slug,
		Kind:      domain.EventCardMoved,
		ListID:    card.ListID,
		CardID:    card.ID,
	})

	// a move touches two lists, so the whole region re-renders
	fresh, err := h.boards.Get(ctx, p, board.Slug)
	if err != nil {
		return presenter.Error(c, err)
	}
	return h.render.Fragment(c, "lists", newBoardPage(fresh, p, h.base(c, "").CSRF))
}

func (h *Handler) handleCardDelete(c echo.Context) error {
	ctx := c.Request().Context()

	p := middleware.PrincipalFor(ctx)
	cardID, err := paramID(c, "id")
	if err != nil {
		return presenter.Error(c, err)
	}

	card, err := h.cards.Get(ctx, p, cardID)
	if err != nil {
		return presenter.Error(c, err)
	}
	board, err := h.cards.BoardFor(ctx, p, card.ListID)
	if err != nil {
		return presenter.Error(c, err)
	}

	if err := h.cards.Delete(ctx, p, cardID); err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, board.Slug)
	h.signal.Publish(ctx, domain.BoardEvent{
		BoardSlug: board.Slug,
		Kind:      domain.EventCardDeleted,
		ListID:    card.ListID,
		CardID:    card.ID,
	})
	return presenter.Empty(c)
}

func (h *Handler) respondCard(c echo.Context, p domain.Principal, card domain.Card, kind string) error {
	ctx := c.Request().Context()

	board, err := h.cards.BoardFor(ctx, p, card.ListID)
	if err != nil {
		return presenter.Error(c, err)
	}

	h.cache.Invalidate(ctx, board.Slug)
	h.signal.Publish(ctx, domain.BoardEvent{
		BoardSlug: board.Slug,
		Kind:      kind,
		ListID:    card.ListID,
		CardID:    card.ID,
	})
	return h.render.Fragment(c, "card", newCardItem(board.Slug, card, h.base(c, "").CSRF))
}

func paramID(c echo.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 32)
	if err != nil {
		return 0, domain.ValidationError{Field: name, Reason: "must be a number"}
	}
	return uint(id), nil
}

func setSessionCookie(c echo.Context, session string) {
	c.SetCookie(&http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    session,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearSessionCookie(c echo.Context) {
	c.SetCookie(&http.Cookie{
		Name:     domain.SessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})
}
