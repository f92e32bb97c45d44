package web_test

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/stitchweb/stitch/client"
	"github.com/stitchweb/stitch/dom"
	"github.com/stitchweb/stitch/internal/domain"
	"github.com/stitchweb/stitch/internal/infra/database"
	"github.com/stitchweb/stitch/internal/infra/gateway"
	"github.com/stitchweb/stitch/internal/infra/repository"
	"github.com/stitchweb/stitch/internal/present/web"
	"github.com/stitchweb/stitch/internal/present/web/middleware"
	"github.com/stitchweb/stitch/internal/service"
	"github.com/stitchweb/stitch/internal/usecase"
)

// fakeAuth backs sessions with a map instead of redis. Passwords are
// stored as-is; hashing is the real auth service's concern.
type fakeAuth struct {
	mu       sync.Mutex
	users    usecase.UserRepository
	sessions map[string]domain.Principal
	seq      int
}

func newFakeAuth(users usecase.UserRepository) *fakeAuth {
	return &fakeAuth{
		users:    users,
		sessions: make(map[string]domain.Principal),
	}
}

func (a *fakeAuth) Register(ctx context.Context, nickname, password string) (domain.Principal, error) {
	user := domain.User{Nickname: nickname, PasswordHash: password}
	if err := a.users.Create(ctx, &user); err != nil {
		return domain.Principal{}, domain.ValidationError{Field: "nickname", Reason: "already taken"}
	}
	return a.open(user), nil
}

func (a *fakeAuth) Login(ctx context.Context, nickname, password string) (domain.Principal, error) {
	user, err := a.users.GetByNickname(ctx, nickname)
	if err != nil || user.PasswordHash != password {
		return domain.Principal{}, domain.ForbiddenError{Reason: "invalid credentials"}
	}
	return a.open(user), nil
}

func (a *fakeAuth) Resolve(ctx context.Context, session string) (domain.Principal, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.sessions[session], nil
}

func (a *fakeAuth) Logout(ctx context.Context, session string) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.sessions, session)
	return nil
}

func (a *fakeAuth) open(user domain.User) domain.Principal {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.seq++
	session := fmt.Sprintf("sess-%d", a.seq)
	p := domain.Principal{UserID: user.ID, Nickname: user.Nickname, Session: session}
	a.sessions[session] = p
	return p
}

// fakeSignal is an in-process stand-in for the redis pub/sub fanout.
type fakeSignal struct {
	mu        sync.Mutex
	published []domain.BoardEvent
	subs      map[string][]chan domain.BoardEvent
}

func newFakeSignal() *fakeSignal {
	return &fakeSignal{subs: make(map[string][]chan domain.BoardEvent)}
}

func (s *fakeSignal) Publish(ctx context.Context, event domain.BoardEvent) error {
	s.mu.Lock()
	s.published = append(s.published, event)
	subs := append([]chan domain.BoardEvent(nil), s.subs[event.BoardSlug]...)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- event:
		default:
		}
	}
	return nil
}

func (s *fakeSignal) Subscribe(ctx context.Context, boardSlug string) (<-chan domain.BoardEvent, error) {
	ch := make(chan domain.BoardEvent, 8)
	s.mu.Lock()
	s.subs[boardSlug] = append(s.subs[boardSlug], ch)
	s.mu.Unlock()
	return ch, nil
}

func (s *fakeSignal) waitSubscribed(t *testing.T, boardSlug string) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		s.mu.Lock()
		n := len(s.subs[boardSlug])
		s.mu.Unlock()
		if n > 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("no subscriber appeared")
}

func (s *fakeSignal) kinds() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var kinds []string
	for _, event := range s.published {
		kinds = append(kinds, event.Kind)
	}
	return kinds
}

type testEnv struct {
	srv    *httptest.Server
	db     *gorm.DB
	auth   *fakeAuth
	signal *fakeSignal
	boards *usecase.BoardUsecase
	cards  *usecase.CardUsecase
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.Migrate(db))

	boardRepo := repository.NewBoardRepository(db)
	cardRepo := repository.NewCardRepository(db)
	userRepo := repository.NewUserRepository(db)

	boards := usecase.NewBoardUsecase(boardRepo)
	cards := usecase.NewCardUsecase(cardRepo, boardRepo)

	auth := newFakeAuth(userRepo)
	signal := newFakeSignal()
	csrf := service.NewCSRFService(time.Hour)
	cache := gateway.NewFragmentCache(nil, time.Minute)

	handler, err := web.NewHandler(boards, cards, auth, signal, csrf, cache)
	require.NoError(t, err)

	e := echo.New()
	handler.RegisterRoutes(e, middleware.NewAuthMiddleware(auth, csrf))

	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)

	return &testEnv{
		srv:    srv,
		db:     db,
		auth:   auth,
		signal: signal,
		boards: boards,
		cards:  cards,
	}
}

// signIn seeds an account and returns its principal plus an http
// client whose jar already carries the session cookie.
func (env *testEnv) signIn(t *testing.T, nickname string) (domain.Principal, *http.Client) {
	t.Helper()

	p, err := env.auth.Register(context.Background(), nickname, "hunter2hunter2")
	require.NoError(t, err)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	u, err := url.Parse(env.srv.URL)
	require.NoError(t, err)
	jar.SetCookies(u, []*http.Cookie{{Name: domain.SessionCookieName, Value: p.Session}})

	return p, &http.Client{Timeout: 3 * time.Second, Jar: jar}
}

func (env *testEnv) seedBoard(t *testing.T, p domain.Principal) (domain.Board, domain.List) {
	t.Helper()
	ctx := context.Background()

	board, err := env.boards.Create(ctx, p, "Sprint")
	require.NoError(t, err)
	list, err := env.boards.AddList(ctx, p, board.Slug, "Todo")
	require.NoError(t, err)
	return board, list
}

func TestAnonymousIsRedirectedToLogin(t *testing.T) {
	env := newTestEnv(t)

	httpc := &http.Client{
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	resp, err := httpc.Get(env.srv.URL + "/")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
	assert.Equal(t, "/login", resp.Header.Get("Location"))
}

func TestRegisterLoginLogoutFlow(t *testing.T) {
	env := newTestEnv(t)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	httpc := &http.Client{Jar: jar}

	resp, err := httpc.PostForm(env.srv.URL+"/register", url.Values{
		"nickname": {"ada"},
		"password": {"hunter2hunter2"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode) // followed redirect to /

	resp, err = httpc.Get(env.srv.URL + "/")
	require.NoError(t, err)
	body := readBody(t, resp)
	assert.Contains(t, body, "Your boards")
	assert.Contains(t, body, "ada")

	// duplicate nickname is rejected
	resp, err = httpc.PostForm(env.srv.URL+"/register", url.Values{
		"nickname": {"ada"},
		"password": {"hunter2hunter2"},
	})
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestMutationsRequireCSRFToken(t *testing.T) {
	env := newTestEnv(t)
	_, httpc := env.signIn(t, "ada")

	resp, err := httpc.PostForm(env.srv.URL+"/boards", url.Values{
		"title": {"No token"},
	})
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestLiveSearchOverRealServer(t *testing.T) {
	env := newTestEnv(t)
	p, httpc := env.signIn(t, "ada")
	board, list := env.seedBoard(t, p)

	ctx := context.Background()
	_, err := env.cards.Create(ctx, p, list.ID, "write report", "quarterly numbers")
	require.NoError(t, err)
	_, err = env.cards.Create(ctx, p, list.ID, "water plants", "")
	require.NoError(t, err)

	clock := client.NewManualClock(time.Now())
	page, err := client.Open(ctx, env.srv.URL+"/boards/"+board.Slug,
		client.WithHTTPClient(httpc),
		client.WithClock(clock),
	)
	require.NoError(t, err)

	require.NoError(t, page.SetValue("card-search", "rep"))
	require.NoError(t, page.Advance(300*time.Millisecond))
	require.NoError(t, page.Flush())

	results := page.Find("search-results")
	require.NotNil(t, results)
	markup, err := dom.RenderChildren(results)
	require.NoError(t, err)
	assert.Contains(t, markup, "write report")
	assert.NotContains(t, markup, "water plants")
}

func TestComposerScopeTogglesAndCreatesCard(t *testing.T) {
	env := newTestEnv(t)
	p, httpc := env.signIn(t, "ada")
	board, list := env.seedBoard(t, p)

	ctx := context.Background()
	page, err := client.Open(ctx, env.srv.URL+"/boards/"+board.Slug,
		client.WithHTTPClient(httpc),
	)
	require.NoError(t, err)

	composer := fmt.Sprintf("composer-%d", list.ID)
	require.NotNil(t, page.Find(composer))
	assert.True(t, dom.IsHidden(page.Find(composer)), "composer starts closed")

	require.NoError(t, page.Click(fmt.Sprintf("compose-%d", list.ID)))
	assert.False(t, dom.IsHidden(page.Find(composer)), "click opens the composer")

	require.NoError(t, page.SetValue(fmt.Sprintf("composer-title-%d", list.ID), "new card"))
	require.NoError(t, page.Submit(composer))
	require.NoError(t, page.Flush())

	cardsRegion := page.Find(fmt.Sprintf("cards-%d", list.ID))
	require.NotNil(t, cardsRegion)
	markup, err := dom.RenderChildren(cardsRegion)
	require.NoError(t, err)
	assert.Contains(t, markup, "new card")

	assert.Contains(t, env.signal.kinds(), domain.EventCardCreated)
}

func TestCardToggleSwapsFragmentInPlace(t *testing.T) {
	env := newTestEnv(t)
	p, httpc := env.signIn(t, "ada")
	board, list := env.seedBoard(t, p)

	ctx := context.Background()
	card, err := env.cards.Create(ctx, p, list.ID, "write report", "")
	require.NoError(t, err)

	page, err := client.Open(ctx, env.srv.URL+"/boards/"+board.Slug,
		client.WithHTTPClient(httpc),
	)
	require.NoError(t, err)

	require.NoError(t, page.Submit(fmt.Sprintf("toggle-%d", card.ID)))
	require.NoError(t, page.Flush())

	node := page.Find(fmt.Sprintf("card-%d", card.ID))
	require.NotNil(t, node, "outer swap keeps the replacement card in place")
	markup, err := dom.Render(node)
	require.NoError(t, err)
	assert.Contains(t, markup, "done")

	fresh, err := env.cards.Get(ctx, p, card.ID)
	require.NoError(t, err)
	assert.True(t, fresh.Done)
}

func TestCardDeleteRemovesRow(t *testing.T) {
	env := newTestEnv(t)
	p, httpc := env.signIn(t, "ada")
	board, list := env.seedBoard(t, p)

	ctx := context.Background()
	card, err := env.cards.Create(ctx, p, list.ID, "doomed", "")
	require.NoError(t, err)

	page, err := client.Open(ctx, env.srv.URL+"/boards/"+board.Slug,
		client.WithHTTPClient(httpc),
	)
	require.NoError(t, err)
	require.NotNil(t, page.Find(fmt.Sprintf("card-%d", card.ID)))

	require.NoError(t, page.Submit(fmt.Sprintf("delete-%d", card.ID)))
	require.NoError(t, page.Flush())

	assert.Nil(t, page.Find(fmt.Sprintf("card-%d", card.ID)))
	assert.Contains(t, env.signal.kinds(), domain.EventCardDeleted)
}

func TestForeignBoardIsForbidden(t *testing.T) {
	env := newTestEnv(t)
	owner, _ := env.signIn(t, "ada")
	board, _ := env.seedBoard(t, owner)

	_, intruderClient := env.signIn(t, "mallory")
	resp, err := intruderClient.Get(env.srv.URL + "/boards/" + board.Slug)
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}

func TestRealtimePushesListsRegion(t *testing.T) {
	env := newTestEnv(t)
	p, _ := env.signIn(t, "ada")
	board, list := env.seedBoard(t, p)

	wsURL := "ws" + strings.TrimPrefix(env.srv.URL, "http") + "/boards/" + board.Slug + "/realtime"
	header := http.Header{}
	header.Add("Cookie", domain.SessionCookieName+"="+p.Session)

	conn, resp, err := websocket.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	defer conn.Close()

	env.signal.waitSubscribed(t, board.Slug)
	require.NoError(t, env.signal.Publish(context.Background(), domain.BoardEvent{
		BoardSlug: board.Slug,
		Kind:      domain.EventListCreated,
		ListID:    list.ID,
	}))

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var frame web.Frame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, domain.EventListCreated, frame.Kind)
	assert.Equal(t, "#lists", frame.Target)
	assert.Contains(t, frame.Markup, "Todo")
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(body)
}
