package service

import (
	"context"
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"golang.org/x/crypto/bcrypt"

	"github.com/stitchweb/stitch/internal/domain"
	"github.com/stitchweb/stitch/internal/usecase"
)

var tracer = otel.Tracer("auth")

const sessionTTL = 7 * 24 * time.Hour

type AuthService struct {
	users usecase.UserRepository
	rdb   *redis.Client
}

func NewAuthService(users usecase.UserRepository, rdb *redis.Client) *AuthService {
	return &AuthService{
		users: users,
		rdb:   rdb,
	}
}

// Register creates an account and opens a session for it.
func (s *AuthService) Register(ctx context.Context, nickname, password string) (domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Register")
	defer span.End()

	if nickname == "" {
		return domain.Principal{}, domain.ValidationError{Field: "nickname", Reason: "must not be empty"}
	}
	if len(password) < 8 {
		return domain.Principal{}, domain.ValidationError{Field: "password", Reason: "must be at least 8 characters"}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		span.RecordError(err)
		return domain.Principal{}, errors.Wrap(err, "failed to hash password")
	}

	user := domain.User{
		Nickname:     nickname,
		PasswordHash: string(hash),
	}
	if err := s.users.Create(ctx, &user); err != nil {
		span.RecordError(err)
		return domain.Principal{}, domain.ValidationError{Field: "nickname", Reason: "already taken"}
	}

	return s.openSession(ctx, user)
}

// Login verifies the password and opens a session.
func (s *AuthService) Login(ctx context.Context, nickname, password string) (domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Login")
	defer span.End()

	user, err := s.users.GetByNickname(ctx, nickname)
	if err != nil {
		span.RecordError(err)
		return domain.Principal{}, domain.ForbiddenError{Reason: "invalid credentials"}
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		span.RecordError(err)
		return domain.Principal{}, domain.ForbiddenError{Reason: "invalid credentials"}
	}

	return s.openSession(ctx, user)
}

// Resolve maps a session token back to its principal. An unknown or
// expired token resolves to the anonymous principal without error.
func (s *AuthService) Resolve(ctx context.Context, session string) (domain.Principal, error) {
	ctx, span := tracer.Start(ctx, "Auth.Service.Resolve")
	defer span.End()

	if session == "" {
		return domain.Principal{}, nil
	}

	userID, err := s.rdb.Get(ctx, sessionKey(session)).Uint64()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.Principal{}, nil
		}
		span.RecordError(err)
		return domain.Principal{}, errors.Wrap(err, "failed to look up session")
	}

	user, err := s.users.Get(ctx, uint(userID))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Principal{}, nil
		}
		span.RecordError(err)
		return domain.Principal{}, errors.Wrap(err, "failed to load session user")
	}

	return domain.Principal{
		UserID:   user.ID,
		Nickname: user.Nickname,
		Session:  session,
	}, nil
}

// Logout discards the session.
func (s *AuthService) Logout(ctx context.Context, session string) error {
	ctx, span := tracer.Start(ctx, "Auth.Service.Logout")
	defer span.End()

	if session == "" {
		return nil
	}
	if err := s.rdb.Del(ctx, sessionKey(session)).Err(); err != nil {
		span.RecordError(err)
		return errors.Wrap(err, "failed to delete session")
	}
	return nil
}

func (s *AuthService) openSession(ctx context.Context, user domain.User) (domain.Principal, error) {
	session, err := gonanoid.New(32)
	if err != nil {
		return domain.Principal{}, errors.Wrap(err, "failed to generate session token")
	}

	err = s.rdb.Set(ctx, sessionKey(session), uint64(user.ID), sessionTTL).Err()
	if err != nil {
		return domain.Principal{}, errors.Wrap(err, "failed to store session")
	}

	return domain.Principal{
		UserID:   user.ID,
		Nickname: user.Nickname,
		Session:  session,
	}, nil
}

func sessionKey(session string) string {
	return "session:" + session
}
