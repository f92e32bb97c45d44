package service

import (
	"time"

	gonanoid "github.com/matoous/go-nanoid/v2"
	"github.com/patrickmn/go-cache"
)

// CSRFService hands out single-session tokens that mutating form posts
// must echo back in the csrf_token field.
type CSRFService struct {
	tokens *cache.Cache
}

func NewCSRFService(ttl time.Duration) *CSRFService {
	return &CSRFService{
		tokens: cache.New(ttl, 2*ttl),
	}
}

// Issue returns the session's current token, minting one if needed.
func (s *CSRFService) Issue(session string) (string, error) {
	if cached, found := s.tokens.Get(session); found {
		return cached.(string), nil
	}
	token, err := gonanoid.New(24)
	if err != nil {
		return "", err
	}
	s.tokens.Set(session, token, cache.DefaultExpiration)
	return token, nil
}

// Validate reports whether the presented token matches the session's.
func (s *CSRFService) Validate(session, token string) bool {
	if token == "" {
		return false
	}
	cached, found := s.tokens.Get(session)
	return found && cached.(string) == token
}
