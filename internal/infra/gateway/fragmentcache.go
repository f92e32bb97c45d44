package gateway

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/bradfitz/gomemcache/memcache"
	"github.com/patrickmn/go-cache"
	"github.com/zeebo/xxh3"
)

// FragmentCache memoizes rendered fragment markup. Lookups hit a
// process-local tier first and fall through to memcached when one is
// configured, so several instances can share renders. Entries are
// versioned per board: invalidating a board bumps its version, which
// orphans every key minted under the old one.
type FragmentCache struct {
	local  *cache.Cache
	shared *memcache.Client
	ttl    time.Duration
}

func NewFragmentCache(shared *memcache.Client, ttl time.Duration) *FragmentCache {
	return &FragmentCache{
		local:  cache.New(ttl, 2*ttl),
		shared: shared,
		ttl:    ttl,
	}
}

func (g *FragmentCache) key(board, name, params string) string {
	version := g.version(board)
	digest := xxh3.HashString(name + "\x00" + params)
	return fmt.Sprintf("frag:%s:%d:%x", board, version, digest)
}

func (g *FragmentCache) versionKey(board string) string {
	return "fragv:" + board
}

func (g *FragmentCache) version(board string) uint64 {
	if cached, found := g.local.Get(g.versionKey(board)); found {
		return cached.(uint64)
	}
	if g.shared != nil {
		if item, err := g.shared.Get(g.versionKey(board)); err == nil {
			if version, err := strconv.ParseUint(string(item.Value), 10, 64); err == nil {
				g.local.Set(g.versionKey(board), version, cache.DefaultExpiration)
				return version
			}
		}
	}
	return 0
}

// Get returns the cached markup for one fragment render, identified by
// target board, template name and its serialized parameters.
func (g *FragmentCache) Get(ctx context.Context, board, name, params string) (string, bool) {
	key := g.key(board, name, params)
	if cached, found := g.local.Get(key); found {
		return cached.(string), true
	}
	if g.shared != nil {
		if item, err := g.shared.Get(key); err == nil {
			g.local.Set(key, string(item.Value), cache.DefaultExpiration)
			return string(item.Value), true
		}
	}
	return "", false
}

func (g *FragmentCache) Set(ctx context.Context, board, name, params, markup string) {
	key := g.key(board, name, params)
	g.local.Set(key, markup, cache.DefaultExpiration)
	if g.shared != nil {
		g.shared.Set(&memcache.Item{
			Key:        key,
			Value:      []byte(markup),
			Expiration: int32(g.ttl.Seconds()),
		})
	}
}

// Invalidate drops every cached fragment of one board.
func (g *FragmentCache) Invalidate(ctx context.Context, board string) {
	version := g.version(board) + 1
	g.local.Set(g.versionKey(board), version, cache.NoExpiration)
	if g.shared != nil {
		g.shared.Set(&memcache.Item{
			Key:   g.versionKey(board),
			Value: []byte(strconv.FormatUint(version, 10)),
		})
	}
}
