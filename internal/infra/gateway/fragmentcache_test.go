package gateway

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFragmentCacheRoundTrip(t *testing.T) {
	g := NewFragmentCache(nil, time.Minute)
	ctx := context.Background()

	_, found := g.Get(ctx, "b1", "card", "id=1")
	assert.False(t, found)

	g.Set(ctx, "b1", "card", "id=1", "<div>one</div>")
	markup, found := g.Get(ctx, "b1", "card", "id=1")
	assert.True(t, found)
	assert.Equal(t, "<div>one</div>", markup)

	// different params miss
	_, found = g.Get(ctx, "b1", "card", "id=2")
	assert.False(t, found)
}

func TestFragmentCacheInvalidateIsPerBoard(t *testing.T) {
	g := NewFragmentCache(nil, time.Minute)
	ctx := context.Background()

	g.Set(ctx, "b1", "card", "id=1", "<div>one</div>")
	g.Set(ctx, "b2", "card", "id=1", "<div>two</div>")

	g.Invalidate(ctx, "b1")

	_, found := g.Get(ctx, "b1", "card", "id=1")
	assert.False(t, found)

	markup, found := g.Get(ctx, "b2", "card", "id=1")
	assert.True(t, found)
	assert.Equal(t, "<div>two</div>", markup)
}
