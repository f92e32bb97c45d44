package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stitchweb/stitch"
)

func TestSwapStrategies(t *testing.T) {
	const page = `<html><body><ul id="list"><li id="a">a</li><li id="b">b</li></ul></body></html>`

	tests := []struct {
		name     string
		strategy stitch.SwapStrategy
		fragment string
		wantList string
	}{
		{
			name:     "replace inner",
			strategy: stitch.SwapReplaceInner,
			fragment: `<li id="x">x</li>`,
			wantList: `<li id="x">x</li>`,
		},
		{
			name:     "prepend inside",
			strategy: stitch.SwapPrependInside,
			fragment: `<li id="x">x</li>`,
			wantList: `<li id="x">x</li><li id="a">a</li><li id="b">b</li>`,
		},
		{
			name:     "append inside",
			strategy: stitch.SwapAppendInside,
			fragment: `<li id="x">x</li>`,
			wantList: `<li id="a">a</li><li id="b">b</li><li id="x">x</li>`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			root, err := ParseString(page)
			require.NoError(t, err)

			frag, err := ParseFragmentString(tt.fragment)
			require.NoError(t, err)

			list := FindByID(root, "list")
			require.NotNil(t, list)

			require.NoError(t, Swap(list, frag, tt.strategy))

			got, err := RenderChildren(list)
			require.NoError(t, err)
			assert.Equal(t, tt.wantList, got)
		})
	}
}

func TestSwapSiblingStrategies(t *testing.T) {
	const page = `<html><body><ul id="list"><li id="a">a</li><li id="b">b</li></ul></body></html>`

	t.Run("insert before", func(t *testing.T) {
		root, _ := ParseString(page)
		frag, _ := ParseFragmentString(`<li id="x">x</li>`)
		b := FindByID(root, "b")
		require.NoError(t, Swap(b, frag, stitch.SwapInsertBefore))

		got, _ := RenderChildren(FindByID(root, "list"))
		assert.Equal(t, `<li id="a">a</li><li id="x">x</li><li id="b">b</li>`, got)
	})

	t.Run("insert after", func(t *testing.T) {
		root, _ := ParseString(page)
		frag, _ := ParseFragmentString(`<li id="x">x</li>`)
		b := FindByID(root, "b")
		require.NoError(t, Swap(b, frag, stitch.SwapInsertAfter))

		got, _ := RenderChildren(FindByID(root, "list"))
		assert.Equal(t, `<li id="a">a</li><li id="b">b</li><li id="x">x</li>`, got)
	})
}

func TestSwapReplaceOuter(t *testing.T) {
	root, _ := ParseString(`<html><body><ul id="list"><li id="a">a</li></ul></body></html>`)
	frag, _ := ParseFragmentString(`<li id="a2">a2</li>`)
	a := FindByID(root, "a")
	require.NoError(t, Swap(a, frag, stitch.SwapReplaceOuter))

	assert.Nil(t, FindByID(root, "a"))
	got, _ := RenderChildren(FindByID(root, "list"))
	assert.Equal(t, `<li id="a2">a2</li>`, got)
}

// An outerHTML swap with an empty response removes the destination
// entirely, which is how delete buttons remove their own row.
func TestSwapReplaceOuterEmptyRemovesNode(t *testing.T) {
	root, _ := ParseString(`<html><body><ul id="list"><li id="a">a</li><li id="b">b</li></ul></body></html>`)
	frag, err := ParseFragmentString("")
	require.NoError(t, err)

	a := FindByID(root, "a")
	require.NoError(t, Swap(a, frag, stitch.SwapReplaceOuter))

	assert.Nil(t, FindByID(root, "a"))
	got, _ := RenderChildren(FindByID(root, "list"))
	assert.Equal(t, `<li id="b">b</li>`, got)
}

// Applying the same fragment source twice with innerHTML must leave
// the destination in the same final state.
func TestSwapReplaceInnerIdempotent(t *testing.T) {
	root, _ := ParseString(`<html><body><div id="out">old</div></body></html>`)
	out := FindByID(root, "out")

	for i := 0; i < 2; i++ {
		frag, err := ParseFragmentString(`<p>fresh</p>`)
		require.NoError(t, err)
		require.NoError(t, Swap(out, frag, stitch.SwapReplaceInner))
	}

	got, _ := RenderChildren(out)
	assert.Equal(t, `<p>fresh</p>`, got)
}

func TestHiddenToggle(t *testing.T) {
	root, _ := ParseString(`<html><body><div id="panel"></div></body></html>`)
	panel := FindByID(root, "panel")

	assert.False(t, IsHidden(panel))
	SetHidden(panel, true)
	assert.True(t, IsHidden(panel))
	SetHidden(panel, false)
	assert.False(t, IsHidden(panel))
}
