package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCursorSerializesFetches(t *testing.T) {
	c := NewCursor(30)

	require.True(t, c.Begin())
	assert.False(t, c.Begin(), "a second fetch must not start while one is outstanding")
	assert.True(t, c.InFlight())

	c.End(true, true)
	assert.False(t, c.InFlight())
	assert.Equal(t, 2, c.Page)
	assert.True(t, c.Begin())
}

func TestCursorExhaustion(t *testing.T) {
	c := NewCursor(30)

	require.True(t, c.Begin())
	c.End(true, false)

	assert.False(t, c.Begin(), "an exhausted list must refuse further fetches")
}

func TestCursorFailedFetchKeepsPage(t *testing.T) {
	c := NewCursor(30)

	require.True(t, c.Begin())
	c.End(false, false)

	assert.Equal(t, 1, c.Page, "a failed fetch must not advance the page")
	assert.True(t, c.Begin(), "the same page can be retried")
}

func TestCursorReset(t *testing.T) {
	c := NewCursor(30)
	c.Begin()
	c.End(true, false)

	c.Reset()
	assert.Equal(t, 1, c.Page)
	assert.True(t, c.Begin())
}

func TestSelectionGuardDiscardsStaleToken(t *testing.T) {
	var g SelectionGuard

	tokA := g.Select("c1")
	assert.True(t, g.Matches(tokA))

	g.Select("c2")
	assert.False(t, g.Matches(tokA), "selecting another conversation invalidates earlier fetches")
}

func TestSelectionGuardReselectBumpsGeneration(t *testing.T) {
	var g SelectionGuard

	tokA := g.Select("c1")
	tokB := g.Select("c1")

	assert.False(t, g.Matches(tokA), "re-selecting the same conversation still invalidates earlier fetches")
	assert.True(t, g.Matches(tokB))
	assert.Equal(t, "c1", g.ID())
}

func TestSelectionGuardClear(t *testing.T) {
	var g SelectionGuard

	tok := g.Select("c1")
	g.Clear()

	assert.Equal(t, "", g.ID())
	assert.False(t, g.Matches(tok))
}
