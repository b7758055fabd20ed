package engine

// SelectionToken captures which conversation was open when an
// asynchronous fetch was issued. A fetch result is applied only if its
// token still matches the live selection; otherwise it is discarded
// without touching shared state.
type SelectionToken struct {
	ID  string
	Gen uint64
}

// SelectionGuard is the monotonically replaced "active conversation"
// token. Every Select bumps the generation, so even re-selecting the
// same conversation invalidates earlier fetches.
type SelectionGuard struct {
	current SelectionToken
}

// Select replaces the active selection and returns the new token.
func (g *SelectionGuard) Select(id string) SelectionToken {
	g.current = SelectionToken{ID: id, Gen: g.current.Gen + 1}
	return g.current
}

// Clear drops the selection.
func (g *SelectionGuard) Clear() {
	g.Select("")
}

// Current returns the live token.
func (g *SelectionGuard) Current() SelectionToken {
	return g.current
}

// ID returns the selected conversation id, empty when none.
func (g *SelectionGuard) ID() string {
	return g.current.ID
}

// Matches reports whether a captured token is still the live one.
func (g *SelectionGuard) Matches(tok SelectionToken) bool {
	return g.current == tok
}
