package engine

// Cursor tracks pagination state for one list. The conversation list
// pages forward; the message history pages backward from the newest
// page. Either way the first page is page 1.
type Cursor struct {
	Page     int
	PageSize int
	HasMore  bool

	inFlight bool
}

// NewCursor creates a cursor positioned at the first page.
func NewCursor(pageSize int) *Cursor {
	return &Cursor{Page: 1, PageSize: pageSize, HasMore: true}
}

// Reset rewinds the cursor to the first page. Done whenever the parent
// list is cleared (tenant switch, conversation switch).
func (c *Cursor) Reset() {
	c.Page = 1
	c.HasMore = true
	c.inFlight = false
}

// Begin claims the cursor for one fetch. It refuses when a fetch is
// already outstanding or the list is exhausted, which serializes
// prepend/append operations on the parent list.
func (c *Cursor) Begin() bool {
	if c.inFlight || !c.HasMore {
		return false
	}
	c.inFlight = true
	return true
}

// End releases the cursor after a fetch completes. On success the page
// index advances and hasMore is updated.
func (c *Cursor) End(ok, hasMore bool) {
	c.inFlight = false
	if ok {
		c.Page++
		c.HasMore = hasMore
	}
}

// InFlight reports whether a fetch is outstanding.
func (c *Cursor) InFlight() bool {
	return c.inFlight
}
