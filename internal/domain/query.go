package domain

// CategoryAll is the category value meaning "no filter".
const CategoryAll = "all"

// DefaultPageSize is used until the operator picks another one.
const DefaultPageSize = 10

// QueryParams identifies one page request against a paginated resource.
type QueryParams struct {
	Page     int
	PageSize int
	Search   string
	Category string

	// Refresh is an opaque token. Changing it forces a refetch even when
	// every other field is unchanged.
	Refresh uint64
}

// NewQueryParams returns params for the first page.
func NewQueryParams(pageSize int) QueryParams {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	return QueryParams{Page: 1, PageSize: pageSize, Category: CategoryAll}
}

// WithPage returns a copy pointing at page p (clamped to 1).
func (q QueryParams) WithPage(p int) QueryParams {
	if p < 1 {
		p = 1
	}
	q.Page = p
	return q
}

// WithPageSize returns a copy with a new page size. The page resets to 1.
func (q QueryParams) WithPageSize(n int) QueryParams {
	if n > 0 {
		q.PageSize = n
	}
	q.Page = 1
	return q
}

// WithSearch returns a copy with a new search term. The page resets to 1.
func (q QueryParams) WithSearch(term string) QueryParams {
	q.Search = term
	q.Page = 1
	return q
}

// WithCategory returns a copy with a new category. The page resets to 1.
func (q QueryParams) WithCategory(category string) QueryParams {
	q.Category = category
	q.Page = 1
	return q
}

// Refreshed returns a copy with a new refresh token.
func (q QueryParams) Refreshed() QueryParams {
	q.Refresh++
	return q
}

// EffectiveCategory returns the category to send to the server, or ""
// when no filtering should happen.
func (q QueryParams) EffectiveCategory() string {
	return EffectiveCategory(q.Category)
}

// EffectiveCategory maps "" and CategoryAll to "".
func EffectiveCategory(category string) string {
	if category == CategoryAll {
		return ""
	}
	return category
}

// PageResult is one page of rows in server order.
type PageResult[T any] struct {
	Rows        []T
	CurrentPage int
	TotalPages  int
	TotalItems  int
}

// Normalize fills in defaults for anything the server left out: one
// total page, zero items, no rows, and the requested page as current.
func (r PageResult[T]) Normalize(requestedPage int) PageResult[T] {
	if r.Rows == nil {
		r.Rows = []T{}
	}
	if r.TotalPages <= 0 {
		r.TotalPages = 1
	}
	if r.TotalItems < 0 {
		r.TotalItems = 0
	}
	if r.CurrentPage <= 0 {
		r.CurrentPage = requestedPage
	}
	if r.CurrentPage <= 0 {
		r.CurrentPage = 1
	}
	return r
}

// Envelope is the response shape of every mutation endpoint.
type Envelope[T any] struct {
	Success bool
	Data    *T
	Error   string
	Message string

	// ID is set by endpoints that confirm a create with the new id only.
	ID string
}

// Failed reports whether the envelope represents a rejected mutation.
func (e Envelope[T]) Failed() bool {
	return !e.Success
}

// Err converts a failed envelope into a *RejectedError.
func (e Envelope[T]) Err() error {
	if e.Success {
		return nil
	}
	return &RejectedError{Message: e.Error}
}
