package table

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/recon/internal/domain"
)

func rows(n int) []domain.Record {
	out := make([]domain.Record, n)
	for i := range out {
		out[i] = domain.Record{"id": float64(i + 1), "name": "row"}
	}
	return out
}

type fetchCall struct {
	page, pageSize   int
	search, category string
}

func recordingFetch(calls *[]fetchCall, res domain.PageResult[domain.Record], err error) FetchFunc[domain.Record] {
	return func(_ context.Context, page, pageSize int, search, category string) (domain.PageResult[domain.Record], error) {
		*calls = append(*calls, fetchCall{page, pageSize, search, category})
		return res, err
	}
}

func TestControllerStartsLoadingAndEmpty(t *testing.T) {
	c := NewController[domain.Record](nil)
	s := c.State()

	assert.True(t, s.Loading)
	assert.Empty(t, s.Rows)
	assert.Equal(t, 1, s.TotalPages)
	assert.Equal(t, 0, s.TotalItems)
}

func TestControllerExampleScenario(t *testing.T) {
	var calls []fetchCall
	fetch := recordingFetch(&calls, domain.PageResult[domain.Record]{
		Rows: rows(5), CurrentPage: 1, TotalPages: 3, TotalItems: 25,
	}, nil)
	c := NewController(fetch)

	q := domain.QueryParams{Page: 1, PageSize: 10, Search: "", Category: "all"}
	cycle, ok := c.Sync(q)
	require.True(t, ok)
	assert.True(t, c.State().Loading)

	require.True(t, c.Resolve(cycle.Run(context.Background())))
	s := c.State()
	assert.Len(t, s.Rows, 5)
	assert.Equal(t, 3, s.TotalPages)
	assert.Equal(t, 25, s.TotalItems)
	assert.False(t, s.Loading)
	assert.NoError(t, s.Err)

	require.Len(t, calls, 1)
	assert.Equal(t, fetchCall{1, 10, "", ""}, calls[0], "category all is not forwarded")
}

func TestControllerSyncOnlyOnChange(t *testing.T) {
	c := NewController(recordingFetch(new([]fetchCall), domain.PageResult[domain.Record]{}, nil))
	q := domain.NewQueryParams(10)

	_, ok := c.Sync(q)
	assert.True(t, ok, "first sync always issues")
	_, ok = c.Sync(q)
	assert.False(t, ok, "same params do not refetch")

	_, ok = c.Sync(q.WithPage(2))
	assert.True(t, ok)
	_, ok = c.Sync(q.WithPage(2).Refreshed())
	assert.True(t, ok, "refresh token change refetches")
	_, ok = c.Sync(q.WithPage(2).Refreshed())
	assert.False(t, ok)
}

func TestControllerSetFetchForcesRefetch(t *testing.T) {
	var first, second []fetchCall
	c := NewController(recordingFetch(&first, domain.PageResult[domain.Record]{}, nil))
	q := domain.NewQueryParams(10)

	cycle, _ := c.Sync(q)
	c.Resolve(cycle.Run(context.Background()))

	c.SetFetch(recordingFetch(&second, domain.PageResult[domain.Record]{}, nil))
	cycle, ok := c.Sync(q)
	require.True(t, ok)
	c.Resolve(cycle.Run(context.Background()))

	assert.Len(t, first, 1)
	assert.Len(t, second, 1)
}

func TestControllerFailureRetainsData(t *testing.T) {
	var reported []error
	page := domain.PageResult[domain.Record]{Rows: rows(3), CurrentPage: 2, TotalPages: 4, TotalItems: 31}
	c := NewController(recordingFetch(new([]fetchCall), page, nil),
		WithErrorHandler[domain.Record](func(err error) { reported = append(reported, err) }))

	q := domain.NewQueryParams(10).WithPage(2)
	cycle, _ := c.Sync(q)
	c.Resolve(cycle.Run(context.Background()))

	boom := errors.New("boom")
	c.SetFetch(recordingFetch(new([]fetchCall), domain.PageResult[domain.Record]{}, boom))
	cycle, _ = c.Sync(q.WithPage(3))
	require.True(t, c.Resolve(cycle.Run(context.Background())))

	s := c.State()
	assert.False(t, s.Loading)
	assert.Len(t, s.Rows, 3)
	assert.Equal(t, 2, s.CurrentPage)
	assert.Equal(t, 4, s.TotalPages)
	assert.Equal(t, 31, s.TotalItems)
	assert.ErrorIs(t, s.Err, boom)
	assert.Equal(t, []error{boom}, reported)
}

func TestControllerRecoversFetchPanic(t *testing.T) {
	c := NewController[domain.Record](func(context.Context, int, int, string, string) (domain.PageResult[domain.Record], error) {
		panic("kaboom")
	})
	cycle, _ := c.Sync(domain.NewQueryParams(10))
	c.Resolve(cycle.Run(context.Background()))

	assert.False(t, c.State().Loading)
	assert.ErrorContains(t, c.State().Err, "kaboom")
}

func TestControllerDefaultsMissingPagination(t *testing.T) {
	c := NewController(recordingFetch(new([]fetchCall), domain.PageResult[domain.Record]{}, nil))
	cycle, _ := c.Sync(domain.NewQueryParams(10))
	c.Resolve(cycle.Run(context.Background()))

	s := c.State()
	assert.Equal(t, 1, s.TotalPages)
	assert.Equal(t, 0, s.TotalItems)
	assert.NotNil(t, s.Rows)
	assert.Empty(t, s.Rows)
}

// Cycles resolving out of order must never let an older page overwrite a
// newer one, and loading only clears when the newest cycle lands.
func TestControllerDiscardsStaleOutcomes(t *testing.T) {
	fetch := func(_ context.Context, page, _ int, _, _ string) (domain.PageResult[domain.Record], error) {
		return domain.PageResult[domain.Record]{
			Rows:        []domain.Record{{"id": float64(page)}},
			CurrentPage: page,
			TotalPages:  9,
		}, nil
	}
	c := NewController[domain.Record](fetch)
	q := domain.NewQueryParams(10)

	first, _ := c.Sync(q.WithPage(1))
	second, _ := c.Sync(q.WithPage(2))
	third, _ := c.Sync(q.WithPage(3))

	assert.False(t, c.Resolve(second.Run(context.Background())))
	assert.True(t, c.State().Loading)

	assert.True(t, c.Resolve(third.Run(context.Background())))
	assert.False(t, c.State().Loading)
	assert.Equal(t, 3, c.State().CurrentPage)

	assert.False(t, c.Resolve(first.Run(context.Background())))
	assert.Equal(t, 3, c.State().CurrentPage)
	assert.Equal(t, "3", c.State().Rows[0].GetID())
}

func TestControllerLastResolvedWins(t *testing.T) {
	fetch := func(_ context.Context, page, _ int, _, _ string) (domain.PageResult[domain.Record], error) {
		return domain.PageResult[domain.Record]{CurrentPage: page, TotalPages: 9}, nil
	}
	c := NewController[domain.Record](fetch, WithStalePolicy[domain.Record](LastResolvedWins))
	q := domain.NewQueryParams(10)

	first, _ := c.Sync(q.WithPage(1))
	second, _ := c.Sync(q.WithPage(2))

	c.Resolve(second.Run(context.Background()))
	c.Resolve(first.Run(context.Background()))
	assert.Equal(t, 1, c.State().CurrentPage)
}

func TestControllerStateIsSnapshot(t *testing.T) {
	c := NewController(recordingFetch(new([]fetchCall), domain.PageResult[domain.Record]{Rows: rows(2)}, nil))
	cycle, _ := c.Sync(domain.NewQueryParams(10))
	c.Resolve(cycle.Run(context.Background()))

	s := c.State()
	s.Rows[0] = domain.Record{"id": "changed"}
	assert.Equal(t, "1", c.State().Rows[0].GetID())
}
