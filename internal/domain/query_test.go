package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestQueryParamsResetPage(t *testing.T) {
	q := NewQueryParams(25).WithPage(4)

	assert.Equal(t, 1, q.WithPageSize(50).Page)
	assert.Equal(t, 50, q.WithPageSize(50).PageSize)
	assert.Equal(t, 1, q.WithSearch("acme").Page)
	assert.Equal(t, 1, q.WithCategory("url").Page)
	assert.Equal(t, 1, q.WithPage(-3).Page)
}

func TestQueryParamsRefreshedDiffers(t *testing.T) {
	q := NewQueryParams(10)
	r := q.Refreshed()

	assert.NotEqual(t, q, r)
	assert.Equal(t, q.Page, r.Page)
	assert.Equal(t, q.PageSize, r.PageSize)
}

func TestNewQueryParamsDefaultsPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, NewQueryParams(0).PageSize)
}

func TestEffectiveCategory(t *testing.T) {
	assert.Equal(t, "", EffectiveCategory(CategoryAll))
	assert.Equal(t, "", EffectiveCategory(""))
	assert.Equal(t, "url", EffectiveCategory("url"))
}

func TestPageResultNormalize(t *testing.T) {
	got := PageResult[Record]{}.Normalize(3)

	assert.NotNil(t, got.Rows)
	assert.Empty(t, got.Rows)
	assert.Equal(t, 1, got.TotalPages)
	assert.Equal(t, 0, got.TotalItems)
	assert.Equal(t, 3, got.CurrentPage)

	kept := PageResult[Record]{CurrentPage: 2, TotalPages: 3, TotalItems: 25}.Normalize(1)
	assert.Equal(t, 2, kept.CurrentPage)
	assert.Equal(t, 3, kept.TotalPages)
	assert.Equal(t, 25, kept.TotalItems)
}

func TestEnvelopeErr(t *testing.T) {
	assert.NoError(t, Envelope[Record]{Success: true}.Err())

	err := Envelope[Record]{Error: "duplicate"}.Err()
	assert.EqualError(t, err, "duplicate")
	assert.True(t, errors.Is(err, ErrMutationRejected))

	assert.EqualError(t, Envelope[Record]{}.Err(), UnknownErrorMessage)
}
