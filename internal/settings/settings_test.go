package settings

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memStore struct {
	values map[string]int
	err    error
}

func (m *memStore) GetInt(key string) (int, bool) {
	v, ok := m.values[key]
	return v, ok
}

func (m *memStore) SetInt(key string, value int) error {
	if m.err != nil {
		return m.err
	}
	m.values[key] = value
	return nil
}

func TestProviderDefaults(t *testing.T) {
	assert.Equal(t, 10, NewMemory(0).PageSize())
	assert.Equal(t, 25, NewMemory(25).PageSize())
	assert.Equal(t, 10, NewMemory(33).PageSize())
}

func TestProviderLoadsPersistedValue(t *testing.T) {
	store := &memStore{values: map[string]int{KeyPageSize: 50}}
	assert.Equal(t, 50, New(store, 10, nil).PageSize())

	store.values[KeyPageSize] = 7
	assert.Equal(t, 10, New(store, 10, nil).PageSize(), "invalid stored value ignored")
}

func TestProviderPersistsAndNotifies(t *testing.T) {
	store := &memStore{values: map[string]int{}}
	p := New(store, 10, nil)

	var got []int
	unsubscribe := p.Subscribe(func(n int) { got = append(got, n) })

	require.NoError(t, p.SetPageSize(100))
	require.NoError(t, p.SetPageSize(100))
	assert.Equal(t, 100, p.PageSize())
	assert.Equal(t, 100, store.values[KeyPageSize])
	assert.Equal(t, []int{100}, got)

	unsubscribe()
	require.NoError(t, p.SetPageSize(25))
	assert.Equal(t, []int{100}, got)
}

func TestProviderRejectsInvalidSize(t *testing.T) {
	p := NewMemory(10)
	assert.Error(t, p.SetPageSize(12))
	assert.Equal(t, 10, p.PageSize())
}

func TestProviderPersistFailureStillUpdates(t *testing.T) {
	store := &memStore{values: map[string]int{}, err: errors.New("disk full")}
	p := New(store, 10, nil)

	err := p.SetPageSize(50)
	assert.ErrorContains(t, err, "disk full")
	assert.Equal(t, 50, p.PageSize())
}
