package table

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/recon/internal/domain"
)

type Rec = domain.Record

func seed(n int) *Collection[Rec] {
	rs := make([]Rec, n)
	for i := range rs {
		rs[i] = Rec{"id": string(rune('a' + i)), "name": "row", "notes": map[string]any{"k": i}}
	}
	return NewCollection(rs, n+10)
}

func succeed(data *Rec) MutatorFuncs[Rec] {
	fn := func(context.Context, Rec) (domain.Envelope[Rec], error) {
		return domain.Envelope[Rec]{Success: true, Data: data}, nil
	}
	return MutatorFuncs[Rec]{CreateFunc: fn, UpdateFunc: fn, DeleteFunc: fn}
}

func failing(err error, env domain.Envelope[Rec]) MutatorFuncs[Rec] {
	fn := func(context.Context, Rec) (domain.Envelope[Rec], error) { return env, err }
	return MutatorFuncs[Rec]{CreateFunc: fn, UpdateFunc: fn, DeleteFunc: fn}
}

func TestAddThenConfirm(t *testing.T) {
	c := seed(4)
	var confirmed Rec

	p := c.Add(Rec{"name": "X"}, Callbacks[Rec]{OnSuccess: func(r Rec) { confirmed = r }})
	require.Equal(t, 5, c.Len())
	assert.Equal(t, 15, c.Total())
	first := c.Rows()[0]
	assert.True(t, IsTempID(first.GetID()))
	assert.Equal(t, "X", first["name"])

	canon := Rec{"id": "42", "name": "X"}
	res := c.Settle(p.Run(context.Background(), succeed(&canon)))

	assert.False(t, res.RolledBack)
	assert.False(t, res.NeedsRefresh)
	assert.Equal(t, 5, c.Len())
	assert.Equal(t, "42", c.Rows()[0].GetID())
	assert.Equal(t, "42", confirmed.GetID())
}

func TestAddConfirmedWithIDOnly(t *testing.T) {
	c := seed(2)
	p := c.Add(Rec{"name": "X"}, Callbacks[Rec]{})

	create := MutatorFuncs[Rec]{CreateFunc: func(context.Context, Rec) (domain.Envelope[Rec], error) {
		return domain.Envelope[Rec]{Success: true, ID: "77"}, nil
	}}
	res := c.Settle(p.Run(context.Background(), create))

	assert.Equal(t, "77", c.Rows()[0].GetID())
	assert.Equal(t, "X", c.Rows()[0]["name"])
	assert.False(t, res.NeedsRefresh)
}

func TestAddConfirmedWithoutDataNeedsRefresh(t *testing.T) {
	c := seed(2)
	p := c.Add(Rec{"name": "X"}, Callbacks[Rec]{})

	res := c.Settle(p.Run(context.Background(), succeed(nil)))

	assert.True(t, res.NeedsRefresh)
	assert.Equal(t, p.ID, c.Rows()[0].GetID())
	assert.Equal(t, 3, c.Len())
}

func TestAddFailureRestoresSnapshot(t *testing.T) {
	cases := map[string]MutatorFuncs[Rec]{
		"transport":      failing(errors.New("dial tcp: refused"), domain.Envelope[Rec]{}),
		"server failure": failing(nil, domain.Envelope[Rec]{Success: false, Error: "duplicate"}),
		"no message":     failing(nil, domain.Envelope[Rec]{}),
	}
	for name, m := range cases {
		t.Run(name, func(t *testing.T) {
			c := seed(4)
			beforeRows, beforeTotal := c.Rows(), c.Total()
			var msg string

			p := c.Add(Rec{"name": "X"}, Callbacks[Rec]{OnError: func(s string) { msg = s }})
			res := c.Settle(p.Run(context.Background(), m))

			assert.True(t, res.RolledBack)
			assert.Equal(t, beforeRows, c.Rows())
			assert.Equal(t, beforeTotal, c.Total())
			assert.NotEmpty(t, msg)
		})
	}
}

func TestAddFailureMessage(t *testing.T) {
	c := seed(1)
	p := c.Add(Rec{"name": "X"}, Callbacks[Rec]{})
	res := c.Settle(p.Run(context.Background(), failing(nil, domain.Envelope[Rec]{})))
	assert.Equal(t, domain.UnknownErrorMessage, res.Message)
}

func TestTempIDsAreUnique(t *testing.T) {
	c := seed(0)
	n := 0
	c.newID = func() string {
		n++
		if n <= 2 {
			return TempIDPrefix + "dup"
		}
		return TempIDPrefix + "fresh"
	}
	a := c.Add(Rec{}, Callbacks[Rec]{})
	b := c.Add(Rec{}, Callbacks[Rec]{})

	assert.Equal(t, TempIDPrefix+"dup", a.ID)
	assert.Equal(t, TempIDPrefix+"fresh", b.ID)
}

func TestEditAppliesShallowMerge(t *testing.T) {
	c := seed(3)
	p, err := c.Edit(Rec{"id": "b", "name": "renamed"}, Callbacks[Rec]{})
	require.NoError(t, err)

	row, i, found := c.Find("b")
	require.True(t, found)
	assert.Equal(t, 1, i)
	assert.Equal(t, "renamed", row["name"])
	assert.Equal(t, map[string]any{"k": 1}, row["notes"])

	c.Settle(p.Run(context.Background(), succeed(nil)))
	row, _, _ = c.Find("b")
	assert.Equal(t, "renamed", row["name"])
}

func TestEditFailureRestoresExactSnapshot(t *testing.T) {
	c := seed(3)
	before := c.Rows()

	p, err := c.Edit(Rec{"id": "b", "name": "renamed", "extra": true}, Callbacks[Rec]{})
	require.NoError(t, err)
	c.Settle(p.Run(context.Background(), failing(errors.New("500"), domain.Envelope[Rec]{})))

	assert.Equal(t, before, c.Rows())
	_, hasExtra := c.Rows()[1]["extra"]
	assert.False(t, hasExtra)
}

func TestEditUnknownRow(t *testing.T) {
	c := seed(1)
	_, err := c.Edit(Rec{"id": "zz"}, Callbacks[Rec]{})
	assert.ErrorIs(t, err, ErrRowNotFound)
}

func TestDeleteFailurePreservesIndex(t *testing.T) {
	c := seed(4)
	before, total := c.Rows(), c.Total()

	p, err := c.Delete(Rec{"id": "b"}, Callbacks[Rec]{})
	require.NoError(t, err)
	assert.Equal(t, 3, c.Len())
	assert.Equal(t, total-1, c.Total())

	c.Settle(p.Run(context.Background(), failing(nil, domain.Envelope[Rec]{Error: "locked"})))
	assert.Equal(t, before, c.Rows())
	assert.Equal(t, total, c.Total())
}

func TestDeleteFailureClampsIndexAfterShrink(t *testing.T) {
	c := seed(4)
	p, err := c.Delete(Rec{"id": "d"}, Callbacks[Rec]{})
	require.NoError(t, err)
	c.Reset(c.Rows()[:1], 1)

	c.Settle(p.Run(context.Background(), failing(errors.New("x"), domain.Envelope[Rec]{})))
	require.Equal(t, 2, c.Len())
	assert.Equal(t, "d", c.Rows()[1].GetID())
}

func TestDeleteSuccess(t *testing.T) {
	c := seed(3)
	var done bool
	p, err := c.Delete(Rec{"id": "a"}, Callbacks[Rec]{OnSuccess: func(Rec) { done = true }})
	require.NoError(t, err)

	res := c.Settle(p.Run(context.Background(), succeed(nil)))
	assert.False(t, res.RolledBack)
	assert.True(t, done)
	_, _, found := c.Find("a")
	assert.False(t, found)
}

func TestMutatorFuncsUnsupported(t *testing.T) {
	_, err := MutatorFuncs[Rec]{}.Create(context.Background(), Rec{})
	assert.Error(t, err)
}
