package blockstore

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTagPredicates(t *testing.T) {
	tests := []struct {
		tag                                  Tag
		ownedStart, owned, emptyStart, empty bool
	}{
		{OwnedStartTag(3), true, false, false, false},
		{OwnedTag(0), false, true, false, false},
		{EmptyStartTag(2), false, false, true, false},
		{EmptyTag(5), false, false, false, true},
	}
	for _, tt := range tests {
		t.Run(tt.tag.Kind().String(), func(t *testing.T) {
			assert.Equal(t, tt.ownedStart, tt.tag.IsOwnedStart())
			assert.Equal(t, tt.owned, tt.tag.IsOwned())
			assert.Equal(t, tt.emptyStart, tt.tag.IsEmptyStart())
			assert.Equal(t, tt.empty, tt.tag.IsEmpty())
			assert.Equal(t, tt.emptyStart || tt.empty, tt.tag.IsFree())
		})
	}
}

func TestTagAccessors(t *testing.T) {
	assert.Equal(t, 3, OwnedStartTag(3).Count())
	assert.Equal(t, 2, EmptyStartTag(2).Span())
	assert.Equal(t, 7, OwnedTag(7).Parent())
	assert.Equal(t, 5, EmptyTag(5).Parent())

	tag := OwnedStartTag(0)
	tag.setCount(4)
	assert.Equal(t, 4, tag.Count())
	assert.Equal(t, "OwnedStart(4)", tag.String())
}

// TestTagWrongKindPanics verifies that reading a field of the wrong tag kind
// is treated as a programmer error.
func TestTagWrongKindPanics(t *testing.T) {
	cases := map[string]func(){
		"count of empty start": func() { EmptyStartTag(1).Count() },
		"count of owned":       func() { OwnedTag(0).Count() },
		"span of owned start":  func() { OwnedStartTag(0).Span() },
		"span of empty":        func() { EmptyTag(0).Span() },
		"parent of start":      func() { OwnedStartTag(0).Parent() },
		"set count of empty": func() {
			tag := EmptyTag(0)
			tag.setCount(1)
		},
	}
	for name, fn := range cases {
		t.Run(name, func(t *testing.T) {
			err := recoverErr(fn)
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrTagKind), "got %v", err)
		})
	}
}
