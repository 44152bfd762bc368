package utils

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

type tagged struct {
	ID      string `doc:"-"`
	Name    string `doc:"name"`
	Count   int    `doc:"count"`
	Ignored string
	hidden  string `doc:"hidden"`
}

func TestStructTags(t *testing.T) {
	input := tagged{ID: "x", Name: "Food Bank", Count: 3, Ignored: "y", hidden: "z"}

	assert.Equal(t, []string{"name", "count"}, StructTagValues(input))
	assert.Equal(t, map[string]any{"name": "Food Bank", "count": 3}, StructToMap(&input))
	assert.Panics(t, func() { StructToMap("not a struct") })
}

func TestNanoID(t *testing.T) {
	id := NanoID()
	assert.Len(t, id, NanoidSize)
	assert.Regexp(t, `^[0-9a-zA-Z]+$`, id)
	assert.NotEqual(t, id, NanoID())
	assert.Len(t, NanoIDSize(8), 8)
}

func TestErrorWrapOrNil(t *testing.T) {
	assert.NoError(t, ErrorWrapOrNil(nil, "context"))

	base := errors.New("boom")
	wrapped := ErrorWrapOrNil(base, "failed to delete")
	assert.ErrorIs(t, wrapped, base)
	assert.EqualError(t, wrapped, "failed to delete: boom")
	assert.Same(t, base, ErrorWrapOrNil(base, ""))
}
