package docstore

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestTranslate(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"not found", status.Error(codes.NotFound, "no such document"), ErrNotFound},
		{"already exists", status.Error(codes.AlreadyExists, "document exists"), ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, translate(tt.err, "donations", "d1"), tt.want)
		})
	}

	t.Run("other errors pass through", func(t *testing.T) {
		unavailable := status.Error(codes.Unavailable, "try later")
		err := translate(unavailable, "donations", "d1")
		assert.Equal(t, unavailable, err)
		assert.False(t, errors.Is(err, ErrNotFound))
	})

	t.Run("nil", func(t *testing.T) {
		assert.NoError(t, translate(nil, "donations", "d1"))
	})
}

func TestFiltersJSON(t *testing.T) {
	data, err := filtersJSON([]Filter{Eq("status", "pending"), Eq("isGlobal", true)})
	require.NoError(t, err)
	assert.JSONEq(t, `{"status":"pending","isGlobal":true}`, data)

	data, err = filtersJSON(nil)
	require.NoError(t, err)
	assert.Equal(t, `{}`, data)
}

func TestDocumentRowDecodesJSON(t *testing.T) {
	row := documentRow{ID: "d1", Data: `{"status":"accepted","ngoId":null,"count":3}`}

	doc, err := row.document()
	require.NoError(t, err)
	assert.Equal(t, "d1", doc.ID)
	assert.Equal(t, "accepted", doc.Fields["status"])
	assert.Nil(t, doc.Fields["ngoId"])
	assert.Equal(t, float64(3), doc.Fields["count"])

	bad := documentRow{ID: "bad", Data: `{`}
	_, err = bad.document()
	assert.Error(t, err)
}
