package catalog

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func TestPostgresStore_LogsInvalidProduct(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewPostgresStore(nil, zap.New(core))

	_, err := s.Create(context.Background(), NewProduct{Code: "A1"})
	require.ErrorIs(t, err, ErrInvalidProduct)

	entries := logs.FilterMessage("product rejected").All()
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].ContextMap()["error"], "missing title")
}
