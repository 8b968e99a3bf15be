package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/bazaar/internal/common"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFavoriteService_Lifecycle(t *testing.T) {
	rm := newFakeRepoManager()
	p := rm.products.add("seller", 5)
	s := NewFavoriteService(nil, rm, nopLogger{})
	ctx := context.Background()

	fav, err := s.Add(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, fav.ProductID)

	_, err = s.Add(ctx, "u1", p.ID)
	assert.ErrorIs(t, err, common.ErrorAlreadyExists)

	ok, err := s.IsFavorite(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	list, err := s.List(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, p.ID, list[0].ID)

	require.NoError(t, s.Remove(ctx, "u1", p.ID))
	assert.ErrorIs(t, s.Remove(ctx, "u1", p.ID), common.ErrorNotFound)

	ok, err = s.IsFavorite(ctx, "u1", p.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestFavoriteService_UnknownProduct(t *testing.T) {
	s := NewFavoriteService(nil, newFakeRepoManager(), nopLogger{})
	ctx := context.Background()

	_, err := s.Add(ctx, "u1", uuid.NewString())
	assert.ErrorIs(t, err, common.ErrorNotFound)

	_, err = s.Add(ctx, "u1", "garbage")
	assert.ErrorIs(t, err, common.ErrorNotFound)

	ok, err := s.IsFavorite(ctx, "u1", "garbage")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = s.List(ctx, "")
	assert.ErrorIs(t, err, common.ErrorUnauthorized)
}
