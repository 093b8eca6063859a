package service

import (
	"context"
	"testing"

	"PriceSync/internal/config"
	"PriceSync/internal/model"
	"PriceSync/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureRetailers(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()
	list := []config.RetailerConfig{
		{Name: "Líder", ChainGroup: "Walmart"},
		{Name: "Santa Isabel", ChainGroup: "Cencosud", Location: "Santiago"},
		{Name: "Jumbo", Slug: "jumbo-cl", ChainGroup: "Cencosud"},
	}

	created, err := e.retailers.EnsureRetailers(ctx, list)
	require.NoError(t, err)
	require.Len(t, created, 3)
	assert.Equal(t, "lider", created[0].Slug)
	assert.Equal(t, model.DefaultLocation, created[0].Location)
	assert.Equal(t, "santa-isabel", created[1].Slug)
	assert.Equal(t, "Santiago", created[1].Location)
	assert.Equal(t, "jumbo-cl", created[2].Slug)

	again, err := e.retailers.EnsureRetailers(ctx, list)
	require.NoError(t, err)
	for i := range again {
		assert.Equal(t, created[i].ID, again[i].ID)
	}

	count, err := e.retailers.Count(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, int64(3), count)

	group, err := e.retailers.ListByChainGroup(ctx, "Cencosud")
	require.NoError(t, err)
	assert.Len(t, group, 2)
}

func TestEnsureRetailersRejectsSlugCollisions(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()

	_, err := e.retailers.EnsureRetailers(ctx, []config.RetailerConfig{{Name: "Líder"}, {Name: "Lider"}})
	assert.True(t, model.IsValidation(err))

	_, err = e.retailers.EnsureRetailers(ctx, []config.RetailerConfig{{Name: "Santa Isabel", Slug: "Santa Isabel/Ñ"}})
	assert.True(t, model.IsValidation(err))

	count, err := e.retailers.Count(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestRetailerCreateAndUpdate(t *testing.T) {
	e := newEnv(t, &recordingDispatcher{})
	ctx := context.Background()

	_, err := e.retailers.Create(ctx, RetailerInput{Name: " "})
	assert.True(t, model.IsValidation(err))

	sm, err := e.retailers.Create(ctx, RetailerInput{Name: "Unimarc Ñuñoa"})
	require.NoError(t, err)
	assert.Equal(t, "unimarc-nunoa", sm.Slug)
	assert.True(t, sm.IsActive)

	_, err = e.retailers.Create(ctx, RetailerInput{Name: "Unimarc ñuñoa"})
	assert.True(t, model.IsConflict(err), "duplicate slug")

	sm, err = e.retailers.Update(ctx, sm.ID, model.SupermarketPatch{Name: testutil.Ptr("Unimarc Express")})
	require.NoError(t, err)
	assert.Equal(t, "unimarc-nunoa", sm.Slug, "rename keeps slug")

	sm, err = e.retailers.Update(ctx, sm.ID, model.SupermarketPatch{RegenerateSlug: true, IsActive: testutil.Ptr(false)})
	require.NoError(t, err)
	assert.Equal(t, "unimarc-express", sm.Slug)
	assert.False(t, sm.IsActive)

	got, err := e.retailers.GetBySlug(ctx, "unimarc-express")
	require.NoError(t, err)
	assert.Equal(t, sm.ID, got.ID)

	active, err := e.retailers.List(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, active)

	_, err = e.retailers.Get(ctx, 999)
	assert.ErrorIs(t, err, model.ErrNotFound)
}
