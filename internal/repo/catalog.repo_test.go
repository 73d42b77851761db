package repo_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketplace/internal/domain"
	"marketplace/internal/repo"
)

func TestCatalogRepo_Clients(t *testing.T) {
	db := requireDB(t)
	catalog := repo.NewCatalogRepo(db.DB())
	ctx := context.Background()

	now := time.Now().UTC()
	client := domain.Client{
		ID:                uuid.New(),
		Name:              "Hortifruti " + uuid.NewString(),
		ThemeColorPrimary: "#00ff00",
		Email:             "contato@horti.com",
		CreatedAt:         now,
		UpdatedAt:         now,
	}
	require.NoError(t, catalog.CreateClient(ctx, nil, &client))

	got, err := catalog.FindClient(ctx, client.ID)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, client.Name, got.Name)
	assert.Equal(t, "#00ff00", got.ThemeColorPrimary)
	assert.Empty(t, got.LogoURL)

	dup := client
	dup.ID = uuid.New()
	err = catalog.CreateClient(ctx, nil, &dup)
	require.ErrorIs(t, err, domain.ErrConflict)

	missing, err := catalog.FindClient(ctx, uuid.New())
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestCatalogRepo_CategoriesAndProducts(t *testing.T) {
	db := requireDB(t)
	s := seedCatalog(t, db)
	catalog := repo.NewCatalogRepo(db.DB())
	ctx := context.Background()

	category := domain.Category{ID: uuid.New(), Name: "Padaria", ClientID: s.client.ID}
	require.NoError(t, catalog.CreateCategory(ctx, nil, &category))

	found, err := catalog.FindCategory(ctx, category.ID)
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, s.client.ID, found.ClientID)

	categories, err := catalog.ListCategories(ctx, s.client.ID)
	require.NoError(t, err)
	assert.Len(t, categories, 1)

	product := domain.Product{
		ID:          uuid.New(),
		Description: "Baguete",
		UnitPrice:   decimal.RequireFromString("7.25"),
		ClientID:    s.client.ID,
		CategoryID:  &category.ID,
	}
	require.NoError(t, catalog.CreateProduct(ctx, nil, &product))

	products, err := catalog.FindProducts(ctx, nil, []uuid.UUID{product.ID, s.products[0].ID, uuid.New()})
	require.NoError(t, err)
	assert.Len(t, products, 2)
	got := products[product.ID]
	assert.True(t, got.UnitPrice.Equal(decimal.RequireFromString("7.25")))
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, category.ID, *got.CategoryID)
	assert.Nil(t, products[s.products[0].ID].CategoryID)

	listed, err := catalog.ListProducts(ctx, s.client.ID)
	require.NoError(t, err)
	assert.Len(t, listed, 3)

	orphan := domain.Product{ID: uuid.New(), Description: "x", UnitPrice: decimal.NewFromInt(1), ClientID: uuid.New()}
	err = catalog.CreateProduct(ctx, nil, &orphan)
	require.ErrorIs(t, err, domain.ErrNotFound)
}
