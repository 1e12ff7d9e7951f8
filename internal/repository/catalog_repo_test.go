package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"tourbooking/internal/domain"
)

func TestCatalogRepository_CRUD(t *testing.T) {
	gw := newTestGateway(t)
	tours := NewCatalogRepository[domain.Tour](gw)
	ctx := context.Background()

	active, err := tours.List(ctx, true)
	require.NoError(t, err)
	all, err := tours.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, len(active)+1)

	tour := domain.Tour{Name: "Night Gondola", Location: "Venice", AdultPrice: 70, ChildPrice: 35, Active: true}
	require.NoError(t, tours.Create(ctx, &tour))
	assert.NotZero(t, tour.ID)

	tour.Active = false
	tour.AdultPrice = 75
	require.NoError(t, tours.Update(ctx, tour.ID, &tour))

	got, err := tours.GetByID(ctx, tour.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)
	assert.Equal(t, 75.0, got.AdultPrice)

	require.NoError(t, tours.Delete(ctx, tour.ID))
	_, err = tours.GetByID(ctx, tour.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, tours.Delete(ctx, tour.ID), ErrNotFound)
	assert.ErrorIs(t, tours.Update(ctx, tour.ID, &tour), ErrNotFound)
}

func TestCatalogRepository_GetByIDs(t *testing.T) {
	agents := NewCatalogRepository[domain.Agent](newTestGateway(t))

	rows, err := agents.GetByIDs(context.Background(), []int64{2, 99})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Marco Bellini", rows[0].Name)

	rows, err = agents.GetByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestCustomerRepository_UpsertByEmail(t *testing.T) {
	gw := newTestGateway(t)
	customers := NewCustomerRepository()

	var first, second *domain.Customer
	require.NoError(t, gw.DB().Transaction(func(tx *gorm.DB) error {
		var err error
		first, err = customers.Upsert(tx, "Mario Rossi", " Mario@Test.com ", "+39 111")
		return err
	}))
	require.NoError(t, gw.DB().Transaction(func(tx *gorm.DB) error {
		var err error
		second, err = customers.Upsert(tx, "Mario R.", "mario@test.com", "")
		return err
	}))

	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "mario@test.com", second.Email)

	var stored domain.Customer
	require.NoError(t, gw.DB().First(&stored, first.ID).Error)
	assert.Equal(t, "Mario R.", stored.Name)
	assert.Equal(t, "+39 111", stored.Phone)
}
