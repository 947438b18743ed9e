package catalog_test

import (
	"context"
	"errors"
	"testing"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/golang/mock/gomock"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/vladislavdragonenkov/commerce/internal/domain"
	"github.com/vladislavdragonenkov/commerce/internal/service/catalog"
	"github.com/vladislavdragonenkov/commerce/internal/storage/memory"
	"github.com/vladislavdragonenkov/commerce/internal/storage/mocks"
)

func randomProduct() domain.CreateProduct {
	return domain.CreateProduct{
		Name:     gofakeit.ProductName(),
		Price:    decimal.NewFromFloat(gofakeit.Price(1, 500)).Round(2),
		Quantity: gofakeit.Number(1, 100),
	}
}

func TestCreate_AddsProduct(t *testing.T) {
	repo := memory.NewProductRepository()
	svc := catalog.NewService(repo, nil, nil)

	data := randomProduct()
	created, err := svc.Create(context.Background(), data)
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, data.Quantity, created.Quantity)
	require.True(t, data.Price.Equal(created.Price))

	stored, ok := repo.Get(created.ID)
	require.True(t, ok)
	require.Equal(t, data.Name, stored.Name)
}

func TestCreate_DuplicateName(t *testing.T) {
	repo := memory.NewProductRepository()
	svc := catalog.NewService(repo, nil, nil)
	data := randomProduct()

	_, err := svc.Create(context.Background(), data)
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), data)
	require.ErrorIs(t, err, domain.ErrDuplicateProductName)
	require.EqualError(t, err, "There is already one product with this name")
}

func TestCreate_DuplicateNameDoesNotWrite(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	repo := mocks.NewMockProductRepository(ctrl)
	data := randomProduct()
	repo.EXPECT().FindByName(gomock.Any(), data.Name).Return(domain.Product{ID: "p-1", Name: data.Name}, true, nil)

	svc := catalog.NewService(repo, nil, nil)
	_, err := svc.Create(context.Background(), data)
	require.ErrorIs(t, err, domain.ErrDuplicateProductName)
}

func TestCreate_LookupError(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	lookupErr := errors.New("timeout")
	repo := mocks.NewMockProductRepository(ctrl)
	repo.EXPECT().FindByName(gomock.Any(), gomock.Any()).Return(domain.Product{}, false, lookupErr)

	svc := catalog.NewService(repo, nil, nil)
	_, err := svc.Create(context.Background(), randomProduct())
	require.Same(t, lookupErr, err)
}
