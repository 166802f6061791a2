package database

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/khatanna/salon-service/internal/models"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBillRepo(t *testing.T) *BillRepository {
	t.Helper()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewBillRepository(newTestStore(t), logger)
}

func TestCreateBillAndListByRange(t *testing.T) {
	repo := newBillRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateBill(ctx, testTenant, &models.BillCreate{
		UserUID: "staff-1",
		Concept: "shampoo",
		Amount:  decimal.NewFromInt(35),
		Date:    localDate(2026, time.August, 10, 11, 0),
	}))
	require.NoError(t, repo.CreateBill(ctx, testTenant, &models.BillCreate{
		UserUID: "staff-2",
		Concept: "toallas",
		Amount:  decimal.NewFromInt(20),
		Date:    localDate(2026, time.August, 12, 16, 30),
	}))

	rng := models.DateRange{
		From: localDate(2026, time.August, 10, 0, 0),
		To:   localDate(2026, time.August, 10, 0, 0),
	}
	bills, err := repo.GetBills(ctx, testTenant, "", rng)
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.Equal(t, "shampoo", bills[0].Concept)
	assert.True(t, bills[0].Amount.Equal(decimal.NewFromInt(35)))

	rng.To = localDate(2026, time.August, 12, 0, 0)
	bills, err = repo.GetBills(ctx, testTenant, "", rng)
	require.NoError(t, err)
	require.Len(t, bills, 2)

	// más reciente primero
	assert.Equal(t, "toallas", bills[0].Concept)
	assert.Equal(t, "shampoo", bills[1].Concept)
}

func TestCreateBillRejectsNegativeAmount(t *testing.T) {
	repo := newBillRepo(t)

	err := repo.CreateBill(context.Background(), testTenant, &models.BillCreate{
		Concept: "propina",
		Amount:  decimal.NewFromInt(-1),
	})
	assert.Error(t, err)
}

func TestCreateBillDefaultsDateToNow(t *testing.T) {
	repo := newBillRepo(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateBill(ctx, testTenant, &models.BillCreate{
		UserUID: "staff-1",
		Concept: "jabón",
		Amount:  decimal.NewFromInt(10),
	}))

	now := time.Now()
	bills, err := repo.GetBills(ctx, testTenant, "", models.DateRange{From: now, To: now})
	require.NoError(t, err)
	require.Len(t, bills, 1)
	assert.WithinDuration(t, now, bills[0].Date, time.Minute)
}
