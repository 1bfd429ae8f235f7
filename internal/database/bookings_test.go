package database

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"heritageblade/internal/models"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBooking(name string, at time.Time) *models.Booking {
	return &models.Booking{
		ID:        uuid.NewString(),
		Name:      name,
		Phone:     "+254700000000",
		Service:   "Twists - KES 1,500",
		Date:      "2025-12-01",
		Time:      "10:00",
		CreatedAt: at,
		UpdatedAt: at,
	}
}

func TestBookings(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 11, 1, 9, 0, 0, 0, time.UTC)

	t.Run("EmptyList", func(t *testing.T) {
		got, err := db.ListBookings(ctx, models.BookingListLimit)
		require.NoError(t, err)
		assert.NotNil(t, got)
		assert.Empty(t, got)
	})

	t.Run("CreateAndList", func(t *testing.T) {
		first := newBooking("First", base)
		first.Comment = "fade please"
		second := newBooking("Second", base.Add(time.Minute))
		require.NoError(t, db.CreateBooking(ctx, first))
		require.NoError(t, db.CreateBooking(ctx, second))

		got, err := db.ListBookings(ctx, models.BookingListLimit)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "Second", got[0].Name)
		assert.Equal(t, "First", got[1].Name)
		assert.Equal(t, first.ID, got[1].ID)
		assert.Equal(t, "fade please", got[1].Comment)
		assert.True(t, got[1].CreatedAt.Equal(base))
	})

	t.Run("SameTimestampKeepsInsertOrder", func(t *testing.T) {
		at := base.Add(time.Hour)
		a := newBooking("A", at)
		b := newBooking("B", at)
		require.NoError(t, db.CreateBooking(ctx, a))
		require.NoError(t, db.CreateBooking(ctx, b))

		got, err := db.ListBookings(ctx, 2)
		require.NoError(t, err)
		require.Len(t, got, 2)
		assert.Equal(t, "B", got[0].Name)
		assert.Equal(t, "A", got[1].Name)
	})

	t.Run("DuplicateID", func(t *testing.T) {
		b := newBooking("Dup", base)
		require.NoError(t, db.CreateBooking(ctx, b))
		assert.Error(t, db.CreateBooking(ctx, b))
	})
}

func TestListBookings_Limit(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

	for i := 0; i < models.BookingListLimit+5; i++ {
		require.NoError(t, db.CreateBooking(ctx, newBooking(fmt.Sprintf("client-%03d", i), base.Add(time.Duration(i)*time.Second))))
	}

	got, err := db.ListBookings(ctx, models.BookingListLimit)
	require.NoError(t, err)
	require.Len(t, got, models.BookingListLimit)
	assert.Equal(t, fmt.Sprintf("client-%03d", models.BookingListLimit+4), got[0].Name)
	assert.Equal(t, "client-005", got[len(got)-1].Name)
}

func TestBookings_ClosedDB(t *testing.T) {
	logger := zerolog.New(io.Discard)
	db, err := NewDB(":memory:", &logger)
	require.NoError(t, err)
	db.Close()

	ctx := context.Background()
	assert.Error(t, db.CreateBooking(ctx, newBooking("x", time.Now())))
	_, err = db.ListBookings(ctx, 10)
	assert.Error(t, err)
}
