package booking

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBooking() *Booking {
	return NewBooking("flight-001", "山田太郎", "taro@example.com", "090-0000-0000",
		time.Now().Add(72*time.Hour), 80000, 3000)
}

func TestNewBooking(t *testing.T) {
	b := newTestBooking()

	assert.True(t, strings.HasPrefix(b.ID, "BK-"))
	assert.Equal(t, StatusPending, b.Status)
	assert.Equal(t, PaymentPending, b.PaymentStatus)
	assert.Nil(t, b.SeatNumber)
	assert.Equal(t, 80000, b.FlightAmount)
	assert.Equal(t, 3000, b.InsuranceAmount)
	assert.Equal(t, 83000, b.TotalAmount)
	assert.False(t, b.SeatReleased)
}

func TestNewBooking_UniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		b := newTestBooking()
		assert.False(t, seen[b.ID], "予約ID %s が重複した", b.ID)
		seen[b.ID] = true
	}
}

func TestBooking_Confirm(t *testing.T) {
	t.Run("保留中の予約を確定できる", func(t *testing.T) {
		b := newTestBooking()

		err := b.Confirm("1A", "gw_123", "order-001")

		require.NoError(t, err)
		assert.Equal(t, StatusConfirmed, b.Status)
		assert.Equal(t, PaymentCompleted, b.PaymentStatus)
		require.NotNil(t, b.SeatNumber)
		assert.Equal(t, "1A", *b.SeatNumber)
		require.NotNil(t, b.PaymentID)
		assert.Equal(t, "gw_123", *b.PaymentID)
		assert.NotNil(t, b.ConfirmedAt)
	})

	t.Run("確定済みの予約は再確定できない", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Confirm("1A", "gw_123", "order-001"))

		err := b.Confirm("1B", "gw_456", "order-002")

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
		assert.Equal(t, "1A", *b.SeatNumber) // 座席は変わらない
	})

	t.Run("キャンセル済みの予約は確定できない", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Cancel("gw_123"))

		err := b.Confirm("1A", "gw_456", "order-002")

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}

func TestBooking_Cancel(t *testing.T) {
	t.Run("保留中の予約をキャンセルできる", func(t *testing.T) {
		b := newTestBooking()

		err := b.Cancel("gw_123")

		require.NoError(t, err)
		assert.Equal(t, StatusCancelled, b.Status)
		assert.Equal(t, PaymentFailed, b.PaymentStatus)
	})

	t.Run("確定済みの予約はキャンセルできない", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Confirm("1A", "gw_123", "order-001"))

		err := b.Cancel("gw_456")

		assert.ErrorIs(t, err, ErrInvalidStateTransition)
	})
}

func TestBooking_Refund(t *testing.T) {
	t.Run("確定済みの予約を返金できる", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Confirm("1A", "gw_123", "order-001"))

		err := b.Refund()

		require.NoError(t, err)
		assert.Equal(t, StatusRefunded, b.Status)
		assert.Equal(t, PaymentRefunded, b.PaymentStatus)
	})

	t.Run("保留中の予約は返金できない", func(t *testing.T) {
		b := newTestBooking()

		assert.ErrorIs(t, b.Refund(), ErrInvalidStateTransition)
	})

	t.Run("キャンセル済みの予約は返金できない", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Cancel(""))

		assert.ErrorIs(t, b.Refund(), ErrInvalidStateTransition)
	})
}

func TestBooking_MarkSeatReleased(t *testing.T) {
	b := newTestBooking()

	assert.True(t, b.MarkSeatReleased())
	// 二回目は no-op
	assert.False(t, b.MarkSeatReleased())
	assert.True(t, b.SeatReleased)
}

func TestBooking_IsReplayOf(t *testing.T) {
	t.Run("同一決済IDの完了通知は再送と判定される", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Confirm("1A", "gw_123", "order-001"))

		assert.True(t, b.IsReplayOf("gw_123", PaymentCompleted))
	})

	t.Run("異なる決済IDは再送ではない", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Confirm("1A", "gw_123", "order-001"))

		assert.False(t, b.IsReplayOf("gw_999", PaymentCompleted))
	})

	t.Run("保留中の予約への通知は再送ではない", func(t *testing.T) {
		b := newTestBooking()

		assert.False(t, b.IsReplayOf("gw_123", PaymentCompleted))
	})

	t.Run("同一決済IDの失敗通知はキャンセル済み予約への再送", func(t *testing.T) {
		b := newTestBooking()
		require.NoError(t, b.Cancel("gw_123"))

		assert.True(t, b.IsReplayOf("gw_123", PaymentFailed))
		assert.False(t, b.IsReplayOf("gw_123", PaymentCompleted))
	})
}

func TestBooking_IsTerminal(t *testing.T) {
	b := newTestBooking()
	assert.False(t, b.IsTerminal())

	require.NoError(t, b.Confirm("1A", "gw_123", ""))
	assert.False(t, b.IsTerminal())

	require.NoError(t, b.Refund())
	assert.True(t, b.IsTerminal())
}

func TestBooking_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(b *Booking)
		expectedErr error
	}{
		{
			name:   "有効な予約",
			mutate: func(b *Booking) {},
		},
		{
			name:        "便IDなし",
			mutate:      func(b *Booking) { b.FlightID = "" },
			expectedErr: ErrFlightIDRequired,
		},
		{
			name:        "搭乗者名なし",
			mutate:      func(b *Booking) { b.PassengerName = "" },
			expectedErr: ErrPassengerNameRequired,
		},
		{
			name:        "連絡先メールなし",
			mutate:      func(b *Booking) { b.ContactEmail = "" },
			expectedErr: ErrContactEmailRequired,
		},
		{
			name:        "搭乗日なし",
			mutate:      func(b *Booking) { b.TravelDate = time.Time{} },
			expectedErr: ErrTravelDateRequired,
		},
		{
			name:        "負の合計金額",
			mutate:      func(b *Booking) { b.TotalAmount = -1 },
			expectedErr: ErrInvalidAmount,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := newTestBooking()
			tt.mutate(b)

			err := b.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
