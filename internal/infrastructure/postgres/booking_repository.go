package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-flight-booking/internal/domain/booking"
	"github.com/sanosuguru/go-flight-booking/internal/domain/transaction"
)

type bookingRow struct {
	ID              string     `db:"id"`
	FlightID        string     `db:"flight_id"`
	UserID          *string    `db:"user_id"`
	InsuranceID     *string    `db:"insurance_id"`
	PassengerName   string     `db:"passenger_name"`
	ContactEmail    string     `db:"contact_email"`
	ContactPhone    string     `db:"contact_phone"`
	TravelDate      time.Time  `db:"travel_date"`
	Status          string     `db:"status"`
	PaymentStatus   string     `db:"payment_status"`
	SeatNumber      *string    `db:"seat_number"`
	FlightAmount    int        `db:"flight_amount"`
	InsuranceAmount int        `db:"insurance_amount"`
	TotalAmount     int        `db:"total_amount"`
	PaymentID       *string    `db:"payment_id"`
	OrderID         *string    `db:"order_id"`
	SeatReleased    bool       `db:"seat_released"`
	ConfirmedAt     *time.Time `db:"confirmed_at"`
	CreatedAt       time.Time  `db:"created_at"`
	UpdatedAt       time.Time  `db:"updated_at"`
}

func (r *bookingRow) toEntity() *booking.Booking {
	return &booking.Booking{
		ID:              r.ID,
		FlightID:        r.FlightID,
		UserID:          r.UserID,
		InsuranceID:     r.InsuranceID,
		PassengerName:   r.PassengerName,
		ContactEmail:    r.ContactEmail,
		ContactPhone:    r.ContactPhone,
		TravelDate:      r.TravelDate,
		Status:          booking.Status(r.Status),
		PaymentStatus:   booking.PaymentStatus(r.PaymentStatus),
		SeatNumber:      r.SeatNumber,
		FlightAmount:    r.FlightAmount,
		InsuranceAmount: r.InsuranceAmount,
		TotalAmount:     r.TotalAmount,
		PaymentID:       r.PaymentID,
		OrderID:         r.OrderID,
		SeatReleased:    r.SeatReleased,
		ConfirmedAt:     r.ConfirmedAt,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

const bookingColumns = `id, flight_id, user_id, insurance_id, passenger_name, contact_email, contact_phone, travel_date, status, payment_status, seat_number, flight_amount, insurance_amount, total_amount, payment_id, order_id, seat_released, confirmed_at, created_at, updated_at`

type BookingRepository struct{ db *sqlx.DB }

func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) Create(ctx context.Context, b *booking.Booking) error {
	query := `INSERT INTO bookings (id, flight_id, user_id, insurance_id, passenger_name, contact_email, contact_phone, travel_date, status, payment_status, seat_number, flight_amount, insurance_amount, total_amount, payment_id, order_id, seat_released, confirmed_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`
	_, err := r.db.ExecContext(ctx, query,
		b.ID, b.FlightID, b.UserID, b.InsuranceID, b.PassengerName,
		b.ContactEmail, b.ContactPhone, b.TravelDate,
		string(b.Status), string(b.PaymentStatus), b.SeatNumber,
		b.FlightAmount, b.InsuranceAmount, b.TotalAmount,
		b.PaymentID, b.OrderID, b.SeatReleased, b.ConfirmedAt,
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *BookingRepository) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var row bookingRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, booking.ErrBookingNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *BookingRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`
	var rows []bookingRow
	if err := r.db.SelectContext(ctx, &rows, query, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	result := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

// UpdateStatusFrom は status = from の行だけを更新する条件付きUPDATE
// 並行するコールバックが先に遷移させた場合は ErrStateConflict を返す
func (r *BookingRepository) UpdateStatusFrom(ctx context.Context, tx transaction.Tx, b *booking.Booking, from booking.Status) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	query := `UPDATE bookings SET status = $1, payment_status = $2, seat_number = $3, payment_id = $4, order_id = $5, seat_released = $6, confirmed_at = $7, updated_at = $8 WHERE id = $9 AND status = $10`
	result, err := sqlxTx.ExecContext(ctx, query,
		string(b.Status), string(b.PaymentStatus), b.SeatNumber,
		b.PaymentID, b.OrderID, b.SeatReleased, b.ConfirmedAt, b.UpdatedAt, b.ID,
		string(from),
	)
	if err != nil {
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		var exists bool
		if err := sqlxTx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, b.ID); err != nil {
			return fmt.Errorf("予約更新に失敗: %w", err)
		}
		if !exists {
			return booking.ErrBookingNotFound
		}
		return booking.ErrStateConflict
	}
	return nil
}

func (r *BookingRepository) GetStalePending(ctx context.Context, olderThan time.Duration) ([]*booking.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE status = 'pending' AND created_at < $1`
	var rows []bookingRow
	cutoff := time.Now().Add(-olderThan)
	if err := r.db.SelectContext(ctx, &rows, query, cutoff); err != nil {
		return nil, fmt.Errorf("放置予約取得に失敗: %w", err)
	}
	result := make([]*booking.Booking, len(rows))
	for i, row := range rows {
		result[i] = row.toEntity()
	}
	return result, nil
}

var _ booking.Repository = (*BookingRepository)(nil)
