package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-flight-booking/internal/domain/flight"
	"github.com/sanosuguru/go-flight-booking/internal/domain/seat"
	"github.com/sanosuguru/go-flight-booking/internal/domain/transaction"
)

type flightRow struct {
	ID             string         `db:"id"`
	FlightNumber   string         `db:"flight_number"`
	Origin         string         `db:"origin"`
	Destination    string         `db:"destination"`
	DepartureAt    time.Time      `db:"departure_at"`
	ArrivalAt      time.Time      `db:"arrival_at"`
	Price          int            `db:"price"`
	HasDiscount    bool           `db:"has_discount"`
	DiscountType   sql.NullString `db:"discount_type"`
	DiscountValue  int            `db:"discount_value"`
	TotalSeats     int            `db:"total_seats"`
	MatrixRows     int            `db:"matrix_rows"`
	MatrixColumns  int            `db:"matrix_columns"`
	OccupiedSeats  pq.StringArray `db:"occupied_seats"`
	AvailableSeats int            `db:"available_seats"`
	Active         bool           `db:"active"`
	CreatedAt      time.Time      `db:"created_at"`
	UpdatedAt      time.Time      `db:"updated_at"`
	Version        int            `db:"version"`
}

func (r *flightRow) toEntity() *flight.Flight {
	return &flight.Flight{
		ID:           r.ID,
		FlightNumber: r.FlightNumber,
		Origin:       r.Origin,
		Destination:  r.Destination,
		DepartureAt:  r.DepartureAt,
		ArrivalAt:    r.ArrivalAt,
		Price:        r.Price,
		Discount: flight.Discount{
			HasDiscount: r.HasDiscount,
			Type:        flight.DiscountType(r.DiscountType.String),
			Value:       r.DiscountValue,
		},
		TotalSeats: r.TotalSeats,
		Matrix: seat.Matrix{
			Rows:     r.MatrixRows,
			Columns:  r.MatrixColumns,
			Occupied: []string(r.OccupiedSeats),
		},
		AvailableSeats: r.AvailableSeats,
		Active:         r.Active,
		CreatedAt:      r.CreatedAt,
		UpdatedAt:      r.UpdatedAt,
		Version:        r.Version,
	}
}

const flightColumns = `id, flight_number, origin, destination, departure_at, arrival_at, price, has_discount, discount_type, discount_value, total_seats, matrix_rows, matrix_columns, occupied_seats, available_seats, active, created_at, updated_at, version`

type FlightRepository struct{ db *sqlx.DB }

func NewFlightRepository(db *sqlx.DB) *FlightRepository { return &FlightRepository{db: db} }

func (r *FlightRepository) Create(ctx context.Context, f *flight.Flight) error {
	query := `INSERT INTO flights (flight_number, origin, destination, departure_at, arrival_at, price, has_discount, discount_type, discount_value, total_seats, matrix_rows, matrix_columns, occupied_seats, available_seats, active, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18) RETURNING id`
	return r.db.QueryRowContext(ctx, query,
		f.FlightNumber, f.Origin, f.Destination, f.DepartureAt, f.ArrivalAt,
		f.Price, f.Discount.HasDiscount, nullString(string(f.Discount.Type)), f.Discount.Value,
		f.TotalSeats, f.Matrix.Rows, f.Matrix.Columns, pq.Array(f.Matrix.Occupied),
		f.AvailableSeats, f.Active, f.CreatedAt, f.UpdatedAt, f.Version,
	).Scan(&f.ID)
}

func (r *FlightRepository) GetByID(ctx context.Context, id string) (*flight.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights WHERE id = $1`
	var row flightRow
	if err := r.db.GetContext(ctx, &row, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, flight.ErrFlightNotFound
		}
		return nil, fmt.Errorf("便取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *FlightRepository) List(ctx context.Context, limit, offset int) ([]*flight.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights ORDER BY departure_at LIMIT $1 OFFSET $2`
	var rows []flightRow
	if err := r.db.SelectContext(ctx, &rows, query, limit, offset); err != nil {
		return nil, fmt.Errorf("便一覧取得に失敗: %w", err)
	}
	flights := make([]*flight.Flight, len(rows))
	for i, row := range rows {
		flights[i] = row.toEntity()
	}
	return flights, nil
}

func (r *FlightRepository) Update(ctx context.Context, f *flight.Flight) error {
	query := `UPDATE flights SET flight_number = $1, origin = $2, destination = $3, departure_at = $4, arrival_at = $5, price = $6, has_discount = $7, discount_type = $8, discount_value = $9, active = $10, updated_at = NOW() WHERE id = $11`
	result, err := r.db.ExecContext(ctx, query,
		f.FlightNumber, f.Origin, f.Destination, f.DepartureAt, f.ArrivalAt,
		f.Price, f.Discount.HasDiscount, nullString(string(f.Discount.Type)), f.Discount.Value,
		f.Active, f.ID,
	)
	if err != nil {
		return fmt.Errorf("便更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return flight.ErrFlightNotFound
	}
	return nil
}

// UpdateSeatState は座席状態をバージョン条件付きで更新する（CAS）
// 読み出し時のバージョンと一致しない場合は ErrSeatStateConflict を返す
func (r *FlightRepository) UpdateSeatState(ctx context.Context, tx transaction.Tx, f *flight.Flight) error {
	sqlxTx := UnwrapTx(tx)
	if sqlxTx == nil {
		return fmt.Errorf("トランザクションが不正です")
	}
	query := `UPDATE flights SET occupied_seats = $1, available_seats = $2, matrix_rows = $3, updated_at = NOW(), version = version + 1 WHERE id = $4 AND version = $5`
	result, err := sqlxTx.ExecContext(ctx, query,
		pq.Array(f.Matrix.Occupied), f.AvailableSeats, f.Matrix.Rows, f.ID, f.Version,
	)
	if err != nil {
		return fmt.Errorf("座席状態更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// 便が存在しないのか競合なのかを区別する
		var exists bool
		if err := sqlxTx.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM flights WHERE id = $1)`, f.ID); err != nil {
			return fmt.Errorf("便確認に失敗: %w", err)
		}
		if !exists {
			return flight.ErrFlightNotFound
		}
		return flight.ErrSeatStateConflict
	}
	f.Version++
	return nil
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

var _ flight.Repository = (*FlightRepository)(nil)
