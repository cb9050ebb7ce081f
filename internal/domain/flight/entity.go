package flight

import (
	"time"

	"github.com/sanosuguru/go-flight-booking/internal/domain/seat"
)

const (
	// MaxTotalSeats は1便あたりの座席数の上限
	MaxTotalSeats = 400
	// DefaultColumns は列数が未指定の場合の座席マトリクス列数
	DefaultColumns = 6
)

// DiscountType は割引の種別を表す
type DiscountType string

const (
	DiscountPercentage DiscountType = "percentage"
	DiscountFixed      DiscountType = "fixed"
)

// Discount は便の割引設定を表す
type Discount struct {
	HasDiscount bool
	Type        DiscountType
	Value       int
}

// Flight は便エンティティを表す
type Flight struct {
	ID             string
	FlightNumber   string
	Origin         string
	Destination    string
	DepartureAt    time.Time
	ArrivalAt      time.Time
	Price          int
	Discount       Discount
	TotalSeats     int
	Matrix         seat.Matrix
	AvailableSeats int
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Version        int // 楽観的ロック用
}

// NewFlight は新しい便を作成する
func NewFlight(flightNumber, origin, destination string, departureAt, arrivalAt time.Time, price, totalSeats, columns int) *Flight {
	now := time.Now()
	if columns <= 0 {
		columns = DefaultColumns
	}
	f := &Flight{
		FlightNumber: flightNumber,
		Origin:       origin,
		Destination:  destination,
		DepartureAt:  departureAt,
		ArrivalAt:    arrivalAt,
		Price:        price,
		TotalSeats:   totalSeats,
		Matrix:       seat.NewMatrix(0, columns),
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
		Version:      0,
	}
	f.Normalize()
	return f
}

// Normalize は座席マトリクスの整合性を回復する
// 行×列が総座席数に満たない場合は行数を再計算し、
// 空席数を総座席数−占有数として再導出する
func (f *Flight) Normalize() error {
	if f.TotalSeats < 1 || f.TotalSeats > MaxTotalSeats {
		return ErrInvalidTotalSeats
	}
	if f.Matrix.Columns <= 0 {
		f.Matrix.Columns = DefaultColumns
	}
	if f.Matrix.Columns > seat.MaxColumns {
		f.Matrix.Columns = seat.MaxColumns
	}
	if f.Matrix.Rows*f.Matrix.Columns < f.TotalSeats {
		f.Matrix.Rows = (f.TotalSeats + f.Matrix.Columns - 1) / f.Matrix.Columns
	}
	f.AvailableSeats = f.TotalSeats - f.Matrix.OccupiedCount()
	return nil
}

// Validate は便の検証を行う
func (f *Flight) Validate() error {
	if f.FlightNumber == "" {
		return ErrFlightNumberRequired
	}
	if f.Price < 0 {
		return ErrInvalidPrice
	}
	if f.TotalSeats < 1 || f.TotalSeats > MaxTotalSeats {
		return ErrInvalidTotalSeats
	}
	if f.ArrivalAt.Before(f.DepartureAt) {
		return ErrInvalidFlightTime
	}
	if f.Discount.HasDiscount {
		if f.Discount.Type != DiscountPercentage && f.Discount.Type != DiscountFixed {
			return ErrInvalidDiscount
		}
		if f.Discount.Value < 0 {
			return ErrInvalidDiscount
		}
		if f.Discount.Type == DiscountPercentage && f.Discount.Value > 100 {
			return ErrInvalidDiscount
		}
	}
	return nil
}

// IsBookable は便が予約受付中かを返す
func (f *Flight) IsBookable() bool {
	return f.Active && f.AvailableSeats > 0
}

// DiscountedPrice は割引適用後の運賃を返す
// percentage: price×(100−pct)/100、fixed: max(0, price−value)
func (f *Flight) DiscountedPrice() int {
	if !f.Discount.HasDiscount {
		return f.Price
	}
	switch f.Discount.Type {
	case DiscountPercentage:
		return f.Price * (100 - f.Discount.Value) / 100
	case DiscountFixed:
		if f.Discount.Value >= f.Price {
			return 0
		}
		return f.Price - f.Discount.Value
	}
	return f.Price
}

// AllocateSeat はAllocatorで空席を1席選んで占有し、ラベルを返す
func (f *Flight) AllocateSeat(allocator *seat.Allocator) (string, error) {
	if err := f.Normalize(); err != nil {
		return "", err
	}
	label, err := allocator.Allocate(&f.Matrix, f.TotalSeats)
	if err != nil {
		return "", err
	}
	f.AvailableSeats = f.TotalSeats - f.Matrix.OccupiedCount()
	f.UpdatedAt = time.Now()
	return label, nil
}

// ReleaseSeat は占有済み座席を解放する
// マトリクス外のラベルは ErrInvalidSeatLabel を返す
func (f *Flight) ReleaseSeat(label string) error {
	if !f.Matrix.IsValidLabel(label, f.TotalSeats) {
		return seat.ErrInvalidSeatLabel
	}
	if err := f.Matrix.Release(label); err != nil {
		return err
	}
	f.AvailableSeats = f.TotalSeats - f.Matrix.OccupiedCount()
	f.UpdatedAt = time.Now()
	return nil
}
