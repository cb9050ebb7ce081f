package booking

import (
	"crypto/rand"
	"encoding/hex"
	"time"
)

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusRefunded  Status = "refunded"
)

// PaymentStatus は予約に紐づく決済の状態を表す
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
	PaymentRefunded  PaymentStatus = "refunded"
)

// Booking は予約エンティティを表す
// 座席は作成時には確保せず、決済完了時に初めて割り当てる
type Booking struct {
	ID              string
	FlightID        string
	UserID          *string
	InsuranceID     *string
	PassengerName   string
	ContactEmail    string
	ContactPhone    string
	TravelDate      time.Time
	Status          Status
	PaymentStatus   PaymentStatus
	SeatNumber      *string
	FlightAmount    int
	InsuranceAmount int
	TotalAmount     int
	PaymentID       *string
	OrderID         *string
	SeatReleased    bool
	ConfirmedAt     *time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// NewBooking は新しい予約を pending/pending で作成する
// IDはタイムスタンプ＋乱数の複合で、人間が転記できる形式
func NewBooking(flightID, passengerName, contactEmail, contactPhone string, travelDate time.Time, flightAmount, insuranceAmount int) *Booking {
	now := time.Now()
	return &Booking{
		ID:              newBookingID(now),
		FlightID:        flightID,
		PassengerName:   passengerName,
		ContactEmail:    contactEmail,
		ContactPhone:    contactPhone,
		TravelDate:      travelDate,
		Status:          StatusPending,
		PaymentStatus:   PaymentPending,
		FlightAmount:    flightAmount,
		InsuranceAmount: insuranceAmount,
		TotalAmount:     flightAmount + insuranceAmount,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func newBookingID(now time.Time) string {
	buf := make([]byte, 3)
	_, _ = rand.Read(buf)
	return "BK-" + now.Format("20060102150405") + "-" + hex.EncodeToString(buf)
}

// IsPending は予約が保留中かを返す
func (b *Booking) IsPending() bool {
	return b.Status == StatusPending
}

// IsTerminal は予約が終端状態（キャンセル済み・返金済み）かを返す
func (b *Booking) IsTerminal() bool {
	return b.Status == StatusCancelled || b.Status == StatusRefunded
}

// Confirm は決済完了を受けて予約を確定し、座席を紐づける
func (b *Booking) Confirm(seatNumber, paymentID, orderID string) error {
	if b.Status != StatusPending {
		return ErrInvalidStateTransition
	}
	now := time.Now()
	b.Status = StatusConfirmed
	b.PaymentStatus = PaymentCompleted
	b.SeatNumber = &seatNumber
	b.PaymentID = &paymentID
	if orderID != "" {
		b.OrderID = &orderID
	}
	b.ConfirmedAt = &now
	b.UpdatedAt = now
	return nil
}

// Cancel は決済失敗を受けて予約をキャンセルする
func (b *Booking) Cancel(paymentID string) error {
	if b.Status != StatusPending {
		return ErrInvalidStateTransition
	}
	b.Status = StatusCancelled
	b.PaymentStatus = PaymentFailed
	if paymentID != "" {
		b.PaymentID = &paymentID
	}
	b.UpdatedAt = time.Now()
	return nil
}

// Refund は確定済み予約を返金済みにする
// refunded へは confirmed からのみ到達できる
func (b *Booking) Refund() error {
	if b.Status != StatusConfirmed {
		return ErrInvalidStateTransition
	}
	b.Status = StatusRefunded
	b.PaymentStatus = PaymentRefunded
	b.UpdatedAt = time.Now()
	return nil
}

// MarkSeatReleased は座席解放済みフラグを立てる
// 既に解放済みの場合は false を返す（二重解放の防止）
func (b *Booking) MarkSeatReleased() bool {
	if b.SeatReleased {
		return false
	}
	b.SeatReleased = true
	b.UpdatedAt = time.Now()
	return true
}

// IsReplayOf は同一の決済結果が既に適用済みかを返す
// ゲートウェイのコールバック再送を no-op として受け流すための判定
func (b *Booking) IsReplayOf(paymentID string, status PaymentStatus) bool {
	if b.PaymentID == nil || *b.PaymentID != paymentID {
		return false
	}
	switch status {
	case PaymentCompleted:
		return b.Status == StatusConfirmed && b.PaymentStatus == PaymentCompleted
	case PaymentFailed:
		return b.Status == StatusCancelled && b.PaymentStatus == PaymentFailed
	}
	return false
}

// Validate は予約の検証を行う
func (b *Booking) Validate() error {
	if b.FlightID == "" {
		return ErrFlightIDRequired
	}
	if b.PassengerName == "" {
		return ErrPassengerNameRequired
	}
	if b.ContactEmail == "" {
		return ErrContactEmailRequired
	}
	if b.TravelDate.IsZero() {
		return ErrTravelDateRequired
	}
	if b.TotalAmount < 0 {
		return ErrInvalidAmount
	}
	return nil
}
