package handler

import (
	"context"

	"github.com/sanosuguru/go-flight-booking/internal/application"
	"github.com/sanosuguru/go-flight-booking/internal/domain/booking"
	"github.com/sanosuguru/go-flight-booking/internal/domain/flight"
	"github.com/sanosuguru/go-flight-booking/internal/domain/insurance"
	"github.com/sanosuguru/go-flight-booking/internal/domain/payment"
)

// FlightServiceInterface は便サービスのインターフェース
type FlightServiceInterface interface {
	CreateFlight(ctx context.Context, input application.CreateFlightInput) (*flight.Flight, error)
	GetFlight(ctx context.Context, id string) (*flight.Flight, error)
	ListFlights(ctx context.Context, limit, offset int) ([]*flight.Flight, error)
	UpdateFlight(ctx context.Context, id string, input application.UpdateFlightInput) (*flight.Flight, error)
	CountAvailableSeats(ctx context.Context, flightID string) (int, error)
}

// BookingServiceInterface は予約サービスのインターフェース
type BookingServiceInterface interface {
	CreateBooking(ctx context.Context, input application.CreateBookingInput) (*booking.Booking, error)
	GetBooking(ctx context.Context, id string) (*booking.Booking, error)
	GetUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error)
	ApplyPaymentOutcome(ctx context.Context, bookingID string, outcome payment.Outcome) (*booking.Booking, error)
	RefundBooking(ctx context.Context, id string) (*booking.Booking, error)
}

// InsuranceServiceInterface は保険プランサービスのインターフェース
type InsuranceServiceInterface interface {
	CreateInsurance(ctx context.Context, input application.CreateInsuranceInput) (*insurance.Insurance, error)
	GetInsurance(ctx context.Context, id string) (*insurance.Insurance, error)
	ListInsurances(ctx context.Context) ([]*insurance.Insurance, error)
}
