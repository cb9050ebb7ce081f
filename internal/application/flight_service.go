package application

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-flight-booking/internal/domain/flight"
	redisinfra "github.com/sanosuguru/go-flight-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-flight-booking/internal/pkg/logger"
)

// 空席数キャッシュのTTL
// 座席状態のコミット時に明示的に無効化されるため短めでよい
const seatCacheTTL = 30 * time.Second

type FlightService struct {
	flightRepo flight.Repository
	cache      *redisinfra.AvailabilityCache
}

func NewFlightService(fr flight.Repository, cache *redisinfra.AvailabilityCache) *FlightService {
	return &FlightService{
		flightRepo: fr,
		cache:      cache,
	}
}

type CreateFlightInput struct {
	FlightNumber string
	Origin       string
	Destination  string
	DepartureAt  time.Time
	ArrivalAt    time.Time
	Price        int
	TotalSeats   int
	Columns      int
	Discount     *flight.Discount
}

func (s *FlightService) CreateFlight(ctx context.Context, input CreateFlightInput) (*flight.Flight, error) {
	f := flight.NewFlight(
		input.FlightNumber,
		input.Origin,
		input.Destination,
		input.DepartureAt,
		input.ArrivalAt,
		input.Price,
		input.TotalSeats,
		input.Columns,
	)
	if input.Discount != nil {
		f.Discount = *input.Discount
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	if err := f.Normalize(); err != nil {
		return nil, err
	}

	if err := s.flightRepo.Create(ctx, f); err != nil {
		return nil, err
	}

	logger.Info("便を作成",
		zap.String("flight_id", f.ID),
		zap.String("flight_number", f.FlightNumber),
		zap.Int("total_seats", f.TotalSeats),
	)
	return f, nil
}

func (s *FlightService) GetFlight(ctx context.Context, id string) (*flight.Flight, error) {
	f, err := s.flightRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	return f, nil
}

func (s *FlightService) ListFlights(ctx context.Context, limit, offset int) ([]*flight.Flight, error) {
	if limit <= 0 {
		limit = 20
	}
	flights, err := s.flightRepo.List(ctx, limit, offset)
	if err != nil {
		return nil, err
	}
	for _, f := range flights {
		if err := f.Normalize(); err != nil {
			return nil, err
		}
	}
	return flights, nil
}

type UpdateFlightInput struct {
	Price    *int
	Active   *bool
	Discount *flight.Discount
}

// UpdateFlight は便の基本情報を更新する
// 座席状態（占有ラベル・空席数）はここでは触らない
func (s *FlightService) UpdateFlight(ctx context.Context, id string, input UpdateFlightInput) (*flight.Flight, error) {
	f, err := s.flightRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Price != nil {
		f.Price = *input.Price
	}
	if input.Active != nil {
		f.Active = *input.Active
	}
	if input.Discount != nil {
		f.Discount = *input.Discount
	}
	if err := f.Validate(); err != nil {
		return nil, err
	}
	f.UpdatedAt = time.Now()

	if err := s.flightRepo.Update(ctx, f); err != nil {
		return nil, err
	}
	return f, nil
}

// CountAvailableSeats は便の空席数を返す
// キャッシュヒット時はDBに触れない。ミス時はDBから導出して補充する
func (s *FlightService) CountAvailableSeats(ctx context.Context, flightID string) (int, error) {
	if s.cache != nil {
		count, err := s.cache.GetAvailableCount(ctx, flightID)
		if err == nil {
			return count, nil
		}
		if !errors.Is(err, redisinfra.ErrCacheMiss) {
			logger.Warn("空席数キャッシュの取得エラー", zap.Error(err))
		}
	}

	f, err := s.flightRepo.GetByID(ctx, flightID)
	if err != nil {
		return 0, err
	}
	if err := f.Normalize(); err != nil {
		return 0, err
	}

	if s.cache != nil {
		if err := s.cache.SetAvailableCount(ctx, flightID, f.AvailableSeats, seatCacheTTL); err != nil {
			logger.Warn("空席数キャッシュの保存エラー", zap.Error(err))
		}
	}
	return f.AvailableSeats, nil
}
