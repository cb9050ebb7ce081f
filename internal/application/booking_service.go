package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/sanosuguru/go-flight-booking/internal/domain/booking"
	"github.com/sanosuguru/go-flight-booking/internal/domain/flight"
	"github.com/sanosuguru/go-flight-booking/internal/domain/insurance"
	"github.com/sanosuguru/go-flight-booking/internal/domain/payment"
	"github.com/sanosuguru/go-flight-booking/internal/domain/seat"
	"github.com/sanosuguru/go-flight-booking/internal/domain/transaction"
	redislock "github.com/sanosuguru/go-flight-booking/internal/infrastructure/redis"
	"github.com/sanosuguru/go-flight-booking/internal/pkg/logger"
	"github.com/sanosuguru/go-flight-booking/internal/pkg/metrics"
)

const (
	// 分散ロックのTTLとリトライ設定
	flightLockTTL        = 10 * time.Second
	flightLockRetries    = 3
	flightLockRetryDelay = 100 * time.Millisecond

	// 座席状態CASのリトライ上限
	maxSeatStateRetries = 3
)

type BookingService struct {
	txManager     transaction.Manager
	bookingRepo   booking.Repository
	flightRepo    flight.Repository
	insuranceRepo insurance.Repository
	verifier      payment.Verifier
	allocator     *seat.Allocator
	lockManager   *redislock.LockManager
	cache         *redislock.AvailabilityCache
}

func NewBookingService(
	tm transaction.Manager,
	br booking.Repository,
	fr flight.Repository,
	ir insurance.Repository,
	verifier payment.Verifier,
	allocator *seat.Allocator,
	lm *redislock.LockManager,
	cache *redislock.AvailabilityCache,
) *BookingService {
	if allocator == nil {
		allocator = seat.NewAllocator(nil)
	}
	return &BookingService{
		txManager:     tm,
		bookingRepo:   br,
		flightRepo:    fr,
		insuranceRepo: ir,
		verifier:      verifier,
		allocator:     allocator,
		lockManager:   lm,
		cache:         cache,
	}
}

type CreateBookingInput struct {
	FlightID      string
	UserID        string
	InsuranceID   string
	PassengerName string
	ContactEmail  string
	ContactPhone  string
	TravelDate    time.Time
}

// CreateBooking は予約を pending/pending で作成する
// 座席はまだ確保しない。空席チェックは楽観的なガードであり、
// 確定時にロック配下で改めて検査される
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*booking.Booking, error) {
	f, err := s.flightRepo.GetByID(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if err := f.Normalize(); err != nil {
		return nil, err
	}
	if !f.IsBookable() {
		return nil, flight.ErrFlightNotBookable
	}

	// 金額は作成時点で凍結する。以降の運賃・割引変更は既存予約に影響しない
	flightAmount := f.DiscountedPrice()
	insuranceAmount := 0
	if input.InsuranceID != "" {
		ins, err := s.insuranceRepo.GetByID(ctx, input.InsuranceID)
		if err != nil {
			return nil, err
		}
		if !ins.Active {
			return nil, insurance.ErrInsuranceNotActive
		}
		insuranceAmount = ins.Price
	}

	b := booking.NewBooking(input.FlightID, input.PassengerName, input.ContactEmail, input.ContactPhone, input.TravelDate, flightAmount, insuranceAmount)
	if input.UserID != "" {
		b.UserID = &input.UserID
	}
	if input.InsuranceID != "" {
		b.InsuranceID = &input.InsuranceID
	}
	if err := b.Validate(); err != nil {
		return nil, err
	}

	if err := s.bookingRepo.Create(ctx, b); err != nil {
		return nil, err
	}

	if m := metrics.Get(); m != nil {
		m.ActiveBookings.WithLabelValues(string(booking.StatusPending)).Inc()
	}
	logger.Info("予約を作成",
		zap.String("booking_id", b.ID),
		zap.String("flight_id", b.FlightID),
		zap.Int("total_amount", b.TotalAmount),
	)
	return b, nil
}

// ApplyPaymentOutcome はゲートウェイからの決済結果を予約に適用する
// 完了なら座席を割り当てて確定、失敗ならキャンセルする
// 同一結果の再送は no-op として成功を返す
func (s *BookingService) ApplyPaymentOutcome(ctx context.Context, bookingID string, outcome payment.Outcome) (*booking.Booking, error) {
	if err := outcome.Validate(); err != nil {
		return nil, err
	}

	b, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	// コールバック再送の冪等処理
	if b.IsReplayOf(outcome.PaymentID, booking.PaymentStatus(outcome.Status)) {
		logger.Info("決済結果の再送を無視",
			zap.String("booking_id", b.ID),
			zap.String("payment_id", outcome.PaymentID),
		)
		return b, nil
	}
	if !b.IsPending() {
		s.countOutcome("invalid_transition")
		return nil, booking.ErrInvalidStateTransition
	}

	if err := s.verifier.Verify(outcome); err != nil {
		s.countOutcome("verification_failed")
		return nil, err
	}

	switch outcome.Status {
	case payment.OutcomeCompleted:
		return s.confirmWithSeat(ctx, b, outcome)
	case payment.OutcomeFailed:
		return s.cancelBooking(ctx, b, outcome)
	}
	return nil, payment.ErrInvalidOutcome
}

// confirmWithSeat は便単位のロックとCASの配下で座席を割り当て、
// 便の座席状態と予約をひとつのトランザクションで永続化する
func (s *BookingService) confirmWithSeat(ctx context.Context, b *booking.Booking, outcome payment.Outcome) (*booking.Booking, error) {
	release, err := s.acquireFlightLock(ctx, b.FlightID)
	if err != nil {
		s.countOutcome("contention")
		return nil, err
	}
	defer release()

	start := time.Now()
	for attempt := 0; attempt < maxSeatStateRetries; attempt++ {
		// ロック配下で予約を読み直し、並行コールバックによる遷移を検出する
		cur, err := s.bookingRepo.GetByID(ctx, b.ID)
		if err != nil {
			return nil, err
		}
		if cur.IsReplayOf(outcome.PaymentID, booking.PaymentCompleted) {
			logger.Info("決済結果の再送を無視",
				zap.String("booking_id", cur.ID),
				zap.String("payment_id", outcome.PaymentID),
			)
			return cur, nil
		}
		if !cur.IsPending() {
			s.countOutcome("invalid_transition")
			return nil, booking.ErrInvalidStateTransition
		}

		f, err := s.flightRepo.GetByID(ctx, b.FlightID)
		if err != nil {
			return nil, err
		}

		label, err := f.AllocateSeat(s.allocator)
		if err != nil {
			if errors.Is(err, seat.ErrNoSeatsAvailable) {
				// 満席。予約は pending のまま変更しない
				s.countOutcome("capacity_exhausted")
				s.observeAllocation(start, "failed")
				return nil, seat.ErrNoSeatsAvailable
			}
			return nil, err
		}

		committed, err := s.commitConfirmation(ctx, f, cur, label, outcome)
		if err != nil {
			if errors.Is(err, flight.ErrSeatStateConflict) || errors.Is(err, booking.ErrStateConflict) {
				// 他の確定処理と競合した。便と予約を読み直して再試行
				logger.Debug("確定処理が競合",
					zap.String("flight_id", f.ID),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			s.observeAllocation(start, "failed")
			return nil, err
		}

		s.invalidateCache(ctx, f.ID)
		s.countOutcome("confirmed")
		s.observeAllocation(start, "success")
		if m := metrics.Get(); m != nil {
			m.ActiveBookings.WithLabelValues(string(booking.StatusPending)).Dec()
			m.ActiveBookings.WithLabelValues(string(booking.StatusConfirmed)).Inc()
		}
		logger.Info("予約を確定",
			zap.String("booking_id", committed.ID),
			zap.String("flight_id", f.ID),
			zap.String("seat_number", label),
			zap.Int("available_seats", f.AvailableSeats),
		)
		return committed, nil
	}

	s.countOutcome("contention")
	s.observeAllocation(start, "failed")
	return nil, booking.ErrAllocationContention
}

// commitConfirmation は座席状態と予約確定を単一トランザクションで書き込む
func (s *BookingService) commitConfirmation(ctx context.Context, f *flight.Flight, b *booking.Booking, label string, outcome payment.Outcome) (*booking.Booking, error) {
	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()

	// CASを先に実行し、競合時は予約エンティティに触れない
	if err := s.flightRepo.UpdateSeatState(ctx, tx, f); err != nil {
		return nil, err
	}
	if err := b.Confirm(label, outcome.PaymentID, outcome.OrderID); err != nil {
		return nil, err
	}
	// 保留状態からの遷移としてのみ書き込む。並行コールバックの二重確定を弾く
	if err := s.bookingRepo.UpdateStatusFrom(ctx, tx, b, booking.StatusPending); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("コミットに失敗: %w", err)
	}
	return b, nil
}

// cancelBooking は決済失敗を受けて予約をキャンセルする
// 遅延割り当て設計では座席を保持していないはずだが、
// 仮に保持していた場合は解放と予約更新を単一トランザクションで行う
func (s *BookingService) cancelBooking(ctx context.Context, b *booking.Booking, outcome payment.Outcome) (*booking.Booking, error) {
	if b.SeatNumber != nil {
		release, err := s.acquireFlightLock(ctx, b.FlightID)
		if err != nil {
			s.countOutcome("contention")
			return nil, err
		}
		defer release()
	}

	for attempt := 0; attempt < maxSeatStateRetries; attempt++ {
		cur := b
		if attempt > 0 {
			var err error
			cur, err = s.bookingRepo.GetByID(ctx, b.ID)
			if err != nil {
				return nil, err
			}
		}
		heldSeat := ""
		if cur.SeatNumber != nil {
			heldSeat = *cur.SeatNumber
		}
		if err := cur.Cancel(outcome.PaymentID); err != nil {
			s.countOutcome("invalid_transition")
			return nil, err
		}
		if heldSeat != "" && !cur.MarkSeatReleased() {
			heldSeat = ""
		}

		err := s.commitRelease(ctx, cur, heldSeat, booking.StatusPending)
		if err == nil {
			s.countOutcome("cancelled")
			if m := metrics.Get(); m != nil {
				m.ActiveBookings.WithLabelValues(string(booking.StatusPending)).Dec()
			}
			logger.Info("予約をキャンセル",
				zap.String("booking_id", cur.ID),
				zap.String("payment_id", outcome.PaymentID),
			)
			return cur, nil
		}
		if errors.Is(err, booking.ErrStateConflict) {
			// 並行するコールバックが先に遷移させた。冪等な再送なら成功扱い
			latest, gerr := s.bookingRepo.GetByID(ctx, cur.ID)
			if gerr != nil {
				return nil, gerr
			}
			if latest.IsReplayOf(outcome.PaymentID, booking.PaymentFailed) {
				logger.Info("決済結果の再送を無視",
					zap.String("booking_id", latest.ID),
					zap.String("payment_id", outcome.PaymentID),
				)
				return latest, nil
			}
			s.countOutcome("invalid_transition")
			return nil, booking.ErrInvalidStateTransition
		}
		if errors.Is(err, flight.ErrSeatStateConflict) {
			continue
		}
		return nil, err
	}

	s.countOutcome("contention")
	return nil, booking.ErrAllocationContention
}

// RefundBooking は確定済み予約を返金し、座席をプールへ戻す
// 座席解放と予約更新はロック配下の単一トランザクションで行う
func (s *BookingService) RefundBooking(ctx context.Context, id string) (*booking.Booking, error) {
	b, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	release, err := s.acquireFlightLock(ctx, b.FlightID)
	if err != nil {
		return nil, err
	}
	defer release()

	for attempt := 0; attempt < maxSeatStateRetries; attempt++ {
		// ロック配下で読み直し、並行する返金との二重解放を防ぐ
		cur, err := s.bookingRepo.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		heldSeat := ""
		if cur.SeatNumber != nil {
			heldSeat = *cur.SeatNumber
		}
		if err := cur.Refund(); err != nil {
			return nil, err
		}
		if heldSeat != "" && !cur.MarkSeatReleased() {
			heldSeat = ""
		}

		err = s.commitRelease(ctx, cur, heldSeat, booking.StatusConfirmed)
		if err == nil {
			if m := metrics.Get(); m != nil {
				m.ActiveBookings.WithLabelValues(string(booking.StatusConfirmed)).Dec()
			}
			logger.Info("予約を返金",
				zap.String("booking_id", cur.ID),
				zap.String("seat_number", heldSeat),
			)
			return cur, nil
		}
		if errors.Is(err, booking.ErrStateConflict) || errors.Is(err, flight.ErrSeatStateConflict) {
			// 読み直して再判定する。先行する返金があれば遷移エラーになる
			continue
		}
		return nil, err
	}
	return nil, booking.ErrAllocationContention
}

// commitRelease は保持座席の解放と予約の状態遷移を単一トランザクションで書き込む
// heldSeat が空の場合は予約のみを更新する
func (s *BookingService) commitRelease(ctx context.Context, b *booking.Booking, heldSeat string, from booking.Status) error {
	var f *flight.Flight
	if heldSeat != "" {
		var err error
		f, err = s.flightRepo.GetByID(ctx, b.FlightID)
		if err != nil {
			return err
		}
		if err := f.Normalize(); err != nil {
			return err
		}
		if err := f.ReleaseSeat(heldSeat); err != nil {
			if !errors.Is(err, seat.ErrSeatNotOccupied) {
				return err
			}
			// 既に解放済み。便の座席状態には触れない
			f = nil
		}
	}

	tx, err := s.txManager.Begin(ctx)
	if err != nil {
		return fmt.Errorf("トランザクション開始に失敗: %w", err)
	}
	defer tx.Rollback()
	if f != nil {
		if err := s.flightRepo.UpdateSeatState(ctx, tx, f); err != nil {
			return err
		}
	}
	if err := s.bookingRepo.UpdateStatusFrom(ctx, tx, b, from); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("コミットに失敗: %w", err)
	}
	if f != nil {
		s.invalidateCache(ctx, b.FlightID)
	}
	return nil
}

func (s *BookingService) GetBooking(ctx context.Context, id string) (*booking.Booking, error) {
	return s.bookingRepo.GetByID(ctx, id)
}

func (s *BookingService) GetUserBookings(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	if limit <= 0 {
		limit = 20
	}
	return s.bookingRepo.GetByUserID(ctx, userID, limit, offset)
}

// CancelStalePending は長時間保留のままの予約をキャンセルする
// 保留中の予約は座席を保持しないため、座席状態には触れない
func (s *BookingService) CancelStalePending(ctx context.Context, olderThan time.Duration) (int, error) {
	stale, err := s.bookingRepo.GetStalePending(ctx, olderThan)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, b := range stale {
		if err := b.Cancel(""); err != nil {
			continue
		}
		tx, err := s.txManager.Begin(ctx)
		if err != nil {
			return count, fmt.Errorf("トランザクション開始に失敗: %w", err)
		}
		err = s.bookingRepo.UpdateStatusFrom(ctx, tx, b, booking.StatusPending)
		if err == nil {
			err = tx.Commit()
		} else {
			tx.Rollback()
		}
		if err != nil {
			// 取得後に確定・キャンセルされた予約はスキップする
			if errors.Is(err, booking.ErrStateConflict) {
				continue
			}
			return count, err
		}
		count++
	}
	return count, nil
}

// acquireFlightLock は便単位の分散ロックを取得し、解放関数を返す
// lockManager が未設定の場合はストレージ層のCASのみで直列化する
func (s *BookingService) acquireFlightLock(ctx context.Context, flightID string) (func(), error) {
	if s.lockManager == nil {
		return func() {}, nil
	}

	start := time.Now()
	lock, err := s.lockManager.AcquireLockWithRetry(ctx, redislock.FlightLockKey(flightID), flightLockTTL, flightLockRetries, flightLockRetryDelay)
	if err != nil {
		s.observeLock("acquire", "failed", start)
		if errors.Is(err, redislock.ErrLockNotAcquired) {
			return nil, booking.ErrAllocationContention
		}
		return nil, fmt.Errorf("ロック取得に失敗: %w", err)
	}
	s.observeLock("acquire", "success", start)

	return func() {
		releaseStart := time.Now()
		if err := lock.Release(ctx); err != nil {
			s.observeLock("release", "failed", releaseStart)
			logger.Warn("ロック解放に失敗", zap.Error(err), zap.String("flight_id", flightID))
			return
		}
		s.observeLock("release", "success", releaseStart)
	}, nil
}

func (s *BookingService) invalidateCache(ctx context.Context, flightID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, flightID); err != nil {
		logger.Warn("キャッシュ無効化エラー", zap.Error(err))
	}
}

func (s *BookingService) countOutcome(result string) {
	if m := metrics.Get(); m != nil {
		m.BookingsTotal.WithLabelValues(result).Inc()
	}
}

func (s *BookingService) observeAllocation(start time.Time, result string) {
	if m := metrics.Get(); m != nil {
		m.SeatAllocationDuration.WithLabelValues(result).Observe(time.Since(start).Seconds())
	}
}

func (s *BookingService) observeLock(operation, status string, start time.Time) {
	if m := metrics.Get(); m != nil {
		m.DistributedLockDuration.WithLabelValues(operation, status).Observe(time.Since(start).Seconds())
	}
}
