package application

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-flight-booking/internal/domain/booking"
	"github.com/sanosuguru/go-flight-booking/internal/domain/flight"
	"github.com/sanosuguru/go-flight-booking/internal/domain/insurance"
	"github.com/sanosuguru/go-flight-booking/internal/domain/transaction"
)

// === インメモリのフェイク実装 ===
// 座席割り当ての並行性テストのため、実リポジトリと同じ
// バージョンCAS・条件付き更新の意味論を持たせている

// fakeOp はコミット時に実行される書き込み。check が全件通った場合のみ apply する
type fakeOp struct {
	check func() error
	apply func()
}

// fakeTx は書き込みをバッファし、Commit でまとめて適用するトランザクション
// いずれかの check が失敗した場合は何も書き込まない
type fakeTx struct {
	commitMu *sync.Mutex
	ops      []fakeOp
}

func (t *fakeTx) enqueue(check func() error, apply func()) {
	t.ops = append(t.ops, fakeOp{check: check, apply: apply})
}

func (t *fakeTx) Commit() error {
	t.commitMu.Lock()
	defer t.commitMu.Unlock()
	defer func() { t.ops = nil }()
	for _, op := range t.ops {
		if err := op.check(); err != nil {
			return err
		}
	}
	for _, op := range t.ops {
		op.apply()
	}
	return nil
}

func (t *fakeTx) Rollback() error {
	t.ops = nil
	return nil
}

type fakeTxManager struct {
	mu sync.Mutex // コミットをストア横断で直列化する
}

func (m *fakeTxManager) Begin(ctx context.Context) (transaction.Tx, error) {
	return &fakeTx{commitMu: &m.mu}, nil
}

// fakeFlightRepo は flight.Repository のインメモリ実装
type fakeFlightRepo struct {
	mu      sync.Mutex
	flights map[string]*flight.Flight
}

func newFakeFlightRepo() *fakeFlightRepo {
	return &fakeFlightRepo{flights: make(map[string]*flight.Flight)}
}

func copyFlight(f *flight.Flight) *flight.Flight {
	c := *f
	c.Matrix.Occupied = append([]string(nil), f.Matrix.Occupied...)
	return &c
}

func (r *fakeFlightRepo) Create(ctx context.Context, f *flight.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if f.ID == "" {
		f.ID = uuid.New().String()
	}
	r.flights[f.ID] = copyFlight(f)
	return nil
}

func (r *fakeFlightRepo) GetByID(ctx context.Context, id string) (*flight.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.flights[id]
	if !ok {
		return nil, flight.ErrFlightNotFound
	}
	return copyFlight(f), nil
}

func (r *fakeFlightRepo) List(ctx context.Context, limit, offset int) ([]*flight.Flight, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*flight.Flight
	for _, f := range r.flights {
		out = append(out, copyFlight(f))
	}
	return out, nil
}

func (r *fakeFlightRepo) Update(ctx context.Context, f *flight.Flight) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.flights[f.ID]; !ok {
		return flight.ErrFlightNotFound
	}
	r.flights[f.ID] = copyFlight(f)
	return nil
}

// UpdateSeatState は実リポジトリと同じバージョン比較をコミット時に行う
func (r *fakeFlightRepo) UpdateSeatState(ctx context.Context, tx transaction.Tx, f *flight.Flight) error {
	tx.(*fakeTx).enqueue(
		func() error {
			r.mu.Lock()
			defer r.mu.Unlock()
			cur, ok := r.flights[f.ID]
			if !ok {
				return flight.ErrFlightNotFound
			}
			if cur.Version != f.Version {
				return flight.ErrSeatStateConflict
			}
			return nil
		},
		func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			f.Version++
			r.flights[f.ID] = copyFlight(f)
		},
	)
	return nil
}

// fakeBookingRepo は booking.Repository のインメモリ実装
type fakeBookingRepo struct {
	mu        sync.Mutex
	bookings  map[string]*booking.Booking
	updateErr error // 次回の更新で返すエラーを注入する
}

func newFakeBookingRepo() *fakeBookingRepo {
	return &fakeBookingRepo{bookings: make(map[string]*booking.Booking)}
}

func copyBooking(b *booking.Booking) *booking.Booking {
	c := *b
	return &c
}

func (r *fakeBookingRepo) Create(ctx context.Context, b *booking.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.bookings[b.ID] = copyBooking(b)
	return nil
}

func (r *fakeBookingRepo) GetByID(ctx context.Context, id string) (*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bookings[id]
	if !ok {
		return nil, booking.ErrBookingNotFound
	}
	return copyBooking(b), nil
}

func (r *fakeBookingRepo) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*booking.Booking
	for _, b := range r.bookings {
		if b.UserID != nil && *b.UserID == userID {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

// UpdateStatusFrom は実リポジトリと同じ条件付き更新をコミット時に行う
func (r *fakeBookingRepo) UpdateStatusFrom(ctx context.Context, tx transaction.Tx, b *booking.Booking, from booking.Status) error {
	tx.(*fakeTx).enqueue(
		func() error {
			r.mu.Lock()
			defer r.mu.Unlock()
			if r.updateErr != nil {
				err := r.updateErr
				r.updateErr = nil
				return err
			}
			cur, ok := r.bookings[b.ID]
			if !ok {
				return booking.ErrBookingNotFound
			}
			if cur.Status != from {
				return booking.ErrStateConflict
			}
			return nil
		},
		func() {
			r.mu.Lock()
			defer r.mu.Unlock()
			r.bookings[b.ID] = copyBooking(b)
		},
	)
	return nil
}

func (r *fakeBookingRepo) GetStalePending(ctx context.Context, olderThan time.Duration) ([]*booking.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cutoff := time.Now().Add(-olderThan)
	var out []*booking.Booking
	for _, b := range r.bookings {
		if b.Status == booking.StatusPending && b.CreatedAt.Before(cutoff) {
			out = append(out, copyBooking(b))
		}
	}
	return out, nil
}

// backdate はテスト用に予約の作成時刻を過去へずらす
func (r *fakeBookingRepo) backdate(id string, d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if b, ok := r.bookings[id]; ok {
		b.CreatedAt = b.CreatedAt.Add(-d)
	}
}

// fakeInsuranceRepo は insurance.Repository のインメモリ実装
type fakeInsuranceRepo struct {
	mu         sync.Mutex
	insurances map[string]*insurance.Insurance
}

func newFakeInsuranceRepo() *fakeInsuranceRepo {
	return &fakeInsuranceRepo{insurances: make(map[string]*insurance.Insurance)}
}

func (r *fakeInsuranceRepo) Create(ctx context.Context, i *insurance.Insurance) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if i.ID == "" {
		i.ID = uuid.New().String()
	}
	c := *i
	r.insurances[i.ID] = &c
	return nil
}

func (r *fakeInsuranceRepo) GetByID(ctx context.Context, id string) (*insurance.Insurance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	i, ok := r.insurances[id]
	if !ok {
		return nil, insurance.ErrInsuranceNotFound
	}
	c := *i
	return &c, nil
}

func (r *fakeInsuranceRepo) List(ctx context.Context) ([]*insurance.Insurance, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*insurance.Insurance
	for _, i := range r.insurances {
		if i.Active {
			c := *i
			out = append(out, &c)
		}
	}
	return out, nil
}
