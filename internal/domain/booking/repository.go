package booking

import (
	"context"
	"time"

	"github.com/sanosuguru/go-flight-booking/internal/domain/transaction"
)

// Repository は予約リポジトリのインターフェース
type Repository interface {
	// Create は新しい予約を作成する
	Create(ctx context.Context, b *Booking) error

	// GetByID はIDから予約を取得する
	GetByID(ctx context.Context, id string) (*Booking, error)

	// GetByUserID はユーザーIDから予約一覧を取得する
	GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*Booking, error)

	// UpdateStatusFrom は from 状態からの遷移として予約を更新する（トランザクション必須）
	// 格納済みの状態が from と一致しない場合は ErrStateConflict を返し、何も書き込まない
	UpdateStatusFrom(ctx context.Context, tx transaction.Tx, b *Booking, from Status) error

	// GetStalePending は指定時間を超えて保留のままの予約を取得する
	GetStalePending(ctx context.Context, olderThan time.Duration) ([]*Booking, error)
}
