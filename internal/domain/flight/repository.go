package flight

import (
	"context"

	"github.com/sanosuguru/go-flight-booking/internal/domain/transaction"
)

// Repository は便リポジトリのインターフェース
type Repository interface {
	// Create は新しい便を作成する
	Create(ctx context.Context, f *Flight) error

	// GetByID はIDから便を取得する
	GetByID(ctx context.Context, id string) (*Flight, error)

	// List は便一覧を取得する
	List(ctx context.Context, limit, offset int) ([]*Flight, error)

	// Update は便の基本情報を更新する
	Update(ctx context.Context, f *Flight) error

	// UpdateSeatState は座席状態（占有ラベル・空席数）を条件付きで更新する
	// 読み出し時のバージョンと一致しない場合は ErrSeatStateConflict を返す（CAS、トランザクション必須）
	UpdateSeatState(ctx context.Context, tx transaction.Tx, f *Flight) error
}
