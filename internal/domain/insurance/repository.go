package insurance

import "context"

// Repository は保険プランリポジトリのインターフェース
type Repository interface {
	// Create は新しい保険プランを作成する
	Create(ctx context.Context, i *Insurance) error

	// GetByID はIDから保険プランを取得する
	GetByID(ctx context.Context, id string) (*Insurance, error)

	// List は保険プラン一覧を取得する
	List(ctx context.Context) ([]*Insurance, error)
}
