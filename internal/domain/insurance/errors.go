package insurance

import "errors"

// Insurance ドメインのエラー定義
var (
	ErrInsuranceNotFound  = errors.New("保険プランが見つかりません")
	ErrInsuranceNotActive = errors.New("保険プランは販売を終了しています")
	ErrNameRequired       = errors.New("保険プラン名は必須です")
	ErrInvalidPrice       = errors.New("保険料は0以上である必要があります")
)
