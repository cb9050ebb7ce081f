package flight

import "errors"

// Flight ドメインのエラー定義
var (
	ErrFlightNotFound       = errors.New("便が見つかりません")
	ErrFlightNotBookable    = errors.New("便は予約を受け付けていません")
	ErrSeatStateConflict    = errors.New("座席状態の更新が競合しました")
	ErrFlightNumberRequired = errors.New("便名は必須です")
	ErrInvalidPrice         = errors.New("運賃は0以上である必要があります")
	ErrInvalidTotalSeats    = errors.New("総座席数は1〜400の範囲である必要があります")
	ErrInvalidFlightTime    = errors.New("到着時刻は出発時刻より後である必要があります")
	ErrInvalidDiscount      = errors.New("割引設定が不正です")
)
