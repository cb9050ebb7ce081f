package booking

import "errors"

// Booking ドメインのエラー定義
var (
	ErrBookingNotFound        = errors.New("予約が見つかりません")
	ErrInvalidStateTransition = errors.New("予約の状態遷移が不正です")
	ErrStateConflict          = errors.New("予約は他の処理によって更新されました")
	ErrAllocationContention   = errors.New("座席割り当ての競合が解消できませんでした")
	ErrFlightIDRequired       = errors.New("便IDは必須です")
	ErrPassengerNameRequired  = errors.New("搭乗者名は必須です")
	ErrContactEmailRequired   = errors.New("連絡先メールアドレスは必須です")
	ErrTravelDateRequired     = errors.New("搭乗日は必須です")
	ErrInvalidAmount          = errors.New("金額は0以上である必要があります")
)
