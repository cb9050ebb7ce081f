package seat

import "errors"

// Seat ドメインのエラー定義
var (
	ErrNoSeatsAvailable    = errors.New("空席がありません")
	ErrSeatAlreadyOccupied = errors.New("座席は既に占有されています")
	ErrSeatNotOccupied     = errors.New("座席は占有されていません")
	ErrInvalidSeatLabel    = errors.New("無効な座席ラベルです")
)
