package payment

import "errors"

// Payment ドメインのエラー定義
var (
	ErrVerificationFailed = errors.New("決済署名の検証に失敗しました")
	ErrInvalidOutcome     = errors.New("決済結果の内容が不正です")
)

// Outcome はゲートウェイから通知される決済結果を表す
// ゲートウェイ入力は信頼せず、署名検証を通してから適用する
type Outcome struct {
	PaymentID string
	OrderID   string
	Signature string
	Status    string
}

// 決済結果の状態値
const (
	OutcomeCompleted = "completed"
	OutcomeFailed    = "failed"
)

// Validate は決済結果の形式検証を行う
func (o Outcome) Validate() error {
	if o.PaymentID == "" {
		return ErrInvalidOutcome
	}
	if o.Status != OutcomeCompleted && o.Status != OutcomeFailed {
		return ErrInvalidOutcome
	}
	return nil
}

// Verifier は決済結果の真正性を検証するインターフェース
type Verifier interface {
	// Verify は署名を検証し、不一致の場合 ErrVerificationFailed を返す
	Verify(o Outcome) error
}
