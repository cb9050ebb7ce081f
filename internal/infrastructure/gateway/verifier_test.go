package gateway

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sanosuguru/go-flight-booking/internal/config"
	"github.com/sanosuguru/go-flight-booking/internal/domain/payment"
)

func newVerifier(allowSandbox bool) *HMACVerifier {
	return NewHMACVerifier(&config.PaymentConfig{
		Secret:        "test-secret",
		AllowSandbox:  allowSandbox,
		SandboxPrefix: "pay_",
	})
}

func TestVerify_ValidSignature(t *testing.T) {
	v := newVerifier(false)

	sig := Sign("test-secret", "order-001", "gw_12345")
	err := v.Verify(payment.Outcome{
		PaymentID: "gw_12345",
		OrderID:   "order-001",
		Signature: sig,
		Status:    payment.OutcomeCompleted,
	})

	require.NoError(t, err)
}

func TestVerify_InvalidSignature(t *testing.T) {
	v := newVerifier(false)

	err := v.Verify(payment.Outcome{
		PaymentID: "gw_12345",
		OrderID:   "order-001",
		Signature: "deadbeef",
		Status:    payment.OutcomeCompleted,
	})

	require.Error(t, err)
	assert.ErrorIs(t, err, payment.ErrVerificationFailed)
}

func TestVerify_TamperedOrderID(t *testing.T) {
	v := newVerifier(false)

	sig := Sign("test-secret", "order-001", "gw_12345")
	err := v.Verify(payment.Outcome{
		PaymentID: "gw_12345",
		OrderID:   "order-002", // 改ざんされた注文ID
		Signature: sig,
		Status:    payment.OutcomeCompleted,
	})

	assert.ErrorIs(t, err, payment.ErrVerificationFailed)
}

func TestVerify_SandboxBypass(t *testing.T) {
	v := newVerifier(true)

	tests := []struct {
		name    string
		outcome payment.Outcome
	}{
		{
			name:    "空署名",
			outcome: payment.Outcome{PaymentID: "gw_12345", OrderID: "order-001", Signature: ""},
		},
		{
			name:    "null署名",
			outcome: payment.Outcome{PaymentID: "gw_12345", OrderID: "order-001", Signature: "null"},
		},
		{
			name:    "undefined署名",
			outcome: payment.Outcome{PaymentID: "gw_12345", OrderID: "order-001", Signature: "undefined"},
		},
		{
			name:    "テスト用プレフィックスの決済ID",
			outcome: payment.Outcome{PaymentID: "pay_test001", OrderID: "order-001", Signature: "whatever"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.NoError(t, v.Verify(tt.outcome))
		})
	}
}

func TestVerify_SandboxDisabled(t *testing.T) {
	// 本番相当の設定ではサンドボックス規約でも検証される
	v := newVerifier(false)

	err := v.Verify(payment.Outcome{
		PaymentID: "pay_test001",
		OrderID:   "order-001",
		Signature: "",
		Status:    payment.OutcomeCompleted,
	})

	assert.ErrorIs(t, err, payment.ErrVerificationFailed)
}

func TestVerify_SandboxDisabled_ValidSignatureStillPasses(t *testing.T) {
	v := newVerifier(false)

	sig := Sign("test-secret", "order-001", "pay_test001")
	err := v.Verify(payment.Outcome{
		PaymentID: "pay_test001",
		OrderID:   "order-001",
		Signature: sig,
		Status:    payment.OutcomeCompleted,
	})

	assert.NoError(t, err)
}

func TestSign_Deterministic(t *testing.T) {
	sig1 := Sign("secret", "order", "pay")
	sig2 := Sign("secret", "order", "pay")
	assert.Equal(t, sig1, sig2)

	// 鍵が違えば署名も変わる
	sig3 := Sign("other-secret", "order", "pay")
	assert.NotEqual(t, sig1, sig3)
}

func TestOutcome_Validate(t *testing.T) {
	tests := []struct {
		name        string
		outcome     payment.Outcome
		expectedErr error
	}{
		{
			name:    "有効な完了通知",
			outcome: payment.Outcome{PaymentID: "gw_1", Status: payment.OutcomeCompleted},
		},
		{
			name:    "有効な失敗通知",
			outcome: payment.Outcome{PaymentID: "gw_1", Status: payment.OutcomeFailed},
		},
		{
			name:        "決済IDなし",
			outcome:     payment.Outcome{Status: payment.OutcomeCompleted},
			expectedErr: payment.ErrInvalidOutcome,
		},
		{
			name:        "未知の状態",
			outcome:     payment.Outcome{PaymentID: "gw_1", Status: "authorized"},
			expectedErr: payment.ErrInvalidOutcome,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.outcome.Validate()
			if tt.expectedErr != nil {
				assert.ErrorIs(t, err, tt.expectedErr)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
