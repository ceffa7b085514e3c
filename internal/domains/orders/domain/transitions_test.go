package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPermissiveTransitions_AcceptAnyValidValue(t *testing.T) {
	p := PermissiveTransitions{}
	require.NoError(t, p.CheckStatus(StatusDelivered, StatusPending))
	require.NoError(t, p.CheckPayment(PaymentPaid, PaymentFailed))
	require.ErrorIs(t, p.CheckStatus(StatusPending, "lost"), ErrInvalidStatus)
	require.ErrorIs(t, p.CheckPayment(PaymentPaid, "refunded"), ErrInvalidPaymentStatus)
	require.False(t, p.Enforces())
}

func TestStrictTransitions(t *testing.T) {
	p := StrictTransitions{}
	require.True(t, p.Enforces())
	require.NoError(t, p.CheckStatus(StatusPending, StatusConfirmed))
	require.NoError(t, p.CheckStatus(StatusShipped, StatusDelivered))
	require.NoError(t, p.CheckStatus(StatusShipped, StatusShipped))
	require.ErrorIs(t, p.CheckStatus(StatusDelivered, StatusPending), ErrIllegalTransition)
	require.ErrorIs(t, p.CheckStatus(StatusCancelled, StatusConfirmed), ErrIllegalTransition)
	require.ErrorIs(t, p.CheckStatus(StatusPending, StatusShipped), ErrIllegalTransition)

	require.NoError(t, p.CheckPayment(PaymentPending, PaymentPaid))
	require.NoError(t, p.CheckPayment(PaymentFailed, PaymentPaid))
	require.ErrorIs(t, p.CheckPayment(PaymentPaid, PaymentPending), ErrIllegalTransition)
}

func TestPolicyByName(t *testing.T) {
	p, err := PolicyByName("")
	require.NoError(t, err)
	require.Equal(t, "permissive", p.Name())

	p, err = PolicyByName("strict")
	require.NoError(t, err)
	require.Equal(t, "strict", p.Name())

	_, err = PolicyByName("lenient")
	require.Error(t, err)
}
