package credential

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tosynthegeek/stabuse/types"
)

func TestIssueAndVerify(t *testing.T) {
	i := NewIssuer("test-secret")

	token, err := i.Issue(42, "https://rpc.example", "ethereum")
	require.NoError(t, err)

	claims, err := i.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint(42), claims.PendingPaymentID)
	require.Equal(t, "https://rpc.example", claims.RPCURL)
	require.Equal(t, "ethereum", claims.Network)
}

func TestCredentialExpiry(t *testing.T) {
	issued := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	i := NewIssuer("test-secret")
	i.now = func() time.Time { return issued }

	token, err := i.Issue(7, "https://rpc.example", "solana")
	require.NoError(t, err)

	// still valid just before the 30 minute deadline
	i.now = func() time.Time { return issued.Add(29 * time.Minute) }
	claims, err := i.Verify(token)
	require.NoError(t, err)
	require.Equal(t, uint(7), claims.PendingPaymentID)

	// rejected just after it
	i.now = func() time.Time { return issued.Add(31 * time.Minute) }
	_, err = i.Verify(token)
	require.Error(t, err)
	require.Equal(t, types.CodeUnauthorized, types.CodeOf(err))
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	token, err := NewIssuer("secret-a").Issue(1, "https://rpc.example", "ethereum")
	require.NoError(t, err)

	_, err = NewIssuer("secret-b").Verify(token)
	require.Error(t, err)
	require.Equal(t, types.CodeUnauthorized, types.CodeOf(err))
}

func TestVerifyRejectsGarbage(t *testing.T) {
	_, err := NewIssuer("test-secret").Verify("not-a-token")
	require.Error(t, err)
	require.Equal(t, types.CodeUnauthorized, types.CodeOf(err))
}
