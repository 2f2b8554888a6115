// Package credential issues and verifies the short-lived tokens that
// scope a transaction-validation call to one pending payment.
package credential

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tosynthegeek/stabuse/types"
)

// TTL is how long a payment credential stays valid after issuance.
const TTL = 30 * time.Minute

// PaymentClaims bind a credential to a single pending payment and the
// chain it must be verified against.
type PaymentClaims struct {
	PendingPaymentID uint   `json:"pending_payment_id"`
	RPCURL           string `json:"rpc"`
	Network          string `json:"network"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies payment credentials with a shared secret.
type Issuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{
		secret: []byte(secret),
		ttl:    TTL,
		now:    time.Now,
	}
}

// Issue mints a credential scoped to the given pending payment.
func (i *Issuer) Issue(pendingID uint, rpcURL, network string) (string, error) {
	now := i.now()
	claims := PaymentClaims{
		PendingPaymentID: pendingID,
		RPCURL:           rpcURL,
		Network:          network,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", types.Internal("failed to sign payment credential: %v", err)
	}
	return signed, nil
}

// Verify parses a credential and returns its claims. Expired, malformed
// or foreign-keyed tokens all come back as Unauthorized.
func (i *Issuer) Verify(tokenString string) (*PaymentClaims, error) {
	claims := &PaymentClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		return nil, types.Unauthorized("invalid payment credential: %v", err)
	}
	return claims, nil
}
