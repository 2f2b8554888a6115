// Package webhook delivers settlement notifications to merchant
// endpoints and derives the per-payment notification URLs.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/tosynthegeek/stabuse/logger"
	"github.com/tosynthegeek/stabuse/types"
)

// Notifier posts settlement payloads to merchant webhook URLs.
// Delivery is best effort; the payment is settled whether or not
// the merchant endpoint answers.
type Notifier struct {
	client *http.Client
	log    logger.Logger
}

func NewNotifier(log logger.Logger) *Notifier {
	if log == nil {
		log = logger.NoopLogger{}
	}
	return &Notifier{
		client: &http.Client{Timeout: 10 * time.Second},
		log:    log,
	}
}

// Notify posts the payload as JSON to the merchant's webhook URL.
func (n *Notifier) Notify(ctx context.Context, url string, payload types.WebhookPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return types.Internal("failed to encode webhook payload: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return types.Internal("failed to build webhook request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return types.Internal("webhook delivery to %s failed: %v", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return types.Internal("webhook endpoint %s returned status %d", url, resp.StatusCode)
	}

	n.log.Info("delivered settlement webhook", map[string]any{
		"url":        url,
		"payment_id": payload.PaymentID,
		"tx_hash":    payload.TxHash,
	})
	return nil
}

// DeriveURL builds the notification URL for a payment: the merchant's
// base path plus an HMAC tag over the payment parameters, so a payload
// can only land on the URL minted for that payment.
func DeriveURL(base string, merchantID uint, sender, amount string, issuedAt time.Time, secret string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d|%s|%s|%d", merchantID, sender, amount, issuedAt.Unix())
	tag := hex.EncodeToString(mac.Sum(nil))

	return fmt.Sprintf("%s/%d/%s", strings.TrimRight(base, "/"), merchantID, tag)
}
