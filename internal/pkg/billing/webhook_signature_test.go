package billing

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"testing"
	"time"
)

func signStripePayload(payload []byte, secret string, ts int64) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(fmt.Sprintf("%d.", ts)))
	mac.Write(payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func TestVerifyStripeWebhookSignature(t *testing.T) {
	payload := []byte(`{"id":"evt_1","type":"customer.subscription.updated"}`)
	secret := "whsec_test"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	header := signStripePayload(payload, secret, now.Unix())
	if !verifyStripeWebhookSignatureAt(payload, header, secret, now) {
		t.Fatalf("expected valid signature to verify")
	}

	if verifyStripeWebhookSignatureAt(payload, header, "whsec_other", now) {
		t.Fatalf("expected wrong secret to fail")
	}
	if verifyStripeWebhookSignatureAt([]byte(`{"tampered":true}`), header, secret, now) {
		t.Fatalf("expected tampered payload to fail")
	}
}

func TestVerifyStripeWebhookSignature_Tolerance(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	stale := signStripePayload(payload, secret, now.Add(-6*time.Minute).Unix())
	if verifyStripeWebhookSignatureAt(payload, stale, secret, now) {
		t.Fatalf("expected stale timestamp to fail")
	}

	future := signStripePayload(payload, secret, now.Add(6*time.Minute).Unix())
	if verifyStripeWebhookSignatureAt(payload, future, secret, now) {
		t.Fatalf("expected far-future timestamp to fail")
	}

	fresh := signStripePayload(payload, secret, now.Add(-time.Minute).Unix())
	if !verifyStripeWebhookSignatureAt(payload, fresh, secret, now) {
		t.Fatalf("expected fresh timestamp to verify")
	}
}

func TestVerifyStripeWebhookSignature_MalformedHeaders(t *testing.T) {
	payload := []byte(`{}`)
	secret := "whsec_test"
	now := time.Now()

	for _, header := range []string{
		"",
		"t=abc,v1=deadbeef",
		"v1=deadbeef",
		fmt.Sprintf("t=%d", now.Unix()),
		fmt.Sprintf("t=%d,v1=not-hex", now.Unix()),
	} {
		if verifyStripeWebhookSignatureAt(payload, header, secret, now) {
			t.Fatalf("expected header %q to fail verification", header)
		}
	}
	if verifyStripeWebhookSignatureAt(payload, signStripePayload(payload, secret, now.Unix()), "", now) {
		t.Fatalf("expected empty secret to fail verification")
	}
}

func TestVerifyStripeWebhookSignature_MultipleCandidates(t *testing.T) {
	payload := []byte(`{"id":"evt_2"}`)
	secret := "whsec_test"
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	valid := signStripePayload(payload, secret, now.Unix())
	// Stripe sends extra v1 entries during secret rotation.
	header := fmt.Sprintf("%s,v1=%s", valid, hex.EncodeToString(make([]byte, 32)))
	if !verifyStripeWebhookSignatureAt(payload, header, secret, now) {
		t.Fatalf("expected any matching v1 candidate to verify")
	}
}
