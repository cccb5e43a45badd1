package billing

import "time"

// NormalizedSubscription is what a webhook handler hands to SyncSubscription:
// one provider subscription translated into the fields the local tables care
// about. The controller does the provider-specific JSON digging, the service
// only ever sees this shape.
type NormalizedSubscription struct {
	UserID                 uint
	Provider               string
	ProviderSubscriptionID string
	ProviderPlanRef        string
	BillingInterval        string
	Status                 string
	CurrentPeriodStart     *time.Time
	CurrentPeriodEnd       *time.Time
	CancelAtPeriodEnd      bool
	RawPayloadJSON         string
}

// WebhookEventInput describes one incoming webhook delivery for the
// idempotent event log. ProviderEventID may be empty; RecordWebhookEvent
// derives a payload-hash ID in that case.
type WebhookEventInput struct {
	Provider        string
	ProviderEventID string
	EventType       string
	PayloadJSON     string
	SignatureValid  bool
}
