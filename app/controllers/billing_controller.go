package controllers

import (
	"encoding/json"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/log"

	"github.com/panorago/panorago/app/models"
	"github.com/panorago/panorago/internal/pkg/billing"
	"github.com/panorago/panorago/internal/pkg/env"
	"github.com/panorago/panorago/internal/pkg/tours"
	"github.com/panorago/panorago/internal/pkg/usercontext"
)

var (
	billingService     *billing.Service
	billingTourService *tours.Service
)

// InitializeBillingController wires the billing service and the tour service
// used to re-run enforcement after subscription changes.
func InitializeBillingController(svc *billing.Service, tourSvc *tours.Service) {
	billingService = svc
	billingTourService = tourSvc
}

// stripeEvent is the subset of the Stripe event envelope we consume.
type stripeEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object json.RawMessage `json:"object"`
	} `json:"data"`
}

type stripeCheckoutSession struct {
	Customer          string `json:"customer"`
	ClientReferenceID string `json:"client_reference_id"`
	CustomerEmail     string `json:"customer_email"`
}

type stripeSubscription struct {
	ID                 string `json:"id"`
	Customer           string `json:"customer"`
	Status             string `json:"status"`
	CancelAtPeriodEnd  bool   `json:"cancel_at_period_end"`
	CurrentPeriodStart int64  `json:"current_period_start"`
	CurrentPeriodEnd   int64  `json:"current_period_end"`
	Items              struct {
		Data []struct {
			Price struct {
				ID        string `json:"id"`
				Recurring struct {
					Interval string `json:"interval"`
				} `json:"recurring"`
			} `json:"price"`
		} `json:"data"`
	} `json:"items"`
}

type stripeInvoice struct {
	Customer string `json:"customer"`
}

// HandleStripeWebhook verifies, records and processes Stripe webhook events.
// Events are recorded before processing so retries stay idempotent; processing
// failures are stored on the event row and answered with 200 so Stripe does
// not retry forever on our own bugs.
func HandleStripeWebhook(c *fiber.Ctx) error {
	payload := c.Body()
	sigHeader := c.Get("Stripe-Signature")
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")

	sigValid := billing.VerifyStripeWebhookSignature(payload, sigHeader, secret)

	var event stripeEvent
	parseErr := json.Unmarshal(payload, &event)

	created, record, err := billingService.RecordWebhookEvent(c.Context(), billing.WebhookEventInput{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       event.Type,
		PayloadJSON:     string(payload),
		SignatureValid:  sigValid,
	})
	if err != nil {
		log.Errorf("stripe webhook: record event failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error"})
	}

	if !sigValid {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_signature"})
	}
	if parseErr != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid_payload"})
	}
	if !created {
		return c.JSON(fiber.Map{"received": true, "duplicate": true, "processed": record.IsProcessed()})
	}

	procErr := processStripeEvent(c, event)
	if err := billingService.MarkWebhookProcessed(c.Context(), record.ID, procErr); err != nil {
		log.Errorf("stripe webhook: mark processed failed for event %d: %v", record.ID, err)
	}
	if procErr != nil {
		log.Errorf("stripe webhook: processing %s (%s) failed: %v", event.ID, event.Type, procErr)
	}

	return c.JSON(fiber.Map{"received": true})
}

func processStripeEvent(c *fiber.Ctx, event stripeEvent) error {
	switch event.Type {
	case "checkout.session.completed":
		var session stripeCheckoutSession
		if err := json.Unmarshal(event.Data.Object, &session); err != nil {
			return err
		}
		userID, err := strconv.ParseUint(session.ClientReferenceID, 10, 32)
		if err != nil || userID == 0 {
			log.Warnf("stripe webhook: checkout session without usable client_reference_id %q", session.ClientReferenceID)
			return nil
		}
		_, err = billingService.UpsertBillingAccount(c.Context(), uint(userID), models.BillingProviderStripe, session.Customer, session.CustomerEmail)
		return err

	case "customer.subscription.created", "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripeSubscription
		if err := json.Unmarshal(event.Data.Object, &sub); err != nil {
			return err
		}
		account, err := billingService.GetBillingAccountByProviderAccountID(c.Context(), models.BillingProviderStripe, sub.Customer)
		if err != nil {
			log.Warnf("stripe webhook: no billing account for customer %s", sub.Customer)
			return nil
		}

		status := sub.Status
		if event.Type == "customer.subscription.deleted" {
			status = models.SubscriptionStatusCanceled
		}
		planRef := ""
		interval := ""
		if len(sub.Items.Data) > 0 {
			planRef = sub.Items.Data[0].Price.ID
			interval = sub.Items.Data[0].Price.Recurring.Interval
		}

		_, _, err = billingService.SyncSubscription(c.Context(), billing.NormalizedSubscription{
			UserID:                 account.UserID,
			Provider:               models.BillingProviderStripe,
			ProviderSubscriptionID: sub.ID,
			ProviderPlanRef:        planRef,
			BillingInterval:        interval,
			Status:                 status,
			CurrentPeriodStart:     unixTimePtr(sub.CurrentPeriodStart),
			CurrentPeriodEnd:       unixTimePtr(sub.CurrentPeriodEnd),
			CancelAtPeriodEnd:      sub.CancelAtPeriodEnd,
			RawPayloadJSON:         string(event.Data.Object),
		})
		if err != nil {
			return err
		}
		return enforceAfterBillingChange(c, account.UserID)

	case "invoice.payment_failed":
		var invoice stripeInvoice
		if err := json.Unmarshal(event.Data.Object, &invoice); err != nil {
			return err
		}
		account, err := billingService.GetBillingAccountByProviderAccountID(c.Context(), models.BillingProviderStripe, invoice.Customer)
		if err != nil {
			log.Warnf("stripe webhook: no billing account for customer %s", invoice.Customer)
			return nil
		}
		if _, err := billingService.ReconcileUserPlan(c.Context(), account.UserID); err != nil {
			return err
		}
		return enforceAfterBillingChange(c, account.UserID)
	}

	// Unhandled event types are acknowledged and kept in the event log.
	return nil
}

func enforceAfterBillingChange(c *fiber.Ctx, userID uint) error {
	result, err := billingTourService.ApplyEnforcement(c.Context(), userID)
	if err != nil {
		return err
	}
	if len(result.DisabledTours) > 0 {
		log.Infof("enforcement after billing change disabled %d tours for user %d (%s)", len(result.DisabledTours), userID, result.Reason)
	}
	return nil
}

func unixTimePtr(ts int64) *time.Time {
	if ts == 0 {
		return nil
	}
	t := time.Unix(ts, 0).UTC()
	return &t
}

// HandleGetSubscription returns the caller's effective plan and billing state.
func HandleGetSubscription(c *fiber.Ctx) error {
	userID := usercontext.GetUserID(c)

	plan, status, err := billingService.EffectivePlan(c.Context(), userID)
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "could not load subscription"})
	}

	resp := fiber.Map{
		"plan":   plan,
		"status": status,
	}
	if status == models.SubscriptionStatusPastDue {
		resp["warning"] = "payment_failed"
	}
	return c.JSON(resp)
}
