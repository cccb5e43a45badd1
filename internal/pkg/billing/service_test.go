package billing

import (
	"context"
	"fmt"
	"testing"

	"gorm.io/gorm"

	"github.com/panorago/panorago/app/models"
	"github.com/panorago/panorago/internal/pkg/plancatalog"
)

// fakeRepository is an in-memory Repository for service tests.
type fakeRepository struct {
	mappings      []models.BillingPlanMapping
	accounts      map[string]*models.BillingAccount
	subscriptions map[string]*models.BillingSubscription
	settings      map[uint]*models.UserSettings
	events        map[string]*models.BillingWebhookEvent
	nextID        uint
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		accounts:      make(map[string]*models.BillingAccount),
		subscriptions: make(map[string]*models.BillingSubscription),
		settings:      make(map[uint]*models.UserSettings),
		events:        make(map[string]*models.BillingWebhookEvent),
	}
}

func (f *fakeRepository) id() uint {
	f.nextID++
	return f.nextID
}

func (f *fakeRepository) FindActivePlanMapping(provider, ref, interval string) (*models.BillingPlanMapping, error) {
	for i := range f.mappings {
		m := &f.mappings[i]
		if m.Provider == provider && m.ProviderPlanRef == ref && m.BillingInterval == interval && m.IsActive {
			return m, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpsertBillingAccount(account *models.BillingAccount) error {
	key := account.Provider + "|" + account.ProviderAccountID
	if existing, ok := f.accounts[key]; ok {
		existing.UserID = account.UserID
		existing.Email = account.Email
		*account = *existing
		return nil
	}
	account.ID = f.id()
	stored := *account
	f.accounts[key] = &stored
	return nil
}

func (f *fakeRepository) GetBillingAccountByProviderAccountID(provider, providerAccountID string) (*models.BillingAccount, error) {
	if a, ok := f.accounts[provider+"|"+providerAccountID]; ok {
		copied := *a
		return &copied, nil
	}
	return nil, gorm.ErrRecordNotFound
}

func (f *fakeRepository) UpsertSubscription(sub *models.BillingSubscription) error {
	key := sub.Provider + "|" + sub.ProviderSubscriptionID
	if existing, ok := f.subscriptions[key]; ok {
		sub.ID = existing.ID
	} else {
		sub.ID = f.id()
	}
	stored := *sub
	f.subscriptions[key] = &stored
	return nil
}

func (f *fakeRepository) ListSubscriptionsByUser(userID uint) ([]models.BillingSubscription, error) {
	var out []models.BillingSubscription
	for _, sub := range f.subscriptions {
		if sub.UserID == userID {
			out = append(out, *sub)
		}
	}
	return out, nil
}

func (f *fakeRepository) GetOrCreateUserSettings(userID uint) (*models.UserSettings, error) {
	if us, ok := f.settings[userID]; ok {
		return us, nil
	}
	us := &models.UserSettings{ID: f.id(), UserID: userID, Plan: "free"}
	f.settings[userID] = us
	return us, nil
}

func (f *fakeRepository) SaveUserSettings(us *models.UserSettings) error {
	f.settings[us.UserID] = us
	return nil
}

func (f *fakeRepository) CreateWebhookEventIfNotExists(event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error) {
	key := event.Provider + "|" + event.ProviderEventID
	if existing, ok := f.events[key]; ok {
		copied := *existing
		return false, &copied, nil
	}
	event.ID = f.id()
	stored := *event
	f.events[key] = &stored
	copied := stored
	return true, &copied, nil
}

func (f *fakeRepository) MarkWebhookProcessed(id uint, processingError string) error {
	for _, event := range f.events {
		if event.ID == id {
			event.ProcessingError = processingError
			return nil
		}
	}
	return gorm.ErrRecordNotFound
}

func proMapping() models.BillingPlanMapping {
	return models.BillingPlanMapping{
		Provider:        models.BillingProviderStripe,
		ProviderPlanRef: "price_pro_month",
		BillingInterval: "month",
		InternalPlan:    "pro",
		IsActive:        true,
	}
}

func TestResolveMappedPlan(t *testing.T) {
	repo := newFakeRepository()
	repo.mappings = append(repo.mappings,
		proMapping(),
		models.BillingPlanMapping{
			Provider:        models.BillingProviderStripe,
			ProviderPlanRef: "price_ent_any",
			BillingInterval: "unknown",
			InternalPlan:    "enterprise",
			IsActive:        true,
		},
	)
	svc := NewService(repo)
	ctx := context.Background()

	plan, err := svc.ResolveMappedPlan(ctx, "stripe", "price_pro_month", "month")
	if err != nil || plan != "pro" {
		t.Fatalf("exact interval match: got (%q, %v), want (pro, nil)", plan, err)
	}

	// No exact interval row, but an "unknown" fallback mapping exists.
	plan, err = svc.ResolveMappedPlan(ctx, "stripe", "price_ent_any", "year")
	if err != nil || plan != "enterprise" {
		t.Fatalf("interval fallback: got (%q, %v), want (enterprise, nil)", plan, err)
	}

	// Completely unmapped refs degrade to free.
	plan, err = svc.ResolveMappedPlan(ctx, "stripe", "price_unmapped", "month")
	if plan != "free" {
		t.Fatalf("unmapped ref: got %q, want free", plan)
	}
	if err != gorm.ErrRecordNotFound {
		t.Fatalf("unmapped ref: got err %v, want gorm.ErrRecordNotFound", err)
	}
}

func TestSyncSubscriptionUpdatesUserPlan(t *testing.T) {
	repo := newFakeRepository()
	repo.mappings = append(repo.mappings, proMapping())
	svc := NewService(repo)
	ctx := context.Background()

	sub, effective, err := svc.SyncSubscription(ctx, NormalizedSubscription{
		UserID:                 7,
		Provider:               "stripe",
		ProviderSubscriptionID: "sub_1",
		ProviderPlanRef:        "price_pro_month",
		BillingInterval:        "month",
		Status:                 "active",
	})
	if err != nil {
		t.Fatalf("SyncSubscription: %v", err)
	}
	if sub.InternalPlan != "pro" {
		t.Fatalf("got internal plan %q, want pro", sub.InternalPlan)
	}
	if effective != "pro" {
		t.Fatalf("got effective plan %q, want pro", effective)
	}
	if repo.settings[7].Plan != "pro" {
		t.Fatalf("user settings plan not reconciled, got %q", repo.settings[7].Plan)
	}
}

func TestSyncSubscriptionCancellationDowngrades(t *testing.T) {
	repo := newFakeRepository()
	repo.mappings = append(repo.mappings, proMapping())
	svc := NewService(repo)
	ctx := context.Background()

	if _, _, err := svc.SyncSubscription(ctx, NormalizedSubscription{
		UserID: 7, Provider: "stripe", ProviderSubscriptionID: "sub_1",
		ProviderPlanRef: "price_pro_month", BillingInterval: "month", Status: "active",
	}); err != nil {
		t.Fatalf("SyncSubscription: %v", err)
	}

	_, effective, err := svc.SyncSubscription(ctx, NormalizedSubscription{
		UserID: 7, Provider: "stripe", ProviderSubscriptionID: "sub_1",
		ProviderPlanRef: "price_pro_month", BillingInterval: "month", Status: "canceled",
	})
	if err != nil {
		t.Fatalf("SyncSubscription: %v", err)
	}
	if effective != "free" {
		t.Fatalf("canceled subscription must downgrade to free, got %q", effective)
	}
	if repo.settings[7].Plan != "free" {
		t.Fatalf("user settings not downgraded, got %q", repo.settings[7].Plan)
	}
}

func TestEffectivePlanDefaultsToFreeActive(t *testing.T) {
	svc := NewService(newFakeRepository())

	plan, status, err := svc.EffectivePlan(context.Background(), 42)
	if err != nil {
		t.Fatalf("EffectivePlan: %v", err)
	}
	if plan.Type != plancatalog.PlanFree {
		t.Fatalf("got plan %q, want free", plan.Type)
	}
	if status != models.SubscriptionStatusActive {
		t.Fatalf("got status %q, want active", status)
	}
}

func TestEffectivePlanBestEntitlingWinsAndContributesStatus(t *testing.T) {
	repo := newFakeRepository()
	repo.subscriptions["stripe|sub_pro"] = &models.BillingSubscription{
		ID: 1, UserID: 7, Provider: "stripe", ProviderSubscriptionID: "sub_pro",
		InternalPlan: "pro", Status: models.SubscriptionStatusPastDue,
	}
	repo.subscriptions["stripe|sub_old"] = &models.BillingSubscription{
		ID: 2, UserID: 7, Provider: "stripe", ProviderSubscriptionID: "sub_old",
		InternalPlan: "enterprise", Status: models.SubscriptionStatusCanceled,
	}
	svc := NewService(repo)

	plan, status, err := svc.EffectivePlan(context.Background(), 7)
	if err != nil {
		t.Fatalf("EffectivePlan: %v", err)
	}
	// The canceled enterprise subscription is not entitling; the past_due
	// pro subscription wins and carries its status into enforcement.
	if plan.Type != plancatalog.PlanPro {
		t.Fatalf("got plan %q, want pro", plan.Type)
	}
	if status != models.SubscriptionStatusPastDue {
		t.Fatalf("got status %q, want past_due", status)
	}
}

func TestRecordWebhookEventIdempotent(t *testing.T) {
	svc := NewService(newFakeRepository())
	ctx := context.Background()
	in := WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	}

	created, first, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil || !created {
		t.Fatalf("first record: created=%v err=%v", created, err)
	}
	created, second, err := svc.RecordWebhookEvent(ctx, in)
	if err != nil {
		t.Fatalf("second record: %v", err)
	}
	if created {
		t.Fatalf("duplicate event must not be recorded as new")
	}
	if first.ID != second.ID {
		t.Fatalf("duplicate record must resolve to the same event row")
	}
}

func TestRecordWebhookEventHashFallbackID(t *testing.T) {
	repo := newFakeRepository()
	svc := NewService(repo)
	ctx := context.Background()

	created, event, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:    "stripe",
		EventType:   "charge.succeeded",
		PayloadJSON: `{"no":"id"}`,
	})
	if err != nil || !created {
		t.Fatalf("record: created=%v err=%v", created, err)
	}
	if len(event.ProviderEventID) != len("hash:")+64 || event.ProviderEventID[:5] != "hash:" {
		t.Fatalf("expected sha256 fallback event ID, got %q", event.ProviderEventID)
	}

	// The same payload hashes to the same ID, keeping retries idempotent.
	created, _, err = svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:    "stripe",
		EventType:   "charge.succeeded",
		PayloadJSON: `{"no":"id"}`,
	})
	if err != nil || created {
		t.Fatalf("retry with identical payload must dedupe, created=%v err=%v", created, err)
	}
}

func TestRecordWebhookEventUnverifiedDoesNotBlockGenuine(t *testing.T) {
	svc := NewService(newFakeRepository())
	ctx := context.Background()

	// An unverified delivery claiming a real event ID must not reserve it.
	created, forged, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{"id":"evt_1","forged":true}`,
		SignatureValid:  false,
	})
	if err != nil || !created {
		t.Fatalf("unverified record: created=%v err=%v", created, err)
	}
	if forged.ProviderEventID == "evt_1" {
		t.Fatalf("unverified delivery must not be stored under the claimed event ID")
	}
	if forged.ProviderEventID[:5] != "hash:" {
		t.Fatalf("unverified delivery should get a payload-hash ID, got %q", forged.ProviderEventID)
	}

	// The genuine delivery with a valid signature still records as new.
	created, genuine, err := svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		EventType:       "customer.subscription.updated",
		PayloadJSON:     `{"id":"evt_1"}`,
		SignatureValid:  true,
	})
	if err != nil || !created {
		t.Fatalf("genuine record after unverified one: created=%v err=%v", created, err)
	}
	if genuine.ProviderEventID != "evt_1" {
		t.Fatalf("genuine delivery keeps its provider event ID, got %q", genuine.ProviderEventID)
	}

	// Replays of the same unverified payload still dedupe among themselves.
	created, _, err = svc.RecordWebhookEvent(ctx, WebhookEventInput{
		Provider:        "stripe",
		ProviderEventID: "evt_1",
		PayloadJSON:     `{"id":"evt_1","forged":true}`,
		SignatureValid:  false,
	})
	if err != nil || created {
		t.Fatalf("replayed unverified payload must dedupe, created=%v err=%v", created, err)
	}
}

func TestUpsertBillingAccountValidation(t *testing.T) {
	svc := NewService(newFakeRepository())
	ctx := context.Background()

	if _, err := svc.UpsertBillingAccount(ctx, 0, "stripe", "cus_1", ""); err == nil {
		t.Fatalf("expected missing user ID to be rejected")
	}
	if _, err := svc.UpsertBillingAccount(ctx, 1, "", "cus_1", ""); err == nil {
		t.Fatalf("expected missing provider to be rejected")
	}

	account, err := svc.UpsertBillingAccount(ctx, 1, "Stripe", " cus_1 ", "user@example.com")
	if err != nil {
		t.Fatalf("UpsertBillingAccount: %v", err)
	}
	if account.Provider != "stripe" || account.ProviderAccountID != "cus_1" {
		t.Fatalf("expected normalized provider fields, got %+v", account)
	}

	found, err := svc.GetBillingAccountByProviderAccountID(ctx, "stripe", "cus_1")
	if err != nil {
		t.Fatalf("GetBillingAccountByProviderAccountID: %v", err)
	}
	if found.UserID != 1 {
		t.Fatalf("got user %d, want 1", found.UserID)
	}
}

func TestReconcileUserPlanMultipleSubscriptions(t *testing.T) {
	repo := newFakeRepository()
	for i, plan := range []string{"pro", "enterprise", "free"} {
		key := fmt.Sprintf("stripe|sub_%d", i)
		repo.subscriptions[key] = &models.BillingSubscription{
			ID: uint(i + 1), UserID: 9, Provider: "stripe",
			ProviderSubscriptionID: fmt.Sprintf("sub_%d", i),
			InternalPlan:           plan, Status: models.SubscriptionStatusActive,
		}
	}
	svc := NewService(repo)

	effective, err := svc.ReconcileUserPlan(context.Background(), 9)
	if err != nil {
		t.Fatalf("ReconcileUserPlan: %v", err)
	}
	if effective != "enterprise" {
		t.Fatalf("got %q, want the highest-ranked entitling plan", effective)
	}
	if repo.settings[9].Plan != "enterprise" {
		t.Fatalf("settings not updated, got %q", repo.settings[9].Plan)
	}
}
