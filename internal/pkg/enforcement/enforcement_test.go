package enforcement

import (
	"fmt"
	"testing"
	"time"

	"github.com/panorago/panorago/app/models"
	"github.com/panorago/panorago/internal/pkg/plancatalog"
)

var testEpoch = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func makeTour(id string, createdOffset time.Duration, draft bool, scenes, hotspotsPerScene int, video bool) models.Tour {
	t := models.Tour{
		ID:        id,
		Name:      "Tour " + id,
		Type:      models.TourTypeImage,
		IsDraft:   draft,
		CreatedAt: testEpoch.Add(createdOffset),
		UpdatedAt: testEpoch.Add(createdOffset),
	}
	for i := 0; i < scenes; i++ {
		scene := models.Scene{
			ID:       i + 1,
			Name:     fmt.Sprintf("Scene %d", i+1),
			Type:     models.SceneTypeImage,
			MediaURL: "https://cdn.example.com/pano.jpg",
			Order:    i,
		}
		if video && i == 0 {
			scene.Type = models.SceneTypeVideo
		}
		for j := 0; j < hotspotsPerScene; j++ {
			scene.Hotspots = append(scene.Hotspots, models.Hotspot{
				ID:   j + 1,
				Type: models.HotspotTypeText,
			})
		}
		t.Scenes = append(t.Scenes, scene)
	}
	return t
}

func mustPlan(t *testing.T, pt plancatalog.PlanType) *plancatalog.Plan {
	t.Helper()
	plan, ok := plancatalog.ByType(pt)
	if !ok {
		t.Fatalf("plan catalog is missing tier %q", pt)
	}
	return plan
}

func TestCheckTourEligibility_RuleOrder(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)

	tests := []struct {
		name           string
		tour           models.Tour
		publishedSoFar int
		wantAllowed    bool
		wantReason     Reason
	}{
		{
			name:           "within all limits",
			tour:           makeTour("a", 0, false, 3, 2, false),
			publishedSoFar: 1,
			wantAllowed:    true,
			wantReason:     ReasonNone,
		},
		{
			name:           "too many scenes",
			tour:           makeTour("a", 0, false, 11, 0, false),
			publishedSoFar: 1,
			wantAllowed:    false,
			wantReason:     ReasonLimitExceeded,
		},
		{
			name:           "too many hotspots in one scene",
			tour:           makeTour("a", 0, false, 2, 6, false),
			publishedSoFar: 1,
			wantAllowed:    false,
			wantReason:     ReasonLimitExceeded,
		},
		{
			name:           "video scene without video support",
			tour:           makeTour("a", 0, false, 2, 0, true),
			publishedSoFar: 1,
			wantAllowed:    false,
			wantReason:     ReasonLimitExceeded,
		},
		{
			name:           "published over tour count",
			tour:           makeTour("a", 0, false, 2, 0, false),
			publishedSoFar: 4,
			wantAllowed:    false,
			wantReason:     ReasonLimitExceeded,
		},
		{
			name:           "published at tour count boundary",
			tour:           makeTour("a", 0, false, 2, 0, false),
			publishedSoFar: 3,
			wantAllowed:    true,
			wantReason:     ReasonNone,
		},
	}

	for _, tt := range tests {
		got := CheckTourEligibility(&tt.tour, free, tt.publishedSoFar)
		if got.IsAllowed != tt.wantAllowed || got.Reason != tt.wantReason {
			t.Fatalf("%s: got {%v %q}, want {%v %q}", tt.name, got.IsAllowed, got.Reason, tt.wantAllowed, tt.wantReason)
		}
	}
}

func TestCheckTourEligibility_NilPlan(t *testing.T) {
	tour := makeTour("a", 0, false, 1, 0, false)
	got := CheckTourEligibility(&tour, nil, 1)
	if got.IsAllowed {
		t.Fatalf("expected nil plan to deny")
	}
	if got.Reason != ReasonPlanDowngraded {
		t.Fatalf("got reason %q, want %q", got.Reason, ReasonPlanDowngraded)
	}
}

// A draft never fails the count rule but still fails structural rules.
func TestCheckTourEligibility_DraftImmunity(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)

	draft := makeTour("a", 0, true, 2, 0, false)
	if got := CheckTourEligibility(&draft, free, 99); !got.IsAllowed {
		t.Fatalf("draft must not be denied by the published-count rule")
	}

	structural := makeTour("b", 0, true, 11, 0, false)
	got := CheckTourEligibility(&structural, free, 0)
	if got.IsAllowed {
		t.Fatalf("draft with too many scenes must still be denied")
	}
	if got.Reason != ReasonLimitExceeded {
		t.Fatalf("got reason %q, want %q", got.Reason, ReasonLimitExceeded)
	}
}

func TestEnforce_NilPlanDisablesAll(t *testing.T) {
	tours := []models.Tour{
		makeTour("a", 0, false, 1, 0, false),
		makeTour("b", time.Hour, true, 1, 0, false),
	}

	result := EnforceSubscriptionLimits(tours, nil, models.SubscriptionStatusActive)
	if result.IsAllowed {
		t.Fatalf("expected denial with nil plan")
	}
	if len(result.DisabledTours) != 2 {
		t.Fatalf("got %d disabled tours, want 2", len(result.DisabledTours))
	}
	if result.Reason != ReasonPlanDowngraded {
		t.Fatalf("got reason %q, want %q", result.Reason, ReasonPlanDowngraded)
	}
}

func TestEnforce_EmptyCollection(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)
	result := EnforceSubscriptionLimits(nil, free, models.SubscriptionStatusActive)
	if !result.IsAllowed || len(result.DisabledTours) != 0 || result.Reason != ReasonNone {
		t.Fatalf("empty collection must pass untouched, got %+v", result)
	}
}

// Four published tours on the free plan (max 3): only the newest is disabled,
// regardless of input order.
func TestEnforce_OldestFirstPreference(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)
	t1 := makeTour("t1", 1*time.Hour, false, 1, 0, false)
	t2 := makeTour("t2", 2*time.Hour, false, 1, 0, false)
	t3 := makeTour("t3", 3*time.Hour, false, 1, 0, false)
	t4 := makeTour("t4", 4*time.Hour, false, 1, 0, false)

	orders := [][]models.Tour{
		{t1, t2, t3, t4},
		{t4, t3, t2, t1},
		{t2, t4, t1, t3},
	}
	for _, tours := range orders {
		result := EnforceSubscriptionLimits(tours, free, models.SubscriptionStatusActive)
		if len(result.DisabledTours) != 1 || result.DisabledTours[0] != "t4" {
			t.Fatalf("got disabled %v, want [t4]", result.DisabledTours)
		}
		if result.Reason != ReasonLimitExceeded {
			t.Fatalf("got reason %q, want %q", result.Reason, ReasonLimitExceeded)
		}
	}
}

func TestEnforce_CreationTimeTieBreakByID(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)
	tours := []models.Tour{
		makeTour("d", 0, false, 1, 0, false),
		makeTour("b", 0, false, 1, 0, false),
		makeTour("c", 0, false, 1, 0, false),
		makeTour("a", 0, false, 1, 0, false),
	}

	result := EnforceSubscriptionLimits(tours, free, models.SubscriptionStatusActive)
	if len(result.DisabledTours) != 1 || result.DisabledTours[0] != "d" {
		t.Fatalf("got disabled %v, want [d]", result.DisabledTours)
	}
}

func TestEnforce_StructuralViolationOnActivePlan(t *testing.T) {
	pro := mustPlan(t, plancatalog.PlanPro)
	oversized := makeTour("big", 0, false, pro.Limits.MaxScenesPerTour+10, 0, false)
	ok := makeTour("ok", time.Hour, false, 3, 0, false)

	result := EnforceSubscriptionLimits([]models.Tour{ok, oversized}, pro, models.SubscriptionStatusActive)
	if !result.Disabled("big") {
		t.Fatalf("expected oversized tour to be disabled")
	}
	if result.Disabled("ok") {
		t.Fatalf("expected compliant tour to stay enabled")
	}
	if result.Reason != ReasonLimitExceeded {
		t.Fatalf("got reason %q, want %q", result.Reason, ReasonLimitExceeded)
	}
}

func TestEnforce_VideoAllowedOnEnterprise(t *testing.T) {
	enterprise := mustPlan(t, plancatalog.PlanEnterprise)
	tour := makeTour("v", 0, false, 3, 2, true)

	result := EnforceSubscriptionLimits([]models.Tour{tour}, enterprise, models.SubscriptionStatusActive)
	if !result.IsAllowed || len(result.DisabledTours) != 0 {
		t.Fatalf("expected video tour to stay enabled on enterprise, got %+v", result)
	}
}

// Payment lapsed on a paid plan: the collection is re-checked against
// free-tier limits and the newest published tours over the free cap are
// disabled.
func TestEnforce_PastDueFallsBackToFreeTier(t *testing.T) {
	pro := mustPlan(t, plancatalog.PlanPro)
	var tours []models.Tour
	for i := 1; i <= 5; i++ {
		tours = append(tours, makeTour(fmt.Sprintf("t%d", i), time.Duration(i)*time.Hour, false, 2, 1, false))
	}

	result := EnforceSubscriptionLimits(tours, pro, models.SubscriptionStatusPastDue)
	if len(result.DisabledTours) != 2 {
		t.Fatalf("got disabled %v, want the 2 newest", result.DisabledTours)
	}
	if result.DisabledTours[0] != "t4" || result.DisabledTours[1] != "t5" {
		t.Fatalf("got disabled %v, want [t4 t5]", result.DisabledTours)
	}
	if result.Reason != ReasonPlanDowngraded {
		t.Fatalf("got reason %q, want %q", result.Reason, ReasonPlanDowngraded)
	}
}

func TestEnforce_PastDueSkipsDrafts(t *testing.T) {
	pro := mustPlan(t, plancatalog.PlanPro)
	// A draft that violates free-tier structural limits has nothing to
	// disable; it is already not published.
	draft := makeTour("draft", 0, true, 20, 0, false)
	published := makeTour("pub", time.Hour, false, 2, 0, false)

	result := EnforceSubscriptionLimits([]models.Tour{draft, published}, pro, models.SubscriptionStatusPastDue)
	if result.Disabled("draft") {
		t.Fatalf("already-draft tours must not appear in the disabled set")
	}
	if result.Disabled("pub") {
		t.Fatalf("compliant published tour must survive the free-tier recheck")
	}
}

func TestEnforce_PastDueOnFreePlanUsesActivePath(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)
	tours := []models.Tour{makeTour("a", 0, false, 1, 0, false)}

	// Free has no payment to lapse; the normal walk applies.
	result := EnforceSubscriptionLimits(tours, free, models.SubscriptionStatusPastDue)
	if !result.IsAllowed {
		t.Fatalf("expected free-plan tour within limits to stay enabled, got %+v", result)
	}
}

// Tightening any single limit never shrinks the disabled set.
func TestEnforce_Monotonicity(t *testing.T) {
	base := mustPlan(t, plancatalog.PlanPro)
	var tours []models.Tour
	for i := 1; i <= 6; i++ {
		tours = append(tours, makeTour(fmt.Sprintf("t%d", i), time.Duration(i)*time.Hour, false, 4, 3, false))
	}
	baseline := EnforceSubscriptionLimits(tours, base, models.SubscriptionStatusActive)

	tighter := []plancatalog.Plan{*base, *base, *base}
	tighter[0].Limits.MaxTours = 2
	tighter[1].Limits.MaxScenesPerTour = 3
	tighter[2].Limits.MaxHotspotsPerScene = 2

	for i := range tighter {
		result := EnforceSubscriptionLimits(tours, &tighter[i], models.SubscriptionStatusActive)
		if len(result.DisabledTours) < len(baseline.DisabledTours) {
			t.Fatalf("tightened plan %d disabled fewer tours (%d) than baseline (%d)",
				i, len(result.DisabledTours), len(baseline.DisabledTours))
		}
	}
}

func TestEnforce_Idempotence(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)
	var tours []models.Tour
	for i := 1; i <= 5; i++ {
		tours = append(tours, makeTour(fmt.Sprintf("t%d", i), time.Duration(i)*time.Minute, false, 2, 1, false))
	}

	first := EnforceSubscriptionLimits(tours, free, models.SubscriptionStatusActive)
	second := EnforceSubscriptionLimits(tours, free, models.SubscriptionStatusActive)
	if len(first.DisabledTours) != len(second.DisabledTours) {
		t.Fatalf("repeat run differs: %v vs %v", first.DisabledTours, second.DisabledTours)
	}
	for i := range first.DisabledTours {
		if first.DisabledTours[i] != second.DisabledTours[i] {
			t.Fatalf("repeat run differs: %v vs %v", first.DisabledTours, second.DisabledTours)
		}
	}
}

func TestEnforce_DraftNeverDisabledForCount(t *testing.T) {
	free := mustPlan(t, plancatalog.PlanFree)
	var tours []models.Tour
	for i := 1; i <= 4; i++ {
		tours = append(tours, makeTour(fmt.Sprintf("p%d", i), time.Duration(i)*time.Hour, false, 1, 0, false))
	}
	// Newer than all published tours, structurally fine.
	tours = append(tours, makeTour("draft", 10*time.Hour, true, 1, 0, false))

	result := EnforceSubscriptionLimits(tours, free, models.SubscriptionStatusActive)
	if result.Disabled("draft") {
		t.Fatalf("draft must not be disabled for the published-count rule")
	}
	if !result.Disabled("p4") {
		t.Fatalf("expected newest published tour over the cap to be disabled")
	}
}
