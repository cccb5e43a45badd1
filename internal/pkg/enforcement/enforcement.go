package enforcement

import (
	"sort"

	"github.com/panorago/panorago/app/models"
	"github.com/panorago/panorago/internal/pkg/plancatalog"
)

// Reason explains why a tour was disabled.
type Reason string

const (
	ReasonNone           Reason = ""
	ReasonPlanDowngraded Reason = "plan_downgraded"
	ReasonLimitExceeded  Reason = "limit_exceeded"
	ReasonPaymentFailed  Reason = "payment_failed"
)

// Decision is the outcome of an eligibility check for a single tour.
type Decision struct {
	IsAllowed bool
	Reason    Reason
}

// Result is the outcome of an enforcement pass over a full tour set. It is
// transient: recomputed whenever the plan, subscription status, or tour set
// changes, never persisted as its own record.
type Result struct {
	IsAllowed     bool
	DisabledTours []string
	Reason        Reason
}

// Disabled reports whether the given tour ID was marked for disabling.
func (r Result) Disabled(tourID string) bool {
	for _, id := range r.DisabledTours {
		if id == tourID {
			return true
		}
	}
	return false
}

// CheckTourEligibility decides whether a single tour may remain published
// under the given plan. publishedSoFar is the count of published tours
// considered ahead of (and including) this one. The check is pure and
// short-circuits on the first violated rule:
//
//  1. scene count over the plan limit
//  2. any scene with more hotspots than the plan limit
//  3. a video scene on a plan without video support
//  4. published tour beyond the published-tour limit
//
// A draft is exempt from rule 4 but still subject to the structural rules.
func CheckTourEligibility(tour *models.Tour, plan *plancatalog.Plan, publishedSoFar int) Decision {
	if plan == nil {
		return Decision{IsAllowed: false, Reason: ReasonPlanDowngraded}
	}
	if tour.SceneCount() > plan.Limits.MaxScenesPerTour {
		return Decision{IsAllowed: false, Reason: ReasonLimitExceeded}
	}
	for _, scene := range tour.Scenes {
		if len(scene.Hotspots) > plan.Limits.MaxHotspotsPerScene {
			return Decision{IsAllowed: false, Reason: ReasonLimitExceeded}
		}
	}
	if tour.HasVideoScene() && !plan.Limits.VideoSupport {
		return Decision{IsAllowed: false, Reason: ReasonLimitExceeded}
	}
	if tour.IsPublished() && publishedSoFar > plan.Limits.MaxTours {
		return Decision{IsAllowed: false, Reason: ReasonLimitExceeded}
	}
	return Decision{IsAllowed: true, Reason: ReasonNone}
}

// EnforceSubscriptionLimits reconciles a tour collection against the active
// plan and subscription status and returns the tours that must be disabled.
// The walk is deterministic (oldest tour first) so older tours are favored
// to remain enabled when the collection is over limit. The function is pure;
// flipping disabled tours to draft is the caller's responsibility.
func EnforceSubscriptionLimits(tours []models.Tour, plan *plancatalog.Plan, status string) Result {
	// No resolvable plan: deny everything.
	if plan == nil {
		disabled := make([]string, 0, len(tours))
		for i := range tours {
			disabled = append(disabled, tours[i].ID)
		}
		return Result{
			IsAllowed:     len(disabled) == 0,
			DisabledTours: disabled,
			Reason:        ReasonPlanDowngraded,
		}
	}

	// Payment lapsed on a paid plan: re-evaluate everything against the
	// free tier. The running count caps disabling at "tours over the free
	// cap" instead of failing every published tour against the bloated
	// actual count. Already-draft tours have nothing to disable.
	if status != models.SubscriptionStatusActive && plan.Type != plancatalog.PlanFree {
		free := plancatalog.FreePlan()
		disabled := []string{}
		published := 0
		for _, tour := range sortByCreation(tours) {
			if tour.IsPublished() {
				published++
			}
			decision := CheckTourEligibility(&tour, free, published)
			if !decision.IsAllowed && !tour.IsDraft {
				disabled = append(disabled, tour.ID)
			}
		}
		return Result{
			IsAllowed:     len(disabled) == 0,
			DisabledTours: disabled,
			Reason:        ReasonPlanDowngraded,
		}
	}

	// Active subscription: walk oldest first with a running published
	// count, incremented before each tour's own check so a tour's
	// publication counts toward its own limit.
	disabled := []string{}
	published := 0
	for _, tour := range sortByCreation(tours) {
		if tour.IsPublished() {
			published++
		}
		decision := CheckTourEligibility(&tour, plan, published)
		if !decision.IsAllowed {
			disabled = append(disabled, tour.ID)
		}
	}

	reason := ReasonNone
	if len(disabled) > 0 {
		reason = ReasonLimitExceeded
	}
	return Result{
		IsAllowed:     len(disabled) == 0,
		DisabledTours: disabled,
		Reason:        reason,
	}
}

// sortByCreation returns a copy of tours ordered by ascending creation time,
// with the ID as a stable tie-break.
func sortByCreation(tours []models.Tour) []models.Tour {
	sorted := make([]models.Tour, len(tours))
	copy(sorted, tours)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].CreatedAt.Equal(sorted[j].CreatedAt) {
			return sorted[i].ID < sorted[j].ID
		}
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})
	return sorted
}
