package tours

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2/log"

	"github.com/panorago/panorago/app/models"
	"github.com/panorago/panorago/internal/pkg/enforcement"
	"github.com/panorago/panorago/internal/pkg/plancatalog"
	"github.com/panorago/panorago/internal/pkg/tourstore"
)

// ErrTourNotFound mirrors the store sentinel for callers that don't import it.
var ErrTourNotFound = tourstore.ErrTourNotFound

// SubscriptionSource supplies the plan snapshot enforcement runs against.
// A nil plan means no subscription could be resolved.
type SubscriptionSource interface {
	EffectivePlan(ctx context.Context, userID uint) (*plancatalog.Plan, string, error)
}

// Service owns the per-user tour collection semantics: CRUD against the
// document store, the publish guard, and the enforcement pass with its
// disabled-state bookkeeping for the UI query surface.
type Service struct {
	store tourstore.Store
	subs  SubscriptionSource

	mu       sync.RWMutex
	disabled map[uint]*disabledState
}

type disabledState struct {
	ids    map[string]struct{}
	reason enforcement.Reason
}

func NewService(store tourstore.Store, subs SubscriptionSource) *Service {
	return &Service{
		store:    store,
		subs:     subs,
		disabled: make(map[uint]*disabledState),
	}
}

// ListTours returns the user's tours ordered by ascending creation time.
func (s *Service) ListTours(ctx context.Context, userID uint) ([]models.Tour, error) {
	tours, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(tours, func(i, j int) bool {
		if tours[i].CreatedAt.Equal(tours[j].CreatedAt) {
			return tours[i].ID < tours[j].ID
		}
		return tours[i].CreatedAt.Before(tours[j].CreatedAt)
	})
	return tours, nil
}

// GetTour loads a single tour.
func (s *Service) GetTour(ctx context.Context, userID uint, tourID string) (*models.Tour, error) {
	return s.store.Get(ctx, userID, tourID)
}

// CreateTour creates a new draft tour and persists it before returning.
func (s *Service) CreateTour(ctx context.Context, userID uint, name, description, tourType string) (*models.Tour, error) {
	tour := models.NewTour(strings.TrimSpace(name), strings.TrimSpace(description), tourType)
	if err := tour.Validate(); err != nil {
		return nil, err
	}
	if err := s.store.Put(ctx, userID, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

// UpdateTour persists an edited tour. The update is two-phase: the document
// is written first and only a confirmed write yields the updated value, so a
// failed save never leaves callers holding unconfirmed state.
func (s *Service) UpdateTour(ctx context.Context, userID uint, tour *models.Tour) (*models.Tour, error) {
	if err := tour.Validate(); err != nil {
		return nil, err
	}
	existing, err := s.store.Get(ctx, userID, tour.ID)
	if err != nil {
		return nil, err
	}
	// ID and creation time are stable across updates.
	tour.CreatedAt = existing.CreatedAt
	tour.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, userID, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

// DeleteTour removes a tour document and forgets any disabled state for it.
func (s *Service) DeleteTour(ctx context.Context, userID uint, tourID string) error {
	exists, err := s.store.Exists(ctx, userID, tourID)
	if err != nil {
		return err
	}
	if !exists {
		return ErrTourNotFound
	}
	if err := s.store.Delete(ctx, userID, tourID); err != nil {
		return err
	}

	s.mu.Lock()
	if state, ok := s.disabled[userID]; ok {
		delete(state.ids, tourID)
	}
	s.mu.Unlock()
	return nil
}

// PublishTour flips a draft to published. Publication always re-checks
// eligibility against the current plan so a downgrade racing a publish
// action can never leave an ineligible tour published.
func (s *Service) PublishTour(ctx context.Context, userID uint, tourID string) (*models.Tour, enforcement.Decision, error) {
	tour, err := s.store.Get(ctx, userID, tourID)
	if err != nil {
		return nil, enforcement.Decision{}, err
	}
	if tour.IsPublished() {
		return tour, enforcement.Decision{IsAllowed: true}, nil
	}

	plan, _, err := s.subs.EffectivePlan(ctx, userID)
	if err != nil {
		return nil, enforcement.Decision{}, err
	}

	all, err := s.store.List(ctx, userID)
	if err != nil {
		return nil, enforcement.Decision{}, err
	}
	published := 0
	for i := range all {
		if all[i].IsPublished() {
			published++
		}
	}

	// The tour's own publication counts toward its limit check.
	candidate := *tour
	candidate.IsDraft = false
	decision := enforcement.CheckTourEligibility(&candidate, plan, published+1)
	if !decision.IsAllowed {
		return tour, decision, nil
	}

	tour.IsDraft = false
	tour.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, userID, tour); err != nil {
		return nil, enforcement.Decision{}, err
	}

	s.mu.Lock()
	if state, ok := s.disabled[userID]; ok {
		delete(state.ids, tourID)
	}
	s.mu.Unlock()
	return tour, decision, nil
}

// UnpublishTour flips a published tour back to draft.
func (s *Service) UnpublishTour(ctx context.Context, userID uint, tourID string) (*models.Tour, error) {
	tour, err := s.store.Get(ctx, userID, tourID)
	if err != nil {
		return nil, err
	}
	if tour.IsDraft {
		return tour, nil
	}
	tour.IsDraft = true
	tour.UpdatedAt = time.Now().UTC()
	if err := s.store.Put(ctx, userID, tour); err != nil {
		return nil, err
	}
	return tour, nil
}

// ApplyEnforcement reconciles the user's tours against the current plan and
// subscription status. Newly disabled tours are flipped to draft in the
// store best-effort: a failed write is logged and the in-memory decision
// stands, so an over-limit tour never stays visibly published because of a
// storage hiccup.
func (s *Service) ApplyEnforcement(ctx context.Context, userID uint) (enforcement.Result, error) {
	plan, status, err := s.subs.EffectivePlan(ctx, userID)
	if err != nil {
		// A failed subscription fetch is a valid decision input: with no
		// resolvable plan every tour is denied (plan_downgraded).
		log.Errorf("[Tours] subscription lookup failed for user %d: %v", userID, err)
		plan, status = nil, ""
	}

	snapshot, err := s.store.List(ctx, userID)
	if err != nil {
		return enforcement.Result{}, err
	}

	result := enforcement.EnforceSubscriptionLimits(snapshot, plan, status)

	byID := make(map[string]*models.Tour, len(snapshot))
	for i := range snapshot {
		byID[snapshot[i].ID] = &snapshot[i]
	}
	for _, id := range result.DisabledTours {
		tour, ok := byID[id]
		if !ok || tour.IsDraft {
			continue
		}
		tour.IsDraft = true
		tour.UpdatedAt = time.Now().UTC()
		if err := s.store.Put(ctx, userID, tour); err != nil {
			log.Errorf("[Tours] failed to persist draft flip for tour %s (user %d): %v", id, userID, err)
		}
	}

	ids := make(map[string]struct{}, len(result.DisabledTours))
	for _, id := range result.DisabledTours {
		ids[id] = struct{}{}
	}
	s.mu.Lock()
	s.disabled[userID] = &disabledState{ids: ids, reason: result.Reason}
	s.mu.Unlock()

	return result, nil
}

// IsTourDisabled reports whether the last enforcement pass disabled a tour.
func (s *Service) IsTourDisabled(userID uint, tourID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.disabled[userID]
	if !ok {
		return false
	}
	_, disabled := state.ids[tourID]
	return disabled
}

// DisabledReason returns the reason of the last enforcement pass, or
// ReasonNone when nothing is disabled.
func (s *Service) DisabledReason(userID uint) enforcement.Reason {
	s.mu.RLock()
	defer s.mu.RUnlock()
	state, ok := s.disabled[userID]
	if !ok || len(state.ids) == 0 {
		return enforcement.ReasonNone
	}
	return state.reason
}

// IsNotFound reports whether err is the store's not-found sentinel.
func IsNotFound(err error) bool {
	return errors.Is(err, tourstore.ErrTourNotFound)
}
