package plancatalog

import "strings"

type PlanType string

const (
	PlanFree       PlanType = "free"
	PlanPro        PlanType = "pro"
	PlanEnterprise PlanType = "enterprise"
)

// Limits holds the numeric and feature limits of a plan tier.
type Limits struct {
	MaxTours            int  `json:"max_tours"`
	MaxScenesPerTour    int  `json:"max_scenes_per_tour"`
	MaxHotspotsPerScene int  `json:"max_hotspots_per_scene"`
	VideoSupport        bool `json:"video_support"`
	CustomBranding      bool `json:"custom_branding"`
	Analytics           bool `json:"analytics"`
	TeamMembers         int  `json:"team_members"`
	APIAccess           bool `json:"api_access"`
	PrioritySupport     bool `json:"priority_support"`
}

// Plan is an immutable catalog entry describing a subscription tier.
type Plan struct {
	ID                string   `json:"id"`
	Name              string   `json:"name"`
	Type              PlanType `json:"type"`
	PriceMonthlyCents int      `json:"price_monthly_cents"`
	PriceYearlyCents  int      `json:"price_yearly_cents"`
	Limits            Limits   `json:"limits"`
}

// The catalog is built once at process start and never mutated.
var catalog = []Plan{
	{
		ID:   "plan_free",
		Name: "Free",
		Type: PlanFree,
		Limits: Limits{
			MaxTours:            3,
			MaxScenesPerTour:    10,
			MaxHotspotsPerScene: 5,
			TeamMembers:         1,
		},
	},
	{
		ID:                "plan_pro",
		Name:              "Pro",
		Type:              PlanPro,
		PriceMonthlyCents: 1900,
		PriceYearlyCents:  19000,
		Limits: Limits{
			MaxTours:            25,
			MaxScenesPerTour:    50,
			MaxHotspotsPerScene: 20,
			VideoSupport:        true,
			CustomBranding:      true,
			Analytics:           true,
			TeamMembers:         3,
		},
	},
	{
		ID:                "plan_enterprise",
		Name:              "Enterprise",
		Type:              PlanEnterprise,
		PriceMonthlyCents: 9900,
		PriceYearlyCents:  99000,
		Limits: Limits{
			MaxTours:            200,
			MaxScenesPerTour:    200,
			MaxHotspotsPerScene: 50,
			VideoSupport:        true,
			CustomBranding:      true,
			Analytics:           true,
			TeamMembers:         10,
			APIAccess:           true,
			PrioritySupport:     true,
		},
	},
}

// FreePlan returns the fixed fallback plan used when a paid subscription
// lapses or no subscription can be resolved to a paid tier.
func FreePlan() *Plan {
	p, _ := ByType(PlanFree)
	return p
}

// ByID looks up a plan by its catalog ID.
func ByID(id string) (*Plan, bool) {
	for i := range catalog {
		if catalog[i].ID == id {
			return &catalog[i], true
		}
	}
	return nil, false
}

// ByType looks up a plan by tier type.
func ByType(t PlanType) (*Plan, bool) {
	for i := range catalog {
		if catalog[i].Type == t {
			return &catalog[i], true
		}
	}
	return nil, false
}

// All returns the full catalog in display order.
func All() []Plan {
	out := make([]Plan, len(catalog))
	copy(out, catalog)
	return out
}

// Normalize maps arbitrary plan strings to a known tier, defaulting to free.
func Normalize(plan string) PlanType {
	switch strings.ToLower(strings.TrimSpace(plan)) {
	case string(PlanPro):
		return PlanPro
	case string(PlanEnterprise):
		return PlanEnterprise
	default:
		return PlanFree
	}
}

// Rank orders tiers so a better plan always wins when a user holds
// multiple subscriptions.
func Rank(t PlanType) int {
	switch t {
	case PlanEnterprise:
		return 2
	case PlanPro:
		return 1
	default:
		return 0
	}
}
