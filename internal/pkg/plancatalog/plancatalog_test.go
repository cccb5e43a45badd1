package plancatalog

import "testing"

func TestFreePlanFallbackLimits(t *testing.T) {
	free := FreePlan()
	if free == nil {
		t.Fatalf("free plan must always exist")
	}
	if free.Limits.MaxTours != 3 || free.Limits.MaxScenesPerTour != 10 || free.Limits.MaxHotspotsPerScene != 5 {
		t.Fatalf("unexpected free-tier limits: %+v", free.Limits)
	}
	if free.Limits.VideoSupport {
		t.Fatalf("free tier must not include video support")
	}
}

func TestByIDAndByType(t *testing.T) {
	for _, plan := range All() {
		byID, ok := ByID(plan.ID)
		if !ok || byID.Type != plan.Type {
			t.Fatalf("ByID(%q) did not round-trip", plan.ID)
		}
		byType, ok := ByType(plan.Type)
		if !ok || byType.ID != plan.ID {
			t.Fatalf("ByType(%q) did not round-trip", plan.Type)
		}
	}
	if _, ok := ByID("plan_unknown"); ok {
		t.Fatalf("unknown plan ID must not resolve")
	}
}

func TestNormalize(t *testing.T) {
	tests := []struct {
		in   string
		want PlanType
	}{
		{in: "free", want: PlanFree},
		{in: "pro", want: PlanPro},
		{in: "PRO", want: PlanPro},
		{in: " enterprise ", want: PlanEnterprise},
		{in: "premium", want: PlanFree},
		{in: "", want: PlanFree},
	}
	for _, tt := range tests {
		if got := Normalize(tt.in); got != tt.want {
			t.Fatalf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestRankOrdering(t *testing.T) {
	if Rank(PlanFree) >= Rank(PlanPro) {
		t.Fatalf("expected pro to outrank free")
	}
	if Rank(PlanPro) >= Rank(PlanEnterprise) {
		t.Fatalf("expected enterprise to outrank pro")
	}
}

func TestAllReturnsCopy(t *testing.T) {
	plans := All()
	plans[0].Limits.MaxTours = 999
	if FreePlan().Limits.MaxTours == 999 {
		t.Fatalf("All must not expose the internal catalog for mutation")
	}
}
