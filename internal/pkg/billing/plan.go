package billing

import (
	"strings"

	"github.com/panorago/panorago/internal/pkg/plancatalog"
)

// normalizePlan and planRank defer to the plan catalog so billing never
// grows its own idea of which plans exist.
func normalizePlan(plan string) string {
	return string(plancatalog.Normalize(plan))
}

func planRank(plan string) int {
	return plancatalog.Rank(plancatalog.Normalize(plan))
}

func normalizeInterval(interval string) string {
	i := strings.ToLower(strings.TrimSpace(interval))
	switch i {
	case "month", "year":
		return i
	default:
		return "unknown"
	}
}

func isEntitlingStatus(status string) bool {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "active", "trialing", "past_due":
		return true
	default:
		return false
	}
}
