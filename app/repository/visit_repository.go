package repository

import (
	"time"

	"gorm.io/gorm"

	"github.com/panorago/panorago/app/models"
)

// visitRepository implements the VisitRepository interface
type visitRepository struct {
	db *gorm.DB
}

// NewVisitRepository creates a new visit repository instance
func NewVisitRepository(db *gorm.DB) VisitRepository {
	return &visitRepository{db: db}
}

// GetDailyCounts returns the per-day visit rows of a tour in a date range
func (r *visitRepository) GetDailyCounts(tourID string, startDate, endDate time.Time) ([]models.TourVisitDaily, error) {
	var rows []models.TourVisitDaily
	err := r.db.
		Where("tour_id = ? AND visit_date BETWEEN ? AND ?",
			tourID, startDate.Format("2006-01-02"), endDate.Format("2006-01-02")).
		Order("visit_date ASC").
		Find(&rows).Error
	return rows, err
}

// GetTotalsByUser returns total visit counts keyed by tour ID for one user
func (r *visitRepository) GetTotalsByUser(userID uint) (map[string]int64, error) {
	type row struct {
		TourID string
		Total  int64
	}
	var rows []row
	err := r.db.Model(&models.TourVisitDaily{}).
		Select("tour_id, SUM(count) AS total").
		Where("user_id = ?", userID).
		Group("tour_id").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	totals := make(map[string]int64, len(rows))
	for _, r := range rows {
		totals[r.TourID] = r.Total
	}
	return totals, nil
}

// GetTotalForTour returns the all-time visit count of a tour
func (r *visitRepository) GetTotalForTour(tourID string) (int64, error) {
	var total int64
	err := r.db.Model(&models.TourVisitDaily{}).
		Select("COALESCE(SUM(count), 0)").
		Where("tour_id = ?", tourID).
		Scan(&total).Error
	return total, err
}
