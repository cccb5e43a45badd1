package repository

import (
	"time"

	"github.com/panorago/panorago/app/models"
)

// UserRepository defines the interface for user-related database operations
type UserRepository interface {
	Create(user *models.User) error
	GetByID(id uint) (*models.User, error)
	GetByEmail(email string) (*models.User, error)
	GetByActivationToken(token string) (*models.User, error)
	GetByAPIKeyHash(hash string) (*models.User, *models.UserSettings, error)
	Update(user *models.User) error
	Delete(id uint) error
	Count() (int64, error)
}

// VisitRepository defines the interface for aggregated embed-visit rows
type VisitRepository interface {
	GetDailyCounts(tourID string, startDate, endDate time.Time) ([]models.TourVisitDaily, error)
	GetTotalsByUser(userID uint) (map[string]int64, error)
	GetTotalForTour(tourID string) (int64, error)
}
