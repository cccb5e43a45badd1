package models

import "time"

// TourVisitDaily holds aggregated embed-visit counts per tour and day.
// Rows are written by the visit flusher draining pending Redis counters.
type TourVisitDaily struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	TourID    string    `gorm:"type:varchar(64);not null;index:ux_tour_visits_tour_date,unique,priority:1" json:"tour_id"`
	UserID    uint      `gorm:"not null;index" json:"user_id"`
	VisitDate string    `gorm:"type:varchar(10);not null;index:ux_tour_visits_tour_date,unique,priority:2" json:"visit_date"` // YYYY-MM-DD
	Count     int64     `gorm:"not null;default:0" json:"count"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
