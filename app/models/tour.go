package models

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

const (
	TourTypeImage = "image"
	TourTypeVideo = "video"
)

const (
	SceneTypeImage = "image"
	SceneTypeVideo = "video"
)

const (
	HotspotTypeText  = "text"
	HotspotTypeImage = "image"
	HotspotTypeVideo = "video"
	HotspotTypeAudio = "audio"
	HotspotTypeScene = "scene" // navigation to another scene
)

// Position is a point on the panorama sphere in viewer coordinates.
type Position struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// HotspotStyle carries optional per-hotspot presentation overrides.
type HotspotStyle struct {
	Icon  string  `json:"icon,omitempty"`
	Color string  `json:"color,omitempty"`
	Scale float64 `json:"scale,omitempty"`
}

// Hotspot is an interactive marker placed within a scene.
type Hotspot struct {
	ID            int          `json:"id"`
	Type          string       `json:"type" validate:"oneof=text image video audio scene"`
	Position      Position     `json:"position"`
	Title         string       `json:"title" validate:"max=200"`
	Text          string       `json:"text,omitempty" validate:"max=2000"`
	MediaURL      string       `json:"media_url,omitempty" validate:"omitempty,url,max=2048"`
	TargetSceneID int          `json:"target_scene_id,omitempty"`
	Style         HotspotStyle `json:"style,omitempty"`
}

// Scene is one 360° viewpoint within a tour.
type Scene struct {
	ID       int       `json:"id"`
	Name     string    `json:"name" validate:"max=200"`
	Type     string    `json:"type" validate:"oneof=image video"`
	MediaURL string    `json:"media_url" validate:"required,url,max=2048"`
	Order    int       `json:"order"`
	Hotspots []Hotspot `json:"hotspots" validate:"dive"`
}

// Tour is the unit of content owned by one user. It is persisted as a JSON
// document in object storage; scene ordering is meaningful and the ID is
// stable across updates.
type Tour struct {
	ID          string    `json:"id" validate:"required"`
	Name        string    `json:"name" validate:"required,min=1,max=200"`
	Description string    `json:"description" validate:"max=2000"`
	Type        string    `json:"type" validate:"oneof=image video"`
	IsDraft     bool      `json:"is_draft"`
	Scenes      []Scene   `json:"scenes" validate:"dive"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTour creates an empty draft tour with a fresh ID.
func NewTour(name, description, tourType string) *Tour {
	now := time.Now().UTC()
	if tourType == "" {
		tourType = TourTypeImage
	}
	return &Tour{
		ID:          uuid.NewString(),
		Name:        name,
		Description: description,
		Type:        tourType,
		IsDraft:     true,
		Scenes:      []Scene{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func (t *Tour) Validate() error {
	v := validator.New()
	return v.Struct(t)
}

// IsPublished reports whether the tour is publicly viewable/embeddable.
func (t *Tour) IsPublished() bool {
	return !t.IsDraft
}

// SceneCount returns the number of scenes in the tour.
func (t *Tour) SceneCount() int {
	return len(t.Scenes)
}

// HasVideoScene reports whether any scene uses a video source.
func (t *Tour) HasVideoScene() bool {
	for _, s := range t.Scenes {
		if s.Type == SceneTypeVideo {
			return true
		}
	}
	return false
}
