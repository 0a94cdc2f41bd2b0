package manifest

import "time"

// PackageManifest declares the packages a package depends on.
type PackageManifest struct {
	Name         string    `gorm:"primaryKey;size:191" json:"name"`
	Dependencies []string  `gorm:"serializer:json" json:"dependencies"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// ContentEntry maps a content id to the resource that holds it.
type ContentEntry struct {
	ContentID  string    `gorm:"primaryKey;size:191" json:"content_id"`
	Category   string    `gorm:"size:32;not null" json:"category"`
	Container  string    `gorm:"size:191" json:"container"`
	Name       string    `gorm:"size:512;not null" json:"name"`
	TargetType string    `gorm:"size:64" json:"target_type"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	manifestColumns = []string{"name", "dependencies", "updated_at"}
	contentColumns  = []string{"content_id", "category", "container", "name", "target_type", "updated_at"}
)
