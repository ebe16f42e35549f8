package models

import "time"

// Moderation statuses a plant record can be in.
const (
	// StatusPending is the initial status of every submission.
	StatusPending = "pending"
	// StatusAccepted makes a record visible in the public gallery.
	StatusAccepted = "accepted"
	// StatusRejected hides a record pending deletion or revision.
	StatusRejected = "rejected"
)

// ValidStatus reports whether s is one of the three moderation statuses.
func ValidStatus(s string) bool {
	return s == StatusPending || s == StatusAccepted || s == StatusRejected
}

// Plant represents a community-submitted plant species record.
type Plant struct {
	ID string `gorm:"type:uuid;primaryKey"` // Primary key.

	Name           *string `gorm:"type:text"`       // Common name.
	ScientificName *string `gorm:"type:text"`       // Binomial name.
	Family         *string `gorm:"type:text;index"` // Botanical family.
	Description    *string `gorm:"type:text"`       // Free-text description.

	Latitude  *float64 // Capture latitude, when shared.
	Longitude *float64 // Capture longitude, when shared.

	Status string `gorm:"type:text;not null;default:pending;index"` // Moderation status.

	AcceptedBy *string `gorm:"type:uuid"` // Admin who accepted the record.
	RejectedBy *string `gorm:"type:uuid"` // Admin who rejected the record.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Submission timestamp.
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime"` // Last mutation timestamp.
}

// PlantImage stores the optional photo attached to a submission.
// At most one image exists per plant and it is removed with the record.
type PlantImage struct {
	PlantID  string `gorm:"type:uuid;primaryKey"`                                // Owning plant id.
	Plant    Plant  `gorm:"constraint:OnDelete:CASCADE;foreignKey:PlantID"`      // FK with cascade delete.
	MimeType string `gorm:"type:text;not null;default:application/octet-stream"` // Stored content type.
	Data     []byte `gorm:"not null"`                                            // Raw image bytes.

	CreatedAt time.Time `gorm:"not null;autoCreateTime"` // Attachment timestamp.
}
