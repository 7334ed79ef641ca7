package models

import (
	"time"

	"github.com/google/uuid"
)

// Event is a campus event announcement. Events are created by staff
// and are never anonymous.
type Event struct {
	BaseModel
	Title       string    `json:"title" gorm:"type:varchar(200);not null"`
	Description string    `json:"description" gorm:"type:text;not null"`
	Location    string    `json:"location" gorm:"type:varchar(255);not null"`
	StartsAt    time.Time `json:"startsAt" gorm:"not null;index"`
	EndsAt      time.Time `json:"endsAt" gorm:"not null"`
	ImageURL    *string   `json:"imageURL,omitempty" gorm:"type:text"`
	CreatedByID uuid.UUID `json:"createdByID" gorm:"type:uuid;not null;index"`

	CreatedBy User `json:"createdBy,omitempty" gorm:"foreignKey:CreatedByID"`
}

func (Event) TableName() string {
	return "events"
}
