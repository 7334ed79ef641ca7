package models

import (
	"time"

	"github.com/google/uuid"
)

type PollOption struct {
	Text   string   `json:"text"`
	Votes  int      `json:"votes"`
	Voters []string `json:"voters"`
}

type Poll struct {
	BaseModel
	Question      string       `json:"question" gorm:"type:text;not null"`
	Options       []PollOption `json:"options" gorm:"type:jsonb;serializer:json;not null"`
	AllowMultiple bool         `json:"allowMultiple" gorm:"not null;default:false"`
	MaxSelections int          `json:"maxSelections" gorm:"not null;default:1"`
	TotalVotes    int          `json:"totalVotes" gorm:"not null;default:0"`
	DurationMs    int64        `json:"durationMs" gorm:"not null"`
	ExpiresAt     time.Time    `json:"expiresAt" gorm:"not null;index"`
	AuthorID      string       `json:"-" gorm:"type:varchar(36);not null;index"`
	RealAuthorID  uuid.UUID    `json:"-" gorm:"type:uuid;not null;index"`
	Username      string       `json:"-" gorm:"type:varchar(201);not null"`
	IsAnonymous   bool         `json:"isAnonymous" gorm:"not null;default:false"`

	RealAuthor *User `json:"-" gorm:"foreignKey:RealAuthorID"`
}

func (Poll) TableName() string {
	return "polls"
}
