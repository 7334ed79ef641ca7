package models

import "github.com/google/uuid"

// Comment covers both top-level comments and replies. A reply carries
// the id of its parent comment; replies never nest further.
type Comment struct {
	BaseModel
	PostID       uuid.UUID  `json:"postID" gorm:"type:uuid;not null;index"`
	ParentID     *uuid.UUID `json:"parentID,omitempty" gorm:"type:uuid;index"`
	Content      string     `json:"content" gorm:"type:text;not null"`
	AuthorID     string     `json:"-" gorm:"type:varchar(36);not null;index"`
	RealAuthorID uuid.UUID  `json:"-" gorm:"type:uuid;not null;index"`
	Username     string     `json:"-" gorm:"type:varchar(201);not null"`
	IsAnonymous  bool       `json:"isAnonymous" gorm:"not null;default:false"`
	Likes        []string   `json:"-" gorm:"type:jsonb;serializer:json"`

	Post       Post  `json:"-" gorm:"foreignKey:PostID"`
	RealAuthor *User `json:"-" gorm:"foreignKey:RealAuthorID"`
}

func (Comment) TableName() string {
	return "comments"
}

func (c *Comment) LikedBy(userID string) bool {
	for _, id := range c.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
