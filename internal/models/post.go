package models

import "github.com/google/uuid"

// AnonymousAuthorID is the sentinel stored in AuthorID when content is
// posted anonymously. RealAuthorID always holds the true author.
const AnonymousAuthorID = "anonymous"

type Post struct {
	BaseModel
	Content      string    `json:"content" gorm:"type:text;not null"`
	ImageURL     *string   `json:"imageURL,omitempty" gorm:"type:text"`
	AuthorID     string    `json:"-" gorm:"type:varchar(36);not null;index"`
	RealAuthorID uuid.UUID `json:"-" gorm:"type:uuid;not null;index"`
	Username     string    `json:"-" gorm:"type:varchar(201);not null"`
	IsAnonymous  bool      `json:"isAnonymous" gorm:"not null;default:false"`
	Likes        []string  `json:"-" gorm:"type:jsonb;serializer:json"`

	RealAuthor *User `json:"-" gorm:"foreignKey:RealAuthorID"`
}

func (Post) TableName() string {
	return "posts"
}

// StoredAuthorID returns the value AuthorID must hold for the given
// anonymity flag: the sentinel when anonymous, the real id otherwise.
func StoredAuthorID(realAuthorID uuid.UUID, isAnonymous bool) string {
	if isAnonymous {
		return AnonymousAuthorID
	}
	return realAuthorID.String()
}

// LikedBy reports whether userID is in the likes set.
func (p *Post) LikedBy(userID string) bool {
	for _, id := range p.Likes {
		if id == userID {
			return true
		}
	}
	return false
}
