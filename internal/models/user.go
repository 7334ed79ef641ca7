package models

type Role string

const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleModerator Role = "moderator"
	RoleAdmin     Role = "admin"
)

type User struct {
	BaseModel
	StudentID    string  `json:"studentID" gorm:"type:varchar(20);uniqueIndex;not null"`
	Email        string  `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	PasswordHash string  `json:"-" gorm:"type:text;not null"`
	FirstName    string  `json:"firstName" gorm:"type:varchar(100);not null"`
	LastName     string  `json:"lastName" gorm:"type:varchar(100);not null"`
	Course       *string `json:"course,omitempty" gorm:"type:varchar(150)"`
	YearLevel    *int    `json:"yearLevel,omitempty"`
	Role         Role    `json:"role" gorm:"type:varchar(20);not null;default:'student';index"`
	AvatarURL    *string `json:"avatarURL,omitempty" gorm:"type:text"`
}

func (u *User) FullName() string {
	switch {
	case u.FirstName == "":
		return u.LastName
	case u.LastName == "":
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
