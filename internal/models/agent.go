package models

import "time"

// Gender of a field agent
type Gender string

// Gender constants
const (
	GenderMale        Gender = "MALE"
	GenderFemale      Gender = "FEMALE"
	GenderOther       Gender = "OTHER"
	GenderUnspecified Gender = "UNSPECIFIED"
)

// Agent represents a field worker linked to a platform user
type Agent struct {
	ID                int64     `json:"id" db:"id"`
	UserID            int64     `json:"userId" db:"user_id"`
	Address           string    `json:"address,omitempty" db:"address"`
	Gender            Gender    `json:"gender" db:"gender"`
	ProfilePictureURL string    `json:"profilePictureUrl,omitempty" db:"profile_picture_url"`
	CreatedAt         time.Time `json:"createdAt" db:"created_at"`
}
