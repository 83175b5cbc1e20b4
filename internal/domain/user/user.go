package user

import "time"

// Preferences holds per-user settings mutable from the settings page.
type Preferences struct {
	Notifications bool `json:"notifications" bson:"notifications"`
}

// DefaultPreferences apply to every account at signup.
func DefaultPreferences() Preferences {
	return Preferences{Notifications: true}
}

type User struct {
	ID           string      `json:"id" bson:"_id"`
	Email        string      `json:"email" bson:"email"`
	PasswordHash string      `json:"-" bson:"password_hash"` // never expose hash in JSON
	DisplayName  string      `json:"displayName,omitempty" bson:"display_name,omitempty"`
	UserName     string      `json:"userName,omitempty" bson:"user_name,omitempty"`
	Preferences  Preferences `json:"preferences" bson:"preferences"`
	CreatedAt    time.Time   `json:"createdAt" bson:"created_at"`
	UpdatedAt    time.Time   `json:"-" bson:"updated_at"`
}
