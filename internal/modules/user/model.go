// README: Registered users and the contact data notifications need.
package user

import (
	"strings"
	"time"

	"pickmeup/internal/types"
)

type User struct {
	ID          types.ID
	FirebaseUID string
	Email       string
	FirstName   string
	LastName    string
	DeviceToken string
	CreatedAt   time.Time
}

// Nominative is the "First Last" display name.
func (u User) Nominative() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Contact is the addressing data handed to notifiers.
func (u User) Contact() types.Contact {
	return types.Contact{
		UserID:      u.ID,
		Email:       u.Email,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		DeviceToken: u.DeviceToken,
	}
}

// Identity is what a verified sign-in token says about the caller.
type Identity struct {
	FirebaseUID string
	Email       string
	FirstName   string
	LastName    string
}

// IdentityFromClaims reads email and name claims of a Firebase ID token.
// A single "name" claim is split on the first space.
func IdentityFromClaims(uid string, claims map[string]interface{}) Identity {
	id := Identity{FirebaseUID: uid}
	if v, ok := claims["email"].(string); ok {
		id.Email = strings.TrimSpace(v)
	}
	first, _ := claims["given_name"].(string)
	last, _ := claims["family_name"].(string)
	if first == "" && last == "" {
		if name, ok := claims["name"].(string); ok {
			first, last, _ = strings.Cut(strings.TrimSpace(name), " ")
		}
	}
	id.FirstName = strings.TrimSpace(first)
	id.LastName = strings.TrimSpace(last)
	return id
}
