package identities

import "time"

// Identity is a registered account. PasswordDigest is the argon2id encoding
// of the password and must never leave the service boundary; transports
// expose identities through Summary instead.
type Identity struct {
	ID             string
	Username       string
	Email          string
	PasswordDigest string
	AvatarKey      string
	CreatedAt      time.Time
}

// Summary is the caller-visible projection of an Identity.
type Summary struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary returns the projection of i safe to hand to clients.
func (i *Identity) Summary() Summary {
	return Summary{
		ID:        i.ID,
		Username:  i.Username,
		Email:     i.Email,
		CreatedAt: i.CreatedAt,
	}
}
