package profile

import "time"

// Profile is the public row kept next to the auth provider's user record.
type Profile struct {
	ID        string     `json:"id" db:"id"`
	Username  string     `json:"username" db:"username"`
	AvatarURL string     `json:"avatar_url" db:"avatar_url"`
	Bio       string     `json:"bio,omitempty" db:"bio"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty" db:"updated_at"`
}

// Update carries the mutable profile fields. Nil fields are left untouched.
type Update struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
}

// Empty reports whether u changes nothing.
func (u Update) Empty() bool {
	return u.Username == nil && u.AvatarURL == nil && u.Bio == nil
}

// Apply returns p with u applied.
func (u Update) Apply(p Profile) Profile {
	if u.Username != nil {
		p.Username = *u.Username
	}
	if u.AvatarURL != nil {
		p.AvatarURL = *u.AvatarURL
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	return p
}

// Metadata renders u as auth-provider user metadata.
func (u Update) Metadata() map[string]any {
	out := make(map[string]any)
	if u.Username != nil {
		out["username"] = *u.Username
	}
	if u.AvatarURL != nil {
		out["avatar_url"] = *u.AvatarURL
	}
	if u.Bio != nil {
		out["bio"] = *u.Bio
	}
	return out
}
