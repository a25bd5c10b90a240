package model

import "time"

// User is a remote user profile with its saved search state
type User struct {
	ID          string     `json:"id"`
	Name        string     `json:"name,omitempty"`
	Email       string     `json:"email,omitempty"`
	Preferences *Criteria  `json:"preferences,omitempty"`
	Messages    Transcript `json:"messages,omitempty"`
}

// DisplayName mirrors how the client greets a user
func (u User) DisplayName() string {
	if u.Name != "" {
		return u.Name
	}
	return u.Email
}

// CachedUser is the serialized user kept in the local cache
type CachedUser struct {
	User
	CachedAt time.Time `json:"cached_at"`
}
