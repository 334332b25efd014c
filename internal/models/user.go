package models

// User is the authenticated identity returned by the remote API at
// registration or login and held only by the session manager.
type User struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}
