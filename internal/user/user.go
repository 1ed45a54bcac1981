package user

import "time"

// User is the account a schedule belongs to. Only the fields the reminder
// pipeline needs are modeled here; credentials live with the auth service.
type User struct {
	ID        string    `json:"id" bson:"id"`
	Email     string    `json:"email" bson:"email"`
	FullName  string    `json:"full_name,omitempty" bson:"full_name,omitempty"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
