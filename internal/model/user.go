package model

import "time"

// User roles.  ADMIN may create shows; CUSTOMER may book seats.
const (
	RoleAdmin    = "ADMIN"
	RoleCustomer = "CUSTOMER"
)

// User is an account able to authenticate against the API.
//
// Fields:
//  ID           – primary key identifier.
//  Email        – unique login identifier.
//  PasswordHash – bcrypt hashed password.
//  Role         – ADMIN or CUSTOMER.
//  CreatedAt    – creation timestamp.
type User struct {
	ID           uint64    `json:"id"`    // users.id
	Email        string    `json:"email"` // users.email
	PasswordHash string    `json:"-"`     // users.password_hash
	Role         string    `json:"role"`  // users.role
	CreatedAt    time.Time `json:"-"`     // users.created_at
}
