package domain

import "github.com/golang-jwt/jwt/v5"

const (
	RoleAdmin  = "admin"
	RoleWaiter = "waiter"
)

// Claims são emitidas pelo provedor de identidade externo
type Claims struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	jwt.RegisteredClaims
}
