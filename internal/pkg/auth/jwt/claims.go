package jwt

import "github.com/golang-jwt/jwt"

// Principal is the verified identity derived from a valid credential.
// It is immutable per session and never built from client-supplied fields.
type Principal struct {
	// ID is the user's unique identifier (UUID string).
	ID string `json:"id"`

	// Name is the user's display name (1-80 characters).
	Name string `json:"name"`

	// Email is the user's registered email address.
	Email string `json:"email"`
}

// Claims defines the JWT claim set carried by Parley session tokens.
// It embeds the standard registered claims (exp, iat, iss) plus the
// identity fields needed to reconstruct a Principal without a store lookup.
type Claims struct {
	jwt.StandardClaims

	// ID is the user's unique identifier.
	ID string `json:"id"`

	// Name is the user's display name at issue time.
	Name string `json:"name"`

	// Email is the user's registered email address.
	Email string `json:"email"`
}

// Principal converts the validated claim set into a Principal.
func (c *Claims) Principal() *Principal {
	return &Principal{
		ID:    c.ID,
		Name:  c.Name,
		Email: c.Email,
	}
}
