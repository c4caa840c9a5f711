package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the token claims the server cares about. Username falls back to
// the email local part when the identity provider does not set one.
type Claims struct {
	Email    string `json:"email,omitempty"`
	Role     string `json:"role,omitempty"`
	Username string `json:"preferred_username,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier validates bearer tokens and extracts claims.
type JWTVerifier interface {
	// VerifyToken validates a JWT token string and returns the parsed claims.
	// Returns an error if the token is invalid, expired, or has an invalid
	// signature.
	VerifyToken(tokenString string) (*Claims, error)

	// Close releases any resources held by the verifier.
	Close() error
}
