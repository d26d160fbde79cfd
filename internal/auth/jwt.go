package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrInvalidToken is returned for any token that cannot be trusted.
var ErrInvalidToken = errors.New("invalid token")

// Verifier turns a bearer token into a principal.
type Verifier interface {
	Verify(token string) (*Principal, error)
}

// Claims is the token payload issued by the identity provider.
type Claims struct {
	Role        Role   `json:"role"`
	AffiliateID string `json:"affiliate_id,omitempty"`
	jwt.RegisteredClaims
}

// JWTVerifier verifies HS256 tokens signed with a shared secret.
type JWTVerifier struct {
	secret []byte
	parser *jwt.Parser
}

// NewJWTVerifier creates a verifier for tokens signed with secret.
func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{
		secret: []byte(secret),
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithExpirationRequired(),
		),
	}
}

// Verify checks the signature and expiry, then maps the claims to a principal.
func (v *JWTVerifier) Verify(token string) (*Principal, error) {
	claims := &Claims{}
	if _, err := v.parser.ParseWithClaims(token, claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	if claims.Subject == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	p := &Principal{ID: claims.Subject, Role: claims.Role}

	if claims.Role == RoleAffiliate {
		id, err := uuid.Parse(claims.AffiliateID)
		if err != nil {
			return nil, fmt.Errorf("%w: affiliate token without affiliate_id", ErrInvalidToken)
		}
		p.AffiliateID = &id
	}

	return p, nil
}
