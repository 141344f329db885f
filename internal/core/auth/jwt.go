package auth

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"task-manager-api/internal/domain"
)

type Claims struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
	Role  string `json:"role"` // "USER" or "ADMIN"
	jwt.RegisteredClaims
}

type JWTer struct {
	Secret []byte
	Issuer string
	TTL    time.Duration
	// Leeway tolerates clock skew on exp/nbf/iat. Zero means a token is
	// rejected the moment it expires.
	Leeway time.Duration
}

func (j *JWTer) Issue(uid int64, email string, role domain.Role) (string, error) {
	now := time.Now()
	claims := Claims{
		UID:   strconv.FormatInt(uid, 10),
		Email: email,
		Role:  string(role),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.Issuer,
			Subject:   strconv.FormatInt(uid, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TTL)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTer) Parse(tokenStr string) (*Claims, error) {
	t, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if token.Method != jwt.SigningMethodHS256 {
			return nil, fmt.Errorf("unexpected alg")
		}
		return j.Secret, nil
	}, jwt.WithIssuer(j.Issuer), jwt.WithLeeway(j.Leeway), jwt.WithExpirationRequired())

	if err != nil {
		return nil, err
	}
	if c, ok := t.Claims.(*Claims); ok && t.Valid {
		return c, nil
	}
	return nil, errors.New("invalid token")
}

// Resolve verifies the credential and turns its claims into an Identity.
// Every failure, including a non-numeric uid claim, is Unauthenticated.
func (j *JWTer) Resolve(tokenStr string) (domain.Identity, error) {
	if strings.TrimSpace(tokenStr) == "" {
		return domain.Identity{}, domain.Unauthenticated("missing token")
	}
	claims, err := j.Parse(tokenStr)
	if err != nil {
		return domain.Identity{}, &domain.Error{Kind: domain.KindUnauthenticated, Msg: "invalid token", Err: err}
	}
	uid, err := strconv.ParseInt(claims.UID, 10, 64)
	if err != nil {
		return domain.Identity{}, &domain.Error{Kind: domain.KindUnauthenticated, Msg: "invalid user id in token", Err: err}
	}
	role, ok := domain.ParseRole(claims.Role)
	if !ok {
		return domain.Identity{}, domain.Unauthenticated("invalid role in token")
	}
	return domain.Identity{UserID: uid, Role: role}, nil
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
