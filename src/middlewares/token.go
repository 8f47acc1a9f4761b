package middlewares

import (
	"errors"
	"os"
	"strconv"
	"strings"

	"pbs/src/types"

	"github.com/golang-jwt/jwt/v5"
)

var (
	errMissingToken = errors.New("missing authorization header")
	errInvalidToken = errors.New("invalid token")
)

func jwtKey() []byte {
	return []byte(os.Getenv("JWT_SECRET"))
}

// bearerToken extracts the token from an "Authorization: Bearer <token>"
// header value.
func bearerToken(header string) (string, error) {
	if header == "" {
		return "", errMissingToken
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", errInvalidToken
	}
	return strings.TrimSpace(parts[1]), nil
}

// ParseToken verifies an HS256 token issued by the identity service.
func ParseToken(reqToken string) (*types.Claims, error) {
	claims := &types.Claims{}
	tkn, err := jwt.ParseWithClaims(reqToken, claims, func(t *jwt.Token) (any, error) {
		return jwtKey(), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return nil, err
	}
	if !tkn.Valid {
		return nil, errInvalidToken
	}
	return claims, nil
}

// IssueToken signs claims for a user. Only tests and local tooling mint
// tokens; production tokens come from the identity service.
func IssueToken(userID uint, email string, role types.UserRole, claims jwt.RegisteredClaims) (string, error) {
	claims.Subject = strconv.FormatUint(uint64(userID), 10)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, &types.Claims{
		Email:            email,
		Role:             role,
		RegisteredClaims: claims,
	})
	return token.SignedString(jwtKey())
}
