package security

import (
	"encoding/base64"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type CareloopIdentity struct {
	Id       int
	UserName string
	Role     string
	Email    string
	DeviceId string
}

type Identity struct {
	ID         int    `json:"nameid"`
	UniqueName string `json:"unique_name"`
	Email      string `json:"email"`
	SID        string `json:"sid"`
	Role       string `json:"role"`
}

type IdentityClaims struct {
	Identity
	jwt.RegisteredClaims
}

// CreateIdentityToken mints the HS256 token the mobile app and the web console
// present to the API.
func CreateIdentityToken(identity *CareloopIdentity, base64Secret string, expiresInSeconds int64) (string, error) {
	secretBytes, err := base64.StdEncoding.DecodeString(base64Secret)
	if err != nil {
		return "", err
	}
	claims := IdentityClaims{
		Identity: Identity{
			ID:         identity.Id,
			UniqueName: identity.UserName,
			Email:      identity.Email,
			SID:        identity.DeviceId,
			Role:       identity.Role,
		},
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "careloop",
			Audience:  []string{"*.careloop.health"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expiresInSeconds) * time.Second)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	return token.SignedString([]byte(secretBytes))
}
