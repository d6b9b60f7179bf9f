package auth

import (
	"errors"
	"fmt"

	"github.com/alexedwards/argon2id"
	"golang.org/x/crypto/bcrypt"
)

// tokenHashParams are lighter than argon2id.DefaultParams; refresh tokens already
// carry 256 bits of signature entropy.
var tokenHashParams = &argon2id.Params{
	Memory:      19 * 1024,
	Iterations:  2,
	Parallelism: 1,
	SaltLength:  16,
	KeyLength:   32,
}

// HashPassword returns a salted bcrypt hash of password.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	return string(hash), nil
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(hash, password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// HashToken returns an argon2id hash of a refresh token. bcrypt is not usable here
// because signed JWTs exceed its 72 byte input limit.
func HashToken(token string) (string, error) {
	if token == "" {
		return "", errors.New("token is empty")
	}
	hash, err := argon2id.CreateHash(token, tokenHashParams)
	if err != nil {
		return "", fmt.Errorf("hash token: %w", err)
	}
	return hash, nil
}

// CompareToken reports whether token matches an argon2id hash produced by HashToken.
func CompareToken(token, hash string) (bool, error) {
	match, err := argon2id.ComparePasswordAndHash(token, hash)
	if err != nil {
		return false, fmt.Errorf("compare token: %w", err)
	}
	return match, nil
}
