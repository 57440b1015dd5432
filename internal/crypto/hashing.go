// Package crypto wraps password hashing and opaque token generation.
// Nothing in here ever reaches a client except the tokens themselves.
package crypto

import "golang.org/x/crypto/bcrypt"

// HashPassword digests a plaintext password for storage. bcrypt embeds the
// salt and cost in the digest, so nothing else needs persisting.
func HashPassword(plaintext string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(plaintext), bcrypt.DefaultCost)
	return string(hashed), err
}

// CompareHashAndPassword reports whether plaintext matches the stored
// digest; a nil return means a match.
func CompareHashAndPassword(hashed, plaintext string) error {
	return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plaintext))
}
