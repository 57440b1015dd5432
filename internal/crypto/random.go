package crypto

import (
	"crypto/rand"
	"math/big"
)

const (
	InviteTokenLength  = 12
	SessionTokenLength = 32
)

// NewInviteToken creates an opaque invite token. Presented once per
// redemption; the database tracks remaining uses.
func NewInviteToken() string {
	return "inv_" + secureRandomString(InviteTokenLength)
}

// NewSessionToken creates an opaque session token handed to a client on
// sign-in or invite redemption.
func NewSessionToken() string {
	return "sess_" + secureRandomString(SessionTokenLength)
}

// NewPeerId creates a peer id scoped to one call. Opaque and distinct from
// the underlying user id.
func NewPeerId() string {
	return "peer_" + secureRandomString(10)
}

func secureRandomString(length int) string {
	const charset = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"
	result := make([]byte, length)
	for i := range result {
		n, _ := rand.Int(rand.Reader, big.NewInt(int64(len(charset))))
		result[i] = charset[n.Int64()]
	}
	return string(result)
}
