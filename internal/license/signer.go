package license

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Signer produces HMAC-SHA256 signatures over successful verification
// payloads so game clients can detect tampering between the service and the
// game server.
type Signer struct {
	secret []byte
}

// NewSigner returns a Signer keyed with secret, or nil when secret is empty
// (signing disabled).
func NewSigner(secret string) *Signer {
	if secret == "" {
		return nil
	}
	return &Signer{secret: []byte(secret)}
}

// SignVerification signs the canonical form of a verification payload:
// licenseId|gameId|placeId|universeId|expiresAtMillis, with 0 for a nil
// expiry. The canonical string is stable; clients re-derive it field by
// field rather than re-serializing JSON.
func (s *Signer) SignVerification(licenseID string, gameID, placeID, universeID int64, expiresAt *time.Time) string {
	var expMillis int64
	if expiresAt != nil {
		expMillis = expiresAt.UnixMilli()
	}
	canonical := fmt.Sprintf("%s|%d|%d|%d|%d", licenseID, gameID, placeID, universeID, expMillis)
	mac := hmac.New(sha256.New, s.secret)
	mac.Write([]byte(canonical))
	return hex.EncodeToString(mac.Sum(nil))
}
