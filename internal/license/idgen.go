package license

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// License id wire format: RSTUDIO_ followed by five characters from the
// uppercase alphanumeric alphabet. Game clients parse this prefix; do not
// change it without a client rollout.
const (
	IDPrefix       = "RSTUDIO_"
	idAlphabet     = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	idSuffixLength = 5
)

// RandomIDSource generates license id candidates from crypto/rand.
type RandomIDSource struct{}

// Next returns a fresh candidate id. Uniqueness is not guaranteed here; the
// engine collision-checks against the store.
func (RandomIDSource) Next() string {
	var sb strings.Builder
	sb.Grow(len(IDPrefix) + idSuffixLength)
	sb.WriteString(IDPrefix)
	max := big.NewInt(int64(len(idAlphabet)))
	for i := 0; i < idSuffixLength; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			// crypto/rand only fails when the platform entropy source is
			// broken; nothing sensible to do but stop.
			panic(err)
		}
		sb.WriteByte(idAlphabet[n.Int64()])
	}
	return sb.String()
}

// ValidID reports whether id matches the license id wire format.
func ValidID(id string) bool {
	if len(id) != len(IDPrefix)+idSuffixLength || !strings.HasPrefix(id, IDPrefix) {
		return false
	}
	for _, c := range id[len(IDPrefix):] {
		if !strings.ContainsRune(idAlphabet, c) {
			return false
		}
	}
	return true
}
