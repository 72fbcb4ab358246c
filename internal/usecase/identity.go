package usecase

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/xavierca1/lead-prospector/internal/entity"
)

// SignalIdentity derives the dedup key for a signal. Same company domain,
// same signal type, same commit author and URL always hash to the same
// identity, which is what makes webhook redelivery a no-op.
func SignalIdentity(s entity.Signal) string {
	parts := []string{
		strings.ToLower(strings.TrimSpace(s.Domain)),
		strings.ToUpper(strings.TrimSpace(s.Type)),
		strings.ToLower(strings.TrimSpace(s.Author)),
		strings.TrimSpace(s.URL),
	}

	sum := sha256.Sum256([]byte(strings.Join(parts, "|")))
	return hex.EncodeToString(sum[:])
}
