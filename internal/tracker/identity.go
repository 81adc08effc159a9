package tracker

import (
	"encoding/hex"
	"fmt"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// NewRequestID builds a traceable request identifier from the company name,
// the wall-clock time in milliseconds, and a random 8-hex-digit suffix.
// The timestamp plus 32 random bits keep collisions negligible at expected
// request volume.
func NewRequestID(companyName string) string {
	return newRequestIDAt(companyName, time.Now())
}

func newRequestIDAt(companyName string, now time.Time) string {
	safe := make([]rune, 0, len(companyName))
	for _, ch := range companyName {
		if unicode.IsLetter(ch) || unicode.IsDigit(ch) {
			safe = append(safe, ch)
		} else {
			safe = append(safe, '_')
		}
	}
	u := uuid.New()
	return fmt.Sprintf("%s_%d_%s", string(safe), now.UnixMilli(), hex.EncodeToString(u[:4]))
}
