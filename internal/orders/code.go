package orders

import (
	"strings"
	"time"

	"github.com/dekorekillian57-star/spendo/pkg/security"
)

// CodePrefix starts every human-readable order code.
const CodePrefix = "ORD-"

// NewCode returns ORD-<UTC timestamp>-<8 upper hex>, e.g. ORD-20260301101500-9F2C41AB.
func NewCode(now time.Time) (string, error) {
	suffix, err := security.RandomHex(4)
	if err != nil {
		return "", err
	}
	return CodePrefix + now.UTC().Format("20060102150405") + "-" + strings.ToUpper(suffix), nil
}
