package runner

import (
	"strings"

	"github.com/google/uuid"
)

const idPrefix = "LX-"

// NewSignalID: LX- и 8 символов uuid в верхнем регистре.
func NewSignalID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return idPrefix + strings.ToUpper(raw[:8])
}
