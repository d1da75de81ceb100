package tieba

import (
	"strings"

	"github.com/google/uuid"
)

// NewDeviceID produces a pseudo-random device identifier in the 32-hex form
// the platform expects from mobile clients. Each authentication gets a fresh
// identifier; it stays stable for the lifetime of the UserInfo it is
// attached to.
func NewDeviceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}
