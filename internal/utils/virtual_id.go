package utils

import (
	"strings"

	"github.com/google/uuid"
)

// NewVirtualID returns the public member code printed on tiffin boxes: the
// "TB-" prefix followed by ten upper-case hex characters of a random UUID.
func NewVirtualID() string {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")
	return "TB-" + strings.ToUpper(id[:10])
}
