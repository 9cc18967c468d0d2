package shared

import (
	"strconv"
	"sync/atomic"

	"github.com/google/uuid"
)

// NewID returns a random 128-bit identifier in canonical string form.
func NewID() string {
	return uuid.NewString()
}

// IDGenerator produces identifiers. Tests substitute a deterministic one.
type IDGenerator func() string

// Sequence returns an IDGenerator yielding prefix-1, prefix-2, ...
func Sequence(prefix string) IDGenerator {
	var n atomic.Int64
	return func() string {
		return prefix + "-" + strconv.FormatInt(n.Add(1), 10)
	}
}
