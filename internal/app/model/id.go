package model

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const idSuffixLen = 7

// NewResourceID returns "resource_<unix-millis>_<7 base36 chars>". The suffix is
// drawn from a random UUID, which keeps ids operationally unique at this
// service's write rate.
func NewResourceID(now time.Time) string {
	u := uuid.New()
	suffix := strconv.FormatUint(binary.BigEndian.Uint64(u[:8]), 36)
	if len(suffix) < idSuffixLen {
		suffix = strings.Repeat("0", idSuffixLen-len(suffix)) + suffix
	}
	return fmt.Sprintf("resource_%d_%s", now.UnixMilli(), suffix[:idSuffixLen])
}
