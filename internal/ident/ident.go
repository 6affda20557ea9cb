package ident

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// Receipt returns a unique receipt number, e.g. RCP-1756540800000-a1b2c3d4.
func Receipt() string {
	return tag("RCP", "-")
}

// Batch returns a unique bulk-sale batch id, e.g. BATCH_1756540800000-a1b2c3d4.
func Batch() string {
	return tag("BATCH", "_")
}

func tag(prefix string, sep string) string {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return fmt.Sprintf("%s%s%d", prefix, sep, time.Now().UnixNano())
	}
	return fmt.Sprintf("%s%s%d-%s", prefix, sep, time.Now().UnixMilli(), hex.EncodeToString(buf))
}
