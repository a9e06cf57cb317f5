// Package xid generates prefixed, sortable-enough random ids.
package xid

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"
)

// New returns "<prefix>_<unixnano-hex><6 random bytes hex>".
func New(prefix string) string {
	buf := make([]byte, 6)
	_, _ = rand.Read(buf)
	return fmt.Sprintf("%s_%x%s", prefix, time.Now().UTC().UnixNano(), hex.EncodeToString(buf))
}
