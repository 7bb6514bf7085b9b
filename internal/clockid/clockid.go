// Package clockid provides a small set of primitives used when building
// webhook payloads and admitting jobs: wall-clock time, job
// fingerprinting, and random run identifiers. The executor does not use
// it; it reads time.Now directly for task start times.
package clockid

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"time"
)

// Clock returns the current instant. The real implementation wraps
// time.Now; a caller can substitute a fixed clock to make timestamps
// deterministic.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// JobFingerprint computes the SHA-256 job id: the canonical factfile JSON
// bytes followed by each tag's key and value, in ascending key order.
func JobFingerprint(factfileJSON []byte, tags map[string]string) string {
	h := sha256.New()
	h.Write(factfileJSON)

	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		h.Write([]byte(k))
		h.Write([]byte(tags[k]))
	}
	return hex.EncodeToString(h.Sum(nil))
}

// RunReference generates a random SHA-256 identifying one execution
// attempt of a job.
func RunReference() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generating run reference: %w", err)
	}
	sum := sha256.Sum256(buf)
	return hex.EncodeToString(sum[:]), nil
}
