// Package fixture provides per-run credential fixtures shared across a serial
// chain of scenarios. A fixture is generated once, is immutable afterwards,
// and is safe for concurrent reads.
package fixture

import (
	crand "crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/google/uuid"
)

const (
	usernameSuffixBytes = 8
	passwordBytes       = 12
)

// Credentials is a generated username/password pair. Fields are exported but
// must never be mutated after NewCredentials returns; chained scenarios read
// the same value.
type Credentials struct {
	Username string
	Password string
}

// NewCredentials generates a credential pair whose username is unlikely to
// collide across runs. The prefix keeps failures attributable to a suite in
// server-side logs.
func NewCredentials(prefix string) Credentials {
	suffix := make([]byte, usernameSuffixBytes)
	if _, err := crand.Read(suffix); err != nil {
		panic(fmt.Sprintf("failed to generate unique username suffix: %v", err))
	}
	pw := make([]byte, passwordBytes)
	if _, err := crand.Read(pw); err != nil {
		panic(fmt.Sprintf("failed to generate password: %v", err))
	}
	return Credentials{
		Username: fmt.Sprintf("%s-%s", prefix, hex.EncodeToString(suffix)),
		Password: "pw-" + hex.EncodeToString(pw),
	}
}

// NewRunID returns a unique identifier for one harness run, used to
// correlate logs, reports, and uploaded artifacts.
func NewRunID() string {
	return uuid.NewString()
}
