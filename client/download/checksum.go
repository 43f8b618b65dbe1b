package download

import (
	"encoding/hex"
	"fmt"
	"hash"
)

// checksumVerifier enables checksum validation of the downloaded file.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

func (v *checksumVerifier) Write(p []byte) (int, error) {
	return v.hash.Write(p)
}

// reset discards the state of a previous attempt.
func (v *checksumVerifier) reset() {
	if v != nil {
		v.hash.Reset()
	}
}

func (v *checksumVerifier) Verify() error {
	if v == nil {
		return nil
	}

	actual := hex.EncodeToString(v.hash.Sum(nil))
	if actual != v.expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, v.expected, actual)
	}

	return nil
}
