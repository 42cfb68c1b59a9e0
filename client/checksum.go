package client

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/adamwoolhether/httpxfer/collector"
)

// checksumVerifier enables checksum validation of the received data.
type checksumVerifier struct {
	hash     hash.Hash
	expected string
}

// verify hashes what c collected: the whole destination file for file
// collectors, the buffered body for memory collectors.
func (v *checksumVerifier) verify(c *collector.Collector) error {
	if v == nil {
		return nil
	}

	v.hash.Reset()

	var src io.Reader
	switch c.Kind() {
	case collector.KindFile, collector.KindFileWithHeaders:
		f, err := os.Open(c.FileInfo().Path())
		if err != nil {
			return fmt.Errorf("opening file for checksum: %w", err)
		}
		defer f.Close()
		src = f
	default:
		src = bytes.NewReader(c.Body())
	}

	if _, err := io.Copy(v.hash, src); err != nil {
		return fmt.Errorf("hashing received data: %w", err)
	}

	actual := hex.EncodeToString(v.hash.Sum(nil))
	if actual != v.expected {
		return fmt.Errorf("%w: expected %s, got %s", ErrChecksumMismatch, v.expected, actual)
	}

	return nil
}
