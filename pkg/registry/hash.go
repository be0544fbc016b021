// SPDX-License-Identifier: MPL-2.0

package registry

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// jsonIndent is the indentation used for every JSON document this tool
// writes or hashes.
const jsonIndent = "    "

// ContentHash is the hex-encoded SHA-256 digest of a canonical JSON document.
// It detects changes between runs; it is not an integrity check.
type ContentHash string

// String returns the hex digest.
func (h ContentHash) String() string { return string(h) }

// MarshalCanonical serializes v as indented JSON without HTML escaping and
// without a trailing newline. Map keys come out sorted, so two values with
// the same members always produce the same bytes.
func MarshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", jsonIndent)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("encoding JSON: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// ComputeHash fingerprints v by hashing its canonical serialization.
func ComputeHash(v any) (ContentHash, error) {
	data, err := MarshalCanonical(v)
	if err != nil {
		return "", err
	}
	return HashBytes(data), nil
}

// HashBytes returns the ContentHash of already serialized content.
func HashBytes(data []byte) ContentHash {
	sum := sha256.Sum256(data)
	return ContentHash(hex.EncodeToString(sum[:]))
}
