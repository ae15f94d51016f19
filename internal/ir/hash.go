package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// The version suffix leaves room for future algorithm migration.
const (
	DomainTrace   = "vorax/trace/v1"
	DomainProgram = "vorax/program/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data).
// The null separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// TraceDigest hashes an already canonical trace encoding.
// Two runs with byte-identical traces produce the same digest.
func TraceDigest(canonical []byte) string {
	return hashWithDomain(DomainTrace, canonical)
}

// ProgramHash computes the content hash of a program document.
// The document is canonicalized first so key order in the source is irrelevant.
func ProgramHash(doc Value) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("ProgramHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainProgram, canonical), nil
}
