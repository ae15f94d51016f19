// Package ir provides the canonical value representation used wherever VORAX
// needs byte-stable encodings: trace records, program documents and digests.
//
// The package imports nothing internal; every other package may import it.
//
// Key design constraints:
//   - NO float types anywhere - counts, ticks and energy are int64
//   - Canonical JSON follows RFC 8785 key ordering with NFC-normalized strings
//   - Digests are SHA-256 with a versioned domain prefix
package ir
