// Package hashid implements the stable content-addressing and unit-id
// schemes of spec §3 and §4.3: file/content hashing with SHA-256, and
// the disambiguated unit id minted by the incremental indexer.
//
// Grounded on the teacher's internal/idcodec (composite id packing) and
// internal/cache (sha256 content hashing), adapted from a base-63 byte
// codec to a flat hex digest since the id only needs to be a stable map
// key here, not a compact wire token.
package hashid

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/cespare/xxhash/v2"
)

// FileHash returns the SHA-256 hex digest of raw file bytes. It is the
// cache key (spec §3 FileRecord.file_hash, §4.3 cache map key).
func FileHash(content []byte) string {
	sum := sha256.Sum256(content)
	return hex.EncodeToString(sum[:])
}

// ContentHash returns the SHA-256 hex digest of a SemanticUnit's content
// after trim-trailing-whitespace normalization (spec §3
// SemanticUnit.content_hash).
func ContentHash(content []byte) string {
	normalized := normalize(content)
	sum := sha256.Sum256(normalized)
	return hex.EncodeToString(sum[:])
}

// normalize trims trailing whitespace from every line, matching the
// "trim-trailing-whitespace" rule spec §3 specifies for content_hash.
func normalize(content []byte) []byte {
	lines := strings.Split(string(content), "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(l, " \t\r")
	}
	return []byte(strings.Join(lines, "\n"))
}

// UnitID mints the stable id of spec §4.3's "Stable unit id policy":
// hash(file_path || unit_type || name || disambiguator), where
// disambiguator is the occurrence index among same-name siblings in the
// parent scope (0 for the first occurrence). Using xxhash rather than
// SHA-256 here (unlike FileHash/ContentHash, which must be
// cryptographically stable per spec) keeps id minting off the hot path
// of every add/update during a large reindex; the teacher reserves
// xxhash for exactly this kind of high-frequency, non-cryptographic key
// derivation.
func UnitID(filePath, unitType, name string, disambiguator int) string {
	h := xxhash.New()
	_, _ = h.WriteString(filePath)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(unitType)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(name)
	_, _ = h.Write([]byte{0})
	_, _ = h.WriteString(itoa(disambiguator))
	return hex.EncodeToString(h.Sum(nil))
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	neg := n < 0
	if neg {
		n = -n
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	if neg {
		i--
		buf[i] = '-'
	}
	return string(buf[i:])
}
