// Package digest derives stable object names from byte content.
//
// Digests name objects, they do not protect them: a 64-bit non-cryptographic
// hash keeps naming cheap for large uncompressed frames.
package digest

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

// Hash returns the lowercase hex xxHash64 digest of buf.
func Hash(buf []byte) string {
	return strconv.FormatUint(xxhash.Sum64(buf), 16)
}

// Name joins a digest and a file extension into an object name.
func Name(digest, extension string) string {
	return digest + "." + extension
}
