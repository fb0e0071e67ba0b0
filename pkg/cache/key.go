package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strconv"
)

const artifactPrefix = "artifact"

// ArtifactKey returns the cache key of a rendered artifact: the hash of the
// DOT source plus the output format and scale. Two scripts that produce the
// same DOT share entries.
func ArtifactKey(dot, format string, scale float64) string {
	h := sha256.New()
	for _, part := range []string{Hash([]byte(dot)), format, strconv.FormatFloat(scale, 'g', -1, 64)} {
		io.WriteString(h, part)
		h.Write([]byte{0})
	}
	return artifactPrefix + ":" + hex.EncodeToString(h.Sum(nil))
}

// Hash returns the hex SHA-256 of data.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
