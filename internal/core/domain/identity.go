package domain

import (
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// chunkNamespace is the fixed UUID namespace for name-based chunk IDs.
// Changing it would re-key every chunk in an existing index.
var chunkNamespace = uuid.MustParse("6b3a1c9e-8f04-4d2a-9c61-2f5d1f0b7a44")

// ChunkID derives the deterministic identifier for a chunk from its document,
// heading path and position. The same input always yields the same UUID, so
// re-running the chunker over unchanged input produces identical IDs and
// downstream upserts replace rather than duplicate.
func ChunkID(document string, headingPath []string, position int) string {
	var b strings.Builder
	b.WriteString(document)
	b.WriteByte(0)
	b.WriteString(strings.Join(headingPath, "\x1f"))
	b.WriteByte(0)
	b.WriteString(strconv.Itoa(position))
	return uuid.NewSHA1(chunkNamespace, []byte(b.String())).String()
}
