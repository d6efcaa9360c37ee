package badger

import (
	"encoding/binary"
	"fmt"

	"github.com/poiesic/wayfarer/core"
)

// Key prefixes for different data types
const (
	entityRecordPrefix   = "poirec"
	entityCategoryPrefix = "poicat"
	entityIDSeq          = "poirecseq"
)

// makeEntityKey generates a key for an entity by ID.
func makeEntityKey(id core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", entityRecordPrefix, id))
}

// makeCategoryKey generates a composite key for the category index.
// Format: prefix:category:id
func makeCategoryKey(category string, id core.ID) []byte {
	prefix := entityCategoryPrefix + ":"
	prefixBytes := []byte(prefix)
	categoryBytes := []byte(category)
	totalSize := len(prefixBytes) + len(categoryBytes) + 1 + 8
	buf := make([]byte, totalSize)
	offset := copy(buf, prefixBytes)
	offset += copy(buf[offset:], categoryBytes)
	// Separator keeps "temple" from matching "templeton"
	buf[offset] = ':'
	offset++
	// Write in BigEndian order so lexicographic sort works correctly
	binary.BigEndian.PutUint64(buf[offset:], uint64(id))
	return buf
}

// makePartialCategoryKey generates a partial key for category scans.
// Format: prefix:category:
func makePartialCategoryKey(category string) []byte {
	return []byte(entityCategoryPrefix + ":" + category + ":")
}
