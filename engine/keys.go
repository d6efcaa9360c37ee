package engine

import (
	"github.com/mus-format/mus-go/ord"
	"github.com/mus-format/mus-go/varint"
	"github.com/poiesic/wayfarer/core"
)

// queryKey is the structured key for the query-result cache. Hashing the
// marshaled struct instead of a concatenated string avoids delimiter
// ambiguity: ("a", "bc") and ("ab", "c") produce different byte streams
// because each field carries its own length.
type queryKey struct {
	Query       string
	Category    string
	Limit       int
	PrimaryOnly bool
}

// id hashes the key's MUS encoding down to a cache key.
func (k queryKey) id() core.ID {
	size := ord.String.Size(k.Query) +
		ord.String.Size(k.Category) +
		varint.Int.Size(k.Limit) +
		ord.Bool.Size(k.PrimaryOnly)

	buf := make([]byte, size)
	n := ord.String.Marshal(k.Query, buf)
	n += ord.String.Marshal(k.Category, buf[n:])
	n += varint.Int.Marshal(k.Limit, buf[n:])
	ord.Bool.Marshal(k.PrimaryOnly, buf[n:])

	return core.IDFromBytes(buf)
}
