package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for domain entities.
// It is generated using content-based hashing or database sequences.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// IDFromBytes generates a deterministic ID from raw bytes using BLAKE2b hashing.
// Used for structured cache keys, where the key fields are length-prefixed
// binary rather than a delimiter-joined string.
func IDFromBytes(data []byte) ID {
	h, _ := blake2b.New(8, nil)
	h.Write(data)
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// AttractionType classifies a point of interest as a primary ("must see")
// attraction or a secondary one (dining, markets, and similar).
type AttractionType int

const (
	// AttractionTypePrimary represents a top-tier attraction.
	AttractionTypePrimary AttractionType = iota + 1
	// AttractionTypeSecondary represents a supporting attraction such as a
	// restaurant, market, or neighborhood spot.
	AttractionTypeSecondary
)

// Label returns the lowercase text label used for keyword matching.
func (a AttractionType) Label() string {
	switch a {
	case AttractionTypePrimary:
		return "primary"
	case AttractionTypeSecondary:
		return "secondary"
	default:
		return ""
	}
}

// SpeakerType identifies the source of a conversation turn.
type SpeakerType int

const (
	// SpeakerTypeHuman represents a human user.
	SpeakerTypeHuman SpeakerType = iota + 1
	// SpeakerTypeAI represents an AI assistant.
	SpeakerTypeAI
)

// Entity represents a point of interest in the travel domain.
// Entities are written by the ingest path and are read-only in the query path.
type Entity struct {
	Id          ID
	Name        string
	Category    string
	Attraction  AttractionType
	Description string
	Address     string
	Lat         float64
	Lon         float64
	Vector      []float32 // Embedding vector for semantic search (populated by ingest)
	InsertedAt  time.Time // When the entity was inserted into the database
	UpdatedAt   time.Time // When the entity was last updated
}

// ScoredCandidate pairs an entity with its per-query scores.
// It is ephemeral: built during a single resolve call and discarded after
// ranking. Combined is a pure function of Keyword, Semantic, and the weight.
type ScoredCandidate struct {
	Entity   *Entity
	Keyword  float64 // 1.0 on keyword match, else 0.0
	Semantic float64 // cosine similarity normalized to [0,1]
	Combined float64
}

// CombineScores computes the weighted ranking score.
// weight applies to the keyword score; the remainder goes to semantic.
func CombineScores(semantic, keyword, weight float64) float64 {
	return semantic*(1-weight) + keyword*weight
}

// RankedResult is a final ranked entry returned by Resolve.
type RankedResult struct {
	Entity *Entity
	Score  float64
}

// Turn is a single message in a conversation.
type Turn struct {
	Speaker   SpeakerType
	Contents  string
	Timestamp time.Time
}
