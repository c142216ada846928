package core

import (
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for articles.
// Article IDs are derived from the article URL so re-reading the same
// URL always yields the same identity.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b hashing.
// This ensures that identical content produces identical IDs.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// String renders the ID as 16 lowercase hex digits.
// SQLite integers are signed, so IDs are stored in this form.
func (id ID) String() string {
	return fmt.Sprintf("%016x", uint64(id))
}

// ParseID parses the hex form produced by String.
func ParseID(s string) (ID, error) {
	v, err := strconv.ParseUint(s, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidID, s)
	}
	return ID(v), nil
}

// KeywordStatus is the lifecycle state of a tracked keyword.
type KeywordStatus string

const (
	// KeywordActive keywords are ingested and their articles are indexable.
	KeywordActive KeywordStatus = "ACTIVE"
	// KeywordPaused keywords are not ingested; their articles stay active.
	KeywordPaused KeywordStatus = "PAUSED"
	// KeywordArchived keywords are not ingested; their articles are soft-deleted.
	KeywordArchived KeywordStatus = "ARCHIVED"
)

// Valid reports whether s is one of the three lifecycle states.
func (s KeywordStatus) Valid() bool {
	switch s {
	case KeywordActive, KeywordPaused, KeywordArchived:
		return true
	}
	return false
}

// ParseKeywordStatus parses a status name case-insensitively.
func ParseKeywordStatus(s string) (KeywordStatus, error) {
	status := KeywordStatus(strings.ToUpper(strings.TrimSpace(s)))
	if !status.Valid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
	return status, nil
}

// Keyword is a tracked search term.
type Keyword struct {
	ID        int64
	Name      string // unique, compared case-insensitively
	Status    KeywordStatus
	CreatedAt time.Time
}

// RawItem is a candidate article returned by a content fetcher.
type RawItem struct {
	Title string
	URL   string
	Body  string
}

// Article is a scored, persisted news item.
type Article struct {
	ID          ID
	Title       string
	URL         string
	Keyword     string
	Body        string
	Scores      ScoreBreakdown
	Category    string
	AIReason    string
	Summary     string
	CollectedAt time.Time
	IsActive    bool
}

// ChunkMetadata is carried alongside every indexed chunk.
type ChunkMetadata struct {
	ArticleID  ID
	Title      string
	URL        string
	Keyword    string
	Score      int
	Category   string
	ChunkIndex int
}

// IndexedChunk is a searchable segment of an article.
// Chunks are derived data and can always be rebuilt from the article store.
type IndexedChunk struct {
	ID     string
	Text   string
	Vector []float32 // unit-normalized embedding, empty until embedded
	Meta   ChunkMetadata
}

// ChunkID returns the identity of the ordinal-th chunk of an article.
func ChunkID(articleID ID, ordinal int) string {
	return articleID.String() + "-" + strconv.Itoa(ordinal)
}

// RankedChunk is a chunk matched by a similarity search.
type RankedChunk struct {
	Chunk IndexedChunk
	Score float32
}

// RunStatus summarizes ingestion state for callers of the trigger surface.
type RunStatus struct {
	Running            bool
	TotalArticles      int
	TodayArticles      int
	ActiveKeywordCount int
	LastCompletedAt    time.Time
	LastRunID          string
	LLMFallbacks       int64
}
