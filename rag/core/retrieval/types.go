// Package retrieval aggregates candidates from multiple index sources,
// fuses their scores, and degrades gracefully when sources fail.
package retrieval

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"

	"github.com/hrygo/nutriscreen/rag/core/index"
)

// ScoredCandidate is a deduplicated candidate carrying evidence from every
// source that returned it.
type ScoredCandidate struct {
	DocumentID string
	FileID     string
	FileName   string
	ChunkID    string
	Content    string

	// Fingerprint is the content identity used for deduplication.
	Fingerprint string

	// SourceScores holds the best raw score per source that returned this
	// candidate.
	SourceScores map[index.Source]float64
	// SourceRanks holds the best (lowest) rank per source.
	SourceRanks map[index.Source]int

	// FusedScore is set by a fusion pass.
	FusedScore float64
	// RerankScore is set when a reranker scored this candidate; nil when
	// reranking was skipped or degraded.
	RerankScore *float64
}

// Fingerprint derives the deduplication identity of a chunk: identical
// text modulo case and whitespace maps to the same fingerprint.
func Fingerprint(content string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(content), " "))
	sum := sha256.Sum256([]byte(normalized))
	return hex.EncodeToString(sum[:])
}
