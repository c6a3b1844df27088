package rag

import (
	"github.com/hrygo/nutriscreen/rag/core/assess"
	"github.com/hrygo/nutriscreen/rag/core/index"
	"github.com/hrygo/nutriscreen/rag/core/retrieval"
)

// Error types raised by the engine, re-exported so callers can match them
// without importing the core packages.
type (
	// NotFoundError: the requested file is not in the corpus.
	NotFoundError = retrieval.NotFoundError
	// NoEvidenceError: the fallback cascade was exhausted.
	NoEvidenceError = retrieval.NoEvidenceError
	// ConfigurationError: invalid retrieval configuration.
	ConfigurationError = retrieval.ConfigurationError
	// SourceError: a single retrieval source failed.
	SourceError = index.SourceError
	// MalformedOutputError: the model reply held no JSON object.
	MalformedOutputError = assess.MalformedOutputError
	// ValidationError: the model score violated the rubric.
	ValidationError = assess.ValidationError
)
