package retrieval

import "fmt"

// NotFoundError reports that a requested file is absent from the corpus.
// It is raised before any source is queried.
type NotFoundError struct {
	FileID string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in corpus", e.FileID)
}

// NoEvidenceError reports that every step of the fallback cascade came up
// empty. Steps lists the strategies tried, in order.
type NoEvidenceError struct {
	Query string
	Steps []Strategy
}

func (e *NoEvidenceError) Error() string {
	return fmt.Sprintf("no evidence found for query after %d fallback steps", len(e.Steps))
}

// ConfigurationError reports invalid retrieval configuration, such as
// fusion weights that do not sum to one.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid retrieval configuration: " + e.Reason
}
