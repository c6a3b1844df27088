package rag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/hrygo/nutriscreen/store"
)

// IngestFile stores the chunks of one source file, writes a vector per
// active embedding space for every chunk, and refreshes the lexical
// snapshot. Blank chunks are skipped.
func (e *Engine) IngestFile(ctx context.Context, fileID, fileName string, chunks []string) (int, error) {
	if fileID == "" {
		fileID = uuid.NewString()
	}

	now := time.Now().Unix()
	stored := 0
	for i, chunk := range chunks {
		content := strings.TrimSpace(chunk)
		if content == "" {
			continue
		}

		doc, err := e.store.CreateDocument(ctx, &store.Document{
			ID:        uuid.NewString(),
			FileID:    fileID,
			FileName:  fileName,
			ChunkID:   fmt.Sprintf("%s-%d", fileID, i),
			Source:    "upload",
			Content:   content,
			CreatedTs: now,
		})
		if err != nil {
			return stored, fmt.Errorf("store chunk %d: %w", i, err)
		}

		for _, embedder := range e.embedders {
			vector, err := embedder.Embed(ctx, content)
			if err != nil {
				return stored, fmt.Errorf("embed chunk %d with %s: %w", i, embedder.Model(), err)
			}
			err = e.store.UpsertDocumentEmbedding(ctx, &store.DocumentEmbedding{
				DocumentID: doc.ID,
				Model:      embedder.Model(),
				Embedding:  vector,
				CreatedTs:  now,
			})
			if err != nil {
				return stored, fmt.Errorf("save embedding for chunk %d: %w", i, err)
			}
		}
		stored++
	}

	if err := e.lexical.Refresh(ctx); err != nil {
		slog.Warn("lexical refresh after ingest failed", "error", err)
	}

	slog.Info("file ingested",
		"file_id", fileID,
		"file_name", fileName,
		"chunks", stored,
		"embedding_spaces", len(e.embedders),
	)
	return stored, nil
}

// SplitChunks splits document text into retrieval chunks on blank lines,
// merging short runs up to maxRunes per chunk.
func SplitChunks(text string, maxRunes int) []string {
	if maxRunes <= 0 {
		maxRunes = 500
	}

	paragraphs := strings.Split(text, "\n\n")
	var chunks []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		if currentLen > 0 {
			chunks = append(chunks, strings.TrimSpace(current.String()))
			current.Reset()
			currentLen = 0
		}
	}

	for _, p := range paragraphs {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		runes := len([]rune(p))
		if currentLen > 0 && currentLen+runes > maxRunes {
			flush()
		}
		if runes >= maxRunes {
			flush()
			chunks = append(chunks, p)
			continue
		}
		if currentLen > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(p)
		currentLen += runes
	}
	flush()
	return chunks
}
