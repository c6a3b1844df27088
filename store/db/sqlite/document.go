package sqlite

import (
	"bytes"
	"context"
	"encoding/binary"
	"math"
	"sort"
	"strings"

	"github.com/pkg/errors"

	"github.com/hrygo/nutriscreen/store"
)

// float32ArrayToBLOB serializes a float32 vector to a little-endian BLOB.
func float32ArrayToBLOB(vec []float32) ([]byte, error) {
	buf := new(bytes.Buffer)
	if err := binary.Write(buf, binary.LittleEndian, vec); err != nil {
		return nil, errors.Wrap(err, "failed to serialize vector")
	}
	return buf.Bytes(), nil
}

// blobToFloat32Array deserializes a little-endian BLOB back to a float32 vector.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid vector blob length: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	if err := binary.Read(bytes.NewReader(blob), binary.LittleEndian, &vec); err != nil {
		return nil, errors.Wrap(err, "failed to deserialize vector")
	}
	return vec, nil
}

// CreateDocument stores a new document chunk.
func (d *DB) CreateDocument(ctx context.Context, doc *store.Document) (*store.Document, error) {
	stmt := `
		INSERT INTO document (id, file_id, file_name, chunk_id, source, content, created_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := d.db.ExecContext(ctx, stmt,
		doc.ID,
		doc.FileID,
		doc.FileName,
		doc.ChunkID,
		doc.Source,
		doc.Content,
		doc.CreatedTs,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}
	return doc, nil
}

// ListDocuments lists document chunks matching the find condition.
func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.FileID != nil {
		where, args = append(where, "file_id = ?"), append(args, *find.FileID)
	}

	query := `
		SELECT id, file_id, file_name, chunk_id, source, content, created_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC
	`
	if find.Limit != nil {
		query += " LIMIT ?"
		args = append(args, *find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	list := []*store.Document{}
	for rows.Next() {
		var doc store.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.FileID,
			&doc.FileName,
			&doc.ChunkID,
			&doc.Source,
			&doc.Content,
			&doc.CreatedTs,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		list = append(list, &doc)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

// CountDocuments counts document chunks matching the find condition.
func (d *DB) CountDocuments(ctx context.Context, find *store.FindDocument) (int64, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.FileID != nil {
		where, args = append(where, "file_id = ?"), append(args, *find.FileID)
	}

	query := `SELECT COUNT(1) FROM document WHERE ` + strings.Join(where, " AND ")

	var count int64
	if err := d.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrap(err, "failed to count documents")
	}
	return count, nil
}

// UpsertDocumentEmbedding inserts or updates a document embedding.
func (d *DB) UpsertDocumentEmbedding(ctx context.Context, embedding *store.DocumentEmbedding) error {
	blob, err := float32ArrayToBLOB(embedding.Embedding)
	if err != nil {
		return err
	}

	stmt := `
		INSERT INTO document_embedding (document_id, model, embedding, created_ts)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (document_id, model)
		DO UPDATE SET
			embedding = excluded.embedding,
			created_ts = excluded.created_ts
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		embedding.DocumentID,
		embedding.Model,
		blob,
		embedding.CreatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to upsert document embedding")
	}
	return nil
}

// VectorSearch performs a brute-force cosine similarity scan in Go.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.DocumentWithScore, error) {
	where, args := []string{"e.model = ?"}, []any{opts.Model}

	if opts.FileID != nil {
		where, args = append(where, "doc.file_id = ?"), append(args, *opts.FileID)
	}

	query := `
		SELECT doc.id, doc.file_id, doc.file_name, doc.chunk_id, doc.source, doc.content, doc.created_ts, e.embedding
		FROM document doc
		INNER JOIN document_embedding e ON doc.id = e.document_id
		WHERE ` + strings.Join(where, " AND ")

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.DocumentWithScore{}
	for rows.Next() {
		var doc store.Document
		var blob []byte
		if err := rows.Scan(
			&doc.ID,
			&doc.FileID,
			&doc.FileName,
			&doc.ChunkID,
			&doc.Source,
			&doc.Content,
			&doc.CreatedTs,
			&blob,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan document embedding")
		}

		vec, err := blobToFloat32Array(blob)
		if err != nil {
			return nil, err
		}

		results = append(results, &store.DocumentWithScore{
			Document: &doc,
			Score:    cosineSimilarity(opts.Vector, vec),
		})
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > opts.Limit {
		results = results[:opts.Limit]
	}

	return results, nil
}

// cosineSimilarity computes cosine similarity between two vectors.
func cosineSimilarity(a, b []float32) float32 {
	if len(a) != len(b) {
		return 0
	}

	var dotProduct float32
	var normA float32
	var normB float32

	for i := 0; i < len(a); i++ {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (float32(math.Sqrt(float64(normA))) * float32(math.Sqrt(float64(normB))))
}
