package postgres

import (
	"context"
	"strings"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/hrygo/nutriscreen/store"
)

// CreateDocument stores a new document chunk.
func (d *DB) CreateDocument(ctx context.Context, doc *store.Document) (*store.Document, error) {
	stmt := `
		INSERT INTO document (id, file_id, file_name, chunk_id, source, content, created_ts)
		VALUES (` + placeholders(7) + `)
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
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.FileID != nil {
		where, args = append(where, "file_id = "+placeholder(len(args)+1)), append(args, *find.FileID)
	}

	query := `
		SELECT id, file_id, file_name, chunk_id, source, content, created_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts ASC
	`
	if find.Limit != nil {
		args = append(args, *find.Limit)
		query += " LIMIT " + placeholder(len(args))
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
		where, args = append(where, "file_id = "+placeholder(len(args)+1)), append(args, *find.FileID)
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
	stmt := `
		INSERT INTO document_embedding (document_id, model, embedding, created_ts)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (document_id, model)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			created_ts = EXCLUDED.created_ts
	`
	vector := pgvector.NewVector(embedding.Embedding)
	if _, err := d.db.ExecContext(ctx, stmt,
		embedding.DocumentID,
		embedding.Model,
		vector,
		embedding.CreatedTs,
	); err != nil {
		return errors.Wrap(err, "failed to upsert document embedding")
	}
	return nil
}

// VectorSearch performs vector similarity search using pgvector.
func (d *DB) VectorSearch(ctx context.Context, opts *store.VectorSearchOptions) ([]*store.DocumentWithScore, error) {
	where, args := []string{"e.model = " + placeholder(1)}, []any{opts.Model}

	if opts.FileID != nil {
		where = append(where, "doc.file_id = "+placeholder(len(args)+1))
		args = append(args, *opts.FileID)
	}

	// The <=> operator computes cosine distance (1 - cosine_similarity),
	// so we order by distance ASC and report 1 - distance as the score
	// to keep "higher is better" uniform across adapters.
	vector := pgvector.NewVector(opts.Vector)
	query := `
		SELECT
			doc.id, doc.file_id, doc.file_name, doc.chunk_id, doc.source, doc.content, doc.created_ts,
			1 - (e.embedding <=> ` + placeholder(len(args)+1) + `) AS score
		FROM document doc
		INNER JOIN document_embedding e ON doc.id = e.document_id
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY e.embedding <=> ` + placeholder(len(args)+2) + `
		LIMIT ` + placeholder(len(args)+3)

	args = append(args, vector, vector, opts.Limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to vector search")
	}
	defer rows.Close()

	results := []*store.DocumentWithScore{}
	for rows.Next() {
		var result store.DocumentWithScore
		var doc store.Document
		if err := rows.Scan(
			&doc.ID,
			&doc.FileID,
			&doc.FileName,
			&doc.ChunkID,
			&doc.Source,
			&doc.Content,
			&doc.CreatedTs,
			&result.Score,
		); err != nil {
			return nil, errors.Wrap(err, "failed to scan vector search result")
		}
		result.Document = &doc
		results = append(results, &result)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}
