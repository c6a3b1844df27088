// Package store provides database access to the screening-rule corpus.
package store

import (
	"context"

	"github.com/hrygo/nutriscreen/internal/profile"
)

// Store provides database access to all raw objects.
type Store struct {
	profile *profile.Profile
	driver  Driver
}

// Driver is an interface for database drivers.
type Driver interface {
	GetDB() any
	Migrate(ctx context.Context) error
	Close() error

	CreateDocument(ctx context.Context, doc *Document) (*Document, error)
	ListDocuments(ctx context.Context, find *FindDocument) ([]*Document, error)
	CountDocuments(ctx context.Context, find *FindDocument) (int64, error)
	UpsertDocumentEmbedding(ctx context.Context, embedding *DocumentEmbedding) error
	VectorSearch(ctx context.Context, opts *VectorSearchOptions) ([]*DocumentWithScore, error)
}

// New creates a new instance of Store.
func New(driver Driver, profile *profile.Profile) *Store {
	return &Store{
		driver:  driver,
		profile: profile,
	}
}

func (s *Store) GetDriver() Driver {
	return s.driver
}

func (s *Store) Migrate(ctx context.Context) error {
	return s.driver.Migrate(ctx)
}

func (s *Store) Close() error {
	return s.driver.Close()
}
