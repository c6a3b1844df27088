package index

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/hrygo/nutriscreen/store"
)

// PlaceholderDocumentID marks the built-in rule document served when the
// lexical corpus is empty, so downstream consumers can tell synthetic
// evidence from indexed evidence.
const PlaceholderDocumentID = "fallback"

const placeholderContent = "NRS2002营养风险筛查基础规则：" +
	"营养状态受损评分0-3分（体重下降、摄食减少、BMI降低程度），" +
	"疾病严重程度评分0-3分（疾病对营养需求的影响程度），" +
	"年龄≥70岁加1分。总分≥3分提示存在营养风险，应制定营养支持计划。"

// PlaceholderCandidate returns the built-in rule document as a lexical
// candidate. It backs both the empty-corpus path and the final step of
// the retrieval fallback cascade.
func PlaceholderCandidate() Candidate {
	return Candidate{
		DocumentID: PlaceholderDocumentID,
		FileName:   "NRS2002营养风险筛查基础规则",
		Content:    placeholderContent,
		Score:      1.0,
		Rank:       1,
		Source:     SourceLexical,
	}
}

type lexicalDoc struct {
	doc    *store.Document
	tokens []string
}

// LexicalIndex is an in-memory BM25 index over a snapshot of the document
// corpus. The snapshot is built at startup and only changes via Refresh;
// searches never touch the database.
type LexicalIndex struct {
	store *store.Store

	mu   sync.RWMutex
	docs []lexicalDoc
	bm25 *bm25Index
}

// NewLexicalIndex builds the initial corpus snapshot. An empty corpus is
// not an error; searches serve the built-in placeholder until Refresh
// observes real documents.
func NewLexicalIndex(ctx context.Context, s *store.Store) (*LexicalIndex, error) {
	l := &LexicalIndex{store: s}
	if err := l.Refresh(ctx); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *LexicalIndex) Name() Source { return SourceLexical }

// Refresh rebuilds the snapshot from the store. Documents with identical
// content are collapsed to the first occurrence.
func (l *LexicalIndex) Refresh(ctx context.Context) error {
	documents, err := l.store.ListDocuments(ctx, &store.FindDocument{})
	if err != nil {
		return &SourceError{Source: SourceLexical, Err: err}
	}

	seen := make(map[string]bool, len(documents))
	docs := make([]lexicalDoc, 0, len(documents))
	corpus := make([][]string, 0, len(documents))
	for _, doc := range documents {
		key := strings.TrimSpace(doc.Content)
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		tokens := Tokenize(doc.Content)
		docs = append(docs, lexicalDoc{doc: doc, tokens: tokens})
		corpus = append(corpus, tokens)
	}

	idx := newBM25Index(corpus)

	l.mu.Lock()
	l.docs = docs
	l.bm25 = idx
	l.mu.Unlock()

	slog.Info("lexical index refreshed",
		"documents", len(documents),
		"unique", len(docs),
	)
	return nil
}

func (l *LexicalIndex) Search(ctx context.Context, query string, k int, filter *Filter) ([]Candidate, error) {
	if err := ctx.Err(); err != nil {
		return nil, &SourceError{Source: SourceLexical, Err: err}
	}

	l.mu.RLock()
	docs := l.docs
	idx := l.bm25
	l.mu.RUnlock()

	if len(docs) == 0 {
		slog.Warn("lexical corpus is empty, serving placeholder rules")
		return []Candidate{PlaceholderCandidate()}, nil
	}

	queryTokens := Tokenize(query)
	// Over-fetch when filtering so post-filter results still fill k.
	fetch := k
	if filter != nil && filter.FileID != "" {
		fetch = len(docs)
	}
	hits := idx.search(queryTokens, fetch)

	candidates := make([]Candidate, 0, k)
	for _, hit := range hits {
		doc := docs[hit.docIndex].doc
		if filter != nil && filter.FileID != "" && doc.FileID != filter.FileID {
			continue
		}
		candidates = append(candidates, Candidate{
			DocumentID: doc.ID,
			FileID:     doc.FileID,
			FileName:   doc.FileName,
			ChunkID:    doc.ChunkID,
			Content:    doc.Content,
			Score:      hit.score,
			Rank:       len(candidates) + 1,
			Source:     SourceLexical,
		})
		if len(candidates) == k {
			break
		}
	}
	return candidates, nil
}
