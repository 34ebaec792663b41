package store

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/utils"
)

// DB is the slice of pgxpool.Pool the store uses. Tests substitute a fake.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Ping(ctx context.Context) error
	Close()
}

// RankingConfig holds the blended-score weights and the recency decay
// constant used by Search.
type RankingConfig struct {
	WeightSimilarity float64
	WeightMatchScore float64
	WeightRecency    float64
	DecayDays        float64
}

// RetryConfig bounds the search retry loop. Waits grow linearly with the
// attempt number and are jittered.
type RetryConfig struct {
	Attempts  int
	BaseDelay time.Duration
}

// Config configures a Store.
type Config struct {
	Ranking   RankingConfig
	Retry     RetryConfig
	VectorDim int
}

// DefaultConfig returns the deployment defaults: 0.6/0.3/0.1 weights, 30-day
// decay, 3 search attempts with a 500ms base delay.
func DefaultConfig() Config {
	return Config{
		Ranking: RankingConfig{
			WeightSimilarity: 0.6,
			WeightMatchScore: 0.3,
			WeightRecency:    0.1,
			DecayDays:        30,
		},
		Retry: RetryConfig{
			Attempts:  3,
			BaseDelay: 500 * time.Millisecond,
		},
		VectorDim: 3072,
	}
}

// Store persists documents, chunks and embeddings in Postgres and executes
// the ranked nearest-neighbor search over them.
type Store struct {
	db     DB
	cfg    Config
	logger *zap.Logger
}

// New connects a Store to the database at the given DSN and verifies the
// connection with a ping.
func New(ctx context.Context, dsn string, cfg Config, logger *zap.Logger) (*Store, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return NewWithDB(pool, cfg, logger), nil
}

// NewWithDB builds a Store on an existing connection. Zero config fields fall
// back to defaults.
func NewWithDB(db DB, cfg Config, logger *zap.Logger) *Store {
	defaults := DefaultConfig()
	if cfg.Ranking == (RankingConfig{}) {
		cfg.Ranking = defaults.Ranking
	}
	if cfg.Retry.Attempts <= 0 {
		cfg.Retry.Attempts = defaults.Retry.Attempts
	}
	if cfg.Retry.BaseDelay <= 0 {
		cfg.Retry.BaseDelay = defaults.Retry.BaseDelay
	}
	if cfg.VectorDim <= 0 {
		cfg.VectorDim = defaults.VectorDim
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Store{db: db, cfg: cfg, logger: logger}
}

// Close releases the underlying connection pool.
func (s *Store) Close() {
	if s.db != nil {
		s.db.Close()
	}
}

// InsertDocument persists a document row. A zero ID or CreatedAt is filled in.
func (s *Store) InsertDocument(ctx context.Context, doc *Document) error {
	if doc == nil {
		return validationErrorf("document is required")
	}
	if !doc.DocType.Valid() {
		return validationErrorf("unsupported doc type %q", doc.DocType)
	}
	if doc.ID == uuid.Nil {
		doc.ID = uuid.New()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC()
	}

	s.logger.Debug("insert document",
		zap.String("document_id", doc.ID.String()),
		zap.String("doc_type", string(doc.DocType)),
	)

	_, err := s.db.Exec(ctx,
		`INSERT INTO documents (id, doc_type, metadata, created_at) VALUES ($1, $2, $3, $4)`,
		doc.ID, string(doc.DocType), doc.Metadata, doc.CreatedAt,
	)
	return err
}

// InsertJobPosting persists the job-posting subtype row for a document.
func (s *Store) InsertJobPosting(ctx context.Context, jp *JobPosting) error {
	if jp == nil || jp.DocumentID == uuid.Nil {
		return validationErrorf("job posting with document id is required")
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO job_postings
		 (document_id, related_company_id, title, location_text, salary_range, url, language, posted_at, match_score, company)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		jp.DocumentID, jp.RelatedCompanyID, jp.Title, jp.LocationText, jp.SalaryRange,
		jp.URL, jp.Language, jp.PostedAt, jp.MatchScore, jp.Company,
	)
	return err
}

// InsertPersonalDocument persists the personal-document subtype row.
func (s *Store) InsertPersonalDocument(ctx context.Context, pd *PersonalDocument) error {
	if pd == nil || pd.DocumentID == uuid.Nil {
		return validationErrorf("personal document with document id is required")
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO personal_documents (document_id, category) VALUES ($1, $2)`,
		pd.DocumentID, pd.Category,
	)
	return err
}

// InsertCompanyInfo persists the company-info subtype row.
func (s *Store) InsertCompanyInfo(ctx context.Context, ci *CompanyInfo) error {
	if ci == nil || ci.DocumentID == uuid.Nil {
		return validationErrorf("company info with document id is required")
	}

	_, err := s.db.Exec(ctx,
		`INSERT INTO company_info (document_id, name, industry) VALUES ($1, $2, $3)`,
		ci.DocumentID, ci.Name, ci.Industry,
	)
	return err
}

// DeleteDocument removes a document. Chunks, embeddings and the subtype row
// follow via ON DELETE CASCADE.
func (s *Store) DeleteDocument(ctx context.Context, id uuid.UUID) error {
	if id == uuid.Nil {
		return validationErrorf("document id is required")
	}

	s.logger.Debug("delete document", zap.String("document_id", id.String()))

	_, err := s.db.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	return err
}

// InsertChunksWithEmbeddings persists chunks and their vectors pairwise.
// A length mismatch fails with a ValidationError before anything is written.
// Inserts are issued per chunk and are not wrapped in a single transaction.
func (s *Store) InsertChunksWithEmbeddings(ctx context.Context, chunks []Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return validationErrorf("chunks and embeddings length mismatch: %d != %d", len(chunks), len(vectors))
	}

	s.logger.Debug("insert chunks with embeddings", zap.Int("count", len(chunks)))

	for i := range chunks {
		chunk := &chunks[i]
		if chunk.ID == uuid.Nil {
			chunk.ID = uuid.New()
		}
		if chunk.CreatedAt.IsZero() {
			chunk.CreatedAt = time.Now().UTC()
		}

		_, err := s.db.Exec(ctx,
			`INSERT INTO chunks (id, document_id, chunk_index, content, token_count, created_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			chunk.ID, chunk.DocumentID, chunk.Index, chunk.Content, chunk.TokenCount, chunk.CreatedAt,
		)
		if err != nil {
			return err
		}

		_, err = s.db.Exec(ctx,
			`INSERT INTO embeddings (chunk_id, embedding) VALUES ($1, $2)`,
			chunk.ID, pgvector.NewVector(vectors[i]),
		)
		if err != nil {
			return err
		}
	}

	return nil
}

// FetchDocumentText concatenates a document's chunk contents in index order.
func (s *Store) FetchDocumentText(ctx context.Context, id uuid.UUID) (string, error) {
	rows, err := s.db.Query(ctx,
		`SELECT content FROM chunks WHERE document_id = $1 ORDER BY chunk_index ASC`, id)
	if err != nil {
		return "", err
	}
	defer rows.Close()

	var parts []string
	for rows.Next() {
		var content string
		if err := rows.Scan(&content); err != nil {
			return "", err
		}
		parts = append(parts, content)
	}
	if err := rows.Err(); err != nil {
		return "", err
	}

	return strings.Join(parts, "\n\n"), nil
}

// withSearchRetry runs fn up to the configured attempt count, waiting a
// jittered base×attempt delay between connectivity failures. Non-connectivity
// errors and the last connectivity error surface to the caller unchanged.
func (s *Store) withSearchRetry(ctx context.Context, fn func() error) error {
	attempts := s.cfg.Retry.Attempts
	var last error

	for attempt := 1; attempt <= attempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		if !IsConnectivity(err) {
			return err
		}
		last = err

		s.logger.Warn("search retry",
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err),
		)

		if attempt < attempts {
			wait := utils.Jitter(time.Duration(attempt) * s.cfg.Retry.BaseDelay)
			if werr := utils.WaitFor(ctx, wait); werr != nil {
				return werr
			}
		}
	}

	s.logger.Error("search failed after retries", zap.Error(last))
	return last
}
