package store

import (
	"context"
	"fmt"
)

// InitSchema creates the pgvector extension, tables and indexes when they do
// not exist yet. The embedding column dimension is fixed by Config.VectorDim.
func (s *Store) InitSchema(ctx context.Context) error {
	ddl := fmt.Sprintf(`
	CREATE EXTENSION IF NOT EXISTS vector;

	CREATE TABLE IF NOT EXISTS documents (
		id UUID PRIMARY KEY,
		doc_type TEXT NOT NULL,
		metadata JSONB,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS chunks (
		id UUID PRIMARY KEY,
		document_id UUID NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
		chunk_index INT NOT NULL,
		content TEXT NOT NULL,
		token_count INT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
		UNIQUE (document_id, chunk_index)
	);

	CREATE TABLE IF NOT EXISTS embeddings (
		chunk_id UUID PRIMARY KEY REFERENCES chunks(id) ON DELETE CASCADE,
		embedding vector(%d),
		created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
	);

	CREATE TABLE IF NOT EXISTS job_postings (
		document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
		related_company_id UUID,
		title TEXT,
		location_text TEXT,
		salary_range TEXT,
		url TEXT,
		language TEXT,
		posted_at TIMESTAMPTZ,
		match_score DOUBLE PRECISION,
		company TEXT
	);

	CREATE TABLE IF NOT EXISTS personal_documents (
		document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
		category TEXT
	);

	CREATE TABLE IF NOT EXISTS company_info (
		document_id UUID PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
		name TEXT,
		industry TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_embeddings_embedding_cosine
		ON embeddings USING ivfflat (embedding vector_cosine_ops) WITH (lists = 100);
	CREATE INDEX IF NOT EXISTS idx_chunks_document_id ON chunks(document_id);
	CREATE INDEX IF NOT EXISTS idx_documents_doc_type ON documents(doc_type);
	`, s.cfg.VectorDim)

	_, err := s.db.Exec(ctx, ddl)
	return err
}
