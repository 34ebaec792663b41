package store

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"
	"go.uber.org/zap"
)

// DefaultSearchLimit bounds a search when the caller does not set one.
const DefaultSearchLimit = 5

// SearchOptions narrows and bounds a ranked search. MinScore filters on the
// explicit job-posting match score, not on the blended ranking score: it is a
// pre-filter, the blended score only orders what survives it.
type SearchOptions struct {
	Limit       int
	MinScore    float64
	PostedAfter *time.Time
	DocTypes    []DocType
	Company     string
}

// Search runs the ranked nearest-neighbor query and returns chunks ordered by
// blended score, highest first. Transient connectivity failures are retried
// with backoff; the last error surfaces once attempts are exhausted.
func (s *Store) Search(ctx context.Context, queryVector []float32, opts SearchOptions) ([]RetrievedChunk, error) {
	if len(queryVector) == 0 {
		return nil, validationErrorf("query vector is required")
	}
	if opts.Limit <= 0 {
		opts.Limit = DefaultSearchLimit
	}

	sql, args := buildSearchQuery(s.cfg.Ranking, queryVector, opts)

	var results []RetrievedChunk
	err := s.withSearchRetry(ctx, func() error {
		var qerr error
		results, qerr = s.runSearch(ctx, sql, args)
		return qerr
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("search completed",
		zap.Int("results", len(results)),
		zap.Int("limit", opts.Limit),
	)

	return results, nil
}

// buildSearchQuery assembles the ranking SQL and its positional arguments.
// The ORDER BY expression is the blended score:
// wSim·(1−distance) + wMatch·coalesce(match_score,0) + wRec·exp(−age/decay).
func buildSearchQuery(ranking RankingConfig, queryVector []float32, opts SearchOptions) (string, []any) {
	args := []any{pgvector.NewVector(queryVector), opts.MinScore}
	where := []string{"COALESCE(jp.match_score, 0) >= $2"}

	if opts.PostedAfter != nil {
		args = append(args, *opts.PostedAfter)
		where = append(where, fmt.Sprintf("jp.posted_at >= $%d", len(args)))
	}

	if len(opts.DocTypes) > 0 {
		types := make([]string, 0, len(opts.DocTypes))
		for _, t := range opts.DocTypes {
			types = append(types, string(t))
		}
		args = append(args, types)
		where = append(where, fmt.Sprintf("d.doc_type = ANY($%d)", len(args)))
	}

	if opts.Company != "" {
		args = append(args, "%"+opts.Company+"%")
		where = append(where, fmt.Sprintf("jp.company ILIKE $%d", len(args)))
	}

	args = append(args, opts.Limit)

	sql := fmt.Sprintf(`
		SELECT
			c.id, c.document_id, c.chunk_index, c.content, c.token_count, c.created_at,
			d.doc_type, d.metadata, d.created_at,
			jp.title, jp.company, jp.location_text, jp.language, jp.url,
			jp.posted_at, jp.match_score, jp.related_company_id, jp.salary_range,
			pd.category,
			ci.name, ci.industry,
			(e.embedding <=> $1) AS distance,
			COALESCE(jp.match_score, 0) AS match_score,
			EXTRACT(EPOCH FROM (NOW() - COALESCE(jp.posted_at, NOW()))) / 86400 AS age_days
		FROM embeddings e
		JOIN chunks c ON c.id = e.chunk_id
		JOIN documents d ON d.id = c.document_id
		LEFT JOIN job_postings jp ON jp.document_id = d.id
		LEFT JOIN personal_documents pd ON pd.document_id = d.id
		LEFT JOIN company_info ci ON ci.document_id = d.id
		WHERE %s
		ORDER BY (%g * (1 - (e.embedding <=> $1))
			+ %g * COALESCE(jp.match_score, 0)
			+ %g * EXP(-GREATEST(0, COALESCE(EXTRACT(EPOCH FROM (NOW() - COALESCE(jp.posted_at, NOW()))) / 86400, 0)) / %g)) DESC
		LIMIT $%d`,
		strings.Join(where, " AND "),
		ranking.WeightSimilarity, ranking.WeightMatchScore, ranking.WeightRecency, ranking.DecayDays,
		len(args),
	)

	return sql, args
}

func (s *Store) runSearch(ctx context.Context, sql string, args []any) ([]RetrievedChunk, error) {
	rows, err := s.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var results []RetrievedChunk
	for rows.Next() {
		var (
			chunk    Chunk
			doc      Document
			docType  string
			metadata map[string]any

			title, company, locationText, language, url *string
			postedAt                                    *time.Time
			matchScore                                  *float64
			relatedCompanyID                            *uuid.UUID
			salaryRange                                 *string
			personalCategory                            *string
			companyName, industry                       *string

			distance, matchScoreVal, ageDays float64
		)

		if err := rows.Scan(
			&chunk.ID, &chunk.DocumentID, &chunk.Index, &chunk.Content, &chunk.TokenCount, &chunk.CreatedAt,
			&docType, &metadata, &doc.CreatedAt,
			&title, &company, &locationText, &language, &url,
			&postedAt, &matchScore, &relatedCompanyID, &salaryRange,
			&personalCategory,
			&companyName, &industry,
			&distance, &matchScoreVal, &ageDays,
		); err != nil {
			return nil, err
		}

		doc.ID = chunk.DocumentID
		doc.DocType = DocType(docType)
		doc.Metadata = metadata

		retrieved := RetrievedChunk{
			Chunk:    chunk,
			Document: doc,
			Score:    blendScore(s.cfg.Ranking, distance, matchScoreVal, ageDays),
		}

		switch doc.DocType {
		case DocTypeJobPosting:
			retrieved.JobPosting = &JobPosting{
				DocumentID:       doc.ID,
				RelatedCompanyID: relatedCompanyID,
				Title:            title,
				LocationText:     locationText,
				SalaryRange:      salaryRange,
				URL:              url,
				Language:         language,
				PostedAt:         postedAt,
				MatchScore:       matchScore,
				Company:          company,
			}
		case DocTypeCV, DocTypeCoverLetter, DocTypeThesis, DocTypePersonalProject:
			category := personalCategory
			if category == nil {
				fallback := string(doc.DocType)
				category = &fallback
			}
			retrieved.Personal = &PersonalDocument{DocumentID: doc.ID, Category: category}
		case DocTypeCompany:
			retrieved.Company = &CompanyInfo{DocumentID: doc.ID, Name: companyName, Industry: industry}
		}

		results = append(results, retrieved)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return results, nil
}

// blendScore mirrors the SQL ranking expression so retrieved rows carry the
// same score the database ordered them by.
func blendScore(ranking RankingConfig, distance, matchScore, ageDays float64) float64 {
	similarity := 1 - distance
	recency := math.Exp(-math.Max(0, ageDays) / ranking.DecayDays)
	return ranking.WeightSimilarity*similarity +
		ranking.WeightMatchScore*matchScore +
		ranking.WeightRecency*recency
}
