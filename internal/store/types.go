package store

import (
	"time"

	"github.com/google/uuid"
)

// DocType tags a document with its role in the corpus. The set is closed.
type DocType string

const (
	DocTypeJobPosting      DocType = "job_posting"
	DocTypeCompany         DocType = "company"
	DocTypeCV              DocType = "cv"
	DocTypeCoverLetter     DocType = "cover_letter"
	DocTypeThesis          DocType = "thesis"
	DocTypePersonalProject DocType = "personal_project"
)

// SupportedDocTypes lists every valid document type.
var SupportedDocTypes = []DocType{
	DocTypeJobPosting,
	DocTypeCompany,
	DocTypeCV,
	DocTypeCoverLetter,
	DocTypeThesis,
	DocTypePersonalProject,
}

// PersonalDocTypes are the types holding candidate evidence: the CV, thesis
// and personal projects. Evidence retrieval is restricted to these.
var PersonalDocTypes = []DocType{DocTypeCV, DocTypeThesis, DocTypePersonalProject}

// Valid reports whether t belongs to the supported set.
func (t DocType) Valid() bool {
	for _, known := range SupportedDocTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Document is the root persisted entity. Each document owns at most one
// type-specific row (JobPosting, PersonalDocument or CompanyInfo) matching
// its DocType.
type Document struct {
	ID        uuid.UUID
	DocType   DocType
	Metadata  map[string]any
	CreatedAt time.Time
}

// Chunk is a bounded slice of a document's text, the unit of retrieval.
// Indices are zero-based and unique within the owning document. Chunks are
// immutable after insertion.
type Chunk struct {
	ID         uuid.UUID
	DocumentID uuid.UUID
	Index      int
	Content    string
	TokenCount int
	CreatedAt  time.Time
}

// JobPosting holds job-posting specific attributes for a document.
type JobPosting struct {
	DocumentID       uuid.UUID
	RelatedCompanyID *uuid.UUID
	Title            *string
	LocationText     *string
	SalaryRange      *string
	URL              *string
	Language         *string
	PostedAt         *time.Time
	MatchScore       *float64
	Company          *string
}

// PersonalDocument holds the category of a candidate-owned document
// (cv, cover_letter, thesis, personal_project).
type PersonalDocument struct {
	DocumentID uuid.UUID
	Category   *string
}

// CompanyInfo holds company-document attributes.
type CompanyInfo struct {
	DocumentID uuid.UUID
	Name       *string
	Industry   *string
}

// RetrievedChunk is a transient search result: a chunk with its owning
// document, the blended relevance score, and whichever type-specific row
// applies. It is never persisted.
type RetrievedChunk struct {
	Chunk      Chunk
	Document   Document
	Score      float64
	JobPosting *JobPosting
	Personal   *PersonalDocument
	Company    *CompanyInfo
}
