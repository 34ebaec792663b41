package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/ai/gemini"
	"github.com/spigell/cvmatch/internal/logger"
	"github.com/spigell/cvmatch/internal/store"
)

// ingestFile is the on-disk shape of a pre-chunked document. Chunk contents
// arrive already split; this tool only embeds and stores them.
type ingestFile struct {
	DocType  string         `json:"doc_type"`
	Metadata map[string]any `json:"metadata"`
	Chunks   []ingestChunk  `json:"chunks"`

	JobPosting *ingestJobPosting `json:"job_posting"`
	Personal   *ingestPersonal   `json:"personal"`
	Company    *ingestCompany    `json:"company_info"`
}

type ingestChunk struct {
	Content    string `json:"content"`
	TokenCount int    `json:"token_count"`
}

type ingestJobPosting struct {
	Title        *string    `json:"title"`
	Company      *string    `json:"company"`
	LocationText *string    `json:"location_text"`
	SalaryRange  *string    `json:"salary_range"`
	URL          *string    `json:"url"`
	Language     *string    `json:"language"`
	PostedAt     *time.Time `json:"posted_at"`
	MatchScore   *float64   `json:"match_score"`
}

type ingestPersonal struct {
	Category *string `json:"category"`
}

type ingestCompany struct {
	Name     *string `json:"name"`
	Industry *string `json:"industry"`
}

var ingestCmd = &cobra.Command{
	Use:   "ingest <document-file.json>",
	Short: "Embed and store a pre-chunked document",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ingest(cmd, args[0])
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().Bool("init-schema", false, "create tables and indexes before ingesting")
}

func ingest(cmd *cobra.Command, path string) {
	ctx := context.Background()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
	}

	input, err := readIngestFile(path)
	if err != nil {
		zl.Fatal("reading document file", zap.Error(err))
	}

	dsn, err := resolveDSN(config)
	if err != nil {
		zl.Fatal("loading database dsn", zap.Error(err))
	}

	contentStore, err := store.New(ctx, dsn, storeConfig(config), zl)
	if err != nil {
		zl.Fatal("connecting to the content store", zap.Error(err))
	}
	defer contentStore.Close()

	if cmd.Flag("init-schema").Value.String() == "true" {
		if err := contentStore.InitSchema(ctx); err != nil {
			zl.Fatal("initializing schema", zap.Error(err))
		}
		zl.Info("schema initialized")
	}

	apiKey, err := resolveAPIKey(config)
	if err != nil {
		zl.Fatal("loading gemini api key", zap.Error(err))
	}

	var embeddingModel string
	if config != nil && config.AI != nil && config.AI.Gemini != nil {
		embeddingModel = config.AI.Gemini.EmbeddingModel
	}

	embedder, err := gemini.NewEmbedder(ctx, apiKey, embeddingModel, logger.WithAIFields(zl, gemini.Provider, embeddingModel))
	if err != nil {
		zl.Fatal("creating gemini embedder", zap.Error(err))
	}

	zl.Info("embedding chunks", zap.Int("count", len(input.Chunks)))

	texts := make([]string, 0, len(input.Chunks))
	for _, chunk := range input.Chunks {
		texts = append(texts, chunk.Content)
	}

	vectors, err := embedder.Embed(ctx, texts)
	if err != nil {
		zl.Fatal("embedding chunks", zap.Error(err))
	}

	doc := &store.Document{
		DocType:  store.DocType(input.DocType),
		Metadata: input.Metadata,
	}

	if err := storeDocument(ctx, contentStore, doc, input, vectors); err != nil {
		zl.Fatal("storing document", zap.Error(err))
	}

	// read back the stored chunks as a cheap integrity check
	text, err := contentStore.FetchDocumentText(ctx, doc.ID)
	if err != nil {
		zl.Fatal("verifying stored document", zap.Error(err))
	}

	zl.Info("document ingested",
		zap.String("document_id", doc.ID.String()),
		zap.String("doc_type", input.DocType),
		zap.Int("chunks", len(input.Chunks)),
		zap.Int("text_length", len(text)),
	)
}

func readIngestFile(path string) (*ingestFile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var input ingestFile
	if err := json.Unmarshal(data, &input); err != nil {
		return nil, fmt.Errorf("parsing document file: %w", err)
	}

	if len(input.Chunks) == 0 {
		return nil, fmt.Errorf("document file contains no chunks")
	}

	return &input, nil
}

func storeDocument(ctx context.Context, contentStore *store.Store, doc *store.Document, input *ingestFile, vectors [][]float32) error {
	if err := contentStore.InsertDocument(ctx, doc); err != nil {
		return err
	}

	if err := storeSubtype(ctx, contentStore, doc.ID, input); err != nil {
		return err
	}

	chunks := make([]store.Chunk, 0, len(input.Chunks))
	for i, chunk := range input.Chunks {
		chunks = append(chunks, store.Chunk{
			DocumentID: doc.ID,
			Index:      i,
			Content:    chunk.Content,
			TokenCount: chunk.TokenCount,
		})
	}

	return contentStore.InsertChunksWithEmbeddings(ctx, chunks, vectors)
}

func storeSubtype(ctx context.Context, contentStore *store.Store, docID uuid.UUID, input *ingestFile) error {
	switch store.DocType(input.DocType) {
	case store.DocTypeJobPosting:
		jp := &store.JobPosting{DocumentID: docID}
		if input.JobPosting != nil {
			jp.Title = input.JobPosting.Title
			jp.Company = input.JobPosting.Company
			jp.LocationText = input.JobPosting.LocationText
			jp.SalaryRange = input.JobPosting.SalaryRange
			jp.URL = input.JobPosting.URL
			jp.Language = input.JobPosting.Language
			jp.PostedAt = input.JobPosting.PostedAt
			jp.MatchScore = input.JobPosting.MatchScore
		}
		return contentStore.InsertJobPosting(ctx, jp)
	case store.DocTypeCompany:
		ci := &store.CompanyInfo{DocumentID: docID}
		if input.Company != nil {
			ci.Name = input.Company.Name
			ci.Industry = input.Company.Industry
		}
		return contentStore.InsertCompanyInfo(ctx, ci)
	default:
		pd := &store.PersonalDocument{DocumentID: docID}
		if input.Personal != nil {
			pd.Category = input.Personal.Category
		} else {
			category := input.DocType
			pd.Category = &category
		}
		return contentStore.InsertPersonalDocument(ctx, pd)
	}
}
