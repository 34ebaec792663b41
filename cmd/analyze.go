package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/ai/gemini"
	"github.com/spigell/cvmatch/internal/logger"
	"github.com/spigell/cvmatch/internal/match"
	"github.com/spigell/cvmatch/internal/store"
)

const (
	PromptExit         = "Exit"
	PromptReportToFile = "Dump report to file"
	PromptCitations    = "Show citations"
)

var errExit = errors.New("exit requested")

var reportPrompt = promptui.Select{
	Label: "What next?",
	Items: []string{PromptExit, PromptReportToFile, PromptCitations},
}

var analyzeCmd = &cobra.Command{
	Use:   "analyze [job-posting-file]",
	Short: "Evaluate how well the indexed candidate documents match a job posting",
	Long: `Analyze reads a job posting from the given file (or stdin when omitted),
extracts its requirements, retrieves candidate evidence for each one and
produces per-requirement verdicts with an aggregate match rate.`,
	Args: cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		analyze(cmd, args)
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)

	analyzeCmd.Flags().BoolP("no-prompt", "y", false, "print the report and exit without the interactive menu")
}

func analyze(cmd *cobra.Command, args []string) {
	ctx := context.Background()

	logger, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	config, err := getConfig()
	if err != nil {
		logger.Fatal("getting a config", zap.Error(err))
	}

	logger.Info("starting the cvmatch analysis", zap.String("version", version))

	jobText, err := readJobText(args)
	if err != nil {
		logger.Fatal("reading job posting", zap.Error(err))
	}
	if strings.TrimSpace(jobText) == "" {
		logger.Fatal("job posting text is empty")
	}

	dsn, err := resolveDSN(config)
	if err != nil {
		logger.Fatal("loading database dsn", zap.Error(err))
	}

	contentStore, err := store.New(ctx, dsn, storeConfig(config), logger)
	if err != nil {
		logger.Fatal("connecting to the content store", zap.Error(err))
	}
	defer contentStore.Close()

	service, err := buildMatchService(ctx, config, contentStore, logger)
	if err != nil {
		logger.Fatal("building the matching pipeline", zap.Error(err))
	}

	result := runPipeline(ctx, service, jobText, logger)

	report := renderReport(result)
	fmt.Println(report)

	if cmd.Flag("no-prompt").Value.String() == "true" {
		return
	}

	for {
		_, action, err := reportPrompt.Run()
		if err != nil {
			logger.Fatal("exiting", zap.Error(err))
		}

		if err := handleReportAction(action, report, result, logger); err != nil {
			if errors.Is(err, errExit) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// runPipeline drives the matching stages one by one so progress can be
// reported per requirement instead of only at the end.
func runPipeline(ctx context.Context, service *match.Service, jobText string, logger *zap.Logger) *match.JobMatchResult {
	mapping, err := service.ExtractDomainKnowledge(ctx, jobText)
	if err != nil {
		logger.Fatal("retrieving candidate documents", zap.Error(err))
	}

	requirements := service.ExtractRequirements(ctx, jobText)
	logger.Info("requirements extracted", zap.Int("count", len(requirements)))

	evaluations := make([]match.RequirementEvaluation, 0, len(requirements))
	for i, req := range requirements {
		if err := ctx.Err(); err != nil {
			logger.Fatal("analysis cancelled", zap.Error(err))
		}

		logger.Info("evaluating requirement",
			zap.String("requirement", req.Name),
			zap.Int("position", i+1),
			zap.Int("total", len(requirements)),
		)

		eval, err := service.EvaluateRequirement(ctx, req, mapping)
		if err != nil {
			logger.Fatal("retrieving evidence", zap.Error(err))
		}
		logger.Info("requirement evaluated",
			zap.String("requirement", req.Name),
			zap.String("verdict", string(eval.Verdict)),
			zap.Int("evidence_chunks", eval.RetrievedChunksCount),
		)

		evaluations = append(evaluations, eval)
	}

	return match.Aggregate(jobText, requirements, evaluations)
}

func buildMatchService(ctx context.Context, config *Config, contentStore *store.Store, zl *zap.Logger) (*match.Service, error) {
	apiKey, err := resolveAPIKey(config)
	if err != nil {
		return nil, fmt.Errorf("loading gemini api key: %w (set GEMINI_API_KEY_FILE or the 'ai.gemini.api-key-file' key)", err)
	}

	var model, fallback, embeddingModel string
	if config != nil && config.AI != nil && config.AI.Gemini != nil {
		model = config.AI.Gemini.Model
		fallback = config.AI.Gemini.FallbackModel
		embeddingModel = config.AI.Gemini.EmbeddingModel
	}

	generator, err := gemini.NewGenerator(ctx, apiKey, model, fallback, logger.WithAIFields(zl, gemini.Provider, model))
	if err != nil {
		return nil, fmt.Errorf("creating gemini generator: %w", err)
	}

	embedder, err := gemini.NewEmbedder(ctx, apiKey, embeddingModel, logger.WithAIFields(zl, gemini.Provider, embeddingModel))
	if err != nil {
		return nil, fmt.Errorf("creating gemini embedder: %w", err)
	}

	return match.NewService(embedder, generator, contentStore, matchConfig(config), zl), nil
}

func readJobText(args []string) (string, error) {
	if len(args) == 0 {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("reading job posting from stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("reading job posting file: %w", err)
	}
	return string(data), nil
}

func handleReportAction(action, report string, result *match.JobMatchResult, logger *zap.Logger) error {
	switch action {
	case PromptExit:
		return errExit
	case PromptReportToFile:
		filename, err := dumpReportToTmpFile(report)
		if err != nil {
			return fmt.Errorf("dump report to file: %w", err)
		}
		logger.Info("dumping report to file", zap.String("filename", filename))
		return nil
	case PromptCitations:
		fmt.Println(renderCitations(result))
		return nil
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func dumpReportToTmpFile(report string) (string, error) {
	file, err := os.CreateTemp("", app+"-report-*.txt")
	if err != nil {
		return "", err
	}
	defer file.Close()

	if _, err := file.WriteString(report); err != nil {
		return "", err
	}

	return file.Name(), nil
}
