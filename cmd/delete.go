package cmd

import (
	"context"
	"log"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/spigell/cvmatch/internal/logger"
	"github.com/spigell/cvmatch/internal/store"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <document-id>",
	Short: "Delete a document and all of its chunks and embeddings",
	Args:  cobra.ExactArgs(1),
	Run: func(_ *cobra.Command, args []string) {
		deleteDocument(args[0])
	},
}

func init() {
	rootCmd.AddCommand(deleteCmd)
}

func deleteDocument(id string) {
	ctx := context.Background()

	zl, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		log.Fatalf("creating a logger: %s", err)
	}

	docID, err := uuid.Parse(id)
	if err != nil {
		zl.Fatal("parsing document id", zap.String("document_id", id), zap.Error(err))
	}

	config, err := getConfig()
	if err != nil {
		zl.Fatal("getting a config", zap.Error(err))
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

	if err := contentStore.DeleteDocument(ctx, docID); err != nil {
		zl.Fatal("deleting document", zap.Error(err))
	}

	zl.Info("document deleted", zap.String("document_id", docID.String()))
}
