package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/graphweave/graphweave/pkg/config"
	"github.com/graphweave/graphweave/pkg/logger"
)

var extractCmd = &cobra.Command{
	Use:   "extract [text]",
	Short: "Extract knowledge triples from text",
	Long: `Extract subject-predicate-object triples from the given text, persist
them in the knowledge store and integrate them into the graph.

Text is taken from the argument, or from stdin when no argument is given.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runExtract,
}

func init() {
	rootCmd.AddCommand(extractCmd)

	extractCmd.Flags().String("tenant", "default", "Owning tenant")
	extractCmd.Flags().String("source-id", "", "Provenance id to tag extracted triples with")
}

func runExtract(cmd *cobra.Command, args []string) error {
	var text string
	if len(args) > 0 {
		text = args[0]
	} else {
		raw, err := io.ReadAll(os.Stdin)
		if err != nil {
			return fmt.Errorf("failed to read stdin: %w", err)
		}
		text = string(raw)
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("no text to extract from")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	engine, cleanup, err := buildEngine(cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize engine: %w", err)
	}
	defer cleanup()

	tenant, _ := cmd.Flags().GetString("tenant")
	sourceID, _ := cmd.Flags().GetString("source-id")

	saved, err := engine.ExtractFromText(cmd.Context(), text, sourceID, tenant)
	if err != nil {
		return fmt.Errorf("extraction failed: %w", err)
	}

	fmt.Printf("Extracted %d triples\n", len(saved))
	for _, triple := range saved {
		subject, err := engine.Store().GetEntity(cmd.Context(), triple.SubjectID)
		if err != nil {
			continue
		}
		object, err := engine.Store().GetEntity(cmd.Context(), triple.ObjectID)
		if err != nil {
			continue
		}
		predicate, err := engine.Store().GetRelationship(cmd.Context(), triple.PredicateID)
		if err != nil {
			continue
		}
		fmt.Printf("  %s -- %s --> %s (%.2f)\n", subject.Name, predicate.Name, object.Name, triple.Confidence)
	}
	return nil
}
