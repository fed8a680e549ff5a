package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"

	"github.com/siherrmann/enricher"
	"github.com/siherrmann/enricher/helper"
	"github.com/siherrmann/enricher/model"
	"github.com/spf13/cobra"
)

var version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "enricher",
		Short: "Police report entity resolution and annotation",
		Long: `Enricher resolves the vehicles, persons and locations extracted from a
police report against the reference store and annotates the report text.

The reference store is configured through DB_* environment variables,
optionally read from an env file. Entities are read as JSON:

  {"vehiculos": [{"matricula": "9915GBN", "marca": "Volkswagen"}],
   "personas": [{"dni": "43123456X", "nombre": "Joan"}],
   "ubicaciones": [{"nombre_via": "Ribes", "numero": "88"}]}`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().String("env-file", "", "Env file with the DB_* settings")
	rootCmd.PersistentFlags().String("config", "", "YAML file with match thresholds")
	rootCmd.PersistentFlags().Bool("verbose", false, "Log debug records to stderr")

	rootCmd.AddCommand(resolveCmd())
	rootCmd.AddCommand(annotateCmd())
	rootCmd.AddCommand(positionsCmd())
	rootCmd.AddCommand(explainCmd())
	rootCmd.AddCommand(enrichCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func resolveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resolve",
		Short: "Match entities against the reference store",
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := readEntities(cmd)
			if err != nil {
				return err
			}

			e, err := openEnricher(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return writeJSON(cmd.OutOrStdout(), e.Resolve(cmd.Context(), entities))
		},
	}

	cmd.Flags().StringP("entities", "e", "-", "Entities JSON file, - for stdin")
	return cmd
}

func annotateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "annotate",
		Short: "Mark matched entities inline and explain them",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, entities, err := readInput(cmd)
			if err != nil {
				return err
			}

			e, err := openEnricher(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			result := e.Resolve(cmd.Context(), entities)
			return writeJSON(cmd.OutOrStdout(), e.Annotate(text, result))
		},
	}

	cmd.Flags().StringP("text", "t", "", "Report text file")
	cmd.Flags().StringP("entities", "e", "-", "Entities JSON file, - for stdin")
	return cmd
}

func positionsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "positions",
		Short: "List matched entities by their offsets in the report text",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, entities, err := readInput(cmd)
			if err != nil {
				return err
			}

			e, err := openEnricher(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return writeJSON(cmd.OutOrStdout(), e.EnrichPositions(cmd.Context(), text, entities))
		},
	}

	cmd.Flags().StringP("text", "t", "", "Report text file")
	cmd.Flags().StringP("entities", "e", "-", "Entities JSON file, - for stdin")
	return cmd
}

func explainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "explain",
		Short: "Show the history of every matched entity",
		RunE: func(cmd *cobra.Command, args []string) error {
			entities, err := readEntities(cmd)
			if err != nil {
				return err
			}

			e, err := openEnricher(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			result := e.Resolve(cmd.Context(), entities)
			return writeJSON(cmd.OutOrStdout(), e.Explain(cmd.Context(), result))
		},
	}

	cmd.Flags().StringP("entities", "e", "-", "Entities JSON file, - for stdin")
	return cmd
}

func enrichCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "enrich",
		Short: "Resolve, annotate and explain a report in one go",
		RunE: func(cmd *cobra.Command, args []string) error {
			text, entities, err := readInput(cmd)
			if err != nil {
				return err
			}

			e, err := openEnricher(cmd)
			if err != nil {
				return err
			}
			defer e.Close()

			return writeJSON(cmd.OutOrStdout(), e.Enrich(cmd.Context(), text, entities))
		},
	}

	cmd.Flags().StringP("text", "t", "", "Report text file")
	cmd.Flags().StringP("entities", "e", "-", "Entities JSON file, - for stdin")
	return cmd
}

func openEnricher(cmd *cobra.Command) (*enricher.Enricher, error) {
	envFile, _ := cmd.Flags().GetString("env-file")
	configPath, _ := cmd.Flags().GetString("config")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	logger := helper.NewLogger(os.Stderr, level)

	if err := helper.LoadEnvFile(envFile); err != nil {
		return nil, err
	}

	dbConfig, err := helper.NewDatabaseConfiguration()
	if err != nil {
		return nil, err
	}

	matchConfig, err := model.LoadMatchConfig(configPath)
	if err != nil {
		return nil, err
	}

	return enricher.NewEnricher(dbConfig, matchConfig, logger)
}

func readInput(cmd *cobra.Command) (string, model.Entities, error) {
	textPath, _ := cmd.Flags().GetString("text")
	if textPath == "" {
		return "", model.Entities{}, fmt.Errorf("--text flag is required")
	}

	entitiesPath, _ := cmd.Flags().GetString("entities")
	if textPath == "-" && entitiesPath == "-" {
		return "", model.Entities{}, fmt.Errorf("--text and --entities cannot both be read from stdin")
	}

	text, err := readFile(cmd, textPath)
	if err != nil {
		return "", model.Entities{}, fmt.Errorf("failed to read text: %w", err)
	}

	entities, err := readEntities(cmd)
	if err != nil {
		return "", model.Entities{}, err
	}

	return string(text), entities, nil
}

func readEntities(cmd *cobra.Command) (model.Entities, error) {
	path, _ := cmd.Flags().GetString("entities")

	data, err := readFile(cmd, path)
	if err != nil {
		return model.Entities{}, fmt.Errorf("failed to read entities: %w", err)
	}

	var entities model.Entities
	if err := json.Unmarshal(data, &entities); err != nil {
		return model.Entities{}, fmt.Errorf("failed to parse entities: %w", err)
	}
	return entities, nil
}

func readFile(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func writeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	encoder.SetEscapeHTML(false)
	return encoder.Encode(v)
}
