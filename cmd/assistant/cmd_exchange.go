package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"assistbot/internal/contacts"
	"assistbot/internal/exchange"
	"assistbot/internal/logging"
	"assistbot/internal/notes"
	"assistbot/internal/store"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// importAttempts bounds merge-and-save rounds lost to concurrent writers.
const importAttempts = 3

var (
	exportFormat string
	exportOutput string
)

// exportCmd writes the address book and notebook to YAML or JSON
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export contacts and notes to YAML or JSON",
	Long: `Writes every contact and note to a versioned document.

The format defaults to the output file extension, or YAML on stdout.

Examples:
  assistant export > backup.yaml
  assistant export --output backup.json`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

// importCmd merges exported documents into the database
var importCmd = &cobra.Command{
	Use:   "import [files...]",
	Short: "Merge exported YAML or JSON files into the database",
	Long: `Reads one or more exported documents and merges them.

Contacts match by name: new phones and emails are added, a birthday or
address is filled only when missing. Notes already present are skipped.
Invalid entries are reported and skipped; everything else is imported.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runImport,
}

func init() {
	exportCmd.Flags().StringVarP(&exportFormat, "format", "f", "", "Output format: yaml or json")
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Output file (default: stdout)")
}

func runExport(cmd *cobra.Command, args []string) error {
	format := exportFormat
	if format == "" {
		format = exchange.FormatYAML
		if exportOutput != "" {
			f, err := exchange.FormatFromPath(exportOutput)
			if err != nil {
				return err
			}
			format = f
		}
	}

	s, err := openSession(cmd.Context())
	if err != nil {
		return err
	}
	defer s.Close()

	var doc *exchange.Document
	_ = s.bot.View(func(book *contacts.AddressBook, nb *notes.Notebook) error {
		doc = exchange.Export(book, nb, time.Now())
		return nil
	})

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("failed to create %s: %w", exportOutput, err)
		}
		defer f.Close()
		w = f
	}

	if err := exchange.Encode(w, doc, format); err != nil {
		return err
	}
	logging.Exchange("exported %d contacts and %d notes as %s", len(doc.Contacts), len(doc.Notes), format)
	if exportOutput != "" {
		fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d contacts and %d notes to %s\n",
			len(doc.Contacts), len(doc.Notes), exportOutput)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	docs, err := exchange.ReadFiles(ctx, args)
	if err != nil {
		return err
	}

	s, err := openSession(ctx)
	if err != nil {
		return err
	}
	defer s.Close()

	var (
		stats    exchange.MergeStats
		mergeErr error
	)
	for attempt := 1; ; attempt++ {
		_ = s.bot.Update(func(book *contacts.AddressBook, nb *notes.Notebook) error {
			stats, mergeErr = exchange.Merge(book, nb, docs, time.Now())
			return nil
		})
		if !stats.Changed() {
			break
		}
		err := s.save(ctx)
		if err == nil {
			break
		}
		if !errors.Is(err, store.ErrConflict) || attempt == importAttempts {
			return fmt.Errorf("failed to save: %w", err)
		}
		// Another process wrote meanwhile: merge into its data instead.
		book, nb, err := s.store.Load(ctx)
		if err != nil {
			return err
		}
		s.bot.Replace(book, nb)
		logger.Info("database changed during import, merging again", zap.Int("attempt", attempt))
	}
	if mergeErr != nil {
		logger.Warn("some entries were skipped", zap.Error(mergeErr))
		fmt.Fprintf(cmd.ErrOrStderr(), "Skipped invalid entries:\n%v\n", mergeErr)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d file(s): %s\n", len(docs), stats)
	return nil
}
