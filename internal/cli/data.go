package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"reading-assessment-service/internal/domain"
)

// NewImportCmd imports spreadsheets named "{grade}-{book}.{csv|xlsx}".
func NewImportCmd(configPath *string) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "import <files...>",
		Short: "Import question banks from CSV or XLSX files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			failed := 0
			for _, path := range args {
				key, bank, err := rt.service.ImportFile(cmd.Context(), path, force)
				entry := rt.log.WithField("file", path)
				var anomaly *domain.AnomalyError
				switch {
				case errors.As(err, &anomaly):
					failed++
					for _, a := range anomaly.Anomalies {
						entry.WithField("index", a.Index+1).Warn(a.String())
					}
					entry.Warn("skipped; re-run with --force to import partial rows")
				case err != nil:
					failed++
					entry.WithError(err).Error("import failed")
				default:
					entry.WithFields(logrus.Fields{"book": key.String(), "questions": len(bank.QuestionIndices())}).Info("imported")
				}
			}
			if failed > 0 {
				return fmt.Errorf("%d of %d files not imported", failed, len(args))
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "import files with partial rows")
	return cmd
}

// NewExportCmd writes the catalogue and all banks as one JSON bundle.
func NewExportCmd(configPath *string) *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the book catalogue and question banks",
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			bundle, err := rt.service.ExportData(cmd.Context())
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if out != "" {
				f, err := os.Create(out)
				if err != nil {
					return err
				}
				defer f.Close()
				w = f
			}
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(bundle)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "write to file instead of stdout")
	return cmd
}

// NewRestoreCmd replaces the catalogue and banks from an exported bundle.
func NewRestoreCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "restore <bundle.json>",
		Short: "Replace all question banks from an export bundle",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rt, err := loadRuntime(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer rt.Close()

			raw, err := os.ReadFile(args[0])
			if err != nil {
				return err
			}
			n, err := rt.service.ImportData(cmd.Context(), raw)
			if err != nil {
				return err
			}
			rt.log.WithField("banks", n).Info("bundle restored")
			return nil
		},
	}
}
