package scan

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/platewatch/platewatch-go/internal/alpr"
	"github.com/platewatch/platewatch-go/internal/conf"
	"github.com/platewatch/platewatch-go/internal/datastore"
	"github.com/platewatch/platewatch-go/internal/errors"
)

// Command creates a new command for one-shot image scanning.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan [image file]",
		Short: "Scan a single image for a license plate",
		Long:  "Run one image through the recognition pipeline, print the outcome and record any detection.",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			settings.Input.Path = args[0]
			return runScan(cmd, settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func runScan(cmd *cobra.Command, settings *conf.Settings) error {
	encoded, err := os.ReadFile(settings.Input.Path)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryFileIO).
			Context("path", settings.Input.Path).
			Build()
	}

	pipeline := alpr.NewPipeline(settings, nil, nil)
	result := pipeline.Process(cmd.Context(), encoded)

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(output))

	if !result.Detected {
		return nil
	}

	store := datastore.New(settings)
	if store == nil {
		// No output configured, scan result is print-only.
		return nil
	}
	if err := store.Open(); err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	record := &datastore.PlateRecord{
		PlateNumber:   result.PlateNumber,
		Region:        result.Region,
		Status:        string(result.Status),
		DetectionType: string(alpr.DetectionAutomatic),
		Details:       result.Details,
		Confidence:    result.Confidence,
	}
	if err := store.Save(record); err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "recorded detection %d\n", record.ID)
	return nil
}

// setupFlags configures flags specific to the scan command.
func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().BoolVar(&settings.Output.SQLite.Enabled, "sqlite", viper.GetBool("output.sqlite.enabled"), "Record detections to the SQLite output")
	cmd.Flags().StringVar(&settings.Output.SQLite.Path, "dbpath", viper.GetString("output.sqlite.path"), "Path to the SQLite database")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}
