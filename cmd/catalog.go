package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/riasec-matcher/internal/catalog"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Manage the job catalog",
}

var catalogImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Load job records from a JSON file into the database",
	Run: func(cmd *cobra.Command, _ []string) {
		importCatalog(cmd)
	},
}

var catalogDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Dump the configured catalog to a temporary file",
	Run: func(cmd *cobra.Command, _ []string) {
		dumpCatalog(cmd)
	},
}

func init() {
	rootCmd.AddCommand(catalogCmd)
	catalogCmd.AddCommand(catalogImportCmd, catalogDumpCmd)

	catalogImportCmd.Flags().StringP("file", "f", "", "JSON file with job records")
	catalogImportCmd.MarkFlagRequired("file")

	catalogDumpCmd.Flags().Bool("report", false, "log jobs grouped by primary cluster")
	catalogDumpCmd.Flags().String("job", "", "print a single job by id instead of dumping")
}

func importCatalog(cmd *cobra.Command) {
	ctx := context.Background()
	config, logger := setup()

	file, _ := cmd.Flags().GetString("file")

	skipped := 0
	jobs, err := catalog.Collect(ctx, catalog.NewFileReader(file), func(err error) {
		skipped++
		logger.Warn("skipping job record", zap.Error(err))
	})
	if err != nil {
		logger.Fatal("reading job records", zap.Error(err))
	}

	db, err := openDB(config, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer db.Close()

	imported, err := db.ImportJobs(ctx, jobs.Items)
	if err != nil {
		logger.Fatal("importing jobs", zap.Error(err))
	}

	total, err := db.CountJobs(ctx)
	if err != nil {
		logger.Fatal("counting jobs", zap.Error(err))
	}

	logger.Info("catalog imported",
		zap.String("file", file),
		zap.Int("imported", imported),
		zap.Int("skipped", skipped),
		zap.Int("total", total),
		zap.Strings("clusters", jobs.ClusterNames()),
	)
}

func dumpCatalog(cmd *cobra.Command) {
	ctx := context.Background()
	config, logger := setup()

	db, err := openDB(config, logger)
	if err != nil {
		logger.Fatal("opening storage", zap.Error(err))
	}
	defer db.Close()

	reader, err := newCatalogReader(config, db, logger)
	if err != nil {
		logger.Fatal("building catalog reader", zap.Error(err))
	}

	jobs, err := catalog.Collect(ctx, reader, func(err error) {
		logger.Warn("skipping job record", zap.Error(err))
	})
	if err != nil {
		logger.Fatal("reading catalog", zap.Error(err))
	}

	if id, _ := cmd.Flags().GetString("job"); id != "" {
		job := jobs.FindByID(id)
		if job == nil {
			logger.Fatal("job not found", zap.String("job_id", id))
		}
		pretty, _ := json.MarshalIndent(job, "", "  ")
		fmt.Println(string(pretty))
		return
	}

	if report, _ := cmd.Flags().GetBool("report"); report {
		// do not bother error since the report is plain maps
		pretty, _ := json.MarshalIndent(jobs.ReportByCluster(), "", "  ")
		logger.Info(string(pretty), zap.Int("jobs count", jobs.Len()))
	}

	filename, err := jobs.DumpToTmpFile()
	if err != nil {
		logger.Fatal("dump catalog to file", zap.Error(err))
	}
	logger.Info("dumping catalog to file", zap.String("filename", filename), zap.Int("count", jobs.Len()))
}
