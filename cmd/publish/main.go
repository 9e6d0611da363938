package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jengzang/world-cell-towers/internal/cluster"
	"github.com/jengzang/world-cell-towers/internal/config"
	"github.com/jengzang/world-cell-towers/internal/repository"
	"github.com/jengzang/world-cell-towers/internal/service"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	driver         string
	addr           string
	partitions     int
	startYear      int
	endYear        int
	quartersPerBin int
	batchSize      int
	verbose        bool
)

var rootCmd = &cobra.Command{
	Use:   "publish <towers.csv>",
	Short: "Load a cell tower export into the cluster and publish the dashboard datasets",
	Long: `Load an OpenCelliD style CSV export into the cluster store.

Rows with an unknown radio, a non-positive range or a construction date
outside the bucket years are skipped. The tower table and every dataset
are replaced in one transaction, then running dashboards are notified.

Examples:
  publish cell_towers.csv
  publish --driver pgx --addr postgres://localhost/towers cell_towers.csv
  publish --start-year 2008 --quarters-per-bin 2 cell_towers.csv`,
	Args: cobra.ExactArgs(1),
	RunE: runPublish,
}

func init() {
	cfg := config.Load()
	flags := rootCmd.Flags()
	flags.StringVar(&driver, "driver", cfg.ClusterDriver, "cluster driver (sqlite or pgx)")
	flags.StringVar(&addr, "addr", cfg.ClusterAddr, "cluster address: sqlite file path or postgres DSN")
	flags.IntVar(&partitions, "partitions", cfg.ClusterPartitions, "number of id partitions scanned in parallel")

	def := service.DefaultPublishConfig()
	flags.IntVar(&startYear, "start-year", def.StartYear, "first construction year bucket edge")
	flags.IntVar(&endYear, "end-year", def.EndYear, "last construction year bucket edge")
	flags.IntVar(&quartersPerBin, "quarters-per-bin", def.QuartersPerBin, "quarters per construction date bucket")
	flags.IntVar(&batchSize, "batch-size", def.BatchSize, "rows per insert batch")
	flags.BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}

func runPublish(cmd *cobra.Command, args []string) error {
	if verbose {
		logrus.SetLevel(logrus.DebugLevel)
	}
	log := logrus.WithField("service", "publish")

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := cluster.Connect(ctx, cluster.Config{Driver: driver, Addr: addr}, log)
	if err != nil {
		return err
	}
	defer client.Close()

	publisher := service.NewPublishService(client,
		repository.NewTowerRepository(client),
		repository.NewDatasetRepository(client),
		service.PublishConfig{
			StartYear:      startYear,
			EndYear:        endYear,
			QuartersPerBin: quartersPerBin,
			Partitions:     partitions,
			BatchSize:      batchSize,
		}, log)

	summary, err := publisher.Publish(ctx, service.CSVSource{Path: args[0]})
	if err != nil {
		return err
	}
	cmd.Printf("published %d towers (%d skipped), log10 range %.2f..%.2f\n",
		summary.Rows, summary.Skipped, summary.MinLog10Range, summary.MaxLog10Range)
	return nil
}

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: time.RFC3339Nano,
	})
	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
