package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/anime-shed/ecoscan-go/internal/capture"
	"github.com/anime-shed/ecoscan-go/internal/config"
	"github.com/anime-shed/ecoscan-go/internal/container"
	"github.com/anime-shed/ecoscan-go/internal/logger"
	"github.com/anime-shed/ecoscan-go/internal/service"
	"github.com/anime-shed/ecoscan-go/internal/storage"
	"github.com/anime-shed/ecoscan-go/pkg/validation"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "ecoscan",
	Short: "ecoscan - garment sustainability scanner",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Configure(logLevel, logFormat)
		if cmd.Name() != "serve" {
			logger.SetOutput(os.Stderr)
		}
	},
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local HTTP API",
	RunE:  runServe,
}

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a garment from a file, URL or camera and print the report",
	RunE:  runScan,
}

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect the scan history log",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print recent scans, newest first",
	RunE:  runHistoryList,
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every history entry",
	RunE:  runHistoryClear,
}

var historyExportCmd = &cobra.Command{
	Use:   "export",
	Short: "Upload the history log to Azure Blob Storage",
	RunE:  runHistoryExport,
}

var recycleCmd = &cobra.Command{
	Use:   "recycle",
	Short: "Find textile recycling centers near a location",
	RunE:  runRecycle,
}

type scanFlags struct {
	file    string
	url     string
	camera  int
	offline bool
}

var (
	logLevel  string
	logFormat string

	scanOpts     = scanFlags{camera: -1}
	historyLimit int
	latitude     float64
	longitude    float64
)

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", os.Getenv("LOG_LEVEL"), "debug, info, warn or error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", os.Getenv("LOG_FORMAT"), "json or text")

	scanCmd.Flags().StringVarP(&scanOpts.file, "file", "f", "", "Image file to scan")
	scanCmd.Flags().StringVarP(&scanOpts.url, "url", "u", "", "Image URL to scan")
	scanCmd.Flags().IntVarP(&scanOpts.camera, "camera", "c", -1, "Camera device to capture from")
	scanCmd.Flags().BoolVar(&scanOpts.offline, "offline", false, "Skip the cloud service and registry")

	historyListCmd.Flags().IntVarP(&historyLimit, "limit", "n", 0, "Maximum entries to print (0 for all)")

	recycleCmd.Flags().Float64Var(&latitude, "lat", 0, "Latitude")
	recycleCmd.Flags().Float64Var(&longitude, "lng", 0, "Longitude")
	_ = recycleCmd.MarkFlagRequired("lat")
	_ = recycleCmd.MarkFlagRequired("lng")

	historyCmd.AddCommand(historyListCmd, historyClearCmd, historyExportCmd)
	rootCmd.AddCommand(serveCmd, scanCmd, historyCmd, recycleCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// withContainer loads configuration and builds the dependency graph for one command
func withContainer(ctx context.Context, fn func(c *container.Container) error) error {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	c, err := container.NewContainer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initialize: %w", err)
	}
	defer func() {
		if err := c.Close(); err != nil {
			logger.WithError(err).Warn("Failed to release resources")
		}
	}()
	return fn(c)
}

func runServe(cmd *cobra.Command, args []string) error {
	return withContainer(context.Background(), func(c *container.Container) error {
		cfg := c.Config()
		server := &http.Server{
			Addr:         cfg.ServerAddress(),
			Handler:      c.Handler(),
			ReadTimeout:  cfg.RequestTimeout,
			WriteTimeout: cfg.RequestTimeout,
		}

		serveErr := make(chan error, 1)
		go func() {
			logger.WithFields(logrus.Fields{
				"address": cfg.ServerAddress(),
				"timeout": cfg.RequestTimeout,
			}).Info("Starting HTTP server")

			if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErr <- err
			}
			close(serveErr)
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case err := <-serveErr:
			return fmt.Errorf("serve: %w", err)
		case <-quit:
		}

		logger.Info("Shutting down server...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		logger.Info("Server exited")
		return nil
	})
}

// sourceFor builds the capture source named by exactly one of the scan flags
func sourceFor(f scanFlags, fetcher storage.ImageFetcher) (capture.Source, error) {
	set := 0
	for _, ok := range []bool{f.file != "", f.url != "", f.camera >= 0} {
		if ok {
			set++
		}
	}
	if set != 1 {
		return nil, errors.New("exactly one of --file, --url or --camera is required")
	}

	switch {
	case f.file != "":
		return capture.NewFileSource(f.file), nil
	case f.url != "":
		return capture.NewURLSource(f.url, fetcher, validation.NewURLValidator()), nil
	default:
		cam, err := capture.OpenCamera(f.camera)
		if err != nil {
			return nil, err
		}
		return cam, nil
	}
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return withContainer(ctx, func(c *container.Container) error {
		source, err := sourceFor(scanOpts, c.Fetcher())
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(ctx, c.Config().AnalysisTimeout)
		defer cancel()

		online := !scanOpts.offline && c.Connectivity().Online(ctx)
		resp, err := c.Scans().Scan(ctx, source, service.ScanOptions{Online: online})
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	})
}

func runHistoryList(cmd *cobra.Command, args []string) error {
	return withContainer(cmd.Context(), func(c *container.Container) error {
		items, err := c.Scans().History(cmd.Context(), historyLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), items)
	})
}

func runHistoryClear(cmd *cobra.Command, args []string) error {
	return withContainer(cmd.Context(), func(c *container.Container) error {
		if err := c.Scans().ClearHistory(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "History cleared")
		return nil
	})
}

func runHistoryExport(cmd *cobra.Command, args []string) error {
	return withContainer(cmd.Context(), func(c *container.Container) error {
		name, err := c.Scans().ExportHistory(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported history to %s\n", name)
		return nil
	})
}

func runRecycle(cmd *cobra.Command, args []string) error {
	if err := validation.ValidateCoordinates(latitude, longitude); err != nil {
		return err
	}
	return withContainer(cmd.Context(), func(c *container.Container) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), c.Config().RequestTimeout)
		defer cancel()

		resp, err := c.Scans().FindRecyclingCenters(ctx, latitude, longitude)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), resp)
	})
}

func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
