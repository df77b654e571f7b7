// Package cli is the chatsync command line client. It drives the
// synchronization engine against a running backend.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"flow-ai/chatsync/internal/client"
	"flow-ai/chatsync/internal/config"
	"flow-ai/chatsync/internal/reconciler"
	"flow-ai/chatsync/internal/upload"
)

var (
	version = "dev"
	commit  = "unknown"
)

// options are the persistent flags shared by every command.
type options struct {
	apiURL    string
	chunkSize string
	verbose   bool
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	opts := &options{}
	rootCmd := &cobra.Command{
		Use:   "chatsync",
		Short: "Chat with the flow-ai backend from the terminal",
		Long: `chatsync sends messages, streams replies, uploads attachments and
browses the version history of conversations stored by the flow-ai backend.`,
		Version:       fmt.Sprintf("%s (commit: %s)", version, commit),
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.CompletionOptions.DisableDefaultCmd = true

	rootCmd.PersistentFlags().StringVar(&opts.apiURL, "api", "", "backend API base URL (default from API_URL)")
	rootCmd.PersistentFlags().StringVar(&opts.chunkSize, "chunk-size", "", "multipart part size, e.g. 5MiB (default from UPLOAD_CHUNK_SIZE)")
	rootCmd.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "enable verbose output")

	rootCmd.AddCommand(
		newSendCmd(opts),
		newHistoryCmd(opts),
		newVersionsCmd(opts),
		newEditCmd(opts),
		newSwitchCmd(opts),
	)
	return rootCmd
}

// Execute runs the CLI. It is called by main.main().
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// engine is a reconciler wired to the backend for one command.
type engine struct {
	rec      *reconciler.Reconciler
	renderer *renderer
}

func newEngine(cmd *cobra.Command, opts *options) (*engine, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("could not load configuration: %w", err)
	}
	if opts.apiURL != "" {
		cfg.APIURL = opts.apiURL
	}
	if opts.chunkSize != "" {
		n, err := humanize.ParseBytes(opts.chunkSize)
		if err != nil || n == 0 {
			return nil, fmt.Errorf("invalid --chunk-size %q", opts.chunkSize)
		}
		cfg.UploadChunkSize = int64(n)
	}

	level := slog.LevelWarn
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))

	api := client.New(cfg.APIURL, nil)
	coordinator := upload.NewCoordinator(api, api, api, upload.Config{
		ChunkSize:     cfg.UploadChunkSize,
		IndexMinBytes: cfg.IndexMinBytes,
		PollInterval:  cfg.IndexPollInterval,
		IndexTimeout:  cfg.IndexTimeout,
	}, logger)
	surfaces, err := reconciler.NewSurfaceCache(cfg.SurfaceCacheSize)
	if err != nil {
		return nil, err
	}

	r := newRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr())
	rec, err := reconciler.New(reconciler.Deps{
		Store:    api,
		Uploader: coordinator,
		Detector: api,
		Surfaces: surfaces,
		Notifier: r,
		Logger:   logger,
	}, reconciler.Config{
		PageSize:           cfg.PageSize,
		DuplicateTolerance: cfg.DuplicateTolerance,
		DetectionTimeout:   cfg.DetectionTimeout,
	})
	if err != nil {
		return nil, err
	}
	rec.Subscribe(r)
	logger.Debug("Engine ready", "api", cfg.APIURL, "chunk_size", humanize.IBytes(uint64(cfg.UploadChunkSize)))
	return &engine{rec: rec, renderer: r}, nil
}

func writef(w io.Writer, format string, args ...any) {
	_, _ = fmt.Fprintf(w, format, args...)
}
