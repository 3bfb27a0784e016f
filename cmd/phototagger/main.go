package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/kirillkom/photo-tagger/internal/bootstrap"
	"github.com/kirillkom/photo-tagger/internal/config"
	"github.com/kirillkom/photo-tagger/internal/core/ports"
	"github.com/kirillkom/photo-tagger/internal/infrastructure/imageprep"
	"github.com/kirillkom/photo-tagger/internal/observability/logging"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	os.Exit(run(ctx, os.Args[1:], os.Stdout, os.Stderr))
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	flags := flag.NewFlagSet("phototagger", flag.ContinueOnError)
	flags.SetOutput(stderr)
	timeout := flags.Duration("timeout", 0, "overall deadline for upload and tag lookup (0 = none)")
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: phototagger [-timeout d] <image path>")
		flags.PrintDefaults()
	}
	if err := flags.Parse(args); err != nil {
		return 2
	}
	if flags.NArg() != 1 {
		flags.Usage()
		return 2
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	slog.SetDefault(logging.NewJSONLoggerTo(stderr, "phototagger", cfg.LogLevel))

	app, err := bootstrap.New(ctx, cfg, "phototagger", nil)
	if err != nil {
		slog.Error("bootstrap_failed", "error", err)
		return 1
	}
	defer app.Close()

	if *timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, *timeout)
		defer cancel()
	}
	return tagFile(ctx, app.Tagger, app.ImagePrep, flags.Arg(0), stdout, stderr)
}

func tagFile(
	ctx context.Context,
	tagger ports.PhotoTagger,
	prep imageprep.Options,
	path string,
	stdout, stderr io.Writer,
) int {
	file, err := os.Open(path)
	if err != nil {
		fmt.Fprintf(stderr, "open image: %v\n", err)
		return 1
	}
	defer file.Close()

	photo, err := imageprep.Prepare(file, prep)
	if err != nil {
		fmt.Fprintf(stderr, "prepare image: %v\n", err)
		return 1
	}

	var tags []string
	tagger.UploadAndTag(ctx, photo.Data, func(fraction float64) {
		fmt.Fprintf(stderr, "progress %3.0f%%\n", fraction*100)
	}, func(found []string) {
		tags = found
	})
	if len(tags) == 0 {
		fmt.Fprintln(stderr, "no tags returned; see log for the failing stage")
		return 1
	}

	for _, tag := range tags {
		fmt.Fprintln(stdout, tag)
	}
	return 0
}
