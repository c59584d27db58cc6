// cmd/escp-testprint/main.go
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"escpr-service/internal/config"
	"escpr-service/internal/model"
	"escpr-service/internal/repository"
	"escpr-service/internal/service"
	"escpr-service/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

// run prints one job and returns the exit code once the logger is flushed.
func run(args []string, stderr io.Writer) int {
	flags := pflag.NewFlagSet("escp-testprint", pflag.ExitOnError)
	configPath := flags.StringP("config", "c", "", "path to config file")
	output := flags.StringP("output", "o", "", "write the job to this capture file instead of the configured printer")
	compress := flags.Bool("compress", false, "zstd compress the capture file")

	var req service.PrintRequest
	var kind, image string
	flags.StringVarP(&kind, "kind", "k", "escp", "job kind: escp or escpr")
	flags.IntVarP(&req.Pages, "pages", "n", 1, "number of pages")
	flags.IntVar(&req.Width, "width", 0, "test pattern width in dots")
	flags.IntVar(&req.Height, "height", 0, "test pattern height in dots")
	flags.IntVar(&req.DPI, "dpi", 0, "resolution, default from config")
	flags.StringVar(&req.Paper, "paper", "", "paper size, default from config")
	flags.StringVar(&req.MediaType, "media-type", "", "media type, default from config")
	flags.StringVar(&req.Quality, "quality", "", "print quality, default from config")
	flags.StringVar(&req.ColorMode, "color-mode", "", "color mode, default from config")
	flags.StringVar(&image, "image", "", "print this PNG, JPEG or JPEG 2000 file instead of the test pattern")
	flags.BoolVar(&req.JPEG, "jpeg", false, "send a JPEG image untouched (escpr only)")
	flags.SetOutput(stderr)
	flags.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to load configuration: %v\n", err)
		return 2
	}
	if *output != "" {
		cfg.Printer.Connection = string(model.ConnectionTypeFile)
		cfg.Printer.File = config.FileConfig{Path: *output, Compress: *compress}
	}

	logger, err := utils.NewWriterLogger(stderr, cfg.Logging.Level)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 2
	}
	defer utils.CloseLogger(logger)

	req.Kind = model.JobKind(strings.ToLower(kind))
	if image != "" {
		if req.Image, err = os.ReadFile(image); err != nil {
			logger.Error("Failed to read image", zap.Error(err))
			return 1
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	printService := service.NewPrintService(repository.NewJobRepository(logger), cfg, logger)
	record, err := printService.Print(ctx, &req)
	if err != nil {
		logger.Error("Print job failed", zap.Error(err))
		return 1
	}

	logger.Info("Print job completed",
		zap.String("job_id", record.ID.String()),
		zap.String("connection", string(record.Connection)),
		zap.Int("pages", record.PagesSent),
	)
	return 0
}
