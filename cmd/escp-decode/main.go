// cmd/escp-decode/main.go
package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"escpr-service/internal/model"
	"escpr-service/internal/protocol"
	"escpr-service/internal/service"
	"escpr-service/internal/utils"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// run decodes every capture named on the command line and returns the exit
// code once the logger and output are flushed.
func run(args []string, stdout, stderr io.Writer) int {
	flags := pflag.NewFlagSet("escp-decode", pflag.ExitOnError)
	format := flags.StringP("format", "f", "json", "output format: json or text")
	logLevel := flags.String("log-level", "warn", "log level")
	flags.SetOutput(stderr)
	flags.Usage = func() {
		fmt.Fprintln(stderr, "usage: escp-decode [flags] [capture ...]")
		fmt.Fprintln(stderr, "Decodes ESC/P and ESC/P-R captures, raw or zstd compressed. Reads stdin when no file is given.")
		flags.PrintDefaults()
	}
	flags.Parse(args)

	logger, err := utils.NewWriterLogger(stderr, *logLevel)
	if err != nil {
		fmt.Fprintf(stderr, "Failed to initialize logger: %v\n", err)
		return 2
	}
	defer utils.CloseLogger(logger)

	if *format != "json" && *format != "text" {
		logger.Error("Unknown output format", zap.String("format", *format))
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	out := bufio.NewWriter(stdout)
	defer out.Flush()

	paths := flags.Args()
	if len(paths) == 0 {
		paths = []string{"-"}
	}

	failed := false
	for _, path := range paths {
		if err := decodeFile(ctx, path, *format, out); err != nil {
			logger.Error("Decode failed", zap.String("capture", path), zap.Error(err))
			failed = true
		}
	}

	if failed {
		return 1
	}
	return 0
}

func decodeFile(ctx context.Context, path, format string, out io.Writer) error {
	var r io.ReadCloser = os.Stdin
	if path != "-" {
		var err error
		if r, err = protocol.OpenCapture(path); err != nil {
			return err
		}
	}
	defer r.Close()

	enc := json.NewEncoder(out)
	return service.DecodeStream(ctx, r, func(cmd model.DecodedCommand) error {
		if format == "text" {
			_, err := fmt.Fprintf(out, "%08x %-7s %s\n", cmd.Offset, cmd.Mode, cmd.Command)
			return err
		}
		return enc.Encode(cmd)
	})
}
