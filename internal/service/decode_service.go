// internal/service/decode_service.go
package service

import (
	"context"
	"errors"
	"fmt"
	"io"

	"go.uber.org/zap"

	"escpr-service/internal/escp"
	"escpr-service/internal/model"
	"escpr-service/internal/protocol"
	"escpr-service/internal/utils"
)

// checkEvery is how many commands are decoded between context checks
const checkEvery = 1024

// DecodeService turns captured print streams back into commands
type DecodeService struct {
	maxCommands int
	logger      *utils.ServiceLogger
}

// NewDecodeService creates a decode service. maxCommands bounds the size of
// a buffered result; zero means no limit.
func NewDecodeService(maxCommands int, logger *zap.Logger) *DecodeService {
	return &DecodeService{
		maxCommands: maxCommands,
		logger:      utils.NewServiceLogger(logger, "decode-service"),
	}
}

// ErrTooManyCommands is returned when a stream decodes to more commands than allowed
var ErrTooManyCommands = errors.New("too many commands in stream")

// Decode decodes r, which may be zstd compressed, into a command list. On a
// decode error the commands before the failure are returned with it.
func (s *DecodeService) Decode(ctx context.Context, r io.Reader) ([]model.DecodedCommand, error) {
	commands := []model.DecodedCommand{}
	err := DecodeStream(ctx, r, func(cmd model.DecodedCommand) error {
		if s.maxCommands > 0 && len(commands) >= s.maxCommands {
			return fmt.Errorf("%w: limit %d", ErrTooManyCommands, s.maxCommands)
		}
		commands = append(commands, cmd)
		return nil
	})

	if err != nil {
		s.logger.Warn("Stream decode stopped",
			zap.Int("commands", len(commands)),
			zap.Error(err))
		return commands, err
	}

	s.logger.Debug("Stream decoded", zap.Int("commands", len(commands)))
	return commands, nil
}

// DecodeStream decodes r command by command, calling fn for each. It stops
// at the end of the stream, the first decode error or the first error from fn.
func DecodeStream(ctx context.Context, r io.Reader, fn func(model.DecodedCommand) error) error {
	rc, err := protocol.NewCaptureReader(r)
	if err != nil {
		return err
	}
	defer rc.Close()

	decoder := escp.NewStreamDecoder(rc)
	for n := 0; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		offset := decoder.Offset()
		mode := decoder.Mode()
		cmd, err := decoder.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		err = fn(model.DecodedCommand{
			Offset:  offset,
			Name:    cmd.Name(),
			Mode:    mode.String(),
			Command: escp.Describe(cmd),
			Fields:  cmd,
		})
		if err != nil {
			return err
		}
	}
}
