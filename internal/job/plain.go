// internal/job/plain.go

// Package job runs complete print jobs: the REMOTE1 session, the page setup
// and the per-row raster transfer, for plain ESC/P and for ESC/P-R.
package job

import (
	"fmt"

	"go.uber.org/zap"

	"escpr-service/internal/escp"
	"escpr-service/internal/raster"
	"escpr-service/internal/transport"
)

// Plain prints pages as ESC/P bit planes. A Plain job runs once.
type Plain struct {
	cfg    Config
	sender *escp.Sender
	opts   options
	lifecycle
}

// NewPlain creates a plain ESC/P job writing to t.
func NewPlain(t transport.Transport, cfg Config, opts ...Option) *Plain {
	o := buildOptions(opts)
	s := escp.NewSender(t)
	s.Now = o.now
	return &Plain{cfg: cfg.resolveMedia(), sender: s, opts: o}
}

// Config returns the effective settings after media overrides.
func (j *Plain) Config() Config {
	return j.cfg
}

// State returns the job's lifecycle state.
func (j *Plain) State() State {
	return j.state
}

// Print runs the whole job over pages.
func (j *Plain) Print(pages []raster.Source) error {
	if err := j.begin(); err != nil {
		return err
	}
	defer j.finish()

	width, height, err := j.start()
	if err != nil {
		return fmt.Errorf("job setup failed: %w", err)
	}
	j.opts.logger.Debug("Plain job started",
		zap.String("name", j.cfg.Name),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("pages", len(pages)))

	if err := j.printPages(pages, height); err != nil {
		return err
	}

	if err := j.end(); err != nil {
		return fmt.Errorf("job teardown failed: %w", err)
	}
	return nil
}

func (j *Plain) start() (int, int, error) {
	s := j.sender
	if err := s.ExitPacketMode(); err != nil {
		return 0, 0, err
	}
	if err := remoteSetup(s, j.cfg, j.opts); err != nil {
		return 0, 0, err
	}

	dpi := j.cfg.DPI
	steps := []func() error{
		s.InitPrinter,
		s.GraphicsMode,
		func() error { return s.SetUnit(dpi, dpi, dpi) },
		func() error { return s.Direction(j.cfg.Direction) },
		func() error { return s.ColorMode(j.cfg.ColorMode) },
		func() error { return s.ImageResolution(dpi, dpi) },
	}
	if err := run(steps); err != nil {
		return 0, 0, err
	}

	width, height, err := s.PageFormat(j.cfg.Paper, j.cfg.Margin, dpi)
	if err != nil {
		return 0, 0, err
	}
	if err := s.PaperDimension(j.cfg.Paper, dpi); err != nil {
		return 0, 0, err
	}
	if err := s.PrintMethod(escp.DefaultPrintMethod); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func (j *Plain) printPages(pages []raster.Source, height int) error {
	s := j.sender
	dx := uint32(escp.ToDots(j.cfg.Margin.Left, j.cfg.DPI))
	dy := uint32(escp.ToDots(j.cfg.Margin.Top, j.cfg.DPI))

	for i, page := range pages {
		if err := s.VerticalPosition(dy); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		_, rows := page.Size()
		rows = min(rows, height)
		for y := 0; y < rows; y++ {
			for _, ci := range raster.Planes() {
				if err := s.HorizontalPosition(dx); err != nil {
					return fmt.Errorf("page %d row %d: %w", i+1, y, err)
				}
				line := page.BitLine(y, ci, j.cfg.BPP)
				if err := s.SendLine(ci, line, j.cfg.BPP, j.cfg.Compress); err != nil {
					return fmt.Errorf("page %d row %d: %w", i+1, y, err)
				}
			}
			if err := s.VerticalIncrement(1); err != nil {
				return fmt.Errorf("page %d row %d: %w", i+1, y, err)
			}
		}

		if err := s.FormFeed(); err != nil {
			return fmt.Errorf("page %d: %w", i+1, err)
		}

		j.opts.logger.Debug("Page sent", zap.Int("page", i+1), zap.Int("rows", rows))
		if j.opts.progress != nil {
			j.opts.progress(i+1, len(pages))
		}
	}
	return nil
}

func (j *Plain) end() error {
	s := j.sender
	if err := s.InitPrinter(); err != nil {
		return err
	}
	return remoteTeardown(s, j.cfg.Duplex, false)
}

// remoteSetup sends the REMOTE1 block opening every job.
func remoteSetup(s *escp.Sender, cfg Config, o options) error {
	header := func() error { return s.JobHeader(0, cfg.Name) }
	if o.jobID != nil {
		header = func() error { return s.JobHeaderID(0, *o.jobID, cfg.Name) }
	}

	return run([]func() error{
		s.EnterRemote,
		s.TimeInit,
		func() error { return s.JobStart("") },
		header,
		func() error { return s.HardwareDevice(escp.PlatformLinux) },
		func() error { return s.PaperPath(cfg.PaperPath) },
		func() error { return s.Duplex(cfg.Duplex) },
		s.ExitRemote,
	})
}

// remoteTeardown sends the REMOTE1 block closing every job.
func remoteTeardown(s *escp.Sender, duplex, loadDefaults bool) error {
	steps := []func() error{s.EnterRemote}
	if duplex {
		steps = append(steps, func() error { return s.Duplex(false) })
	}
	if loadDefaults {
		steps = append(steps, s.LoadDefaults)
	}
	steps = append(steps, s.JobEnd, s.ExitRemote)
	return run(steps)
}

func run(steps []func() error) error {
	for _, step := range steps {
		if err := step(); err != nil {
			return err
		}
	}
	return nil
}
