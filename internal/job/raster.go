// internal/job/raster.go
package job

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"escpr-service/internal/escp"
	"escpr-service/internal/escpr"
	"escpr-service/internal/raster"
	"escpr-service/internal/transport"
)

// Raster prints pages through ESC/P-R, either as RGB lines or, when the
// color plane is JPEG, as JPEG images. A Raster job runs once.
type Raster struct {
	cfg  Config
	enc  *escpr.Encoder
	opts options
	lifecycle
}

// NewRaster creates an ESC/P-R job writing to t.
func NewRaster(t transport.Transport, cfg Config, opts ...Option) *Raster {
	o := buildOptions(opts)
	s := escp.NewSender(t)
	s.Now = o.now
	return &Raster{cfg: cfg.resolveMedia(), enc: escpr.New(s), opts: o}
}

// Config returns the effective settings after media overrides.
func (j *Raster) Config() Config {
	return j.cfg
}

// State returns the job's lifecycle state.
func (j *Raster) State() State {
	return j.state
}

func (j *Raster) jpeg() bool {
	return j.cfg.ColorPlane == escp.PlaneJPEG
}

// Print runs the whole job, streaming each page row by row.
func (j *Raster) Print(pages []raster.Source) error {
	if j.jpeg() {
		return errors.New("raster pages cannot be sent in JPEG mode")
	}
	if err := j.begin(); err != nil {
		return err
	}
	defer j.finish()

	_, height, err := j.start(1)
	if err != nil {
		return fmt.Errorf("job setup failed: %w", err)
	}

	for i, page := range pages {
		_, rows := page.Size()
		rows = min(rows, height)
		err := j.page(i+1, len(pages), func() error {
			for y := 0; y < rows; y++ {
				if err := j.enc.SendLine(page.Line(y), 0, y, true); err != nil {
					return fmt.Errorf("row %d: %w", y, err)
				}
			}
			return nil
		})
		if err != nil {
			return err
		}
	}

	if err := j.end(); err != nil {
		return fmt.Errorf("job teardown failed: %w", err)
	}
	return nil
}

// PrintJPEG runs the whole job with one encoded JPEG per page. It requires
// the JPEG color plane.
func (j *Raster) PrintJPEG(images [][]byte, copies int) error {
	if !j.jpeg() {
		return errors.New("JPEG pages require the JPEG color plane")
	}
	if err := j.begin(); err != nil {
		return err
	}
	defer j.finish()

	if _, _, err := j.start(copies); err != nil {
		return fmt.Errorf("job setup failed: %w", err)
	}

	for i, img := range images {
		err := j.page(i+1, len(images), func() error {
			return j.enc.SendJPEG(img)
		})
		if err != nil {
			return err
		}
	}

	if err := j.end(); err != nil {
		return fmt.Errorf("job teardown failed: %w", err)
	}
	return nil
}

func (j *Raster) start(copies int) (int, int, error) {
	s := j.enc.Sender()
	if err := run([]func() error{s.ExitPacketMode, s.InitPrinter}); err != nil {
		return 0, 0, err
	}
	if err := remoteSetup(s, j.cfg, j.opts); err != nil {
		return 0, 0, err
	}

	if err := j.enc.Enter(j.jpeg()); err != nil {
		return 0, 0, err
	}
	err := j.enc.Quality(escpr.Quality{
		MediaType:  j.cfg.MediaType,
		Quality:    j.cfg.Quality,
		ColorMode:  j.cfg.ColorMode,
		Brightness: j.cfg.Brightness,
		Contrast:   j.cfg.Contrast,
		Saturation: j.cfg.Saturation,
		ColorPlane: j.cfg.ColorPlane,
		Palette:    j.cfg.Palette,
	})
	if err != nil {
		return 0, 0, err
	}

	if !j.jpeg() {
		if err := j.enc.Check(); err != nil {
			return 0, 0, err
		}
		return j.geometry()
	}

	if err := j.enc.AutoPhotoFix(j.cfg.ColorMode, j.cfg.AutoCorrect, j.cfg.Sharpness, j.cfg.RedEye); err != nil {
		return 0, 0, err
	}
	if copies > 1 {
		if err := j.enc.Copies(copies); err != nil {
			return 0, 0, err
		}
	}
	width, height, err := j.geometry()
	if err != nil {
		return 0, 0, err
	}
	if err := j.enc.JPEGSize(j.cfg.Layout, j.cfg.Direction, j.cfg.CDInner, j.cfg.CDOuter); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

func (j *Raster) geometry() (int, int, error) {
	width, height, err := j.enc.Job(j.cfg.Paper, j.cfg.Layout, j.cfg.Margin, j.cfg.DPI, j.cfg.Direction)
	if err != nil {
		return 0, 0, err
	}
	j.opts.logger.Debug("Raster job started",
		zap.String("name", j.cfg.Name),
		zap.Int("width", width),
		zap.Int("height", height))
	return width, height, nil
}

// page wraps body in the page start, number and end frames.
func (j *Raster) page(n, total int, body func() error) error {
	if err := j.enc.StartPage(); err != nil {
		return fmt.Errorf("page %d: %w", n, err)
	}
	if err := j.enc.PrintNum(n); err != nil {
		return fmt.Errorf("page %d: %w", n, err)
	}
	if err := body(); err != nil {
		return fmt.Errorf("page %d: %w", n, err)
	}
	if err := j.enc.EndPage(total - n); err != nil {
		return fmt.Errorf("page %d: %w", n, err)
	}

	j.opts.logger.Debug("Page sent", zap.Int("page", n), zap.Int("remaining", total-n))
	if j.opts.progress != nil {
		j.opts.progress(n, total)
	}
	return nil
}

func (j *Raster) end() error {
	s := j.enc.Sender()
	if err := j.enc.EndJob(); err != nil {
		return err
	}
	if err := s.InitPrinter(); err != nil {
		return err
	}
	return remoteTeardown(s, false, true)
}
