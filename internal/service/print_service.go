// internal/service/print_service.go
package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"escpr-service/internal/config"
	"escpr-service/internal/escp"
	"escpr-service/internal/job"
	"escpr-service/internal/model"
	"escpr-service/internal/protocol"
	"escpr-service/internal/raster"
	"escpr-service/internal/repository"
	"escpr-service/internal/transport"
	"escpr-service/internal/utils"
)

// Test pattern size when the request leaves it open: two inches at 360 dpi
const (
	defaultPatternWidth  = 720
	defaultPatternHeight = 720
)

var supportedDPI = []int{300, 360, 600, 720}

// ErrInvalidRequest marks print requests rejected before anything is sent
var ErrInvalidRequest = errors.New("invalid print request")

// PrintRequest describes a print job submitted to the service
type PrintRequest struct {
	Kind      model.JobKind `json:"kind" form:"kind"`
	Pages     int           `json:"pages" form:"pages"`
	Width     int           `json:"width" form:"width"`
	Height    int           `json:"height" form:"height"`
	Name      string        `json:"name" form:"name"`
	DPI       int           `json:"dpi" form:"dpi"`
	Paper     string        `json:"paper" form:"paper"`
	MediaType string        `json:"media_type" form:"media_type"`
	Quality   string        `json:"quality" form:"quality"`
	Layout    string        `json:"layout" form:"layout"`
	ColorMode string        `json:"color_mode" form:"color_mode"`
	PaperPath string        `json:"paper_path" form:"paper_path"`
	Duplex    *bool         `json:"duplex" form:"duplex"`
	// JPEG sends an uploaded JPEG untouched through the ESC/P-R JPEG path
	JPEG   bool `json:"jpeg" form:"jpeg"`
	Copies int  `json:"copies" form:"copies"`

	Image []byte `json:"-" form:"-"`
}

// Connector opens the printer connection a job is written to
type Connector func(ctx context.Context) (protocol.DeviceProtocol, error)

// PrintService runs print jobs against the configured printer, one at a time
type PrintService struct {
	jobRepo repository.JobRepository
	connect Connector
	config  *config.Config
	logger  *utils.ServiceLogger

	// Serializes access to the printer
	printMu   sync.Mutex
	nextJobID uint32
}

// NewPrintService creates a new print service instance
func NewPrintService(jobRepo repository.JobRepository, cfg *config.Config, logger *zap.Logger) *PrintService {
	ps := &PrintService{
		jobRepo: jobRepo,
		config:  cfg,
		logger:  utils.NewServiceLogger(logger, "print-service"),
	}
	ps.connect = ps.openConfigured
	return ps
}

// SetConnector replaces how the printer connection is opened
func (ps *PrintService) SetConnector(connect Connector) {
	ps.connect = connect
}

// ConnectionType returns the configured connection type
func (ps *PrintService) ConnectionType() model.ConnectionType {
	return model.ConnectionType(ps.config.Printer.Connection)
}

// Print validates req, runs the job and returns its record. The record is
// returned with a FAILED status alongside the error when the printer fails.
func (ps *PrintService) Print(ctx context.Context, req *PrintRequest) (*model.PrintJob, error) {
	plan, err := ps.plan(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRequest, err)
	}

	now := time.Now()
	record := &model.PrintJob{
		ID:         uuid.New(),
		Kind:       req.Kind,
		Source:     plan.source,
		Name:       plan.cfg.Name,
		Paper:      plan.paperName,
		MediaType:  strings.ToUpper(plan.mediaName),
		DPI:        plan.cfg.DPI,
		Pages:      plan.pageCount(),
		Connection: ps.ConnectionType(),
		Status:     model.JobStatusPending,
		StartedAt:  now,
		CreatedAt:  now,
	}
	if err := ps.jobRepo.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to create job record: %w", err)
	}

	jobLogger := utils.NewJobLogger(ps.logger.Logger, string(req.Kind), record.ID.String())

	ps.printMu.Lock()
	defer ps.printMu.Unlock()

	record.Status = model.JobStatusProcessing
	record.StartedAt = time.Now()
	ps.update(ctx, record)
	jobLogger.Start(
		zap.String("source", string(plan.source)),
		zap.String("paper", record.Paper),
		zap.Int("dpi", record.DPI),
		zap.Int("pages", record.Pages),
	)

	err = ps.run(ctx, plan, record, jobLogger)
	record.Complete(err, time.Now())
	ps.update(ctx, record)

	if err != nil {
		jobLogger.Error(err, zap.Int("pages_sent", record.PagesSent))
		return record, err
	}
	jobLogger.Success(zap.Int("pages_sent", record.PagesSent))
	return record, nil
}

// GetJob returns a job record
func (ps *PrintService) GetJob(ctx context.Context, id uuid.UUID) (*model.PrintJob, error) {
	return ps.jobRepo.GetByID(ctx, id)
}

// ListJobs returns job records matching filter
func (ps *PrintService) ListJobs(ctx context.Context, filter *repository.JobFilter) ([]*model.PrintJob, int, error) {
	return ps.jobRepo.List(ctx, filter)
}

func (ps *PrintService) update(ctx context.Context, record *model.PrintJob) {
	if err := ps.jobRepo.Update(ctx, record); err != nil {
		ps.logger.Error("Failed to update job record", zap.Error(err))
	}
}

// run opens the printer and sends the planned job through it
func (ps *PrintService) run(ctx context.Context, plan *printPlan, record *model.PrintJob, jobLogger *utils.JobLogger) error {
	if ps.config.Printer.JobTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, ps.config.Printer.JobTimeout)
		defer cancel()
	}

	conn, err := ps.connect(ctx)
	if err != nil {
		return fmt.Errorf("failed to open printer connection: %w", err)
	}
	defer func() {
		record.BytesSent = conn.Stats().BytesWritten
		if err := conn.Close(); err != nil {
			jobLogger.Logger().Warn("Failed to close printer connection", zap.Error(err))
		}
	}()

	ps.nextJobID++
	opts := []job.Option{
		job.WithLogger(jobLogger.Logger()),
		job.WithJobID(ps.nextJobID),
		job.WithProgress(func(page, total int) {
			record.PagesSent = page
			ps.update(ctx, record)
			jobLogger.Progress(page, total)
		}),
	}

	t := transport.Bind(ctx, conn)
	switch {
	case plan.jpeg != nil:
		return job.NewRaster(t, plan.cfg, opts...).PrintJPEG(plan.jpeg, plan.copies)
	case plan.kind == model.JobKindESCPR:
		return job.NewRaster(t, plan.cfg, opts...).Print(plan.pages)
	default:
		return job.NewPlain(t, plan.cfg, opts...).Print(plan.pages)
	}
}

// openConfigured opens the connection described by the printer configuration
func (ps *PrintService) openConfigured(ctx context.Context) (protocol.DeviceProtocol, error) {
	conn, err := protocol.CreateProtocol(ProtocolSettings(&ps.config.Printer), ps.logger.Logger)
	if err != nil {
		return nil, err
	}

	openCtx := ctx
	if ps.config.Printer.OpenTimeout > 0 {
		var cancel context.CancelFunc
		openCtx, cancel = context.WithTimeout(ctx, ps.config.Printer.OpenTimeout)
		defer cancel()
	}
	if err := conn.Open(openCtx); err != nil {
		return nil, err
	}
	return conn, nil
}

// ProtocolSettings maps the printer configuration onto connection settings
func ProtocolSettings(cfg *config.PrinterConfig) protocol.Settings {
	return protocol.Settings{
		Type: model.ConnectionType(strings.ToUpper(cfg.Connection)),
		File: protocol.FileConfig{
			Path:     cfg.File.Path,
			Compress: cfg.File.Compress,
			Append:   cfg.File.Append,
		},
		Serial: protocol.SerialConfig{
			Port:     cfg.Serial.Port,
			BaudRate: cfg.Serial.BaudRate,
			DataBits: cfg.Serial.DataBits,
			StopBits: cfg.Serial.StopBits,
			Parity:   cfg.Serial.Parity,
			Timeout:  cfg.Serial.Timeout,
		},
		USB: protocol.USBConfig{
			VendorID:     cfg.USB.VendorID,
			ProductID:    cfg.USB.ProductID,
			Config:       cfg.USB.Config,
			Interface:    cfg.USB.Interface,
			AltSetting:   cfg.USB.AltSetting,
			OutEndpoint:  cfg.USB.OutEndpoint,
			InEndpoint:   cfg.USB.InEndpoint,
			SerialNumber: cfg.USB.SerialNumber,
			Timeout:      cfg.USB.Timeout,
		},
		TCP: protocol.TCPConfig{
			Host:         cfg.TCP.Host,
			Port:         cfg.TCP.Port,
			SSL:          cfg.TCP.SSL,
			KeepAlive:    cfg.TCP.KeepAlive,
			Timeout:      cfg.TCP.Timeout,
			ReadTimeout:  cfg.TCP.ReadTimeout,
			WriteTimeout: cfg.TCP.WriteTimeout,
		},
	}
}

// printPlan is a validated request: the job settings and its pages
type printPlan struct {
	kind      model.JobKind
	source    model.JobSource
	cfg       job.Config
	paperName string
	mediaName string
	pages     []raster.Source
	jpeg      [][]byte
	copies    int
}

func (p *printPlan) pageCount() int {
	if p.jpeg != nil {
		return len(p.jpeg)
	}
	return len(p.pages)
}

func (ps *PrintService) plan(req *PrintRequest) (*printPlan, error) {
	if req.Kind == "" {
		req.Kind = model.JobKindESCP
	}
	if req.Kind != model.JobKindESCP && req.Kind != model.JobKindESCPR {
		return nil, fmt.Errorf("unknown job kind %q", req.Kind)
	}

	pages := req.Pages
	if pages == 0 {
		pages = 1
	}
	if pages < 0 || pages > ps.config.Job.MaxPages {
		return nil, fmt.Errorf("pages must be between 1 and %d", ps.config.Job.MaxPages)
	}

	cfg, err := JobConfig(&ps.config.Job, req)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(supportedDPI, cfg.DPI) {
		return nil, fmt.Errorf("dpi must be one of %v", supportedDPI)
	}

	plan := &printPlan{
		kind:      req.Kind,
		cfg:       cfg,
		paperName: strings.ToUpper(firstNonEmpty(req.Paper, ps.config.Job.Paper)),
		mediaName: firstNonEmpty(req.MediaType, ps.config.Job.MediaType),
		copies:    max(req.Copies, 1),
	}

	switch {
	case len(req.Image) > 0 && req.JPEG:
		if req.Kind != model.JobKindESCPR {
			return nil, fmt.Errorf("JPEG pass-through requires an escpr job")
		}
		if req.Copies < 0 || req.Copies > 255 {
			return nil, fmt.Errorf("copies must be between 1 and 255")
		}
		if _, format, err := raster.Decode(bytes.NewReader(req.Image), ps.config.Job.MaxImagePixels); err != nil || format != "jpeg" {
			return nil, fmt.Errorf("JPEG pass-through requires a JPEG image")
		}
		plan.source = model.JobSourceJPEG
		plan.cfg.ColorPlane = escp.PlaneJPEG
		plan.jpeg = make([][]byte, pages)
		for i := range plan.jpeg {
			plan.jpeg[i] = req.Image
		}

	case len(req.Image) > 0:
		img, _, err := raster.Decode(bytes.NewReader(req.Image), ps.config.Job.MaxImagePixels)
		if err != nil {
			return nil, err
		}
		plan.source = model.JobSourceImage
		plan.pages = repeatPage(img, pages)

	default:
		width, height := req.Width, req.Height
		if width == 0 {
			width = defaultPatternWidth
		}
		if height == 0 {
			height = defaultPatternHeight
		}
		if width < 0 || height < 0 {
			return nil, fmt.Errorf("page size must be positive")
		}
		plan.source = model.JobSourceTestPattern
		plan.pages = repeatPage(raster.NewTestPattern(width, height), pages)
	}

	return plan, nil
}

// JobConfig builds job settings from the configured defaults and the request overrides
func JobConfig(defaults *config.JobConfig, req *PrintRequest) (job.Config, error) {
	cfg := job.DefaultPlainConfig()
	if req.Kind == model.JobKindESCPR {
		cfg = job.DefaultRasterConfig()
	}

	cfg.Name = firstNonEmpty(req.Name, defaults.Name)
	cfg.DPI = defaults.DPI
	if req.DPI != 0 {
		cfg.DPI = req.DPI
	}
	cfg.Duplex = defaults.Duplex
	if req.Duplex != nil {
		cfg.Duplex = *req.Duplex
	}
	cfg.Margin = escp.Margin{
		Left:   defaults.Margin.Left,
		Top:    defaults.Margin.Top,
		Right:  defaults.Margin.Right,
		Bottom: defaults.Margin.Bottom,
	}

	var ok bool
	name := firstNonEmpty(req.Paper, defaults.Paper)
	if cfg.Paper, ok = escp.ParsePaper(name); !ok {
		return cfg, fmt.Errorf("unknown paper %q", name)
	}
	name = firstNonEmpty(req.MediaType, defaults.MediaType)
	if cfg.MediaType, ok = escp.ParseMediaType(name); !ok {
		return cfg, fmt.Errorf("unknown media type %q", name)
	}
	name = firstNonEmpty(req.Layout, defaults.Layout)
	if cfg.Layout, ok = escp.ParseLayout(name); !ok {
		return cfg, fmt.Errorf("unknown layout %q", name)
	}
	name = firstNonEmpty(req.ColorMode, defaults.ColorMode)
	if cfg.ColorMode, ok = escp.ParseColorMode(name); !ok {
		return cfg, fmt.Errorf("unknown color mode %q", name)
	}
	if cfg.Direction, ok = escp.ParseDirection(defaults.Direction); !ok {
		return cfg, fmt.Errorf("unknown print direction %q", defaults.Direction)
	}

	// Raster jobs keep their own quality and paper path unless overridden
	if req.Kind != model.JobKindESCPR || req.Quality != "" {
		name = firstNonEmpty(req.Quality, defaults.Quality)
		if cfg.Quality, ok = escp.ParseQuality(name); !ok {
			return cfg, fmt.Errorf("unknown quality %q", name)
		}
	}
	if req.Kind != model.JobKindESCPR || req.PaperPath != "" {
		name = firstNonEmpty(req.PaperPath, defaults.PaperPath)
		if cfg.PaperPath, ok = escp.ParsePaperPath(name); !ok {
			return cfg, fmt.Errorf("unknown paper path %q", name)
		}
	}

	return cfg, nil
}

func repeatPage(page raster.Source, n int) []raster.Source {
	pages := make([]raster.Source, n)
	for i := range pages {
		pages[i] = page
	}
	return pages
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
