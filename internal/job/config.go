// internal/job/config.go
package job

import (
	"escpr-service/internal/escp"
)

// DefaultName is the job name announced in the REMOTE1 job header.
const DefaultName = "ESCPRLib"

// Config holds the settings for one print job.
type Config struct {
	Name string

	DPI       int
	Direction escp.PrintDirection

	PaperPath escp.PaperPath
	Duplex    bool

	ColorMode escp.ColorMode

	// JPEG auto photo fix
	AutoCorrect escp.AutoCorrect
	Sharpness   int
	RedEye      escp.RedEye

	Quality    escp.MediaQuality
	Brightness int
	Contrast   int
	Saturation int
	ColorPlane escp.ColorPlane
	Palette    []byte

	MediaType escp.MediaType
	Paper     escp.Size
	Layout    escp.MediaLayout
	Margin    escp.Margin

	// CD label inner and outer diameters in mm; zero selects the printer default.
	CDInner int
	CDOuter int

	// Plain jobs only: bits per dot and whether ESC i lines are compressed.
	BPP      int
	Compress bool
}

var defaultMargin = escp.Margin{Left: 3, Top: 3, Right: 3, Bottom: 3}

// DefaultPlainConfig returns the settings used by plain ESC/P jobs.
func DefaultPlainConfig() Config {
	return Config{
		Name:      DefaultName,
		DPI:       360,
		Direction: escp.DirectionBidirectional,
		PaperPath: escp.PathAuto,
		ColorMode: escp.ColorModeColor,
		Quality:   escp.QualityDraft,
		MediaType: escp.MediaPlain,
		Paper:     escp.PaperLetter,
		Layout:    escp.LayoutBorders,
		Margin:    defaultMargin,
		BPP:       1,
		Compress:  true,
	}
}

// DefaultRasterConfig returns the settings used by ESC/P-R jobs.
func DefaultRasterConfig() Config {
	cfg := DefaultPlainConfig()
	cfg.PaperPath = escp.PathRear
	cfg.Quality = escp.QualityHigh
	return cfg
}

// resolveMedia applies the media type overrides: disc media always prints
// from the CD tray with the CD label layout.
func (c Config) resolveMedia() Config {
	if c.MediaType.IsDisc() {
		c.PaperPath = escp.PathCDTray
		c.Layout = escp.LayoutCDLabel
	}
	if c.Name == "" {
		c.Name = DefaultName
	}
	if c.BPP == 0 {
		c.BPP = 1
	}
	return c
}
