// internal/escp/command.go
package escp

import (
	"fmt"
	"time"
)

// Command is one decoded unit of an ESC/P, REMOTE1 or ESC/P-R stream.
// Commands are immutable once produced by the Decoder.
type Command interface {
	// Name identifies the command variant, e.g. "raster" or "remote".
	Name() string
}

// Char is a literal byte outside any escape sequence.
type Char struct {
	Byte byte `json:"byte"`
}

// Special is a LF, FF or CR control byte.
type Special struct {
	Byte byte   `json:"byte"`
	Kind string `json:"kind"`
}

// ExitPacketMode is the ESC 0x01 "@EJL" trailer, terminators included.
type ExitPacketMode struct {
	Data []byte `json:"data"`
}

// InitPrinter is ESC @.
type InitPrinter struct{}

// Unidirectional is ESC U.
type Unidirectional struct {
	Mode PrintDirection `json:"mode"`
}

// SelectColor is ESC r.
type SelectColor struct {
	Color byte `json:"color"`
}

// Raster is ESC i with its payload already decompressed.
type Raster struct {
	Color      ColorIndex `json:"color"`
	Compressed bool       `json:"compressed"`
	BPP        int        `json:"bpp"`
	Width      int        `json:"width"`
	Height     int        `json:"height"`
	Data       []byte     `json:"data"`
}

// BitImage is ESC . with its payload already decompressed.
type BitImage struct {
	Compressed bool   `json:"compressed"`
	VDensity   byte   `json:"v_density"`
	HDensity   byte   `json:"h_density"`
	Rows       int    `json:"rows"`
	Dots       int    `json:"dots"`
	Data       []byte `json:"data"`
}

// Escape is any ESC sequence without a known payload.
type Escape struct {
	Code byte `json:"code"`
}

// Extended is an ESC ( sub-command whose payload is kept verbatim.
type Extended struct {
	Code byte   `json:"code"`
	Data []byte `json:"data"`
}

// EnterProtocol is ESC ( R, switching to REMOTE1 or ESC/P-R.
type EnterProtocol struct {
	Response byte   `json:"response"`
	Protocol string `json:"protocol"`
}

// RasterResolution is ESC ( D.
type RasterResolution struct {
	Base uint16 `json:"base"`
	VDiv byte   `json:"v_div"`
	HDiv byte   `json:"h_div"`
}

// Unit is ESC ( U. The simple form only sets Page.
type Unit struct {
	Extended bool   `json:"extended"`
	Page     byte   `json:"page"`
	V        byte   `json:"v"`
	H        byte   `json:"h"`
	Base     uint16 `json:"base"`
}

// PageFormat is ESC ( c.
type PageFormat struct {
	Top    uint32 `json:"top"`
	Bottom uint32 `json:"bottom"`
}

// PaperDimension is ESC ( S.
type PaperDimension struct {
	Width  uint32 `json:"width"`
	Height uint32 `json:"height"`
}

// ColorModeSelect is ESC ( K.
type ColorModeSelect struct {
	Leading byte      `json:"leading"`
	Mode    ColorMode `json:"mode"`
}

// GraphicsMode is ESC ( G.
type GraphicsMode struct {
	Mode byte `json:"mode"`
}

// PrintMethod is ESC ( m.
type PrintMethod struct {
	Method byte `json:"method"`
}

// VerticalPosition is ESC ( V (absolute) or ESC ( v (relative).
type VerticalPosition struct {
	Relative bool   `json:"relative"`
	Offset   uint32 `json:"offset"`
}

// HorizontalPosition is ESC ( $ (absolute) or ESC ( / (relative).
type HorizontalPosition struct {
	Relative bool   `json:"relative"`
	Offset   uint32 `json:"offset"`
}

// Remote is a REMOTE1 frame. Date is set instead of Data for TI.
type Remote struct {
	Code     string     `json:"code"`
	Response byte       `json:"response"`
	Data     []byte     `json:"data,omitempty"`
	Date     *time.Time `json:"date,omitempty"`
}

// RemoteExit terminates REMOTE1 mode.
type RemoteExit struct{}

// RasterFrame is an ESC/P-R frame with an opaque payload.
type RasterFrame struct {
	Class byte   `json:"class"`
	Code  string `json:"code"`
	Data  []byte `json:"data,omitempty"`
}

// RasterLine is an ESC/P-R d/dsnd frame with its 7-byte header stripped.
type RasterLine struct {
	X        uint16 `json:"x"`
	Y        uint16 `json:"y"`
	Compress byte   `json:"compress"`
	Length   uint16 `json:"length"`
	Data     []byte `json:"data"`
}

// RasterJob is an ESC/P-R j/setj frame. Margin is left, top, right, bottom.
type RasterJob struct {
	PaperWidth  uint32         `json:"paper_width"`
	PaperHeight uint32         `json:"paper_height"`
	Margin      [4]uint32      `json:"margin"`
	DPI         int            `json:"dpi"`
	Direction   PrintDirection `json:"direction"`
}

// RasterQuality is an ESC/P-R q/setq frame. Palette is nil when empty.
type RasterQuality struct {
	MediaType  MediaType    `json:"media_type"`
	Quality    MediaQuality `json:"quality"`
	ColorMode  ColorMode    `json:"color_mode"`
	Brightness int8         `json:"brightness"`
	Contrast   int8         `json:"contrast"`
	Saturation int8         `json:"saturation"`
	ColorPlane ColorPlane   `json:"color_plane"`
	Palette    []byte       `json:"palette,omitempty"`
}

// RasterEndJob is the ESC/P-R j/endj frame.
type RasterEndJob struct{}

func (Char) Name() string               { return "char" }
func (Special) Name() string            { return "special" }
func (ExitPacketMode) Name() string     { return "exit_packet_mode" }
func (InitPrinter) Name() string        { return "init_printer" }
func (Unidirectional) Name() string     { return "unidirectional" }
func (SelectColor) Name() string        { return "select_color" }
func (Raster) Name() string             { return "raster" }
func (BitImage) Name() string           { return "bit_image" }
func (Escape) Name() string             { return "escape" }
func (Extended) Name() string           { return "extended" }
func (EnterProtocol) Name() string      { return "enter_protocol" }
func (RasterResolution) Name() string   { return "raster_resolution" }
func (Unit) Name() string               { return "unit" }
func (PageFormat) Name() string         { return "page_format" }
func (PaperDimension) Name() string     { return "paper_dimension" }
func (ColorModeSelect) Name() string    { return "color_mode" }
func (GraphicsMode) Name() string       { return "graphics_mode" }
func (PrintMethod) Name() string        { return "print_method" }
func (VerticalPosition) Name() string   { return "vertical_position" }
func (HorizontalPosition) Name() string { return "horizontal_position" }
func (Remote) Name() string             { return "remote" }
func (RemoteExit) Name() string         { return "remote_exit" }
func (RasterFrame) Name() string        { return "escpr" }
func (RasterLine) Name() string         { return "escpr_line" }
func (RasterJob) Name() string          { return "escpr_job" }
func (RasterQuality) Name() string      { return "escpr_quality" }
func (RasterEndJob) Name() string       { return "escpr_end_job" }

// Describe renders a short, stable label for c, used in logs and tests.
// Remote and ESC/P-R frames include their code.
func Describe(c Command) string {
	switch v := c.(type) {
	case Remote:
		return "remote:" + v.Code
	case RasterFrame:
		return fmt.Sprintf("escpr:%c/%s", v.Class, v.Code)
	case Extended:
		return fmt.Sprintf("extended:%c", v.Code)
	case Escape:
		return fmt.Sprintf("escape:%c", v.Code)
	case Special:
		return "special:" + v.Kind
	default:
		return c.Name()
	}
}
