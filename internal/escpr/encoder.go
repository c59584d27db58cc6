// internal/escpr/encoder.go

// Package escpr encodes the ESC/P-R raster sub-protocol, including the
// JPEG delivery mode.
package escpr

import (
	"encoding/binary"
	"fmt"
	"math"

	"escpr-service/internal/escp"
	"escpr-service/internal/rle"
)

var (
	enterRaster = []byte("\x1b(R\x06\x00\x00ESCPR")
	enterJPEG   = []byte("\x1b(R\x07\x00\x00ESCPRJ")
)

const (
	// MaxPageNumber is the largest page count setn and endp can carry.
	MaxPageNumber = 99

	maxJPEGChunk = 0xFFFF

	customSize = 99

	defaultInnerDiameter = 43
	defaultOuterDiameter = 116
)

// Quality holds the q/setq parameters. Brightness, Contrast and Saturation
// are clamped to [-50, 50] when sent.
type Quality struct {
	MediaType  escp.MediaType
	Quality    escp.MediaQuality
	ColorMode  escp.ColorMode
	Brightness int
	Contrast   int
	Saturation int
	ColorPlane escp.ColorPlane
	Palette    []byte
}

// Encoder frames ESC/P-R commands. Session setup outside raster mode, such as
// REMOTE1 and ESC @, goes through the wrapped escp.Sender.
type Encoder struct {
	sender *escp.Sender
}

// New creates an encoder sharing s for transport and job ids.
func New(s *escp.Sender) *Encoder {
	return &Encoder{sender: s}
}

// Sender returns the underlying ESC/P sender.
func (e *Encoder) Sender() *escp.Sender {
	return e.sender
}

// Enter switches the printer into ESC/P-R, or ESC/P-R JPEG mode.
func (e *Encoder) Enter(jpeg bool) error {
	if jpeg {
		return e.sender.Send(enterJPEG)
	}
	return e.sender.Send(enterRaster)
}

// Cmd frames ESC, class, u32-LE payload length, the 4-byte code and the payload.
func (e *Encoder) Cmd(class byte, code string, data []byte) error {
	if len(code) != 4 {
		return fmt.Errorf("escpr code %q must be 4 bytes", code)
	}
	if uint64(len(data)) > math.MaxUint32 {
		return fmt.Errorf("escpr %c/%s payload too large", class, code)
	}

	frame := make([]byte, 0, 10+len(data))
	frame = append(frame, escp.ESC, class)
	frame = binary.LittleEndian.AppendUint32(frame, uint32(len(data)))
	frame = append(frame, code...)
	frame = append(frame, data...)
	return e.sender.Send(frame)
}

// Quality sends the media and color settings.
func (e *Encoder) Quality(q Quality) error {
	if len(q.Palette) > math.MaxUint16 {
		return fmt.Errorf("palette too large: %d bytes", len(q.Palette))
	}
	data := []byte{
		byte(q.MediaType),
		byte(q.Quality),
		byte(q.ColorMode),
		byte(int8(escp.Clamp(-50, q.Brightness, 50))),
		byte(int8(escp.Clamp(-50, q.Contrast, 50))),
		byte(int8(escp.Clamp(-50, q.Saturation, 50))),
		byte(q.ColorPlane),
	}
	data = binary.BigEndian.AppendUint16(data, uint16(len(q.Palette)))
	data = append(data, q.Palette...)
	return e.Cmd('q', "setq", data)
}

// Check is the u/chku capability check. None of the supported printers need
// it, so nothing is sent.
func (e *Encoder) Check() error {
	return nil
}

// ResolutionIndex maps dpi to its setj resolution code. Unsupported values
// fall back to 360 dpi, which is returned as the effective resolution.
func ResolutionIndex(dpi int) (index byte, effective int) {
	switch dpi {
	case 360:
		return 0, 360
	case 720:
		return 1, 720
	case 300:
		return 2, 300
	case 600:
		return 3, 600
	default:
		return 0, 360
	}
}

// Job sends the page geometry and returns the printable width and height in
// device units. Paper dimensions round up and margins round down.
func (e *Encoder) Job(paper escp.Size, layout escp.MediaLayout, margin escp.Margin, dpi int, pd escp.PrintDirection) (width, height int, err error) {
	ir, dpi := ResolutionIndex(dpi)
	if layout == escp.LayoutBorderless {
		margin = escp.Margin{}
	}

	paperWidth := int(math.Ceil(escp.ToDots(paper.Width, dpi)))
	paperHeight := int(math.Ceil(escp.ToDots(paper.Height, dpi)))
	left := int(math.Floor(escp.ToDots(margin.Left, dpi)))
	top := int(math.Floor(escp.ToDots(margin.Top, dpi)))
	right := int(math.Floor(escp.ToDots(margin.Right, dpi)))
	bottom := int(math.Floor(escp.ToDots(margin.Bottom, dpi)))

	width = paperWidth - left - right
	height = paperHeight - top - bottom
	if width <= 0 || height <= 0 {
		return 0, 0, fmt.Errorf("margins leave no printable area: %d x %d", width, height)
	}

	data := binary.BigEndian.AppendUint32(nil, uint32(paperWidth))
	data = binary.BigEndian.AppendUint32(data, uint32(paperHeight))
	data = binary.BigEndian.AppendUint16(data, uint16(top))
	data = binary.BigEndian.AppendUint16(data, uint16(left))
	data = binary.BigEndian.AppendUint32(data, uint32(width))
	data = binary.BigEndian.AppendUint32(data, uint32(height))
	data = append(data, ir, byte(pd))

	if err := e.Cmd('j', "setj", data); err != nil {
		return 0, 0, err
	}
	return width, height, nil
}

// AutoPhotoFix sets the JPEG correction options.
func (e *Encoder) AutoPhotoFix(cm escp.ColorMode, act escp.AutoCorrect, sharpness int, rde escp.RedEye) error {
	data := []byte{byte(cm), byte(act), byte(int8(escp.Clamp(-50, sharpness, 50))), byte(rde)}
	return e.Cmd('a', "seta", data)
}

// Copies sets the JPEG copy count, clamped to [1, 255].
func (e *Encoder) Copies(n int) error {
	return e.Cmd('c', "setc", []byte{byte(escp.Clamp(1, n, 255))})
}

// JPEGSize selects the custom JPEG page layout. It must follow Job. Zero
// diameters select the printer's CD label defaults.
func (e *Encoder) JPEGSize(layout escp.MediaLayout, pd escp.PrintDirection, innerDiameter, outerDiameter int) error {
	var code byte
	switch layout {
	case escp.LayoutBorderless:
		code = 0x01
	case escp.LayoutCDLabel:
		code = 0x09
	case escp.LayoutDivide16:
		code = 0x90
	}
	if innerDiameter == 0 {
		innerDiameter = defaultInnerDiameter
	}
	if outerDiameter == 0 {
		outerDiameter = defaultOuterDiameter
	}

	data := []byte{
		customSize,
		code,
		byte(escp.Clamp(18, innerDiameter, 46)),
		byte(escp.Clamp(114, outerDiameter, 120)),
		byte(pd),
	}
	return e.Cmd('j', "sets", data)
}

// SendJPEG streams encoded image data in chunks of at most 64 KiB.
func (e *Encoder) SendJPEG(data []byte) error {
	for len(data) > 0 {
		n := min(len(data), maxJPEGChunk)
		chunk := binary.BigEndian.AppendUint16(make([]byte, 0, n+2), uint16(n))
		chunk = append(chunk, data[:n]...)
		if err := e.Cmd('d', "jsnd", chunk); err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

func (e *Encoder) StartPage() error {
	return e.Cmd('p', "sttp", nil)
}

// PrintNum sets the current page number, clamped to MaxPageNumber.
func (e *Encoder) PrintNum(page int) error {
	return e.Cmd('p', "setn", []byte{byte(escp.Clamp(0, page, MaxPageNumber))})
}

// EndPage closes the page and announces how many pages remain.
func (e *Encoder) EndPage(remaining int) error {
	return e.Cmd('p', "endp", []byte{byte(escp.Clamp(0, remaining, MaxPageNumber))})
}

func (e *Encoder) EndJob() error {
	return e.Cmd('j', "endj", nil)
}

// SendLine sends one RGB line at (x, y). With compress the line is run-length
// encoded over 3-byte pixels.
func (e *Encoder) SendLine(line []byte, x, y int, compress bool) error {
	var cmode byte
	if compress {
		line = rle.Encode(line, 3)
		cmode = 1
	}
	if len(line) > math.MaxUint16 {
		return fmt.Errorf("raster line too long: %d bytes", len(line))
	}

	data := binary.BigEndian.AppendUint16(make([]byte, 0, 7+len(line)), uint16(x))
	data = binary.BigEndian.AppendUint16(data, uint16(y))
	data = append(data, cmode)
	data = binary.BigEndian.AppendUint16(data, uint16(len(line)))
	data = append(data, line...)
	return e.Cmd('d', "dsnd", data)
}
