// internal/escp/decoder.go
package escp

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"escpr-service/internal/rle"
	"escpr-service/internal/transport"
)

// maxFramePayload bounds a single ESC/P-R frame so a corrupt length cannot
// force an unbounded allocation.
const maxFramePayload = 64 << 20

// preallocLimit is the largest read allocated up front.
const preallocLimit = 64 << 10

var resolutions = map[byte]int{0: 360, 1: 720, 2: 300, 3: 600}

// Decoder turns a byte stream into Commands. It starts in ModeESCP and owns its
// mode; a Decoder must not be shared between goroutines.
type Decoder struct {
	r    *countingReader
	mode Mode
}

// NewDecoder creates a decoder reading from src.
func NewDecoder(src transport.Transport) *Decoder {
	return NewStreamDecoder(transport.Stream(src))
}

// NewStreamDecoder creates a decoder reading from r.
func NewStreamDecoder(r io.Reader) *Decoder {
	return &Decoder{
		r:    &countingReader{r: bufio.NewReader(r)},
		mode: ModeESCP,
	}
}

// Mode returns the current sub-protocol.
func (d *Decoder) Mode() Mode {
	return d.mode
}

// Offset returns the number of bytes consumed so far.
func (d *Decoder) Offset() int64 {
	return d.r.n
}

// Next decodes one command. It returns nil, io.EOF when the stream ends
// cleanly on a command boundary.
func (d *Decoder) Next() (Command, error) {
	if d.mode == ModeRemote1 {
		return d.nextRemote()
	}

	b, err := d.r.ReadByte()
	if err != nil {
		return nil, err
	}

	if d.mode == ModeESCPR {
		if b != ESC {
			return Char{Byte: b}, nil
		}
		return d.nextFrame()
	}

	switch b {
	case LF:
		return Special{Byte: b, Kind: "LF"}, nil
	case FF:
		return Special{Byte: b, Kind: "FF"}, nil
	case CR:
		return Special{Byte: b, Kind: "CR"}, nil
	case ESC:
		return d.nextEscape()
	default:
		return Char{Byte: b}, nil
	}
}

// All decodes until the end of the stream. On error it returns the commands
// decoded before the failure.
func (d *Decoder) All() ([]Command, error) {
	var cmds []Command
	for {
		cmd, err := d.Next()
		if errors.Is(err, io.EOF) {
			return cmds, nil
		}
		if err != nil {
			return cmds, err
		}
		cmds = append(cmds, cmd)
	}
}

func (d *Decoder) nextEscape() (Command, error) {
	op, err := d.byte("escape")
	if err != nil {
		return nil, err
	}

	switch op {
	case 0x01:
		var data []byte
		for nl := 0; nl < 2; {
			c, err := d.byte("exit packet mode")
			if err != nil {
				return nil, err
			}
			data = append(data, c)
			if c == '\n' {
				nl++
			}
		}
		return ExitPacketMode{Data: data}, nil

	case '@':
		return InitPrinter{}, nil

	case 'U':
		mode, err := d.byte("unidirectional")
		if err != nil {
			return nil, err
		}
		return Unidirectional{Mode: PrintDirection(mode)}, nil

	case 'r':
		color, err := d.byte("select color")
		if err != nil {
			return nil, err
		}
		return SelectColor{Color: color}, nil

	case 'i':
		return d.raster()

	case '.':
		return d.bitImage()

	case '(':
		return d.nextExtended()

	default:
		return Escape{Code: op}, nil
	}
}

func (d *Decoder) raster() (Command, error) {
	hdr, err := d.read("raster header", 7)
	if err != nil {
		return nil, err
	}

	cmd := Raster{
		Color:      ColorIndex(hdr[0]),
		Compressed: hdr[1] != 0,
		BPP:        int(hdr[2]),
		Height:     int(binary.LittleEndian.Uint16(hdr[5:7])),
	}
	byteWidth := int(binary.LittleEndian.Uint16(hdr[3:5]))
	cmd.Width = byteWidth * 8
	if cmd.BPP > 0 {
		cmd.Width /= cmd.BPP
	}

	if cmd.Compressed {
		cmd.Data, err = rle.Decode(d.r, byteWidth, 1)
		if err != nil {
			return nil, d.fail("raster data", err)
		}
	} else {
		cmd.Data, err = d.read("raster data", byteWidth)
		if err != nil {
			return nil, err
		}
	}

	return cmd, nil
}

func (d *Decoder) bitImage() (Command, error) {
	hdr, err := d.read("bit image header", 6)
	if err != nil {
		return nil, err
	}

	cmd := BitImage{
		VDensity: hdr[1],
		HDensity: hdr[2],
		Rows:     int(hdr[3]),
		Dots:     int(hdr[5])<<8 | int(hdr[4]),
	}
	k := cmd.Rows * ((cmd.Dots + 7) / 8)

	switch hdr[0] {
	case 0:
		cmd.Data, err = d.read("bit image data", k)
		if err != nil {
			return nil, err
		}
	case 1:
		cmd.Compressed = true
		cmd.Data, err = rle.DecodeBitImage(d.r, k)
		if err != nil {
			return nil, d.fail("bit image data", err)
		}
	default:
		return nil, d.fail("bit image header", fmt.Errorf("%w: %d", ErrInvalidMode, hdr[0]))
	}

	return cmd, nil
}

func (d *Decoder) nextExtended() (Command, error) {
	hdr, err := d.read("extended header", 3)
	if err != nil {
		return nil, err
	}
	code := hdr[0]
	p, err := d.read("extended payload", int(binary.LittleEndian.Uint16(hdr[1:3])))
	if err != nil {
		return nil, err
	}

	badLength := func() (Command, error) {
		return nil, d.fail(fmt.Sprintf("ESC ( %c", code), fmt.Errorf("%w: %d", ErrUnsupportedLength, len(p)))
	}

	switch code {
	case 'R':
		if len(p) < 1 {
			return badLength()
		}
		cmd := EnterProtocol{Response: p[0], Protocol: string(p[1:])}
		switch cmd.Protocol {
		case "REMOTE1":
			d.mode = ModeRemote1
		case "ESCPR", "ESCPRJ":
			d.mode = ModeESCPR
		}
		return cmd, nil

	case 'D':
		if len(p) != 4 {
			return badLength()
		}
		return RasterResolution{Base: binary.LittleEndian.Uint16(p), VDiv: p[2], HDiv: p[3]}, nil

	case 'U':
		switch len(p) {
		case 1:
			return Unit{Page: p[0]}, nil
		case 5:
			return Unit{Extended: true, Page: p[0], V: p[1], H: p[2], Base: binary.LittleEndian.Uint16(p[3:])}, nil
		}
		return badLength()

	case 'c':
		switch len(p) {
		case 4:
			return PageFormat{
				Top:    uint32(binary.LittleEndian.Uint16(p)),
				Bottom: uint32(binary.LittleEndian.Uint16(p[2:])),
			}, nil
		case 8:
			return PageFormat{Top: binary.LittleEndian.Uint32(p), Bottom: binary.LittleEndian.Uint32(p[4:])}, nil
		}
		return badLength()

	case 'S':
		if len(p) != 8 {
			return badLength()
		}
		return PaperDimension{Width: binary.LittleEndian.Uint32(p), Height: binary.LittleEndian.Uint32(p[4:])}, nil

	case 'K':
		switch len(p) {
		case 1:
			return ColorModeSelect{Mode: ColorMode(p[0])}, nil
		case 2:
			return ColorModeSelect{Leading: p[0], Mode: ColorMode(p[1])}, nil
		}
		return badLength()

	case 'G':
		if len(p) != 1 {
			return badLength()
		}
		return GraphicsMode{Mode: p[0]}, nil

	case 'm':
		if len(p) != 1 {
			return badLength()
		}
		return PrintMethod{Method: p[0]}, nil

	case 'V', 'v':
		cmd := VerticalPosition{Relative: code == 'v'}
		switch len(p) {
		case 2:
			cmd.Offset = uint32(binary.LittleEndian.Uint16(p))
		case 4:
			cmd.Offset = binary.LittleEndian.Uint32(p)
		default:
			return badLength()
		}
		return cmd, nil

	case '$', '/':
		if len(p) != 4 {
			return badLength()
		}
		return HorizontalPosition{Relative: code == '/', Offset: binary.LittleEndian.Uint32(p)}, nil

	default:
		return Extended{Code: code, Data: p}, nil
	}
}

func (d *Decoder) nextRemote() (Command, error) {
	var code [2]byte
	if _, err := io.ReadFull(d.r, code[:]); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.EOF
		}
		return nil, d.fail("remote code", err)
	}

	hdr, err := d.read("remote length", 2)
	if err != nil {
		return nil, err
	}
	length := int(binary.LittleEndian.Uint16(hdr))

	if code == [2]byte{ESC, 0x00} && length == 0 {
		d.mode = ModeESCP
		return RemoteExit{}, nil
	}

	cmd := Remote{Code: string(code[:])}
	if length == 0 {
		return cmd, nil
	}

	p, err := d.read("remote payload", length)
	if err != nil {
		return nil, err
	}
	cmd.Response = p[0]
	data := p[1:]

	if cmd.Code == "TI" {
		if len(data) != 7 {
			return nil, d.fail("remote TI", fmt.Errorf("%w: %d", ErrUnsupportedLength, len(data)))
		}
		date := time.Date(int(binary.BigEndian.Uint16(data)), time.Month(data[2]), int(data[3]),
			int(data[4]), int(data[5]), int(data[6]), 0, time.Local)
		cmd.Date = &date
		return cmd, nil
	}

	cmd.Data = data
	return cmd, nil
}

func (d *Decoder) nextFrame() (Command, error) {
	hdr, err := d.read("escpr header", 9)
	if err != nil {
		return nil, err
	}
	class := hdr[0]
	length := binary.LittleEndian.Uint32(hdr[1:5])
	code := string(hdr[5:9])

	if length > maxFramePayload {
		return nil, d.fail("escpr header", fmt.Errorf("%w: %d", ErrUnsupportedLength, length))
	}
	p, err := d.read("escpr payload", int(length))
	if err != nil {
		return nil, err
	}

	badLength := func() (Command, error) {
		return nil, d.fail(fmt.Sprintf("escpr %c/%s", class, code), fmt.Errorf("%w: %d", ErrUnsupportedLength, len(p)))
	}

	switch {
	case class == 'd' && code == "dsnd":
		if len(p) < 7 {
			return badLength()
		}
		return RasterLine{
			X:        binary.BigEndian.Uint16(p),
			Y:        binary.BigEndian.Uint16(p[2:]),
			Compress: p[4],
			Length:   binary.BigEndian.Uint16(p[5:]),
			Data:     p[7:],
		}, nil

	case class == 'j' && code == "endj":
		d.mode = ModeESCP
		return RasterEndJob{}, nil

	case class == 'j' && code == "setj":
		if len(p) != 22 {
			return badLength()
		}
		width := binary.BigEndian.Uint32(p)
		height := binary.BigEndian.Uint32(p[4:])
		top := uint32(binary.BigEndian.Uint16(p[8:]))
		left := uint32(binary.BigEndian.Uint16(p[10:]))
		printWidth := binary.BigEndian.Uint32(p[12:])
		printHeight := binary.BigEndian.Uint32(p[16:])
		dpi, ok := resolutions[p[20]]
		if !ok {
			dpi = 360
		}
		return RasterJob{
			PaperWidth:  width,
			PaperHeight: height,
			Margin:      [4]uint32{left, top, width - left - printWidth, height - top - printHeight},
			DPI:         dpi,
			Direction:   PrintDirection(p[21]),
		}, nil

	case class == 'q' && code == "setq":
		if len(p) < 9 {
			return badLength()
		}
		cmd := RasterQuality{
			MediaType:  MediaType(p[0]),
			Quality:    MediaQuality(p[1]),
			ColorMode:  ColorMode(p[2]),
			Brightness: int8(p[3]),
			Contrast:   int8(p[4]),
			Saturation: int8(p[5]),
			ColorPlane: ColorPlane(p[6]),
		}
		paletteLen := int(binary.BigEndian.Uint16(p[7:]))
		if paletteLen > len(p)-9 {
			return badLength()
		}
		if paletteLen > 0 {
			cmd.Palette = p[9 : 9+paletteLen]
		}
		return cmd, nil

	default:
		cmd := RasterFrame{Class: class, Code: code}
		if len(p) > 0 {
			cmd.Data = p
		}
		return cmd, nil
	}
}

func (d *Decoder) byte(op string) (byte, error) {
	b, err := d.r.ReadByte()
	if err != nil {
		return 0, d.fail(op, err)
	}
	return b, nil
}

// read returns the next n bytes. Large reads grow with the data actually
// received, so a declared length alone cannot force a big allocation.
func (d *Decoder) read(op string, n int) ([]byte, error) {
	if n <= preallocLimit {
		buf := make([]byte, n)
		if _, err := io.ReadFull(d.r, buf); err != nil {
			return nil, d.fail(op, err)
		}
		return buf, nil
	}

	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, d.r, int64(n)); err != nil {
		return nil, d.fail(op, err)
	}
	return buf.Bytes(), nil
}

// fail classifies err. Transport failures pass through unchanged so callers
// can match them with errors.As.
func (d *Decoder) fail(op string, err error) error {
	switch {
	case transport.IsTransportError(err):
		return err
	case errors.Is(err, io.EOF), errors.Is(err, io.ErrUnexpectedEOF):
		err = ErrTruncated
	case errors.Is(err, rle.ErrLengthMismatch):
		err = fmt.Errorf("%w: %v", ErrLengthMismatch, err)
	}
	return &DecodeError{Op: op, Offset: d.r.n, Err: err}
}

type countingReader struct {
	r *bufio.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}
