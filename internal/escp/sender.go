// internal/escp/sender.go
package escp

import (
	"encoding/binary"
	"fmt"
	"math"
	"time"

	"escpr-service/internal/rle"
	"escpr-service/internal/transport"
)

// Fixed frames
var (
	exitPacketMode = []byte("\x00\x00\x00\x1b\x01@EJL 1284.4\n@EJL     \n")
	initPrinter    = []byte{ESC, '@'}
	enterRemote    = []byte("\x1b(R\x08\x00\x00REMOTE1")
	exitRemote     = []byte{ESC, 0x00, 0x00, 0x00}
)

// REMOTE1 command codes
const (
	RemoteTimeInit       = "TI"
	RemoteJobStart       = "JS"
	RemoteJobHeader      = "JH"
	RemoteHardwareDevice = "HD"
	RemotePaperPath      = "PP"
	RemoteDuplexPath     = "DP"
	RemoteLeaveDuplex    = "LD"
	RemoteJobEnd         = "JE"
	RemoteLoadDefaults   = "LD"
)

const (
	// PlatformLinux is the source platform announced by HD.
	PlatformLinux byte = 4
	// DefaultPrintMethod is the ESC ( m argument used by every job.
	DefaultPrintMethod byte = 0x12

	resolutionBase = 1440
	unitBase       = 3600
)

// Sender frames primitive ESC/P and REMOTE1 commands onto a Transport.
// It keeps the job id counter, so one Sender serves one job stream at a time.
type Sender struct {
	t       transport.Transport
	lastJob uint32

	// Now supplies the clock for TI; defaults to time.Now.
	Now func() time.Time
}

// NewSender creates a sender writing to t.
func NewSender(t transport.Transport) *Sender {
	return &Sender{t: t, Now: time.Now}
}

// Send writes raw bytes. Failures are always reported as *transport.TransportError.
func (s *Sender) Send(data []byte) error {
	if err := s.t.Send(data); err != nil {
		if transport.IsTransportError(err) {
			return err
		}
		return &transport.TransportError{Op: "send", Err: err}
	}
	return nil
}

// ExitPacketMode leaves IEEE 1284.4 packet mode.
func (s *Sender) ExitPacketMode() error {
	return s.Send(exitPacketMode)
}

func (s *Sender) InitPrinter() error {
	return s.Send(initPrinter)
}

func (s *Sender) FormFeed() error {
	return s.Send([]byte{FF})
}

// EnterRemote switches the printer into REMOTE1.
func (s *Sender) EnterRemote() error {
	return s.Send(enterRemote)
}

// ExitRemote returns from REMOTE1 to ESC/P.
func (s *Sender) ExitRemote() error {
	return s.Send(exitRemote)
}

// RemoteCmd frames a REMOTE1 command: code, u16-LE length of data+1,
// the response byte, then data.
func (s *Sender) RemoteCmd(code string, data []byte, response byte) error {
	if len(code) != 2 {
		return fmt.Errorf("remote code %q must be 2 bytes", code)
	}
	if len(data)+1 > math.MaxUint16 {
		return fmt.Errorf("remote %s payload too large: %d bytes", code, len(data))
	}

	frame := make([]byte, 0, 5+len(data))
	frame = append(frame, code...)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(data)+1))
	frame = append(frame, response)
	frame = append(frame, data...)
	return s.Send(frame)
}

// TimeInit sends the local wall clock time.
func (s *Sender) TimeInit() error {
	now := s.Now()
	data := binary.BigEndian.AppendUint16(nil, uint16(now.Year()))
	data = append(data, byte(now.Month()), byte(now.Day()), byte(now.Hour()), byte(now.Minute()), byte(now.Second()))
	return s.RemoteCmd(RemoteTimeInit, data, 0)
}

// JobStart marks the start of a job. An empty name sends the anonymous form.
func (s *Sender) JobStart(name string) error {
	data := []byte{0, 0, 0}
	if name != "" {
		data = append([]byte(name), 0)
	}
	return s.RemoteCmd(RemoteJobStart, data, 0)
}

// JobHeader names the job and assigns it the next job id.
func (s *Sender) JobHeader(jobType byte, name string) error {
	return s.JobHeaderID(jobType, s.lastJob, name)
}

// JobHeaderID names the job with an explicit id. Later JobHeader calls
// continue from id+1.
func (s *Sender) JobHeaderID(jobType byte, id uint32, name string) error {
	data := []byte{jobType}
	data = binary.BigEndian.AppendUint32(data, id)
	data = append(data, name...)
	if err := s.RemoteCmd(RemoteJobHeader, data, 0); err != nil {
		return err
	}
	s.lastJob = id + 1
	return nil
}

// NextJobID returns the id the next JobHeader call will use.
func (s *Sender) NextJobID() uint32 {
	return s.lastJob
}

func (s *Sender) HardwareDevice(platform byte) error {
	return s.RemoteCmd(RemoteHardwareDevice, []byte{3, platform}, 0)
}

// PaperPath selects the paper source and destination.
func (s *Sender) PaperPath(path PaperPath) error {
	dst, src := PaperPathBytes(path)
	return s.RemoteCmd(RemotePaperPath, []byte{dst, src}, 0)
}

// Duplex enables duplex printing, or leaves duplex when enable is false.
func (s *Sender) Duplex(enable bool) error {
	if enable {
		return s.RemoteCmd(RemoteDuplexPath, []byte{2}, 0)
	}
	return s.RemoteCmd(RemoteLeaveDuplex, nil, 0)
}

func (s *Sender) JobEnd() error {
	return s.RemoteCmd(RemoteJobEnd, nil, 0)
}

// LoadDefaults restores the printer's default settings at the end of a raster job.
func (s *Sender) LoadDefaults() error {
	return s.RemoteCmd(RemoteLoadDefaults, nil, 0)
}

// SendExt frames an ESC ( command with a u16-LE payload length.
func (s *Sender) SendExt(code byte, data []byte) error {
	if len(data) > math.MaxUint16 {
		return fmt.Errorf("ESC ( %c payload too large: %d bytes", code, len(data))
	}
	frame := make([]byte, 0, 5+len(data))
	frame = append(frame, ESC, '(', code)
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(data)))
	frame = append(frame, data...)
	return s.Send(frame)
}

func (s *Sender) Direction(pd PrintDirection) error {
	return s.Send([]byte{ESC, 'U', byte(pd)})
}

// GraphicsMode selects raster graphics mode.
func (s *Sender) GraphicsMode() error {
	return s.SendExt('G', []byte{1})
}

func (s *Sender) ColorMode(cm ColorMode) error {
	return s.SendExt('K', []byte{0, byte(cm)})
}

// ImageResolution sets the raster resolution as divisors of 1440.
func (s *Sender) ImageResolution(hDPI, vDPI int) error {
	if err := checkDPI(hDPI, vDPI); err != nil {
		return err
	}
	data := binary.LittleEndian.AppendUint16(nil, resolutionBase)
	data = append(data, byte(resolutionBase/hDPI), byte(resolutionBase/vDPI))
	return s.SendExt('D', data)
}

// SetUnit sets the page, vertical and horizontal units. When all three
// resolutions match the single-byte form is used.
func (s *Sender) SetUnit(pDPI, hDPI, vDPI int) error {
	if err := checkDPI(pDPI, hDPI, vDPI); err != nil {
		return err
	}
	base := max(pDPI, hDPI, vDPI)
	if base == min(pDPI, hDPI, vDPI) {
		return s.SendExt('U', []byte{byte(unitBase / pDPI)})
	}

	data := []byte{byte(base / pDPI), byte(base / vDPI), byte(base / hDPI)}
	data = binary.LittleEndian.AppendUint16(data, uint16(base))
	return s.SendExt('U', data)
}

// PageFormat sets the top and bottom printable limits and returns the
// printable width and height in device units.
func (s *Sender) PageFormat(paper Size, margin Margin, dpi int) (width, height int, err error) {
	if err := checkDPI(dpi); err != nil {
		return 0, 0, err
	}
	top := int(ToDots(margin.Top, dpi))
	bottom := int(ToDots(paper.Height-margin.Bottom, dpi))
	left := int(ToDots(margin.Left, dpi))
	right := int(ToDots(paper.Width-margin.Right, dpi))

	data := binary.LittleEndian.AppendUint32(nil, uint32(top))
	data = binary.LittleEndian.AppendUint32(data, uint32(bottom))
	if err := s.SendExt('c', data); err != nil {
		return 0, 0, err
	}
	return right - left, bottom - top, nil
}

// PaperDimension sends the full paper size, rounded to device units.
func (s *Sender) PaperDimension(paper Size, dpi int) error {
	if err := checkDPI(dpi); err != nil {
		return err
	}
	data := binary.LittleEndian.AppendUint32(nil, uint32(math.Round(ToDots(paper.Width, dpi))))
	data = binary.LittleEndian.AppendUint32(data, uint32(math.Round(ToDots(paper.Height, dpi))))
	return s.SendExt('S', data)
}

func (s *Sender) PrintMethod(method byte) error {
	return s.SendExt('m', []byte{method})
}

func (s *Sender) VerticalPosition(y uint32) error {
	return s.SendExt('V', binary.LittleEndian.AppendUint32(nil, y))
}

func (s *Sender) VerticalIncrement(y uint32) error {
	return s.SendExt('v', binary.LittleEndian.AppendUint32(nil, y))
}

func (s *Sender) HorizontalPosition(x uint32) error {
	return s.SendExt('$', binary.LittleEndian.AppendUint32(nil, x))
}

func (s *Sender) HorizontalIncrement(x uint32) error {
	return s.SendExt('/', binary.LittleEndian.AppendUint32(nil, x))
}

// SendLine transfers one raster line for a single ink. Empty lines are
// skipped.
func (s *Sender) SendLine(color ColorIndex, line []byte, bpp int, compressed bool) error {
	if len(line) == 0 {
		return nil
	}
	if len(line) > math.MaxUint16 {
		return fmt.Errorf("raster line too long: %d bytes", len(line))
	}

	var cmode byte
	if compressed {
		cmode = 1
	}
	frame := []byte{ESC, 'i', byte(color), cmode, byte(bpp)}
	frame = binary.LittleEndian.AppendUint16(frame, uint16(len(line)))
	frame = binary.LittleEndian.AppendUint16(frame, 1)
	if compressed {
		frame = append(frame, rle.Encode(line, 1)...)
	} else {
		frame = append(frame, line...)
	}
	return s.Send(frame)
}

func checkDPI(dpis ...int) error {
	for _, dpi := range dpis {
		if dpi <= 0 {
			return fmt.Errorf("invalid resolution %d dpi", dpi)
		}
	}
	return nil
}
