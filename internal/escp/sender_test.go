package escp

import (
	"bytes"
	"errors"
	"testing"
	"time"

	"escpr-service/internal/transport"
)

func newTestSender() (*Sender, *transport.Buffer) {
	buf := transport.NewBuffer(nil)
	s := NewSender(buf)
	s.Now = func() time.Time { return time.Date(2024, 2, 29, 13, 5, 9, 0, time.Local) }
	return s, buf
}

func TestPaperPath(t *testing.T) {
	tests := []struct {
		path PaperPath
		want []byte
	}{
		{PathAuto, []byte{1, 0xFF}},
		{PathRear, []byte{1, 0}},
		{PathFront3, []byte{1, 3}},
		{PathCDTray, []byte{2, 1}},
		{PathRoll, []byte{3, 0}},
		{PathManual, []byte{2, 0}},
		{PathManual2, []byte{1, 0xFF}},
	}

	for _, tt := range tests {
		s, buf := newTestSender()
		if err := s.PaperPath(tt.path); err != nil {
			t.Fatalf("PaperPath(%d) error = %v", tt.path, err)
		}
		want := append([]byte("PP\x03\x00\x00"), tt.want...)
		if got := buf.Bytes(); !bytes.Equal(got, want) {
			t.Fatalf("PaperPath(%d) = % x, want % x", tt.path, got, want)
		}
	}
}

func TestRemoteFrames(t *testing.T) {
	tests := []struct {
		name string
		send func(*Sender) error
		want string
	}{
		{"time", (*Sender).TimeInit, "TI\x08\x00\x00\x07\xe8\x02\x1d\x0d\x05\x09"},
		{"job start", func(s *Sender) error { return s.JobStart("") }, "JS\x04\x00\x00\x00\x00\x00"},
		{"named job start", func(s *Sender) error { return s.JobStart("ab") }, "JS\x04\x00\x00ab\x00"},
		{"hardware", func(s *Sender) error { return s.HardwareDevice(PlatformLinux) }, "HD\x03\x00\x00\x03\x04"},
		{"duplex", func(s *Sender) error { return s.Duplex(true) }, "DP\x02\x00\x00\x02"},
		{"leave duplex", func(s *Sender) error { return s.Duplex(false) }, "LD\x01\x00\x00"},
		{"job end", (*Sender).JobEnd, "JE\x01\x00\x00"},
		{"enter", (*Sender).EnterRemote, "\x1b(R\x08\x00\x00REMOTE1"},
		{"exit", (*Sender).ExitRemote, "\x1b\x00\x00\x00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, buf := newTestSender()
			if err := tt.send(s); err != nil {
				t.Fatalf("send error = %v", err)
			}
			if got := buf.Bytes(); !bytes.Equal(got, []byte(tt.want)) {
				t.Fatalf("frame = % x, want % x", got, []byte(tt.want))
			}
		})
	}
}

// TestJobHeaderIncrementsID verifies each header takes the next job id.
func TestJobHeaderIncrementsID(t *testing.T) {
	s, buf := newTestSender()
	if err := s.JobHeader(0, "a"); err != nil {
		t.Fatal(err)
	}
	if err := s.JobHeader(0, "b"); err != nil {
		t.Fatal(err)
	}

	want := "JH\x07\x00\x00\x00\x00\x00\x00\x00a" + "JH\x07\x00\x00\x00\x00\x00\x00\x01b"
	if got := buf.Bytes(); !bytes.Equal(got, []byte(want)) {
		t.Fatalf("frames = % x, want % x", got, []byte(want))
	}

	if err := s.JobHeaderID(0, 41, "c"); err != nil {
		t.Fatal(err)
	}
	if s.NextJobID() != 42 {
		t.Fatalf("NextJobID() = %d, want 42", s.NextJobID())
	}
}

func TestSetUnit(t *testing.T) {
	tests := []struct {
		p, h, v int
		want    string
	}{
		{360, 360, 360, "\x1b(U\x01\x00\x0a"},
		{720, 720, 720, "\x1b(U\x01\x00\x05"},
		{720, 360, 180, "\x1b(U\x05\x00\x01\x04\x02\xd0\x02"},
	}

	for _, tt := range tests {
		s, buf := newTestSender()
		if err := s.SetUnit(tt.p, tt.h, tt.v); err != nil {
			t.Fatalf("SetUnit(%d, %d, %d) error = %v", tt.p, tt.h, tt.v, err)
		}
		if got := buf.Bytes(); !bytes.Equal(got, []byte(tt.want)) {
			t.Fatalf("SetUnit(%d, %d, %d) = % x, want % x", tt.p, tt.h, tt.v, got, []byte(tt.want))
		}
	}

	s, _ := newTestSender()
	if err := s.SetUnit(0, 360, 360); err == nil {
		t.Fatal("SetUnit(0, ...) error = nil, want error")
	}
}

func TestPageFormat(t *testing.T) {
	s, buf := newTestSender()
	w, h, err := s.PageFormat(PaperLetter, Margin{Left: 3, Top: 3, Right: 3, Bottom: 3}, 360)
	if err != nil {
		t.Fatalf("PageFormat() error = %v", err)
	}
	if w != 2975 || h != 3875 {
		t.Fatalf("PageFormat() = %d x %d, want 2975 x 3875", w, h)
	}

	cmds, err := NewDecoder(buf).All()
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	if pf, ok := cmds[0].(PageFormat); !ok || pf.Top != 42 || pf.Bottom != 3917 {
		t.Fatalf("decoded = %#v, want PageFormat{42, 3917}", cmds[0])
	}
}

func TestSetters(t *testing.T) {
	tests := []struct {
		name string
		send func(*Sender) error
		want string
	}{
		{"direction", func(s *Sender) error { return s.Direction(DirectionUnidirectional) }, "\x1bU\x01"},
		{"graphics", (*Sender).GraphicsMode, "\x1b(G\x01\x00\x01"},
		{"color mode", func(s *Sender) error { return s.ColorMode(ColorModeMonochrome) }, "\x1b(K\x02\x00\x00\x01"},
		{"resolution", func(s *Sender) error { return s.ImageResolution(360, 120) }, "\x1b(D\x04\x00\xa0\x05\x04\x0c"},
		{"dimension", func(s *Sender) error { return s.PaperDimension(PaperA4, 360) }, "\x1b(S\x08\x00\xa0\x0b\x00\x00\x71\x10\x00\x00"},
		{"method", func(s *Sender) error { return s.PrintMethod(DefaultPrintMethod) }, "\x1b(m\x01\x00\x12"},
		{"vertical", func(s *Sender) error { return s.VerticalPosition(0x0102) }, "\x1b(V\x04\x00\x02\x01\x00\x00"},
		{"vertical inc", func(s *Sender) error { return s.VerticalIncrement(1) }, "\x1b(v\x04\x00\x01\x00\x00\x00"},
		{"horizontal", func(s *Sender) error { return s.HorizontalPosition(42) }, "\x1b($\x04\x00\x2a\x00\x00\x00"},
		{"horizontal inc", func(s *Sender) error { return s.HorizontalIncrement(2) }, "\x1b(/\x04\x00\x02\x00\x00\x00"},
		{"form feed", (*Sender).FormFeed, "\x0c"},
		{"init", (*Sender).InitPrinter, "\x1b@"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, buf := newTestSender()
			if err := tt.send(s); err != nil {
				t.Fatalf("send error = %v", err)
			}
			if got := buf.Bytes(); !bytes.Equal(got, []byte(tt.want)) {
				t.Fatalf("frame = % x, want % x", got, []byte(tt.want))
			}
		})
	}
}

func TestSendLine(t *testing.T) {
	s, buf := newTestSender()

	if err := s.SendLine(ColorBlack, nil, 1, true); err != nil {
		t.Fatal(err)
	}
	if buf.Len() != 0 {
		t.Fatalf("empty line wrote %d bytes, want 0", buf.Len())
	}

	if err := s.SendLine(ColorYellow, []byte{0xAB, 0xCD}, 1, false); err != nil {
		t.Fatal(err)
	}
	want := []byte{ESC, 'i', 3, 0, 1, 2, 0, 1, 0, 0xAB, 0xCD}
	if got := buf.Bytes(); !bytes.Equal(got, want) {
		t.Fatalf("raw line = % x, want % x", got, want)
	}

	s, buf = newTestSender()
	line := bytes.Repeat([]byte{0xFF}, 40)
	if err := s.SendLine(ColorMagenta, line, 1, true); err != nil {
		t.Fatal(err)
	}
	cmds, err := NewDecoder(buf).All()
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	r, ok := cmds[0].(Raster)
	if !ok || !r.Compressed || r.Color != ColorMagenta || !bytes.Equal(r.Data, line) {
		t.Fatalf("decoded = %#v, want compressed magenta line", cmds[0])
	}
}

// TestSendWrapsTransportErrors verifies plain sink errors surface as
// transport errors.
func TestSendWrapsTransportErrors(t *testing.T) {
	sink := &failingTransport{err: errors.New("disk full")}
	s := NewSender(sink)

	err := s.InitPrinter()
	if !transport.IsTransportError(err) {
		t.Fatalf("InitPrinter() error = %v, want TransportError", err)
	}
	if !errors.Is(err, sink.err) {
		t.Fatalf("InitPrinter() error = %v, want wrapped %v", err, sink.err)
	}
}

// TestTimeInitRoundTrip verifies the decoder recovers the encoded clock.
func TestTimeInitRoundTrip(t *testing.T) {
	s, buf := newTestSender()
	if err := s.EnterRemote(); err != nil {
		t.Fatal(err)
	}
	if err := s.TimeInit(); err != nil {
		t.Fatal(err)
	}

	cmds, err := NewDecoder(buf).All()
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	ti := cmds[1].(Remote)
	if ti.Date == nil || !ti.Date.Equal(s.Now()) {
		t.Fatalf("TI date = %v, want %v", ti.Date, s.Now())
	}
}
