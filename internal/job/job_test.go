package job

import (
	"bytes"
	"errors"
	"reflect"
	"testing"
	"time"

	"escpr-service/internal/escp"
	"escpr-service/internal/raster"
	"escpr-service/internal/rle"
	"escpr-service/internal/transport"
)

var fixedClock = WithClock(func() time.Time {
	return time.Date(2025, 6, 1, 9, 30, 0, 0, time.Local)
})

func decodeNames(t *testing.T, buf *transport.Buffer) ([]escp.Command, []string) {
	t.Helper()
	cmds, err := escp.NewDecoder(buf).All()
	if err != nil {
		t.Fatalf("decode error = %v", err)
	}
	names := make([]string, len(cmds))
	for i, c := range cmds {
		names[i] = escp.Describe(c)
	}
	return cmds, names
}

func remoteSetupNames() []string {
	return []string{
		"enter_protocol", "remote:TI", "remote:JS", "remote:JH", "remote:HD",
		"remote:PP", "remote:LD", "remote_exit",
	}
}

// TestPlainJobRoundTrip verifies a plain job decodes back to the full
// command sequence.
func TestPlainJobRoundTrip(t *testing.T) {
	buf := transport.NewBuffer(nil)
	cfg := DefaultPlainConfig()
	cfg.ColorMode = escp.ColorModeMonochrome

	var progress []int
	j := NewPlain(buf, cfg, fixedClock, WithProgress(func(page, total int) {
		progress = append(progress, page, total)
	}))
	page := &raster.Solid{Width: 10, Height: 10}
	if err := j.Print([]raster.Source{page}); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	want := []string{"char", "char", "char", "exit_packet_mode"}
	want = append(want, remoteSetupNames()...)
	want = append(want,
		"init_printer", "graphics_mode", "unit", "unidirectional", "color_mode",
		"raster_resolution", "page_format", "paper_dimension", "print_method",
		"vertical_position",
	)
	for y := 0; y < 10; y++ {
		for c := 0; c < 4; c++ {
			want = append(want, "horizontal_position", "raster")
		}
		want = append(want, "vertical_position")
	}
	want = append(want, "special:FF", "init_printer", "enter_protocol", "remote:JE", "remote_exit")

	cmds, names := decodeNames(t, buf)
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("sequence =\n%v\nwant\n%v", names, want)
	}

	var colors []escp.ColorIndex
	for _, c := range cmds {
		if r, ok := c.(escp.Raster); ok {
			if !r.Compressed || r.Width != 16 || !bytes.Equal(r.Data, []byte{0xFF, 0xFF}) {
				t.Fatalf("raster = %#v", r)
			}
			colors = append(colors, r.Color)
		}
		if cm, ok := c.(escp.ColorModeSelect); ok && cm.Mode != escp.ColorModeMonochrome {
			t.Fatalf("color mode = %v, want monochrome", cm.Mode)
		}
	}
	if !reflect.DeepEqual(colors[:4], []escp.ColorIndex{0, 1, 2, 3}) {
		t.Fatalf("plane order = %v, want 0 1 2 3", colors[:4])
	}

	if !reflect.DeepEqual(progress, []int{1, 1}) {
		t.Fatalf("progress = %v, want [1 1]", progress)
	}
	if j.State() != StateEnd {
		t.Fatalf("state = %v, want end", j.State())
	}
}

// TestPlainJobSkipsEmptyPlanes verifies planes without ink send only the
// cursor position.
func TestPlainJobSkipsEmptyPlanes(t *testing.T) {
	buf := transport.NewBuffer(nil)
	j := NewPlain(buf, DefaultPlainConfig(), fixedClock)
	if err := j.Print([]raster.Source{raster.NewTestPattern(10, 10)}); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	_, names := decodeNames(t, buf)
	counts := map[string]int{}
	for _, n := range names {
		counts[n]++
	}
	if counts["raster"] != 0 || counts["horizontal_position"] != 40 {
		t.Fatalf("raster = %d, horizontal_position = %d, want 0 and 40", counts["raster"], counts["horizontal_position"])
	}
}

func TestPlainJobGeometry(t *testing.T) {
	buf := transport.NewBuffer(nil)
	j := NewPlain(buf, DefaultPlainConfig(), fixedClock)
	if err := j.Print(nil); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	cmds, _ := decodeNames(t, buf)
	for _, c := range cmds {
		switch v := c.(type) {
		case escp.Unit:
			if v.Extended || v.Page != 10 {
				t.Fatalf("unit = %#v, want simple 1/360", v)
			}
		case escp.RasterResolution:
			if v.Base != 1440 || v.VDiv != 4 || v.HDiv != 4 {
				t.Fatalf("resolution = %#v", v)
			}
		case escp.PaperDimension:
			if v.Width != 3060 || v.Height != 3960 {
				t.Fatalf("paper dimension = %#v, want 3060 x 3960", v)
			}
		case escp.Remote:
			if v.Code == "TI" && (v.Date == nil || v.Date.Year() != 2025 || v.Date.Hour() != 9) {
				t.Fatalf("TI = %v", v.Date)
			}
			if v.Code == "PP" && !bytes.Equal(v.Data, []byte{1, 0xFF}) {
				t.Fatalf("PP = % x, want 01 ff", v.Data)
			}
		}
	}
}

// TestRasterJobRoundTrip verifies an ESC/P-R job decodes back to its frames
// and each dsnd expands to the source line.
func TestRasterJobRoundTrip(t *testing.T) {
	buf := transport.NewBuffer(nil)
	j := NewRaster(buf, DefaultRasterConfig(), fixedClock, WithJobID(7))

	page := raster.NewTestPattern(8, 3)
	if err := j.Print([]raster.Source{page, page}); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	want := []string{"char", "char", "char", "exit_packet_mode", "init_printer"}
	want = append(want, remoteSetupNames()...)
	want = append(want, "enter_protocol", "escpr_quality", "escpr_job")
	for p := 0; p < 2; p++ {
		want = append(want, "escpr:p/sttp", "escpr:p/setn", "escpr_line", "escpr_line", "escpr_line", "escpr:p/endp")
	}
	want = append(want, "escpr_end_job", "init_printer", "enter_protocol", "remote:LD", "remote:JE", "remote_exit")

	cmds, names := decodeNames(t, buf)
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("sequence =\n%v\nwant\n%v", names, want)
	}

	var lines []escp.RasterLine
	var pageNums, remaining []byte
	for _, c := range cmds {
		switch v := c.(type) {
		case escp.RasterLine:
			lines = append(lines, v)
		case escp.RasterFrame:
			if v.Code == "setn" {
				pageNums = append(pageNums, v.Data[0])
			}
			if v.Code == "endp" {
				remaining = append(remaining, v.Data[0])
			}
		case escp.Remote:
			if v.Code == "JH" && !bytes.Equal(v.Data[1:5], []byte{0, 0, 0, 7}) {
				t.Fatalf("JH id = % x, want 00 00 00 07", v.Data[1:5])
			}
		case escp.RasterQuality:
			if v.Quality != escp.QualityHigh {
				t.Fatalf("quality = %v, want high", v.Quality)
			}
		}
	}

	for i, line := range lines {
		y := i % 3
		if int(line.Y) != y || line.Compress != 1 {
			t.Fatalf("line %d = %#v", i, line)
		}
		got, err := rle.Expand(line.Data, 3)
		if err != nil {
			t.Fatalf("Expand() error = %v", err)
		}
		if !bytes.Equal(got, page.Line(y)) {
			t.Fatalf("line %d expands to % x, want % x", i, got, page.Line(y))
		}
	}
	if !bytes.Equal(pageNums, []byte{1, 2}) || !bytes.Equal(remaining, []byte{1, 0}) {
		t.Fatalf("page numbers = %v, remaining = %v", pageNums, remaining)
	}
}

func TestRasterJobJPEG(t *testing.T) {
	buf := transport.NewBuffer(nil)
	cfg := DefaultRasterConfig()
	cfg.ColorPlane = escp.PlaneJPEG
	cfg.Layout = escp.LayoutBorderless
	j := NewRaster(buf, cfg, fixedClock)

	if err := j.Print([]raster.Source{raster.NewTestPattern(1, 1)}); err == nil {
		t.Fatal("Print() in JPEG mode error = nil, want error")
	}
	if err := j.PrintJPEG([][]byte{{0xFF, 0xD8, 0xFF, 0xD9}}, 2); err != nil {
		t.Fatalf("PrintJPEG() error = %v", err)
	}

	_, names := decodeNames(t, buf)
	want := []string{"char", "char", "char", "exit_packet_mode", "init_printer"}
	want = append(want, remoteSetupNames()...)
	want = append(want,
		"enter_protocol", "escpr_quality", "escpr:a/seta", "escpr:c/setc", "escpr_job", "escpr:j/sets",
		"escpr:p/sttp", "escpr:p/setn", "escpr:d/jsnd", "escpr:p/endp",
		"escpr_end_job", "init_printer", "enter_protocol", "remote:LD", "remote:JE", "remote_exit",
	)
	if !reflect.DeepEqual(names, want) {
		t.Fatalf("sequence =\n%v\nwant\n%v", names, want)
	}
}

// TestDiscMediaForcesCDTray verifies CD/DVD media overrides path and layout.
func TestDiscMediaForcesCDTray(t *testing.T) {
	for _, mt := range []escp.MediaType{escp.MediaCDDVD, escp.MediaCDDVDGlossy} {
		cfg := DefaultRasterConfig()
		cfg.MediaType = mt

		buf := transport.NewBuffer(nil)
		j := NewRaster(buf, cfg, fixedClock)
		if got := j.Config(); got.PaperPath != escp.PathCDTray || got.Layout != escp.LayoutCDLabel {
			t.Fatalf("media %d: path = %d, layout = %d", mt, got.PaperPath, got.Layout)
		}
		if err := j.Print(nil); err != nil {
			t.Fatalf("Print() error = %v", err)
		}

		cmds, _ := decodeNames(t, buf)
		for _, c := range cmds {
			if r, ok := c.(escp.Remote); ok && r.Code == "PP" && !bytes.Equal(r.Data, []byte{2, 1}) {
				t.Fatalf("PP = % x, want 02 01", r.Data)
			}
		}
	}
}

func TestDuplexTeardown(t *testing.T) {
	cfg := DefaultPlainConfig()
	cfg.Duplex = true

	buf := transport.NewBuffer(nil)
	if err := NewPlain(buf, cfg, fixedClock).Print(nil); err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	_, names := decodeNames(t, buf)
	tail := names[len(names)-5:]
	want := []string{"enter_protocol", "remote:LD", "remote:JE", "remote_exit"}
	if !reflect.DeepEqual(tail[1:], want) {
		t.Fatalf("teardown = %v, want init_printer %v", tail, want)
	}
	found := false
	for _, n := range names {
		if n == "remote:DP" {
			found = true
		}
	}
	if !found {
		t.Fatal("setup did not enable duplex")
	}
}

// TestJobRunsOnce verifies a finished job refuses to print again.
func TestJobRunsOnce(t *testing.T) {
	j := NewPlain(transport.NewBuffer(nil), DefaultPlainConfig(), fixedClock)
	if err := j.Print(nil); err != nil {
		t.Fatalf("first Print() error = %v", err)
	}
	if err := j.Print(nil); !errors.Is(err, ErrJobFinished) {
		t.Fatalf("second Print() error = %v, want ErrJobFinished", err)
	}

	r := NewRaster(transport.NewBuffer(nil), DefaultRasterConfig(), fixedClock)
	if err := r.Print(nil); err != nil {
		t.Fatalf("first Print() error = %v", err)
	}
	if err := r.Print(nil); !errors.Is(err, ErrJobFinished) {
		t.Fatalf("second Print() error = %v, want ErrJobFinished", err)
	}
}

type brokenSink struct {
	sent int
	fail int
}

func (b *brokenSink) Send([]byte) error {
	b.sent++
	if b.sent > b.fail {
		return errors.New("device unplugged")
	}
	return nil
}

func (b *brokenSink) Recv(int) ([]byte, error) {
	return nil, nil
}

// TestJobStopsOnTransportError verifies the first failed send ends the job.
func TestJobStopsOnTransportError(t *testing.T) {
	sink := &brokenSink{fail: 25}
	j := NewPlain(sink, DefaultPlainConfig(), fixedClock)

	err := j.Print([]raster.Source{&raster.Solid{Width: 8, Height: 8}})
	if !transport.IsTransportError(err) {
		t.Fatalf("Print() error = %v, want TransportError", err)
	}
	if sink.sent != 26 {
		t.Fatalf("sends = %d, want 26", sink.sent)
	}
	if j.State() != StateEnd {
		t.Fatalf("state = %v, want end", j.State())
	}
}
