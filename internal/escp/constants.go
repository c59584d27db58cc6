// internal/escp/constants.go
package escp

import (
	"sort"
	"strings"
)

// Control bytes
const (
	ESC = 0x1B
	LF  = 0x0A
	FF  = 0x0C
	CR  = 0x0D
)

// Mode is the decoder's current sub-protocol.
type Mode int

const (
	ModeESCP Mode = iota
	ModeRemote1
	ModeESCPR
)

func (m Mode) String() string {
	switch m {
	case ModeESCP:
		return "ESCP"
	case ModeRemote1:
		return "REMOTE1"
	case ModeESCPR:
		return "ESCPR"
	default:
		return "UNKNOWN"
	}
}

// PrintDirection (PD)
type PrintDirection byte

const (
	DirectionBidirectional  PrintDirection = 0
	DirectionUnidirectional PrintDirection = 1
	DirectionAuto           PrintDirection = 2
)

// MediaLayout (MLID)
type MediaLayout byte

const (
	LayoutCustom     MediaLayout = 0
	LayoutBorderless MediaLayout = 1 // 0mm borders
	LayoutBorders    MediaLayout = 2 // 3mm borders
	LayoutCDLabel    MediaLayout = 4
	LayoutDivide16   MediaLayout = 8 // 16 division mini photo sheets
)

// PaperPath (MPID)
type PaperPath int

const (
	PathAuto PaperPath = iota
	PathRear
	PathFront1
	PathFront2
	PathFront3
	PathFront4
	PathCDTray
	PathRoll
	PathManual
	PathManual2
)

// paperPaths maps a paper path to its REMOTE1 PP (destination, source) pair.
// Paths not listed fall back to automatic selection.
var paperPaths = map[PaperPath][2]byte{
	PathAuto:   {1, 0xFF},
	PathRear:   {1, 0},
	PathFront1: {1, 1},
	PathFront2: {1, 2},
	PathFront3: {1, 3},
	PathFront4: {1, 4},
	PathCDTray: {2, 1},
	PathRoll:   {3, 0},
	PathManual: {2, 0},
}

// PaperPathBytes returns the (destination, source) pair sent for path.
func PaperPathBytes(path PaperPath) (dst, src byte) {
	pair, ok := paperPaths[path]
	if !ok {
		pair = paperPaths[PathAuto]
	}
	return pair[0], pair[1]
}

var paperPathNames = map[string]PaperPath{
	"AUTO": PathAuto, "REAR": PathRear,
	"FRONT1": PathFront1, "FRONT2": PathFront2, "FRONT3": PathFront3, "FRONT4": PathFront4,
	"CDTRAY": PathCDTray, "ROLL": PathRoll, "MANUAL": PathManual, "MANUAL2": PathManual2,
}

// ParsePaperPath resolves a paper path by name.
func ParsePaperPath(name string) (PaperPath, bool) {
	p, ok := paperPathNames[strings.ToUpper(name)]
	return p, ok
}

// AutoCorrect (ACT) for the JPEG auto photo fix.
type AutoCorrect byte

const (
	AutoCorrectNothing   AutoCorrect = 0
	AutoCorrectStandard  AutoCorrect = 1
	AutoCorrectPIM       AutoCorrect = 2
	AutoCorrectPortrait  AutoCorrect = 3
	AutoCorrectView      AutoCorrect = 4
	AutoCorrectNightView AutoCorrect = 5
)

// RedEye (RDE)
type RedEye byte

const (
	RedEyeNothing RedEye = 0
	RedEyeCorrect RedEye = 1
)

// MediaQuality (MQID)
type MediaQuality byte

const (
	QualityDraft  MediaQuality = 0
	QualityNormal MediaQuality = 1
	QualityHigh   MediaQuality = 2
)

// ColorMode (CM)
type ColorMode byte

const (
	ColorModeColor      ColorMode = 0
	ColorModeMonochrome ColorMode = 1
	ColorModeSepia      ColorMode = 2
)

// ColorPlane (CP) selects how ESC/P-R image data is delivered.
type ColorPlane byte

const (
	PlaneFullColor ColorPlane = 0
	PlanePalette   ColorPlane = 1
	PlaneJPEG      ColorPlane = 2
	PlanePrintCmd  ColorPlane = 3
)

// ColorIndex (CI) is the ink selector carried by ESC i.
type ColorIndex byte

const (
	ColorBlack      ColorIndex = 0
	ColorMagenta    ColorIndex = 1
	ColorCyan       ColorIndex = 2
	ColorYellow     ColorIndex = 3
	ColorRed        ColorIndex = 7
	ColorBlue       ColorIndex = 8
	ColorGloss      ColorIndex = 9
	ColorBlackPhoto ColorIndex = 0x40
)

// MediaType (MTID)
type MediaType byte

const (
	MediaPlain             MediaType = 0
	MediaInkjet360         MediaType = 1
	MediaIron              MediaType = 2
	MediaPhotoInkjet       MediaType = 3
	MediaPhotoAdSheet      MediaType = 4
	MediaMatte             MediaType = 5
	MediaPhoto             MediaType = 6
	MediaPhotoFilm         MediaType = 7
	MediaMiniPhoto         MediaType = 8
	MediaTransparency      MediaType = 9
	MediaBacklight         MediaType = 10
	MediaPGPhoto           MediaType = 11
	MediaPSPhoto           MediaType = 12
	MediaPLPhoto           MediaType = 13
	MediaMCGlossy          MediaType = 14
	MediaArchMatte         MediaType = 15
	MediaWatercolor        MediaType = 16
	MediaProGloss          MediaType = 17
	MediaMatteBoard        MediaType = 18
	MediaPhotoGloss        MediaType = 19
	MediaSemiProof         MediaType = 20
	MediaSuperFine2        MediaType = 21
	MediaDSMatte           MediaType = 22
	MediaCLPhoto           MediaType = 23
	MediaEcoPhoto          MediaType = 24
	MediaVelvetFineArt     MediaType = 25
	MediaProofSemi         MediaType = 26
	MediaHagakiRecl        MediaType = 27
	MediaHagakiInkjet      MediaType = 28
	MediaPhotoInkjet2      MediaType = 29
	MediaDurabrite         MediaType = 30
	MediaMatteMeishi       MediaType = 31
	MediaHagakiAtena       MediaType = 32
	MediaPhotoAlbum        MediaType = 33
	MediaPhotoStand        MediaType = 34
	MediaRCB               MediaType = 35
	MediaUltraSmooth       MediaType = 39
	MediaSFHagaki          MediaType = 40
	MediaPhotoStd          MediaType = 41
	MediaGlossyHagaki      MediaType = 42
	MediaGlossyPhoto       MediaType = 43
	MediaGlossyCast        MediaType = 44
	MediaBusinessCoat      MediaType = 45
	MediaMedicineBag       MediaType = 46
	MediaThickPaper        MediaType = 47
	MediaBrochure          MediaType = 48
	MediaMatteDS           MediaType = 49
	MediaBSMatteDS         MediaType = 50
	Media3D                MediaType = 51
	MediaLCPP              MediaType = 52
	MediaPreprinted        MediaType = 53
	MediaLetterhead        MediaType = 54
	MediaRecycled          MediaType = 55
	MediaColor             MediaType = 56
	MediaPlainRollSticker  MediaType = 59
	MediaGlossyRollSticker MediaType = 60
	MediaCDDVD             MediaType = 92
	MediaCDDVDHigh         MediaType = 92
	MediaCDDVDGlossy       MediaType = 93
	MediaCleaning          MediaType = 99
	MediaUnknown           MediaType = 255
)

// IsDisc reports whether the media type is printed on the CD/DVD tray.
func (t MediaType) IsDisc() bool {
	return t == MediaCDDVD || t == MediaCDDVDHigh || t == MediaCDDVDGlossy
}

var mediaTypeNames = map[string]MediaType{
	"PLAIN": MediaPlain, "MATTE": MediaMatte, "PHOTO": MediaPhoto,
	"PGPHOTO": MediaPGPhoto, "PSPHOTO": MediaPSPhoto, "PLPHOTO": MediaPLPhoto,
	"GLOSSYPHOTO": MediaGlossyPhoto, "PHOTOSTD": MediaPhotoStd,
	"THICKPAPER": MediaThickPaper, "CDDVD": MediaCDDVD, "CDDVDGLOSSY": MediaCDDVDGlossy,
	"TRANSPARENCY": MediaTransparency, "IRON": MediaIron, "CLEANING": MediaCleaning,
}

// ParseMediaType resolves the commonly configured media types by name.
func ParseMediaType(name string) (MediaType, bool) {
	t, ok := mediaTypeNames[strings.ToUpper(name)]
	return t, ok
}

var qualityNames = map[string]MediaQuality{
	"DRAFT": QualityDraft, "NORMAL": QualityNormal, "HIGH": QualityHigh,
}

// ParseQuality resolves a print quality by name.
func ParseQuality(name string) (MediaQuality, bool) {
	q, ok := qualityNames[strings.ToUpper(name)]
	return q, ok
}

var layoutNames = map[string]MediaLayout{
	"CUSTOM": LayoutCustom, "BORDERLESS": LayoutBorderless, "BORDERS": LayoutBorders,
	"CDLABEL": LayoutCDLabel, "DIVIDE16": LayoutDivide16,
}

// ParseLayout resolves a media layout by name.
func ParseLayout(name string) (MediaLayout, bool) {
	l, ok := layoutNames[strings.ToUpper(name)]
	return l, ok
}

var directionNames = map[string]PrintDirection{
	"BIDIRECTIONAL": DirectionBidirectional, "UNIDIRECTIONAL": DirectionUnidirectional,
	"AUTO": DirectionAuto,
}

// ParseDirection resolves a print direction by name.
func ParseDirection(name string) (PrintDirection, bool) {
	d, ok := directionNames[strings.ToUpper(name)]
	return d, ok
}

var colorModeNames = map[string]ColorMode{
	"COLOR": ColorModeColor, "MONOCHROME": ColorModeMonochrome, "SEPIA": ColorModeSepia,
}

// ParseColorMode resolves a color mode by name.
func ParseColorMode(name string) (ColorMode, bool) {
	c, ok := colorModeNames[strings.ToUpper(name)]
	return c, ok
}

// Size is a paper size in millimeters.
type Size struct {
	Width  float64 `json:"width_mm"`
	Height float64 `json:"height_mm"`
}

// Margin holds page margins in millimeters.
type Margin struct {
	Left   float64 `json:"left_mm" mapstructure:"left"`
	Top    float64 `json:"top_mm" mapstructure:"top"`
	Right  float64 `json:"right_mm" mapstructure:"right"`
	Bottom float64 `json:"bottom_mm" mapstructure:"bottom"`
}

// Media sizes (MSID)
var (
	PaperA4     = Size{210.000, 297.000}
	PaperLetter = Size{215.900, 279.400}
	PaperLegal  = Size{215.900, 355.600}
	PaperA5     = Size{148.000, 210.000}
	PaperA6     = Size{105.000, 148.000}
	Paper4x6    = Size{101.600, 152.400}
	PaperL      = Size{88.900, 127.000}
	PaperA3     = Size{297.000, 420.000}
)

// PaperSizes lists every known media size by its MSID name.
var PaperSizes = map[string]Size{
	"A4":            PaperA4,
	"LETTER":        PaperLetter,
	"LEGAL":         PaperLegal,
	"A5":            PaperA5,
	"A6":            PaperA6,
	"B5":            {176.000, 250.000},
	"EXECUTIVE":     {184.150, 266.700},
	"HALFLETTER":    {127.000, 215.900},
	"PANORAMIC":     {210.000, 594.000},
	"TRIM_4X6":      {113.600, 164.400},
	"4X6":           Paper4x6,
	"5X8":           {127.000, 203.200},
	"8X10":          {203.200, 203.200},
	"10X15":         {254.000, 381.000},
	"200X300":       {200.000, 300.000},
	"L":             PaperL,
	"POSTCARD":      {100.000, 148.000},
	"DBLPOSTCARD":   {200.000, 148.000},
	"ENV_10_L":      {241.300, 104.775},
	"ENV_C6_L":      {162.000, 114.000},
	"ENV_DL_L":      {220.000, 110.000},
	"NEWEVN_L":      {220.000, 132.000},
	"CHOKEI_3":      {120.000, 235.000},
	"CHOKEI_4":      {90.000, 205.000},
	"YOKEI_1":       {120.000, 176.000},
	"YOKEI_2":       {114.000, 162.000},
	"YOKEI_3":       {98.000, 148.000},
	"YOKEI_4":       {105.000, 235.000},
	"2L":            {127.000, 177.800},
	"ENV_10_P":      {104.775, 241.300},
	"ENV_C6_P":      {114.000, 162.000},
	"ENV_DL_P":      {110.000, 220.000},
	"NEWENV_P":      {132.000, 220.000},
	"MEISHI":        {89.000, 55.000},
	"BUZCARD_89X50": {89.000, 50.000},
	"CARD_54X86":    {54.000, 86.000},
	"BUZCARD_55X91": {55.000, 91.000},
	"ALBUM_L":       {127.000, 198.000},
	"ALBUM_A5":      {210.000, 321.000},
	"PALBUM_L_L":    {127.000, 89.000},
	"PALBUM_2L":     {127.000, 177.900},
	"PALBUM_A5_L":   {210.000, 148.300},
	"PALBUM_A4":     {210.000, 296.300},
	"HIVISION":      {101.600, 180.600},
	"KAKU_2":        {240.000, 332.000},
	"ENV_C4_P":      {229.000, 324.000},
	"B6":            {128.000, 182.000},
	"KAKU_20":       {229.000, 324.000},
	"A5_24HOLE":     {148.000, 210.000},
	"A3NOBI":        {329.000, 483.000},
	"A3":            PaperA3,
	"B4":            {257.000, 364.000},
	"USB":           {279.400, 431.800},
	"US_11X14":      {279.400, 355.600},
	"B3":            {364.000, 515.000},
	"A2":            {420.000, 594.000},
	"USC":           {431.800, 558.800},
	"US_10X12":      {254.000, 304.800},
	"US_12X12":      {304.800, 304.800},
}

// ParsePaper resolves a media size by name, case-insensitively.
func ParsePaper(name string) (Size, bool) {
	s, ok := PaperSizes[strings.ToUpper(name)]
	return s, ok
}

// PaperNames returns the known media size names in sorted order.
func PaperNames() []string {
	names := make([]string, 0, len(PaperSizes))
	for name := range PaperSizes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Clamp limits v to [lo, hi].
func Clamp(lo, v, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// ToDots converts millimeters to device units at dpi. Multiplying by the
// reciprocal keeps whole-inch sizes from rounding up an extra dot.
func ToDots(mm float64, dpi int) float64 {
	return mm * (1.0 / 25.4) * float64(dpi)
}
