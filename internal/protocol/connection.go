// internal/protocol/connection.go
package protocol

import (
	"time"

	"escpr-service/internal/model"
)

// Settings selects a connection type and carries the configuration for each
type Settings struct {
	Type   model.ConnectionType `json:"type"`
	File   FileConfig           `json:"file"`
	Serial SerialConfig         `json:"serial"`
	USB    USBConfig            `json:"usb"`
	TCP    TCPConfig            `json:"tcp"`
}

// FileConfig represents a capture file connection
type FileConfig struct {
	Path     string `json:"path"`
	Compress bool   `json:"compress"`
	Append   bool   `json:"append"`
}

// SerialConfig represents serial connection configuration
type SerialConfig struct {
	Port     string        `json:"port"`
	BaudRate int           `json:"baud_rate"`
	DataBits int           `json:"data_bits"`
	StopBits int           `json:"stop_bits"`
	Parity   string        `json:"parity"`
	Timeout  time.Duration `json:"timeout"`
}

// USBConfig represents USB connection configuration
type USBConfig struct {
	VendorID     string        `json:"vendor_id"`
	ProductID    string        `json:"product_id"`
	Config       int           `json:"config"`
	Interface    int           `json:"interface"`
	AltSetting   int           `json:"alt_setting"`
	OutEndpoint  int           `json:"out_endpoint"`
	InEndpoint   int           `json:"in_endpoint"`
	SerialNumber string        `json:"serial_number"`
	Timeout      time.Duration `json:"timeout"`
}

// TCPConfig represents a raw print port connection (port 9100 by default)
type TCPConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	SSL          bool          `json:"ssl"`
	KeepAlive    bool          `json:"keep_alive"`
	Timeout      time.Duration `json:"timeout"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
}

// Epson's USB vendor ID and the bulk endpoint numbers (without the direction
// bit) of its inkjet printer interface
const (
	EpsonVendorID      = "04B8"
	DefaultOutEndpoint = 1
	DefaultInEndpoint  = 2
	DefaultRawPort     = 9100
)
