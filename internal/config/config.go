// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Printer PrinterConfig `mapstructure:"printer"`
	Job     JobConfig     `mapstructure:"job"`
	App     AppConfig     `mapstructure:"app"`
}

// ServerConfig represents HTTP server configuration
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           string        `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	IdleTimeout    time.Duration `mapstructure:"idle_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	MaxBodySize    int64         `mapstructure:"max_body_size"`
}

// LoggingConfig represents logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// PrinterConfig selects the printer connection
type PrinterConfig struct {
	Connection  string        `mapstructure:"connection"`
	OpenTimeout time.Duration `mapstructure:"open_timeout"`
	JobTimeout  time.Duration `mapstructure:"job_timeout"`
	File        FileConfig    `mapstructure:"file"`
	Serial      SerialConfig  `mapstructure:"serial"`
	USB         USBConfig     `mapstructure:"usb"`
	TCP         TCPConfig     `mapstructure:"tcp"`
}

// FileConfig represents the capture file connection
type FileConfig struct {
	Path     string `mapstructure:"path"`
	Compress bool   `mapstructure:"compress"`
	Append   bool   `mapstructure:"append"`
}

// SerialConfig represents serial port configuration
type SerialConfig struct {
	Port     string        `mapstructure:"port"`
	BaudRate int           `mapstructure:"baud_rate"`
	DataBits int           `mapstructure:"data_bits"`
	StopBits int           `mapstructure:"stop_bits"`
	Parity   string        `mapstructure:"parity"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// USBConfig represents USB printer configuration
type USBConfig struct {
	VendorID     string        `mapstructure:"vendor_id"`
	ProductID    string        `mapstructure:"product_id"`
	Config       int           `mapstructure:"config"`
	Interface    int           `mapstructure:"interface"`
	AltSetting   int           `mapstructure:"alt_setting"`
	OutEndpoint  int           `mapstructure:"out_endpoint"`
	InEndpoint   int           `mapstructure:"in_endpoint"`
	SerialNumber string        `mapstructure:"serial_number"`
	Timeout      time.Duration `mapstructure:"timeout"`
}

// TCPConfig represents network printer configuration
type TCPConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	SSL          bool          `mapstructure:"ssl"`
	KeepAlive    bool          `mapstructure:"keep_alive"`
	Timeout      time.Duration `mapstructure:"connect_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// JobConfig holds the defaults applied to every print job
type JobConfig struct {
	Name           string        `mapstructure:"name"`
	DPI            int           `mapstructure:"dpi"`
	Paper          string        `mapstructure:"paper"`
	MediaType      string        `mapstructure:"media_type"`
	Quality        string        `mapstructure:"quality"`
	Layout         string        `mapstructure:"layout"`
	Direction      string        `mapstructure:"direction"`
	ColorMode      string        `mapstructure:"color_mode"`
	PaperPath      string        `mapstructure:"paper_path"`
	Duplex         bool          `mapstructure:"duplex"`
	Margin         MarginConfig  `mapstructure:"margin"`
	MaxPages       int           `mapstructure:"max_pages"`
	// Uploaded images are rejected above this many pixels
	MaxImagePixels int           `mapstructure:"max_image_pixels"`
	// Completed job records older than this are dropped; zero keeps them
	Retention      time.Duration `mapstructure:"retention"`
}

// MarginConfig holds page margins in millimeters
type MarginConfig struct {
	Left   float64 `mapstructure:"left"`
	Top    float64 `mapstructure:"top"`
	Right  float64 `mapstructure:"right"`
	Bottom float64 `mapstructure:"bottom"`
}

// AppConfig represents application metadata
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
	Debug       bool   `mapstructure:"debug"`
}

// Load loads configuration from file and environment variables. An empty
// path searches for config.yaml in the working directory and
// internal/config; a missing file leaves the defaults in place.
func Load(path string) (*Config, error) {
	v := viper.New()
	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./internal/config")
	}

	// Environment variable support
	v.SetEnvPrefix("ESCPR_SERVICE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", "8086")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.idle_timeout", "120s")
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.max_body_size", 64<<20)

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.max_size", 100)
	v.SetDefault("logging.max_backups", 3)
	v.SetDefault("logging.max_age", 28)
	v.SetDefault("logging.compress", true)

	// Printer defaults
	v.SetDefault("printer.connection", "FILE")
	v.SetDefault("printer.open_timeout", "10s")
	v.SetDefault("printer.job_timeout", "10m")
	v.SetDefault("printer.file.path", "./data/capture.prn")
	v.SetDefault("printer.file.compress", false)
	v.SetDefault("printer.file.append", false)

	v.SetDefault("printer.serial.baud_rate", 115200)
	v.SetDefault("printer.serial.data_bits", 8)
	v.SetDefault("printer.serial.stop_bits", 1)
	v.SetDefault("printer.serial.parity", "none")
	v.SetDefault("printer.serial.timeout", "5s")

	v.SetDefault("printer.usb.vendor_id", "04B8")
	v.SetDefault("printer.usb.config", 1)
	v.SetDefault("printer.usb.interface", 0)
	v.SetDefault("printer.usb.out_endpoint", 1)
	v.SetDefault("printer.usb.in_endpoint", 2)
	v.SetDefault("printer.usb.timeout", "30s")

	v.SetDefault("printer.tcp.port", 9100)
	v.SetDefault("printer.tcp.keep_alive", true)
	v.SetDefault("printer.tcp.connect_timeout", "10s")
	v.SetDefault("printer.tcp.read_timeout", "30s")
	v.SetDefault("printer.tcp.write_timeout", "60s")

	// Job defaults
	v.SetDefault("job.name", "ESCPRLib")
	v.SetDefault("job.dpi", 360)
	v.SetDefault("job.paper", "LETTER")
	v.SetDefault("job.media_type", "PLAIN")
	v.SetDefault("job.quality", "DRAFT")
	v.SetDefault("job.layout", "BORDERS")
	v.SetDefault("job.direction", "BIDIRECTIONAL")
	v.SetDefault("job.color_mode", "COLOR")
	v.SetDefault("job.paper_path", "AUTO")
	v.SetDefault("job.duplex", false)
	v.SetDefault("job.margin.left", 3)
	v.SetDefault("job.margin.top", 3)
	v.SetDefault("job.margin.right", 3)
	v.SetDefault("job.margin.bottom", 3)
	v.SetDefault("job.max_pages", 100)
	v.SetDefault("job.max_image_pixels", 64_000_000)
	v.SetDefault("job.retention", "168h")

	// App defaults
	v.SetDefault("app.name", "escpr-service")
	v.SetDefault("app.version", "1.0.0")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.debug", false)
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if config.Server.Port == "" {
		return fmt.Errorf("server.port is required")
	}

	validEnvs := []string{"development", "staging", "production", "test"}
	if !slices.Contains(validEnvs, config.App.Environment) {
		return fmt.Errorf("app.environment must be one of: %v", validEnvs)
	}

	validLevels := []string{"debug", "info", "warn", "error", "fatal"}
	if !slices.Contains(validLevels, config.Logging.Level) {
		return fmt.Errorf("logging.level must be one of: %v", validLevels)
	}

	config.Printer.Connection = strings.ToUpper(config.Printer.Connection)
	validConnections := []string{"FILE", "SERIAL", "USB", "TCP"}
	if !slices.Contains(validConnections, config.Printer.Connection) {
		return fmt.Errorf("printer.connection must be one of: %v", validConnections)
	}

	validDPI := []int{300, 360, 600, 720}
	if !slices.Contains(validDPI, config.Job.DPI) {
		return fmt.Errorf("job.dpi must be one of: %v", validDPI)
	}
	if config.Job.MaxPages < 1 {
		return fmt.Errorf("job.max_pages must be positive")
	}
	if config.Job.MaxImagePixels < 1 {
		return fmt.Errorf("job.max_image_pixels must be positive")
	}

	return nil
}

// GetServerAddr returns the server address
func (c *Config) GetServerAddr() string {
	return fmt.Sprintf("%s:%s", c.Server.Host, c.Server.Port)
}

// IsProduction checks if the environment is production
func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

// IsDevelopment checks if the environment is development
func (c *Config) IsDevelopment() bool {
	return c.App.Environment == "development"
}

// IsDebugEnabled checks if debug mode is enabled
func (c *Config) IsDebugEnabled() bool {
	return c.App.Debug || c.IsDevelopment()
}
