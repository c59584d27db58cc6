// internal/protocol/factory.go
package protocol

import (
	"fmt"
	"slices"
	"time"

	"go.uber.org/zap"

	"escpr-service/internal/model"
)

var validBaudRates = []int{1200, 2400, 4800, 9600, 19200, 38400, 57600, 115200}

// CreateProtocol creates the connection selected by settings.Type. Missing
// optional values are filled with defaults; the connection is not opened.
func CreateProtocol(settings Settings, logger *zap.Logger) (DeviceProtocol, error) {
	if err := ValidateSettings(settings); err != nil {
		return nil, err
	}

	switch settings.Type {
	case model.ConnectionTypeFile:
		return createFileProtocol(settings.File, logger), nil
	case model.ConnectionTypeSerial:
		return createSerialProtocol(settings.Serial, logger), nil
	case model.ConnectionTypeUSB:
		return createUSBProtocol(settings.USB, logger), nil
	case model.ConnectionTypeTCP:
		return createTCPProtocol(settings.TCP, logger), nil
	default:
		return nil, fmt.Errorf("unsupported protocol type: %s", settings.Type)
	}
}

func createFileProtocol(config FileConfig, logger *zap.Logger) DeviceProtocol {
	logger.Info("Creating file protocol",
		zap.String("path", config.Path),
		zap.Bool("compress", config.Compress),
	)
	return NewFileConnection(&config, logger)
}

func createSerialProtocol(config SerialConfig, logger *zap.Logger) DeviceProtocol {
	if config.BaudRate == 0 {
		config.BaudRate = 115200
	}
	if config.DataBits == 0 {
		config.DataBits = 8
	}
	if config.StopBits == 0 {
		config.StopBits = 1
	}
	if config.Parity == "" {
		config.Parity = "none"
	}
	if config.Timeout == 0 {
		config.Timeout = 5 * time.Second
	}

	logger.Info("Creating serial protocol",
		zap.String("port", config.Port),
		zap.Int("baud_rate", config.BaudRate),
	)
	return NewSerialConnection(&config, logger)
}

func createUSBProtocol(config USBConfig, logger *zap.Logger) DeviceProtocol {
	if config.VendorID == "" {
		config.VendorID = EpsonVendorID
	}
	if config.Config == 0 {
		config.Config = 1
	}
	if config.OutEndpoint == 0 {
		config.OutEndpoint = DefaultOutEndpoint
	}
	if config.InEndpoint == 0 {
		config.InEndpoint = DefaultInEndpoint
	}
	if config.Timeout == 0 {
		config.Timeout = 30 * time.Second
	}

	logger.Info("Creating USB protocol",
		zap.String("vendor_id", config.VendorID),
		zap.String("product_id", config.ProductID),
		zap.Int("interface", config.Interface),
	)
	return NewUSBConnection(&config, logger)
}

func createTCPProtocol(config TCPConfig, logger *zap.Logger) DeviceProtocol {
	if config.Port == 0 {
		config.Port = DefaultRawPort
	}
	if config.Timeout == 0 {
		config.Timeout = 10 * time.Second
	}

	logger.Info("Creating TCP protocol",
		zap.String("host", config.Host),
		zap.Int("port", config.Port),
		zap.Bool("ssl", config.SSL),
	)
	return NewTCPConnection(&config, logger)
}

// ValidateSettings validates the configuration of the selected connection type
func ValidateSettings(settings Settings) error {
	switch settings.Type {
	case model.ConnectionTypeFile:
		if settings.File.Path == "" {
			return fmt.Errorf("capture file path is required")
		}
	case model.ConnectionTypeSerial:
		return validateSerialConfig(settings.Serial)
	case model.ConnectionTypeUSB:
		return validateUSBConfig(settings.USB)
	case model.ConnectionTypeTCP:
		return validateTCPConfig(settings.TCP)
	default:
		return fmt.Errorf("unsupported connection type: %s", settings.Type)
	}
	return nil
}

func validateSerialConfig(config SerialConfig) error {
	if config.Port == "" {
		return fmt.Errorf("serial port is required")
	}
	if config.BaudRate != 0 && !slices.Contains(validBaudRates, config.BaudRate) {
		return fmt.Errorf("invalid baud rate: %d", config.BaudRate)
	}
	if config.StopBits != 0 && config.StopBits != 1 && config.StopBits != 2 {
		return fmt.Errorf("invalid stop bits: %d", config.StopBits)
	}
	return nil
}

func validateUSBConfig(config USBConfig) error {
	if config.ProductID == "" {
		return fmt.Errorf("USB product_id is required")
	}
	if _, err := parseHexID(config.ProductID); err != nil {
		return fmt.Errorf("invalid USB product_id %q: %w", config.ProductID, err)
	}
	if config.VendorID != "" {
		if _, err := parseHexID(config.VendorID); err != nil {
			return fmt.Errorf("invalid USB vendor_id %q: %w", config.VendorID, err)
		}
	}
	return nil
}

func validateTCPConfig(config TCPConfig) error {
	if config.Host == "" {
		return fmt.Errorf("TCP host is required")
	}
	if config.Port < 0 || config.Port > 65535 {
		return fmt.Errorf("invalid port number: %d", config.Port)
	}
	return nil
}
