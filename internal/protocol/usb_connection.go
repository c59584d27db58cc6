// internal/protocol/usb_connection.go
package protocol

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/gousb"
	"go.uber.org/zap"

	"escpr-service/internal/model"
)

// USBConnection writes to the bulk OUT endpoint of a USB printer and reads
// status replies from its bulk IN endpoint
type USBConnection struct {
	config   *USBConfig
	ctx      *gousb.Context
	device   *gousb.Device
	usbCfg   *gousb.Config
	intf     *gousb.Interface
	outEndpt *gousb.OutEndpoint
	inEndpt  *gousb.InEndpoint
	logger   *zap.Logger
	mutex    sync.RWMutex
	isOpen   bool
	stats    statsRecorder
}

// NewUSBConnection creates a new USB connection
func NewUSBConnection(config *USBConfig, logger *zap.Logger) *USBConnection {
	return &USBConnection{
		config: config,
		logger: logger.With(
			zap.String("protocol", "usb"),
			zap.String("vendor_id", config.VendorID),
			zap.String("product_id", config.ProductID),
		),
	}
}

// Open finds the printer and claims its interface
func (uc *USBConnection) Open(ctx context.Context) error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if uc.isOpen {
		return nil
	}

	uc.logger.Info("Opening USB connection",
		zap.Int("config", uc.config.Config),
		zap.Int("interface", uc.config.Interface),
		zap.Int("out_endpoint", uc.config.OutEndpoint),
	)

	vendorID, err := parseHexID(uc.config.VendorID)
	if err != nil {
		return fmt.Errorf("invalid vendor ID: %w", err)
	}

	productID, err := parseHexID(uc.config.ProductID)
	if err != nil {
		return fmt.Errorf("invalid product ID: %w", err)
	}

	uc.ctx = gousb.NewContext()

	device, err := uc.findAndOpenDevice(vendorID, productID)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to find USB device: %w", err)
	}
	uc.device = device

	// usblp holds the printer interface on Linux
	if err := device.SetAutoDetach(true); err != nil {
		uc.logger.Warn("Kernel driver auto detach unavailable", zap.Error(err))
	}

	uc.usbCfg, err = device.Config(uc.config.Config)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to select configuration %d: %w", uc.config.Config, err)
	}

	uc.intf, err = uc.usbCfg.Interface(uc.config.Interface, uc.config.AltSetting)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to claim interface %d: %w", uc.config.Interface, err)
	}

	uc.outEndpt, err = uc.intf.OutEndpoint(uc.config.OutEndpoint)
	if err != nil {
		uc.release()
		return fmt.Errorf("failed to get out endpoint: %w", err)
	}

	// Not every printer exposes a status endpoint
	uc.inEndpt, err = uc.intf.InEndpoint(uc.config.InEndpoint)
	if err != nil {
		uc.logger.Warn("No in endpoint found", zap.Error(err))
		uc.inEndpt = nil
	}

	uc.isOpen = true
	uc.stats.connected(true)

	uc.logger.Info("USB connection opened successfully")
	return nil
}

// Close releases the interface and the device
func (uc *USBConnection) Close() error {
	uc.mutex.Lock()
	defer uc.mutex.Unlock()

	if !uc.isOpen {
		return nil
	}

	uc.release()
	uc.isOpen = false
	uc.stats.connected(false)

	uc.logger.Info("USB connection closed successfully")
	return nil
}

// release closes whatever Open managed to acquire, innermost first
func (uc *USBConnection) release() {
	if uc.intf != nil {
		uc.intf.Close()
		uc.intf = nil
	}
	if uc.usbCfg != nil {
		uc.usbCfg.Close()
		uc.usbCfg = nil
	}
	if uc.device != nil {
		uc.device.Close()
		uc.device = nil
	}
	if uc.ctx != nil {
		uc.ctx.Close()
		uc.ctx = nil
	}
	uc.outEndpt = nil
	uc.inEndpt = nil
}

// IsOpen returns whether the connection is open
func (uc *USBConnection) IsOpen() bool {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()
	return uc.isOpen && uc.outEndpt != nil
}

// Write sends data to the bulk OUT endpoint
func (uc *USBConnection) Write(ctx context.Context, data []byte) error {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.outEndpt == nil {
		return fmt.Errorf("USB connection not open")
	}

	if uc.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, uc.config.Timeout)
		defer cancel()
	}

	startTime := time.Now()
	n, err := uc.outEndpt.WriteContext(ctx, data)
	if err != nil {
		uc.stats.failed()
		uc.logger.Error("USB write failed", zap.Error(err), zap.Int("written", n))
		return fmt.Errorf("failed to write to USB device: %w", err)
	}

	if n != len(data) {
		uc.stats.failed()
		return fmt.Errorf("incomplete write: wrote %d of %d bytes", n, len(data))
	}

	uc.stats.wrote(n, time.Since(startTime))
	uc.logger.Debug("USB write completed", zap.Int("bytes", n))
	return nil
}

// Read reads up to maxBytes from the bulk IN endpoint
func (uc *USBConnection) Read(ctx context.Context, maxBytes int) ([]byte, error) {
	uc.mutex.RLock()
	defer uc.mutex.RUnlock()

	if !uc.isOpen || uc.inEndpt == nil {
		return nil, fmt.Errorf("USB connection not open or no in endpoint")
	}

	buffer := make([]byte, maxBytes)
	n, err := uc.inEndpt.ReadContext(ctx, buffer)
	if err != nil {
		uc.stats.failed()
		return nil, fmt.Errorf("failed to read from USB device: %w", err)
	}

	uc.stats.read(n)
	return buffer[:n], nil
}

// GetProtocolType returns the protocol type
func (uc *USBConnection) GetProtocolType() model.ConnectionType {
	return model.ConnectionTypeUSB
}

// Stats returns a snapshot of the connection counters
func (uc *USBConnection) Stats() ProtocolStats {
	return uc.stats.snapshot()
}

// parseHexID parses hex ID string (0x04b8 or 04B8)
func parseHexID(hexStr string) (gousb.ID, error) {
	hexStr = strings.TrimPrefix(strings.ToLower(hexStr), "0x")

	id, err := strconv.ParseUint(hexStr, 16, 16)
	if err != nil {
		return 0, err
	}

	return gousb.ID(id), nil
}

// findAndOpenDevice opens the first device matching the IDs and, when
// configured, the serial number
func (uc *USBConnection) findAndOpenDevice(vendorID, productID gousb.ID) (*gousb.Device, error) {
	devices, err := uc.ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		return desc.Vendor == vendorID && desc.Product == productID
	})
	if err != nil && len(devices) == 0 {
		return nil, fmt.Errorf("failed to enumerate USB devices: %w", err)
	}

	var chosen *gousb.Device
	for _, device := range devices {
		if chosen == nil && uc.matchesSerial(device) {
			chosen = device
			continue
		}
		device.Close()
	}

	if chosen == nil {
		return nil, fmt.Errorf("USB device not found (VID: %s, PID: %s, serial: %q)",
			vendorID, productID, uc.config.SerialNumber)
	}
	if len(devices) > 1 {
		uc.logger.Warn("Multiple matching USB devices found", zap.Int("count", len(devices)))
	}
	return chosen, nil
}

func (uc *USBConnection) matchesSerial(device *gousb.Device) bool {
	if uc.config.SerialNumber == "" {
		return true
	}
	serial, err := device.SerialNumber()
	if err != nil {
		uc.logger.Debug("Failed to read USB serial number", zap.Error(err))
		return false
	}
	return serial == uc.config.SerialNumber
}
