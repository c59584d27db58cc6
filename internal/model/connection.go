// internal/model/connection.go
package model

// ConnectionType represents how the printer is reached
type ConnectionType string

const (
	ConnectionTypeFile   ConnectionType = "FILE"
	ConnectionTypeSerial ConnectionType = "SERIAL"
	ConnectionTypeUSB    ConnectionType = "USB"
	ConnectionTypeTCP    ConnectionType = "TCP"
)

// ConnectionTypes lists every supported connection type
var ConnectionTypes = []ConnectionType{
	ConnectionTypeFile,
	ConnectionTypeSerial,
	ConnectionTypeUSB,
	ConnectionTypeTCP,
}

// IsValid reports whether the connection type is supported
func (c ConnectionType) IsValid() bool {
	for _, t := range ConnectionTypes {
		if c == t {
			return true
		}
	}
	return false
}
