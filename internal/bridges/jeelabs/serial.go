package jeelabs

import (
	"fmt"
	"time"

	"github.com/tarm/serial"
)

// BaudRate is fixed by the RF12demo sketch.
const BaudRate = 57600

// Port is an open serial connection.
//
// Read returns (0, nil) or (0, io.EOF) when the read timeout expires with
// no data, depending on the platform. Any other error means the device is gone.
type Port interface {
	Read(p []byte) (int, error)
	Close() error
}

// Opener opens the named serial device. OpenSerial is the production
// implementation; tests substitute scripted ports.
type Opener func(name string, readTimeout time.Duration) (Port, error)

// OpenSerial opens a JeeLink at 57600 baud, 8N1.
func OpenSerial(name string, readTimeout time.Duration) (Port, error) {
	port, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        BaudRate,
		ReadTimeout: readTimeout,
		Size:        8,
		Parity:      serial.ParityNone,
		StopBits:    serial.Stop1,
	})
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", name, err)
	}
	return port, nil
}
