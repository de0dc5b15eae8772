package gryf

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog/log"
	"go.bug.st/serial"
)

// DefaultBaudRate is the Gryf Smart bus speed.
const DefaultBaudRate = 115200

// Port is the byte stream the API talks to. SerialPort implements it; tests
// substitute an in-memory pipe.
type Port interface {
	io.ReadWriteCloser
}

// Opener opens a Port for a device path.
type Opener func(path string, baud int) (Port, error)

// SerialPort wraps a serial connection to the Gryf bus interface.
type SerialPort struct {
	port serial.Port
	mu   sync.Mutex
}

// OpenSerial opens the serial port at the given baud rate, 8N1.
func OpenSerial(portPath string, baud int) (Port, error) {
	if baud <= 0 {
		baud = DefaultBaudRate
	}
	mode := &serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}

	port, err := serial.Open(portPath, mode)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", portPath, err)
	}

	log.Info().Str("port", portPath).Int("baud", baud).Msg("Serial port opened")

	return &SerialPort{port: port}, nil
}

// Write sends raw bytes to the serial port.
func (s *SerialPort) Write(data []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Write(data)
}

// Read reads raw bytes from the serial port.
func (s *SerialPort) Read(buf []byte) (int, error) {
	return s.port.Read(buf)
}

// Close closes the serial port.
func (s *SerialPort) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.port.Close()
}
