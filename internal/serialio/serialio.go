// Package serialio is the serial transport boundary. Everything above it
// talks to a Port; the real implementation wraps go.bug.st/serial and the
// mock in this package scripts byte exchanges for tests.
package serialio

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// Port is an opened serial line. Read may return fewer bytes than asked
// for, and returns an empty slice with a nil error when the timeout
// elapses with nothing on the wire.
type Port interface {
	Write(b []byte) error
	Read(maxBytes int, timeout time.Duration) ([]byte, error)
	SetBaudRate(rate int) error
	Flush() error
	Close() error
}

type serialPort struct {
	port serial.Port
	mode serial.Mode
	name string
}

// Open opens name at the given baud rate, 8N1.
func Open(name string, baud int) (Port, error) {
	mode := serial.Mode{
		BaudRate: baud,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	p, err := serial.Open(name, &mode)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	return &serialPort{port: p, mode: mode, name: name}, nil
}

// ListPorts enumerates serial device names on this host.
func ListPorts() ([]string, error) {
	return serial.GetPortsList()
}

func (s *serialPort) Write(b []byte) error {
	if _, err := s.port.Write(b); err != nil {
		return fmt.Errorf("write %s: %w", s.name, err)
	}
	return nil
}

func (s *serialPort) Read(maxBytes int, timeout time.Duration) ([]byte, error) {
	if err := s.port.SetReadTimeout(timeout); err != nil {
		return nil, fmt.Errorf("set read timeout: %w", err)
	}
	buf := make([]byte, maxBytes)
	n, err := s.port.Read(buf)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", s.name, err)
	}
	return buf[:n], nil
}

func (s *serialPort) SetBaudRate(rate int) error {
	s.mode.BaudRate = rate
	if err := s.port.SetMode(&s.mode); err != nil {
		return fmt.Errorf("set baud %d: %w", rate, err)
	}
	return nil
}

func (s *serialPort) Flush() error {
	return s.port.ResetInputBuffer()
}

func (s *serialPort) Close() error {
	return s.port.Close()
}
