// Package serialmux provides a synchronous line reader/writer over a serial
// port. Unlike a fan-out multiplexer serving many concurrent subscribers,
// this has no internal concurrency at all: there is exactly one consumer,
// pulling one line at a time, in step with the engine's own Step loop.
package serialmux

import (
	"bufio"
	"bytes"
	"fmt"
)

// ErrWriteFailed is returned by SendCommand when the underlying port wrote
// fewer bytes than the command.
var ErrWriteFailed = fmt.Errorf("serialmux: failed to write to serial port")

// SerialMux wraps a serial port, scanning it for newline-delimited lines on
// demand and writing commands to it. It holds no lock and is not safe for
// concurrent use.
type SerialMux[T SerialPorter] struct {
	port T
	scan *bufio.Scanner
}

// NewSerialMux wraps port for synchronous line-at-a-time reading.
func NewSerialMux[T SerialPorter](port T) *SerialMux[T] {
	return &SerialMux[T]{
		port: port,
		scan: bufio.NewScanner(port),
	}
}

// ReadLine blocks until the port yields one newline-delimited line, io.EOF is
// reached, or a read error occurs. A false second return with a nil error
// means the port's stream ended cleanly.
func (s *SerialMux[T]) ReadLine() (string, bool, error) {
	if s.scan.Scan() {
		return s.scan.Text(), true, nil
	}
	if err := s.scan.Err(); err != nil {
		return "", false, err
	}
	return "", false, nil
}

// SendCommand writes command to the port, appending a trailing newline if
// one is not already present.
func (s *SerialMux[T]) SendCommand(command string) error {
	if !bytes.HasSuffix([]byte(command), []byte("\n")) {
		command += "\n"
	}
	n, err := s.port.Write([]byte(command))
	if err != nil {
		return err
	}
	if n != len(command) {
		return ErrWriteFailed
	}
	return nil
}

// Close closes the underlying port.
func (s *SerialMux[T]) Close() error {
	return s.port.Close()
}
