package printing

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"

	"go.bug.st/serial"
)

// DefaultDevicePatterns are the device nodes thermal printers usually show up
// as on Linux and macOS.
var DefaultDevicePatterns = []string{
	"/dev/usb/lp*",
	"/dev/ttyUSB*",
	"/dev/ttyACM*",
	"/dev/cu.usbserial*",
	"/dev/cu.usbmodem*",
}

// SerialBaudRate is the line speed of serial and USB-serial thermal printers.
const SerialBaudRate = 9600

// DevicePrinter writes ESC/POS data to a printer device node. Serial ports
// (tty*, cu.*) are opened in raw mode at SerialBaudRate; line printer nodes
// such as /dev/usb/lp0 are written as plain files.
type DevicePrinter struct {
	layout     Layout
	paths      []string
	patterns   []string
	openSerial func(path string) (io.WriteCloser, error)
}

// NewDevicePrinter prints to the given paths in order. Without paths the
// printer looks for devices matching patterns on every job, so a printer
// plugged in after startup is picked up.
func NewDevicePrinter(layout Layout, paths []string, patterns []string) *DevicePrinter {
	if len(patterns) == 0 {
		patterns = DefaultDevicePatterns
	}
	return &DevicePrinter{layout: layout, paths: paths, patterns: patterns, openSerial: openSerialPort}
}

func (p *DevicePrinter) Print(ctx context.Context, job Job) (Result, error) {
	devices := p.paths
	if len(devices) == 0 {
		devices = DetectDevices(p.patterns)
	}
	if len(devices) == 0 {
		return Result{}, ErrNoDevice
	}

	data := EncodeESCPOS(p.layout, job)
	var errs []error
	for _, device := range devices {
		if err := ctx.Err(); err != nil {
			return Result{}, err
		}
		if err := p.write(device, data); err != nil {
			log.Printf("printer write failed device=%s code=%s err=%v", device, job.QueueCode, err)
			errs = append(errs, fmt.Errorf("%s: %w", device, err))
			continue
		}
		log.Printf("printed ticket code=%s device=%s", job.QueueCode, device)
		return Result{
			Method:  MethodThermal,
			Device:  device,
			Message: "Berhasil mencetak ke " + device,
		}, nil
	}
	return Result{}, fmt.Errorf("%w: %w", ErrPrintFailed, errors.Join(errs...))
}

// DetectDevices returns existing paths matching any of patterns.
func DetectDevices(patterns []string) []string {
	var found []string
	seen := make(map[string]bool)
	for _, pattern := range patterns {
		matches, err := filepath.Glob(pattern)
		if err != nil {
			continue
		}
		for _, match := range matches {
			if seen[match] {
				continue
			}
			seen[match] = true
			found = append(found, match)
		}
	}
	return found
}

func (p *DevicePrinter) write(path string, data []byte) error {
	if !isSerialDevice(path) {
		return writeDevice(path, data)
	}
	port, err := p.openSerial(path)
	if err != nil {
		return err
	}
	if _, err := port.Write(data); err != nil {
		_ = port.Close()
		return err
	}
	return port.Close()
}

func isSerialDevice(path string) bool {
	name := filepath.Base(path)
	return strings.HasPrefix(name, "tty") || strings.HasPrefix(name, "cu.")
}

func openSerialPort(path string) (io.WriteCloser, error) {
	return serial.Open(path, &serial.Mode{
		BaudRate: SerialBaudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	})
}

func writeDevice(path string, data []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_APPEND, 0)
	if err != nil {
		return err
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return err
	}
	return f.Close()
}
