//go:build !linux

package loop

import (
	"errors"
)

// IOEvents represents the type of I/O events to monitor.
type IOEvents uint32

const (
	EventRead IOEvents = 1 << iota
	EventWrite
	EventError
	EventHangup
)

// Standard errors.
var (
	ErrFDOutOfRange        = errors.New("eventloop: fd out of range")
	ErrFDAlreadyRegistered = errors.New("eventloop: fd already registered")
	ErrFDNotRegistered     = errors.New("eventloop: fd not registered")
	ErrPollerClosed        = errors.New("eventloop: poller closed")
)

// IOCallback is the callback type for I/O events.
type IOCallback func(IOEvents)

// FastPoller is unavailable on this platform.
type FastPoller struct{}

func (p *FastPoller) Init() error { return errors.ErrUnsupported }
func (p *FastPoller) Close() error { return nil }
func (p *FastPoller) RegisterFD(int, IOEvents, IOCallback) error { return errors.ErrUnsupported }
func (p *FastPoller) UnregisterFD(int) error { return errors.ErrUnsupported }
func (p *FastPoller) Wait(int) (int, error) { return 0, errors.ErrUnsupported }
func (p *FastPoller) Dispatch(int, func(func())) {}
func createWakeFd() (int, int, error) { return -1, -1, errors.ErrUnsupported }
func writeWakeFd(int) error { return errors.ErrUnsupported }
func drainWakeFd(int, []byte) {}
func closeFD(int) error { return nil }
