package wakerbench

import (
	"errors"
	"sync"
)

// ChannelKind selects the kernel object backing a NotificationChannel.
type ChannelKind uint8

const (
	// ChannelPipe uses a non-blocking pipe, one byte per signal.
	ChannelPipe ChannelKind = iota
	// ChannelEventfd uses a single eventfd as both endpoints, signals
	// accumulate in its 64-bit counter.
	ChannelEventfd
)

// String returns a human-readable representation of the kind.
func (k ChannelKind) String() string {
	switch k {
	case ChannelPipe:
		return "pipe"
	case ChannelEventfd:
		return "eventfd"
	default:
		return "unknown"
	}
}

// NotificationChannel is a one-directional, kernel-mediated signal: any
// goroutine may Signal, the goroutine polling the read endpoint Drains.
//
// Signals are never lost, they accumulate until drained. Close serializes
// against in-flight Signal and Drain calls, so a descriptor is never used
// after it has been released.
type NotificationChannel struct {
	mu      sync.RWMutex
	readFD  int
	writeFD int
	kind    ChannelKind
	closed  bool
}

// NewNotificationChannel allocates a channel of the given kind. Allocation
// failures caused by descriptor or memory limits wrap ErrResourceExhausted.
func NewNotificationChannel(kind ChannelKind) (*NotificationChannel, error) {
	readFD, writeFD, err := openChannel(kind)
	if err != nil {
		return nil, err
	}
	return &NotificationChannel{
		readFD:  readFD,
		writeFD: writeFD,
		kind:    kind,
	}, nil
}

// Kind returns the backing kernel object kind.
func (c *NotificationChannel) Kind() ChannelKind {
	return c.kind
}

// ReadFD returns the read endpoint, for readability registration.
func (c *NotificationChannel) ReadFD() int {
	return c.readFD
}

// Signal writes exactly one unit. It never blocks.
func (c *NotificationChannel) Signal() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return ErrChannelClosed
	}
	return writeUnit(c.kind, c.writeFD)
}

// Drain consumes every buffered unit, returning how many there were.
// Draining an empty channel returns (0, nil).
func (c *NotificationChannel) Drain() (int, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return 0, ErrChannelClosed
	}
	return drainUnits(c.kind, c.readFD)
}

// Close releases both endpoints. Subsequent calls to any method other than
// Kind and ReadFD return ErrChannelClosed.
func (c *NotificationChannel) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrChannelClosed
	}
	c.closed = true
	err := closeFD(c.readFD)
	if c.writeFD != c.readFD {
		err = errors.Join(err, closeFD(c.writeFD))
	}
	return err
}
