//go:build linux

package wakerbench

import (
	"encoding/binary"
	"errors"
	"fmt"

	"golang.org/x/sys/unix"
)

func openChannel(kind ChannelKind) (readFD, writeFD int, err error) {
	switch kind {
	case ChannelPipe:
		var fds [2]int
		if err = unix.Pipe2(fds[:], unix.O_CLOEXEC|unix.O_NONBLOCK); err != nil {
			return -1, -1, classifyOpenError("pipe2", err)
		}
		return fds[0], fds[1], nil
	case ChannelEventfd:
		fd, err := unix.Eventfd(0, unix.EFD_CLOEXEC|unix.EFD_NONBLOCK)
		if err != nil {
			return -1, -1, classifyOpenError("eventfd", err)
		}
		return fd, fd, nil
	default:
		return -1, -1, fmt.Errorf("wakerbench: unknown channel kind %d", kind)
	}
}

// classifyOpenError maps allocation limit errnos to ErrResourceExhausted.
func classifyOpenError(op string, err error) error {
	switch {
	case errors.Is(err, unix.EMFILE),
		errors.Is(err, unix.ENFILE),
		errors.Is(err, unix.ENOMEM),
		errors.Is(err, unix.ENOSPC):
		return fmt.Errorf("%w: %s: %w", ErrResourceExhausted, op, err)
	default:
		return fmt.Errorf("wakerbench: %s: %w", op, err)
	}
}

func writeUnit(kind ChannelKind, fd int) error {
	var (
		one  = [1]byte{1}
		incr [8]byte
		buf  []byte
	)
	if kind == ChannelEventfd {
		binary.NativeEndian.PutUint64(incr[:], 1)
		buf = incr[:]
	} else {
		buf = one[:]
	}
	for {
		_, err := unix.Write(fd, buf)
		switch err {
		case nil:
			return nil
		case unix.EINTR:
			continue
		case unix.EAGAIN:
			// full, so the reader already has units pending
			return nil
		case unix.EBADF:
			return ErrChannelClosed
		default:
			return fmt.Errorf("wakerbench: signal: %w", err)
		}
	}
}

func drainUnits(kind ChannelKind, fd int) (int, error) {
	if kind == ChannelEventfd {
		var buf [8]byte
		for {
			_, err := unix.Read(fd, buf[:])
			switch err {
			case nil:
				return int(binary.NativeEndian.Uint64(buf[:])), nil
			case unix.EINTR:
				continue
			case unix.EAGAIN:
				return 0, nil
			default:
				return 0, fmt.Errorf("wakerbench: drain: %w", err)
			}
		}
	}

	var (
		buf   [64]byte
		total int
	)
	for {
		n, err := unix.Read(fd, buf[:])
		switch {
		case err == unix.EINTR:
			continue
		case err == unix.EAGAIN:
			return total, nil
		case err != nil:
			return total, fmt.Errorf("wakerbench: drain: %w", err)
		case n == 0:
			return total, nil
		}
		total += n
	}
}

func closeFD(fd int) error {
	return unix.Close(fd)
}
