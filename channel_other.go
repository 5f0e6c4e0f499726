//go:build !linux

package wakerbench

import (
	"errors"
)

func openChannel(ChannelKind) (int, int, error) { return -1, -1, errors.ErrUnsupported }

func writeUnit(ChannelKind, int) error { return errors.ErrUnsupported }

func drainUnits(ChannelKind, int) (int, error) { return 0, errors.ErrUnsupported }

func closeFD(int) error { return nil }
