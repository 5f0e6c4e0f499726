//go:build linux

package wakerbench

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotificationChannel(t *testing.T) {
	for _, kind := range []ChannelKind{ChannelPipe, ChannelEventfd} {
		t.Run(kind.String(), func(t *testing.T) {
			c, err := NewNotificationChannel(kind)
			require.NoError(t, err)
			assert.Equal(t, kind, c.Kind())
			assert.GreaterOrEqual(t, c.ReadFD(), 0)

			units, err := c.Drain()
			require.NoError(t, err)
			assert.Zero(t, units)

			for i := 0; i < 3; i++ {
				require.NoError(t, c.Signal())
			}

			units, err = c.Drain()
			require.NoError(t, err)
			assert.Equal(t, 3, units)

			units, err = c.Drain()
			require.NoError(t, err)
			assert.Zero(t, units, "drain must be idempotent")

			require.NoError(t, c.Close())
			assert.ErrorIs(t, c.Signal(), ErrChannelClosed)
			_, err = c.Drain()
			assert.ErrorIs(t, err, ErrChannelClosed)
			assert.ErrorIs(t, c.Close(), ErrChannelClosed)
		})
	}
}

func TestNotificationChannel_pipeEndpoints(t *testing.T) {
	c, err := NewNotificationChannel(ChannelPipe)
	require.NoError(t, err)
	defer c.Close()
	assert.NotEqual(t, c.readFD, c.writeFD)

	e, err := NewNotificationChannel(ChannelEventfd)
	require.NoError(t, err)
	defer e.Close()
	assert.Equal(t, e.readFD, e.writeFD)
}

func TestNotificationChannel_unknownKind(t *testing.T) {
	_, err := NewNotificationChannel(ChannelKind(99))
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrResourceExhausted)
}

func TestChannelKind_String(t *testing.T) {
	assert.Equal(t, "pipe", ChannelPipe.String())
	assert.Equal(t, "eventfd", ChannelEventfd.String())
	assert.Equal(t, "unknown", ChannelKind(42).String())
}
