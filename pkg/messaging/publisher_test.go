package messaging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPublisher(t *testing.T) {
	t.Run("none driver is a no-op", func(t *testing.T) {
		p, err := NewPublisher(Config{Driver: "none"})
		require.NoError(t, err)
		assert.IsType(t, NoopPublisher{}, p)
		assert.NoError(t, p.Publish(context.Background(), "payment.completed", map[string]string{"a": "b"}))
		assert.NoError(t, p.Close())
	})

	t.Run("empty driver defaults to no-op", func(t *testing.T) {
		p, err := NewPublisher(Config{})
		require.NoError(t, err)
		assert.IsType(t, NoopPublisher{}, p)
	})

	t.Run("unknown driver", func(t *testing.T) {
		_, err := NewPublisher(Config{Driver: "kafka"})
		assert.Error(t, err)
	})
}
