package logging

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		log := New("debug", "json", &buf)
		assert.Equal(t, logrus.DebugLevel, log.GetLevel())

		log.WithField("table", "accounts").Debug("published")

		var line map[string]any
		require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
		assert.Equal(t, "published", line["msg"])
		assert.Equal(t, "accounts", line["table"])
	})

	t.Run("unknown level falls back to info", func(t *testing.T) {
		var buf bytes.Buffer
		log := New("loud", "text", &buf)
		assert.Equal(t, logrus.InfoLevel, log.GetLevel())

		log.Debug("hidden")
		assert.Empty(t, buf.String())
		log.Info("shown")
		assert.Contains(t, buf.String(), "msg=shown")
	})
}
