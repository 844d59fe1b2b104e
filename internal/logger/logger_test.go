package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProdLoggerWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	l := NewWithOutput(&buf, "prod", "debug")
	l.WithField("order_id", 7).Info("order placed")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "order placed", entry["msg"])
	assert.EqualValues(t, 7, entry["order_id"])
	assert.Equal(t, logrus.DebugLevel, l.GetLevel())
}

func TestUnknownLevelFallsBackToInfo(t *testing.T) {
	l := NewWithOutput(&bytes.Buffer{}, "dev", "chatty")
	assert.Equal(t, logrus.InfoLevel, l.GetLevel())
}
