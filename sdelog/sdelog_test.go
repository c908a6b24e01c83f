package sdelog

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestSetLoggerRedirectsOutput(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	Debug("decoding record", map[string]interface{}{"bytes": 12})
	require.Contains(t, buf.String(), "decoding record")
}

func TestWarnIncludesFields(t *testing.T) {
	var buf bytes.Buffer
	SetLogger(zerolog.New(&buf))

	Warn("schema mismatch", map[string]interface{}{"column": "a"})
	require.Contains(t, buf.String(), "schema mismatch")
	require.Contains(t, buf.String(), "\"column\":\"a\"")
}
