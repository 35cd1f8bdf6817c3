package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRedactEmail(t *testing.T) {
	assert.Equal(t, "jo***@example.com", RedactEmail("john.doe@example.com"))
	assert.Equal(t, "***@example.com", RedactEmail("ab@example.com"))
	assert.Equal(t, "***@***", RedactEmail("not-an-email"))
}

func TestRedactToken(t *testing.T) {
	assert.Equal(t, "abcd****", RedactToken("abcdef0123456789"))
	assert.Equal(t, "****", RedactToken("ab"))
}

func TestInfoRedactsFields(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stderr)

	Info("subscriber unsubscribed",
		"email", "jane@example.com",
		"unsubscribe_token", "0123456789abcdef",
		"note", "sent to bob@example.org")

	var entry map[string]string
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "ja***@example.com", entry["email"])
	assert.Equal(t, "0123****", entry["unsubscribe_token"])
	assert.Equal(t, "sent to bo***@example.org", entry["note"])
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, WARN, ParseLevel("warning"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel(""))
}
