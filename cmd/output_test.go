package cmd

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/prepbrief/config"
)

func TestResolveOutputFormat(t *testing.T) {
	yamlCfg := config.DefaultConfig()
	yamlCfg.OutputFormat = config.OutputFormatYAML

	tests := []struct {
		name    string
		flag    string
		cfg     *config.CLIConfig
		want    config.OutputFormat
		wantErr bool
	}{
		{"flag wins", "json", yamlCfg, config.OutputFormatJSON, false},
		{"config fallback", "", yamlCfg, config.OutputFormatYAML, false},
		{"no config", "", nil, config.OutputFormatText, false},
		{"empty config format", "", &config.CLIConfig{}, config.OutputFormatText, false},
		{"invalid flag", "xml", yamlCfg, "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveOutputFormat(tt.flag, tt.cfg)
			if tt.wantErr {
				assert.ErrorContains(t, err, "invalid output format")
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestWriteStructured(t *testing.T) {
	v := LedgerEntry{EventID: "evt-1", Processed: true}

	var buf bytes.Buffer
	done, err := writeStructured(&buf, config.OutputFormatJSON, v)
	require.NoError(t, err)
	assert.True(t, done)
	assert.JSONEq(t, `{"event_id":"evt-1","processed":true}`, buf.String())

	buf.Reset()
	done, err = writeStructured(&buf, config.OutputFormatYAML, v)
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, "event_id: evt-1\nprocessed: true\n", buf.String())

	buf.Reset()
	done, err = writeStructured(&buf, config.OutputFormatText, v)
	require.NoError(t, err)
	assert.False(t, done)
	assert.Empty(t, buf.String())
}

func TestJoinOrDash(t *testing.T) {
	assert.Equal(t, "-", joinOrDash(nil))
	assert.Equal(t, "Ravi", joinOrDash([]string{"Ravi"}))
	assert.Equal(t, "Ravi, Meera", joinOrDash([]string{"Ravi", "Meera"}))
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abc...", truncate("abcdef", 3))
}
