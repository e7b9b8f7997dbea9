package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/otherjamesbrown/prepbrief/pkg/history"
)

// isolate points the config directory at a fresh temp dir and clears the
// environment variables LoadConfig reads.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("PREPBRIEF_CONFIG_DIR", dir)
	for _, key := range []string{
		"PREPBRIEF_ORGANIZATION_DOMAINS", "PREPBRIEF_AGENT_EMAIL", "PREPBRIEF_EXCLUDED_ACCOUNTS",
		"PREPBRIEF_HISTORY_WINDOW", "PREPBRIEF_TIMEOUT", "PREPBRIEF_OUTPUT_FORMAT", "PREPBRIEF_DEBUG",
		"PREPBRIEF_LOG_JSON", "PREPBRIEF_HISTORY_SOURCE", "PREPBRIEF_HISTORY_CSV",
		"PREPBRIEF_LEDGER_BACKEND", "PREPBRIEF_REDIS_ADDR", "PREPBRIEF_LLM_MODEL",
		"PREPBRIEF_CALENDAR_CREDENTIALS", "PREPBRIEF_ADMIN_EMAIL", "PREPBRIEF_DELIVER_BRIEFS",
	} {
		t.Setenv(key, "")
	}
	return dir
}

func writeConfig(t *testing.T, dir, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, DefaultConfigFile), []byte(body), 0600))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, []string{"nobroker.in"}, cfg.OrganizationDomains)
	assert.Equal(t, DefaultAgentEmail, cfg.AgentEmail)
	assert.Equal(t, DefaultHistoryWindow, cfg.HistoryWindow)
	assert.Equal(t, DefaultMinBrandLength, cfg.MinBrandLength)
	assert.Equal(t, DefaultTimeout, cfg.Timeout)
	assert.Equal(t, OutputFormatText, cfg.OutputFormat)
	assert.Equal(t, HistorySourceCSV, cfg.History.Source)
	assert.Equal(t, LedgerBackendFile, cfg.Ledger.Backend)
	assert.Equal(t, "primary", cfg.Calendar.CalendarID)
	assert.False(t, cfg.Debug)
	assert.NoError(t, cfg.Validate())
}

func TestOutputFormat_IsValid(t *testing.T) {
	tests := []struct {
		format OutputFormat
		valid  bool
	}{
		{OutputFormatText, true},
		{OutputFormatJSON, true},
		{OutputFormatYAML, true},
		{"invalid", false},
		{"", false},
		{"JSON", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.valid, tt.format.IsValid(), "format %q", tt.format)
	}
}

func TestCLIConfig_Validate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CLIConfig)
		wantErr string
	}{
		{"valid defaults", func(*CLIConfig) {}, ""},
		{"no domains", func(c *CLIConfig) { c.OrganizationDomains = nil }, "organization_domains"},
		{"zero timeout", func(c *CLIConfig) { c.Timeout = 0 }, "timeout"},
		{"zero window", func(c *CLIConfig) { c.HistoryWindow = 0 }, "history_window"},
		{"negative brand length", func(c *CLIConfig) { c.MinBrandLength = -1 }, "min_brand_length"},
		{"bad output", func(c *CLIConfig) { c.OutputFormat = "xml" }, "output_format"},
		{"bad history source", func(c *CLIConfig) { c.History.Source = "sheets" }, "history.source"},
		{"bad ledger", func(c *CLIConfig) { c.Ledger.Backend = "s3" }, "ledger.backend"},
		{"redis without addr", func(c *CLIConfig) { c.Ledger.Backend = LedgerBackendRedis }, "redis.addr"},
		{"redis with addr", func(c *CLIConfig) {
			c.Ledger.Backend = LedgerBackendRedis
			c.Redis.Addr = "localhost:6379"
		}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigDir(t *testing.T) {
	t.Setenv("PREPBRIEF_CONFIG_DIR", "/custom/dir")
	dir, err := ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, "/custom/dir", dir)

	t.Setenv("PREPBRIEF_CONFIG_DIR", "")
	dir, err = ConfigDir()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfigDir, filepath.Base(dir))

	path, err := ConfigPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultConfigFile), path)
}

func TestLoadConfig_Defaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfig_FromFile(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, `
organization_domains: [nobroker.in, nobrokerhood.com]
agent_email: prep.bot@nobroker.in
history_window: 5
timeout: 45s
output_format: json
history:
  source: postgres
  table: nbh_previous_meetings
  columns:
    brand_name: Brand
    meeting_date: Date
    internal_attendees: Team
    discussion: Notes
    action_items: Actions
ledger:
  backend: redis
redis:
  addr: localhost:6379
  key_prefix: "pb:"
llm:
  model: gpt-5
  requests_per_minute: 10
calendar:
  credentials_file: /etc/prepbrief/sa.json
  lookahead: 72h
mail:
  deliver_briefs: true
  admin_email: ops@nobroker.in
`)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, []string{"nobroker.in", "nobrokerhood.com"}, cfg.OrganizationDomains)
	assert.Equal(t, "prep.bot@nobroker.in", cfg.AgentEmail)
	assert.Equal(t, 5, cfg.HistoryWindow)
	assert.Equal(t, 45*time.Second, cfg.Timeout)
	assert.Equal(t, OutputFormatJSON, cfg.OutputFormat)
	assert.Equal(t, HistorySourcePostgres, cfg.History.Source)
	assert.Equal(t, "nbh_previous_meetings", cfg.History.Table)
	assert.Equal(t, "Brand", cfg.HistoryColumns().BrandName)
	assert.Equal(t, LedgerBackendRedis, cfg.Ledger.Backend)
	assert.Equal(t, "pb:", cfg.Redis.KeyPrefix)
	assert.Equal(t, "gpt-5", cfg.LLM.Model)
	assert.Equal(t, 10, cfg.LLM.RequestsPerMinute)
	assert.Equal(t, "/etc/prepbrief/sa.json", cfg.Calendar.CredentialsFile)
	assert.Equal(t, 72*time.Hour, cfg.Calendar.Lookahead)
	assert.Equal(t, MailConfig{DeliverBriefs: true, AdminEmail: "ops@nobroker.in"}, cfg.Mail)
	assert.True(t, cfg.Mail.Enabled())

	// Keys missing from the file keep their defaults.
	assert.Equal(t, "primary", cfg.Calendar.CalendarID)
	assert.Equal(t, DefaultMinBrandLength, cfg.MinBrandLength)
	assert.Equal(t, []string{"pia.brand@nobroker.in", "pia@nobroker.in"}, cfg.ExcludedAccounts)
}

func TestLoadConfig_InvalidFile(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		wantErr string
	}{
		{"bad timeout", "timeout: soon\n", "parsing timeout"},
		{"bad lookahead", "calendar:\n  lookahead: tomorrow\n", "calendar.lookahead"},
		{"bad yaml", "organization_domains: [unclosed\n", "parsing config file"},
		{"fails validation", "history_window: 0\n", "history_window"},
		{"bad admin email", "mail:\n  admin_email: ops\n", "mail.admin_email"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := isolate(t)
			writeConfig(t, dir, tt.body)

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestLoadConfig_EnvOverrides(t *testing.T) {
	dir := isolate(t)
	writeConfig(t, dir, "output_format: yaml\nhistory_window: 4\n")

	t.Setenv("PREPBRIEF_OUTPUT_FORMAT", "json")
	t.Setenv("PREPBRIEF_ORGANIZATION_DOMAINS", "acme.in, acme.com ,")
	t.Setenv("PREPBRIEF_TIMEOUT", "30s")
	t.Setenv("PREPBRIEF_DEBUG", "1")
	t.Setenv("PREPBRIEF_HISTORY_CSV", "/data/history.csv")
	t.Setenv("PREPBRIEF_HISTORY_WINDOW", "not-a-number")
	t.Setenv("PREPBRIEF_ADMIN_EMAIL", "ops@nobroker.in")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, OutputFormatJSON, cfg.OutputFormat)
	assert.Equal(t, []string{"acme.in", "acme.com"}, cfg.OrganizationDomains)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.True(t, cfg.Debug)
	assert.Equal(t, "/data/history.csv", cfg.History.CSVPath)
	assert.Equal(t, 4, cfg.HistoryWindow, "unparsable env values are ignored")
	assert.Equal(t, "ops@nobroker.in", cfg.Mail.AdminEmail)
	assert.False(t, cfg.Mail.DeliverBriefs)
}

func TestSaveConfig(t *testing.T) {
	dir := isolate(t)

	cfg := DefaultConfig()
	cfg.AgentEmail = "prep.bot@nobroker.in"
	cfg.Timeout = 90 * time.Second
	cfg.Calendar.Lookahead = 48 * time.Hour
	require.NoError(t, SaveConfig(cfg))

	info, err := os.Stat(filepath.Join(dir, DefaultConfigFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0600), info.Mode().Perm())

	loaded, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, cfg, loaded)
}

func TestSaveConfig_CreatesDirectory(t *testing.T) {
	dir := filepath.Join(isolate(t), "nested", "prepbrief")
	t.Setenv("PREPBRIEF_CONFIG_DIR", dir)

	require.NoError(t, SaveConfig(DefaultConfig()))
	assert.FileExists(t, filepath.Join(dir, DefaultConfigFile))
}

func TestCLIConfig_ExclusionSet(t *testing.T) {
	cfg := DefaultConfig()
	set := cfg.ExclusionSet()

	assert.True(t, set.Contains("brand.vmeet@nobroker.in"))
	assert.True(t, set.Contains("Brand.Vmeet"), "the agent's local-part is excluded too")
	assert.True(t, set.Contains("pia.brand"))
	assert.False(t, set.Contains("shubham.dakhane@nobroker.in"))

	cfg.AgentEmail = ""
	assert.False(t, cfg.ExclusionSet().Contains("brand.vmeet"))
}

func TestCLIConfig_People(t *testing.T) {
	cfg := DefaultConfig()
	group := cfg.People().BuildFromCells("Shubham Dakhane, NBH Sales team", "Meera Iyer")

	assert.Equal(t, []string{"Shubham Dakhane"}, group.InternalRaw())
	assert.Equal(t, []string{"Meera Iyer"}, group.ExternalRaw())
}

func TestCLIConfig_HistoryColumns(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, history.DefaultColumns(), cfg.HistoryColumns())

	cfg.History.Source = HistorySourcePostgres
	assert.Equal(t, history.PostgresColumns(), cfg.HistoryColumns())
}

func TestCLIConfig_LedgerPath(t *testing.T) {
	dir := isolate(t)
	cfg := DefaultConfig()

	path, err := cfg.LedgerPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DefaultLedgerFile), path)

	cfg.Ledger.Path = "/var/lib/prepbrief/ledger.txt"
	path, err = cfg.LedgerPath()
	require.NoError(t, err)
	assert.Equal(t, "/var/lib/prepbrief/ledger.txt", path)
}

func TestPostgresConfig_DBConfig(t *testing.T) {
	for _, key := range []string{"DB_HOST", "DB_PORT", "DB_NAME", "DB_USER", "DB_SSLMODE", "DB_MAX_CONNS"} {
		t.Setenv(key, "")
	}
	t.Setenv("DB_PASSWORD", "s3cret")

	cfg := PostgresConfig{Host: "db.internal", Database: "sales", MaxConns: 2}.DBConfig()

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, "sales", cfg.Database)
	assert.Equal(t, int32(2), cfg.MaxConns)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "s3cret", cfg.Password)
}

func TestExpandPath(t *testing.T) {
	home, err := os.UserHomeDir()
	require.NoError(t, err)

	tests := []struct {
		in, want string
	}{
		{"", ""},
		{"/abs/path", "/abs/path"},
		{"relative/path", "relative/path"},
		{"~/data/history.csv", filepath.Join(home, "data/history.csv")},
		{"~", home},
	}
	for _, tt := range tests {
		got, err := ExpandPath(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
}
