// Package config provides configuration management for the prepbrief command-line tool.
// It supports loading configuration from YAML files, environment variables, and command-line flags.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/otherjamesbrown/prepbrief/pkg/db"
	"github.com/otherjamesbrown/prepbrief/pkg/history"
	"github.com/otherjamesbrown/prepbrief/pkg/identity"
)

// OutputFormat defines the supported output formats for CLI results.
type OutputFormat string

const (
	// OutputFormatText is human-readable plain text output.
	OutputFormatText OutputFormat = "text"
	// OutputFormatJSON is JSON-formatted output for machine processing.
	OutputFormatJSON OutputFormat = "json"
	// OutputFormatYAML is YAML-formatted output for machine processing.
	OutputFormatYAML OutputFormat = "yaml"
)

// History source backends.
const (
	HistorySourceCSV      = "csv"
	HistorySourcePostgres = "postgres"
)

// Ledger backends.
const (
	LedgerBackendFile  = "file"
	LedgerBackendRedis = "redis"
)

// Default configuration values.
const (
	DefaultTimeout        = 2 * time.Minute
	DefaultOutputFormat   = OutputFormatText
	DefaultConfigDir      = ".prepbrief"
	DefaultConfigFile     = "config.yaml"
	DefaultLedgerFile     = "processed_event_ids.txt"
	DefaultHistoryWindow  = 3
	DefaultMinBrandLength = 3
	DefaultAgentEmail     = "brand.vmeet@nobroker.in"
)

// HistoryConfig selects and configures the meeting history store.
type HistoryConfig struct {
	// Source is csv or postgres.
	Source string `yaml:"source"`

	// CSVPath is the exported history sheet. Supports ~.
	CSVPath string `yaml:"csv_path,omitempty"`

	// CSVEncoding is utf-8 or windows-1252.
	CSVEncoding string `yaml:"csv_encoding,omitempty"`

	// Table is the PostgreSQL table holding the history.
	Table string `yaml:"table,omitempty"`

	// Columns overrides the expected header names.
	Columns *history.Columns `yaml:"columns,omitempty"`
}

// PostgresConfig holds PostgreSQL connection settings. The password is
// read from DB_PASSWORD only.
type PostgresConfig struct {
	Host     string `yaml:"host,omitempty"`
	Port     int    `yaml:"port,omitempty"`
	Database string `yaml:"database,omitempty"`
	User     string `yaml:"user,omitempty"`
	SSLMode  string `yaml:"sslmode,omitempty"`
	MaxConns int32  `yaml:"max_conns,omitempty"`
}

// DBConfig converts the settings to a db.Config with environment overrides applied.
func (c PostgresConfig) DBConfig() *db.Config {
	cfg := db.DefaultConfig()
	if c.Host != "" {
		cfg.Host = c.Host
	}
	if c.Port != 0 {
		cfg.Port = c.Port
	}
	if c.Database != "" {
		cfg.Database = c.Database
	}
	if c.User != "" {
		cfg.User = c.User
	}
	if c.SSLMode != "" {
		cfg.SSLMode = c.SSLMode
	}
	if c.MaxConns != 0 {
		cfg.MaxConns = c.MaxConns
	}
	cfg.ApplyEnv()
	return cfg
}

// RedisConfig holds Redis settings for the processed-event ledger. The
// password is read from PREPBRIEF_REDIS_PASSWORD only.
type RedisConfig struct {
	Addr      string `yaml:"addr,omitempty"`
	DB        int    `yaml:"db,omitempty"`
	KeyPrefix string `yaml:"key_prefix,omitempty"`
}

// Password returns the Redis password from the environment.
func (c RedisConfig) Password() string {
	return os.Getenv("PREPBRIEF_REDIS_PASSWORD")
}

// LedgerConfig selects where processed event IDs are recorded.
type LedgerConfig struct {
	// Backend is file or redis.
	Backend string `yaml:"backend"`

	// Path is the ledger file for the file backend. Supports ~.
	Path string `yaml:"path,omitempty"`
}

// LLMConfig configures the brief drafter.
type LLMConfig struct {
	Model             string `yaml:"model,omitempty"`
	RequestsPerMinute int    `yaml:"requests_per_minute,omitempty"`
	MaxOutputTokens   int64  `yaml:"max_output_tokens,omitempty"`
}

// CalendarConfig configures the Google Calendar source.
type CalendarConfig struct {
	CredentialsFile string
	CalendarID      string
	Lookahead       time.Duration
}

// MailConfig configures email through Gmail. It uses the calendar
// credentials file.
type MailConfig struct {
	// DeliverBriefs emails drafted briefs to a meeting's internal attendees.
	DeliverBriefs bool `yaml:"deliver_briefs,omitempty"`

	// AdminEmail receives ambiguous-brand and draft-failure notices.
	AdminEmail string `yaml:"admin_email,omitempty"`
}

// Enabled reports whether any email is configured.
func (m MailConfig) Enabled() bool {
	return m.DeliverBriefs || m.AdminEmail != ""
}

// CLIConfig holds the CLI configuration settings.
type CLIConfig struct {
	// OrganizationDomains are the email domains of the internal team.
	OrganizationDomains []string `yaml:"organization_domains"`

	// AgentEmail is the account that must be invited for an event to be prepared.
	AgentEmail string `yaml:"agent_email"`

	// ExcludedAccounts are shared or service accounts that never count as attendees.
	ExcludedAccounts []string `yaml:"excluded_accounts,omitempty"`

	// RoleDescriptors mark history cell fragments that describe a role, not a person.
	RoleDescriptors []string `yaml:"role_descriptors,omitempty"`

	// HistoryWindow is how many of a brand's most recent meetings are analysed.
	HistoryWindow int `yaml:"history_window"`

	// MinBrandLength is the shortest brand name eligible for whole-word matching.
	MinBrandLength int `yaml:"min_brand_length"`

	// DateFormats are Go time layouts tried in order for history dates.
	DateFormats []string `yaml:"date_formats,omitempty"`

	// Timeout bounds a whole command.
	Timeout time.Duration `yaml:"-"`

	// OutputFormat specifies the default output format for commands.
	OutputFormat OutputFormat `yaml:"output_format"`

	// Debug enables verbose debug logging.
	Debug bool `yaml:"debug,omitempty"`

	// LogJSON switches logs to JSON.
	LogJSON bool `yaml:"log_json,omitempty"`

	History  HistoryConfig  `yaml:"history"`
	Postgres PostgresConfig `yaml:"postgres,omitempty"`
	Redis    RedisConfig    `yaml:"redis,omitempty"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	LLM      LLMConfig      `yaml:"llm,omitempty"`
	Mail     MailConfig     `yaml:"mail,omitempty"`
	Calendar CalendarConfig `yaml:"-"`
}

// DefaultConfig returns a CLIConfig with default values.
func DefaultConfig() *CLIConfig {
	return &CLIConfig{
		OrganizationDomains: []string{"nobroker.in"},
		AgentEmail:          DefaultAgentEmail,
		ExcludedAccounts:    []string{"pia.brand@nobroker.in", "pia@nobroker.in"},
		RoleDescriptors:     []string{"nbh sales", "brand representative", "nobrokerhood"},
		HistoryWindow:       DefaultHistoryWindow,
		MinBrandLength:      DefaultMinBrandLength,
		Timeout:             DefaultTimeout,
		OutputFormat:        DefaultOutputFormat,
		History: HistoryConfig{
			Source:      HistorySourceCSV,
			CSVEncoding: history.EncodingUTF8,
			Table:       history.DefaultTable,
		},
		Ledger: LedgerConfig{Backend: LedgerBackendFile},
		Calendar: CalendarConfig{
			CalendarID: "primary",
			Lookahead:  24 * time.Hour,
		},
	}
}

// ExclusionSet returns the excluded accounts plus the agent's own address.
func (c *CLIConfig) ExclusionSet() identity.ExclusionSet {
	ids := append([]string(nil), c.ExcludedAccounts...)
	if c.AgentEmail != "" {
		ids = append(ids, c.AgentEmail)
	}
	return identity.NewExclusionSet(ids...)
}

// People returns the attendee set builder described by the configuration.
func (c *CLIConfig) People() *identity.Builder {
	return identity.NewBuilder(c.OrganizationDomains, c.ExclusionSet(), c.RoleDescriptors)
}

// HistoryColumns returns the configured header names, falling back to the
// defaults of the selected source.
func (c *CLIConfig) HistoryColumns() history.Columns {
	if c.History.Columns != nil {
		return *c.History.Columns
	}
	if c.History.Source == HistorySourcePostgres {
		return history.PostgresColumns()
	}
	return history.DefaultColumns()
}

// LedgerPath returns the file ledger location, defaulting to the config directory.
func (c *CLIConfig) LedgerPath() (string, error) {
	if c.Ledger.Path != "" {
		return ExpandPath(c.Ledger.Path)
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultLedgerFile), nil
}

// ConfigDir returns the configuration directory path.
// Uses $PREPBRIEF_CONFIG_DIR if set, otherwise ~/.prepbrief
func ConfigDir() (string, error) {
	if dir := os.Getenv("PREPBRIEF_CONFIG_DIR"); dir != "" {
		return dir, nil
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}

	return filepath.Join(home, DefaultConfigDir), nil
}

// ConfigPath returns the full path to the configuration file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, DefaultConfigFile), nil
}

// LoadConfig loads the CLI configuration from file and environment variables.
// Configuration is loaded in this order (later sources override earlier):
// 1. Default values
// 2. Config file (~/.prepbrief/config.yaml or $PREPBRIEF_CONFIG_DIR/config.yaml)
// 3. Environment variables (PREPBRIEF_*)
func LoadConfig() (*CLIConfig, error) {
	cfg := DefaultConfig()

	configPath, err := ConfigPath()
	if err != nil {
		return nil, fmt.Errorf("getting config path: %w", err)
	}

	if _, err := os.Stat(configPath); err == nil {
		if err := loadFromFile(cfg, configPath); err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
	}

	loadFromEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// configFile is the on-disk form, with durations as strings.
type configFile struct {
	CLIConfig `yaml:",inline"`
	Timeout   string `yaml:"timeout,omitempty"`
	Calendar  struct {
		CredentialsFile string `yaml:"credentials_file,omitempty"`
		CalendarID      string `yaml:"calendar_id,omitempty"`
		Lookahead       string `yaml:"lookahead,omitempty"`
	} `yaml:"calendar,omitempty"`
}

// loadFromFile loads configuration from a YAML file. Keys absent from the
// file keep their current values.
func loadFromFile(cfg *CLIConfig, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}

	fileCfg := configFile{CLIConfig: *cfg}
	fileCfg.Calendar.CredentialsFile = cfg.Calendar.CredentialsFile
	fileCfg.Calendar.CalendarID = cfg.Calendar.CalendarID
	if err := yaml.Unmarshal(data, &fileCfg); err != nil {
		return fmt.Errorf("parsing config file: %w", err)
	}

	timeout, lookahead := cfg.Timeout, cfg.Calendar.Lookahead
	if fileCfg.Timeout != "" {
		if timeout, err = time.ParseDuration(fileCfg.Timeout); err != nil {
			return fmt.Errorf("parsing timeout: %w", err)
		}
	}
	if fileCfg.Calendar.Lookahead != "" {
		if lookahead, err = time.ParseDuration(fileCfg.Calendar.Lookahead); err != nil {
			return fmt.Errorf("parsing calendar.lookahead: %w", err)
		}
	}

	*cfg = fileCfg.CLIConfig
	cfg.Timeout = timeout
	cfg.Calendar = CalendarConfig{
		CredentialsFile: fileCfg.Calendar.CredentialsFile,
		CalendarID:      fileCfg.Calendar.CalendarID,
		Lookahead:       lookahead,
	}
	return nil
}

// loadFromEnv overlays environment variables onto the configuration.
func loadFromEnv(cfg *CLIConfig) {
	if v := os.Getenv("PREPBRIEF_ORGANIZATION_DOMAINS"); v != "" {
		cfg.OrganizationDomains = splitList(v)
	}

	if v := os.Getenv("PREPBRIEF_AGENT_EMAIL"); v != "" {
		cfg.AgentEmail = v
	}

	if v := os.Getenv("PREPBRIEF_EXCLUDED_ACCOUNTS"); v != "" {
		cfg.ExcludedAccounts = splitList(v)
	}

	if v := os.Getenv("PREPBRIEF_HISTORY_WINDOW"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryWindow = n
		}
	}

	if v := os.Getenv("PREPBRIEF_TIMEOUT"); v != "" {
		if timeout, err := time.ParseDuration(v); err == nil {
			cfg.Timeout = timeout
		}
	}

	if v := os.Getenv("PREPBRIEF_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = OutputFormat(v)
	}

	if v := os.Getenv("PREPBRIEF_DEBUG"); v == "true" || v == "1" {
		cfg.Debug = true
	}

	if v := os.Getenv("PREPBRIEF_LOG_JSON"); v == "true" || v == "1" {
		cfg.LogJSON = true
	}

	if v := os.Getenv("PREPBRIEF_HISTORY_SOURCE"); v != "" {
		cfg.History.Source = v
	}

	if v := os.Getenv("PREPBRIEF_HISTORY_CSV"); v != "" {
		cfg.History.CSVPath = v
	}

	if v := os.Getenv("PREPBRIEF_LEDGER_BACKEND"); v != "" {
		cfg.Ledger.Backend = v
	}

	if v := os.Getenv("PREPBRIEF_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}

	if v := os.Getenv("PREPBRIEF_LLM_MODEL"); v != "" {
		cfg.LLM.Model = v
	}

	if v := os.Getenv("PREPBRIEF_CALENDAR_CREDENTIALS"); v != "" {
		cfg.Calendar.CredentialsFile = v
	}

	if v := os.Getenv("PREPBRIEF_ADMIN_EMAIL"); v != "" {
		cfg.Mail.AdminEmail = v
	}

	if v := os.Getenv("PREPBRIEF_DELIVER_BRIEFS"); v == "true" || v == "1" {
		cfg.Mail.DeliverBriefs = true
	}
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Validate checks that the configuration is valid.
func (c *CLIConfig) Validate() error {
	if len(c.OrganizationDomains) == 0 {
		return fmt.Errorf("organization_domains is required")
	}

	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive")
	}

	if c.HistoryWindow <= 0 {
		return fmt.Errorf("history_window must be positive")
	}

	if c.MinBrandLength < 0 {
		return fmt.Errorf("min_brand_length must not be negative")
	}

	if c.Mail.AdminEmail != "" && !strings.Contains(c.Mail.AdminEmail, "@") {
		return fmt.Errorf("mail.admin_email %q is not an email address", c.Mail.AdminEmail)
	}

	if !c.OutputFormat.IsValid() {
		return fmt.Errorf("invalid output_format: %q (must be text, json, or yaml)", c.OutputFormat)
	}

	switch c.History.Source {
	case HistorySourceCSV, HistorySourcePostgres:
	default:
		return fmt.Errorf("invalid history.source: %q (must be csv or postgres)", c.History.Source)
	}

	switch c.Ledger.Backend {
	case LedgerBackendFile:
	case LedgerBackendRedis:
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required for the redis ledger")
		}
	default:
		return fmt.Errorf("invalid ledger.backend: %q (must be file or redis)", c.Ledger.Backend)
	}

	return nil
}

// IsValid checks if the output format is valid.
func (f OutputFormat) IsValid() bool {
	switch f {
	case OutputFormatText, OutputFormatJSON, OutputFormatYAML:
		return true
	default:
		return false
	}
}

// String returns the string representation of the output format.
func (f OutputFormat) String() string {
	return string(f)
}

// Marshal renders cfg in the on-disk YAML form.
func Marshal(cfg *CLIConfig) ([]byte, error) {
	fileCfg := configFile{CLIConfig: *cfg, Timeout: cfg.Timeout.String()}
	fileCfg.Calendar.CredentialsFile = cfg.Calendar.CredentialsFile
	fileCfg.Calendar.CalendarID = cfg.Calendar.CalendarID
	fileCfg.Calendar.Lookahead = cfg.Calendar.Lookahead.String()
	return yaml.Marshal(&fileCfg)
}

// SaveConfig saves the configuration to the config file.
func SaveConfig(cfg *CLIConfig) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	configPath, err := ConfigPath()
	if err != nil {
		return err
	}

	data, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// EnsureConfigDir creates the configuration directory if it doesn't exist.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ExpandPath expands ~ to the user's home directory.
func ExpandPath(path string) (string, error) {
	if path == "" {
		return "", nil
	}
	if path == "~" || strings.HasPrefix(path, "~/") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("getting home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}
