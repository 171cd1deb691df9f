// Package config provides Viper-based configuration loading for the battle server.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig holds process-level settings.
type ServerConfig struct {
	// Name identifies this instance in logs.
	Name string `mapstructure:"name"`
	// ShutdownTimeout bounds the graceful stop of every service.
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	// Enabled turns on battle recording and the postgres catalog source.
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	Name            string        `mapstructure:"name"`
	SSLMode         string        `mapstructure:"sslmode"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
}

// DSN returns the PostgreSQL connection string.
//
// Precondition: Host, Port, User, and Name must be non-empty.
// Postcondition: Returns a valid PostgreSQL DSN string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// GatewayConfig holds websocket listener settings.
type GatewayConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
	// ReadTimeout is how long a connection may stay silent, pings included.
	ReadTimeout time.Duration `mapstructure:"read_timeout"`
	// WriteTimeout is the deadline for a single frame write.
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// PingInterval must be shorter than ReadTimeout.
	PingInterval time.Duration `mapstructure:"ping_interval"`
	// EventBuffer is the per-connection outbound event queue depth.
	EventBuffer int `mapstructure:"event_buffer"`
	// MaxMessageBytes caps one inbound client message.
	MaxMessageBytes int64 `mapstructure:"max_message_bytes"`
}

// Addr returns the "host:port" listen address.
func (g GatewayConfig) Addr() string {
	return fmt.Sprintf("%s:%d", g.Host, g.Port)
}

// HealthConfig holds the gRPC health service settings.
type HealthConfig struct {
	GRPCHost string `mapstructure:"grpc_host"`
	GRPCPort int    `mapstructure:"grpc_port"`
}

// Addr returns the "host:port" gRPC address.
func (h HealthConfig) Addr() string {
	return fmt.Sprintf("%s:%d", h.GRPCHost, h.GRPCPort)
}

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// BattleConfig holds battle rules and session housekeeping.
type BattleConfig struct {
	LogWindow         int `mapstructure:"log_window"`
	SoulPerTurn       int `mapstructure:"soul_per_turn"`
	CritChancePercent int `mapstructure:"crit_chance_percent"`
	// EndedGrace is how long an unacknowledged ended session is kept.
	EndedGrace time.Duration `mapstructure:"ended_grace"`
	// SweepInterval is how often ended sessions are reaped.
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
	// ActionTimeout forfeits an idle side; zero disables it.
	ActionTimeout time.Duration `mapstructure:"action_timeout"`
	// RosterMax is the largest team a participant may bring.
	RosterMax int `mapstructure:"roster_max"`
}

// CatalogConfig selects where move, inspirit and yokai data comes from.
type CatalogConfig struct {
	// Source is "yaml" or "postgres".
	Source string `mapstructure:"source"`
	// Dir holds the YAML catalog files when Source is "yaml".
	Dir string `mapstructure:"dir"`
	// SkillsDir holds Lua skill hooks; empty disables scripting.
	SkillsDir string `mapstructure:"skills_dir"`
	// InstructionLimit caps Lua opcodes per hook call; zero uses the default.
	InstructionLimit int `mapstructure:"instruction_limit"`
}

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Health   HealthConfig   `mapstructure:"health"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Battle   BattleConfig   `mapstructure:"battle"`
	Catalog  CatalogConfig  `mapstructure:"catalog"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string
	for _, err := range []error{
		validateServer(c.Server),
		validateDatabase(c.Database),
		validateGateway(c.Gateway),
		validateHealth(c.Health),
		validateLogging(c.Logging),
		validateBattle(c.Battle),
		validateCatalog(c.Catalog, c.Database),
	} {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func validateServer(s ServerConfig) error {
	if s.Name == "" {
		return errors.New("server.name must not be empty")
	}
	if s.ShutdownTimeout <= 0 {
		return fmt.Errorf("server.shutdown_timeout must be > 0, got %s", s.ShutdownTimeout)
	}
	return nil
}

func validateDatabase(d DatabaseConfig) error {
	if !d.Enabled {
		return nil
	}
	var errs []string
	if d.Host == "" {
		errs = append(errs, "database.host must not be empty")
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port must be 1-65535, got %d", d.Port))
	}
	if d.User == "" {
		errs = append(errs, "database.user must not be empty")
	}
	if d.Name == "" {
		errs = append(errs, "database.name must not be empty")
	}
	if d.MaxConns < 1 {
		errs = append(errs, fmt.Sprintf("database.max_conns must be >= 1, got %d", d.MaxConns))
	}
	if d.MinConns < 0 {
		errs = append(errs, fmt.Sprintf("database.min_conns must be >= 0, got %d", d.MinConns))
	}
	if d.MinConns > d.MaxConns {
		errs = append(errs, fmt.Sprintf("database.min_conns (%d) must not exceed max_conns (%d)", d.MinConns, d.MaxConns))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateGateway(g GatewayConfig) error {
	var errs []string
	if g.Port < 1 || g.Port > 65535 {
		errs = append(errs, fmt.Sprintf("gateway.port must be 1-65535, got %d", g.Port))
	}
	if g.ReadTimeout <= 0 || g.WriteTimeout <= 0 {
		errs = append(errs, "gateway.read_timeout and gateway.write_timeout must be > 0")
	}
	if g.PingInterval <= 0 || g.PingInterval >= g.ReadTimeout {
		errs = append(errs, fmt.Sprintf("gateway.ping_interval must be > 0 and < read_timeout, got %s", g.PingInterval))
	}
	if g.EventBuffer < 1 {
		errs = append(errs, fmt.Sprintf("gateway.event_buffer must be >= 1, got %d", g.EventBuffer))
	}
	if g.MaxMessageBytes < 1 {
		errs = append(errs, fmt.Sprintf("gateway.max_message_bytes must be >= 1, got %d", g.MaxMessageBytes))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateHealth(h HealthConfig) error {
	var errs []string
	if h.GRPCHost == "" {
		errs = append(errs, "health.grpc_host must not be empty")
	}
	if h.GRPCPort < 1 || h.GRPCPort > 65535 {
		errs = append(errs, fmt.Sprintf("health.grpc_port must be 1-65535, got %d", h.GRPCPort))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateLogging(l LoggingConfig) error {
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[l.Level] {
		return fmt.Errorf("logging.level must be one of [debug, info, warn, error], got %q", l.Level)
	}
	validFormats := map[string]bool{"json": true, "console": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("logging.format must be one of [json, console], got %q", l.Format)
	}
	return nil
}

func validateBattle(b BattleConfig) error {
	var errs []string
	if b.LogWindow < 1 {
		errs = append(errs, fmt.Sprintf("battle.log_window must be >= 1, got %d", b.LogWindow))
	}
	if b.SoulPerTurn < 0 {
		errs = append(errs, fmt.Sprintf("battle.soul_per_turn must be >= 0, got %d", b.SoulPerTurn))
	}
	if b.CritChancePercent < 0 || b.CritChancePercent > 100 {
		errs = append(errs, fmt.Sprintf("battle.crit_chance_percent must be 0-100, got %d", b.CritChancePercent))
	}
	if b.EndedGrace <= 0 {
		errs = append(errs, fmt.Sprintf("battle.ended_grace must be > 0, got %s", b.EndedGrace))
	}
	if b.SweepInterval <= 0 {
		errs = append(errs, fmt.Sprintf("battle.sweep_interval must be > 0, got %s", b.SweepInterval))
	}
	if b.ActionTimeout < 0 {
		errs = append(errs, fmt.Sprintf("battle.action_timeout must be >= 0, got %s", b.ActionTimeout))
	}
	if b.RosterMax < 1 {
		errs = append(errs, fmt.Sprintf("battle.roster_max must be >= 1, got %d", b.RosterMax))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateCatalog(c CatalogConfig, d DatabaseConfig) error {
	switch c.Source {
	case "yaml":
		if c.Dir == "" {
			return errors.New("catalog.dir must not be empty when catalog.source is yaml")
		}
	case "postgres":
		if !d.Enabled {
			return errors.New("catalog.source postgres requires database.enabled")
		}
	default:
		return fmt.Errorf("catalog.source must be one of [yaml, postgres], got %q", c.Source)
	}
	if c.InstructionLimit < 0 {
		return fmt.Errorf("catalog.instruction_limit must be >= 0, got %d", c.InstructionLimit)
	}
	return nil
}

// Load reads configuration from the given file path, applies environment variable
// overrides, and validates the result.
//
// Precondition: path must be a valid file path to a YAML configuration file.
// Postcondition: Returns a valid Config or a non-nil error.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	// SOMEN_BATTLE_ACTION_TIMEOUT overrides battle.action_timeout, and so on.
	v.SetEnvPrefix("SOMEN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return Config{}, fmt.Errorf("reading config file: %w", err)
	}
	return LoadFromViper(v)
}

// LoadFromViper builds a Config from an already-configured Viper instance.
//
// Precondition: v must be non-nil and have configuration values set.
// Postcondition: Returns a valid Config or a non-nil error.
func LoadFromViper(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshalling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Defaults returns a Viper instance holding only the default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.name", "somen-battle")
	v.SetDefault("server.shutdown_timeout", "10s")

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "somen")
	v.SetDefault("database.password", "somen")
	v.SetDefault("database.name", "somen")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 2)
	v.SetDefault("database.max_conn_lifetime", "1h")

	v.SetDefault("gateway.host", "0.0.0.0")
	v.SetDefault("gateway.port", 8080)
	v.SetDefault("gateway.read_timeout", "60s")
	v.SetDefault("gateway.write_timeout", "10s")
	v.SetDefault("gateway.ping_interval", "30s")
	v.SetDefault("gateway.event_buffer", 64)
	v.SetDefault("gateway.max_message_bytes", 64*1024)

	v.SetDefault("health.grpc_host", "127.0.0.1")
	v.SetDefault("health.grpc_port", 50051)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("battle.log_window", 10)
	v.SetDefault("battle.soul_per_turn", 10)
	v.SetDefault("battle.crit_chance_percent", 5)
	v.SetDefault("battle.ended_grace", "30s")
	v.SetDefault("battle.sweep_interval", "5s")
	v.SetDefault("battle.action_timeout", "0s")
	v.SetDefault("battle.roster_max", 6)

	v.SetDefault("catalog.source", "yaml")
	v.SetDefault("catalog.dir", "content/catalog")
	v.SetDefault("catalog.skills_dir", "content/scripts/skills")
	v.SetDefault("catalog.instruction_limit", 0)
}
