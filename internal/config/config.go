// Package config provides Viper-based configuration loading for the range simulator.
package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggingConfig holds structured logging settings.
type LoggingConfig struct {
	// Level is the minimum log level: "debug", "info", "warn", "error".
	Level string `mapstructure:"level"`
	// Format is the log output format: "json" or "console".
	Format string `mapstructure:"format"`
}

// SimulationConfig holds the fixed-step simulation settings.
type SimulationConfig struct {
	// TickRate is the number of simulation steps per simulated second.
	TickRate int `mapstructure:"tick_rate"`
	// FieldOfView is the vertical camera field of view in degrees. Weapon
	// spread angles are expressed relative to it.
	FieldOfView float64 `mapstructure:"field_of_view"`
	// TimeLimit bounds a run in simulated time. Zero means no limit.
	TimeLimit time.Duration `mapstructure:"time_limit"`
	// MissedPenalty is the time penalty in seconds charged per target left standing.
	MissedPenalty float64 `mapstructure:"missed_penalty"`
	// Gravity is the downward acceleration applied to a jumping player.
	Gravity float64 `mapstructure:"gravity"`
	// JumpSpeed is the upward velocity applied on jump.
	JumpSpeed float64 `mapstructure:"jump_speed"`
	// Seed seeds the deterministic random source. Zero selects the crypto source.
	Seed uint64 `mapstructure:"seed"`
	// Realtime paces steps against the wall clock instead of running flat out.
	Realtime bool `mapstructure:"realtime"`
}

// Step returns the duration of one simulation step in seconds.
//
// Precondition: TickRate > 0.
func (s SimulationConfig) Step() float64 {
	return 1.0 / float64(s.TickRate)
}

// ContentConfig locates the YAML and Lua content a run is built from.
type ContentConfig struct {
	WeaponsDir  string `mapstructure:"weapons_dir"`
	TargetsDir  string `mapstructure:"targets_dir"`
	LoadoutFile string `mapstructure:"loadout_file"`
	// InputScript is a Lua file driving the player's input. Empty means the
	// trigger is never pulled.
	InputScript string `mapstructure:"input_script"`
	// ScriptInstructionLimit caps Lua opcodes per input poll; 0 uses the default.
	ScriptInstructionLimit int `mapstructure:"script_instruction_limit"`
}

// DatabaseConfig holds PostgreSQL connection settings for run-result storage.
type DatabaseConfig struct {
	// Enabled turns run-result persistence on.
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

// Config is the top-level application configuration.
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Simulation SimulationConfig `mapstructure:"simulation"`
	Content    ContentConfig    `mapstructure:"content"`
	Database   DatabaseConfig   `mapstructure:"database"`
}

// Validate checks all configuration invariants.
//
// Postcondition: Returns nil if configuration is valid, or an error describing all violations.
func (c Config) Validate() error {
	var errs []string

	if err := validateLogging(c.Logging); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateSimulation(c.Simulation); err != nil {
		errs = append(errs, err.Error())
	}
	if err := validateContent(c.Content); err != nil {
		errs = append(errs, err.Error())
	}
	if c.Database.Enabled {
		if err := validateDatabase(c.Database); err != nil {
			errs = append(errs, err.Error())
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid range config: %s", strings.Join(errs, "; "))
	}
	return nil
}

var (
	logLevels  = []string{"debug", "info", "warn", "error"}
	logFormats = []string{"json", "console"}
	sslModes   = []string{"disable", "require", "verify-ca", "verify-full"}
)

func validateLogging(l LoggingConfig) error {
	var errs []string
	if !slices.Contains(logLevels, l.Level) {
		errs = append(errs, fmt.Sprintf("logging.level %q is not one of %s", l.Level, strings.Join(logLevels, "|")))
	}
	if !slices.Contains(logFormats, l.Format) {
		errs = append(errs, fmt.Sprintf("logging.format %q is not one of %s", l.Format, strings.Join(logFormats, "|")))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

func validateSimulation(s SimulationConfig) error {
	var errs []string
	if s.TickRate < 1 || s.TickRate > 1000 {
		errs = append(errs, fmt.Sprintf("simulation.tick_rate must be 1-1000, got %d", s.TickRate))
	}
	if s.FieldOfView <= 0 || s.FieldOfView >= 180 {
		errs = append(errs, fmt.Sprintf("simulation.field_of_view must be in (0, 180), got %g", s.FieldOfView))
	}
	if s.TimeLimit < 0 {
		errs = append(errs, "simulation.time_limit must not be negative")
	}
	if s.MissedPenalty < 0 {
		errs = append(errs, "simulation.missed_penalty must not be negative")
	}
	if s.Gravity < 0 {
		errs = append(errs, "simulation.gravity must not be negative")
	}
	if s.JumpSpeed < 0 {
		errs = append(errs, "simulation.jump_speed must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("%s", strings.Join(errs, "; "))
	}
	return nil
}

func validateContent(c ContentConfig) error {
	var errs []string
	if c.WeaponsDir == "" {
		errs = append(errs, "content.weapons_dir must not be empty")
	}
	if c.TargetsDir == "" {
		errs = append(errs, "content.targets_dir must not be empty")
	}
	if c.LoadoutFile == "" {
		errs = append(errs, "content.loadout_file must not be empty")
	}
	if c.ScriptInstructionLimit < 0 {
		errs = append(errs, "content.script_instruction_limit must not be negative")
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}
	return nil
}

// validateDatabase checks the run store settings. It is only consulted when
// the store is enabled.
func validateDatabase(d DatabaseConfig) error {
	var errs []string
	for _, f := range []struct{ key, val string }{
		{"database.host", d.Host},
		{"database.user", d.User},
		{"database.name", d.Name},
	} {
		if f.val == "" {
			errs = append(errs, f.key+" is required when the run store is enabled")
		}
	}
	if d.Port < 1 || d.Port > 65535 {
		errs = append(errs, fmt.Sprintf("database.port %d is not a TCP port", d.Port))
	}
	if !slices.Contains(sslModes, d.SSLMode) {
		errs = append(errs, fmt.Sprintf("database.sslmode %q is not one of %s", d.SSLMode, strings.Join(sslModes, "|")))
	}
	switch {
	case d.MaxConns < 1:
		errs = append(errs, fmt.Sprintf("database.max_conns %d leaves the pool without connections", d.MaxConns))
	case d.MinConns < 0 || d.MinConns > d.MaxConns:
		errs = append(errs, fmt.Sprintf("database.min_conns %d is outside [0, max_conns=%d]", d.MinConns, d.MaxConns))
	}
	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
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

	// Environment variable overrides with RANGE_ prefix
	v.SetEnvPrefix("RANGE")
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

// Defaults returns a Viper instance populated only with default values.
func Defaults() *viper.Viper {
	v := viper.New()
	setDefaults(v)
	return v
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("simulation.tick_rate", 60)
	v.SetDefault("simulation.field_of_view", 60.0)
	v.SetDefault("simulation.time_limit", "2m")
	v.SetDefault("simulation.missed_penalty", 1.5)
	v.SetDefault("simulation.gravity", 9.81)
	v.SetDefault("simulation.jump_speed", 5.0)
	v.SetDefault("simulation.seed", 0)
	v.SetDefault("simulation.realtime", false)

	v.SetDefault("content.weapons_dir", "content/weapons")
	v.SetDefault("content.targets_dir", "content/targets")
	v.SetDefault("content.loadout_file", "content/loadout.yaml")
	v.SetDefault("content.input_script", "")
	v.SetDefault("content.script_instruction_limit", 0)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.user", "range")
	v.SetDefault("database.password", "range")
	v.SetDefault("database.name", "range")
	v.SetDefault("database.sslmode", "disable")
	v.SetDefault("database.max_conns", 4)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", "1h")
}
