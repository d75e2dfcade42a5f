// Package config loads group-by job settings from a file and the environment.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix is prepended to every environment override, e.g. GROUPBY_OP
const EnvPrefix = "GROUPBY"

// Supported operations and value types
var (
	Ops     = []string{"sum", "collect", "count", "min", "max"}
	Types   = []string{"int", "float", "string"}
	Formats = []string{"markdown", "csv"}
)

// Job describes one aggregation run.
type Job struct {
	Input       string    `mapstructure:"input"`        // CSV path, "-" for stdin
	Store       string    `mapstructure:"store"`        // badger row store directory, used instead of Input
	Header      bool      `mapstructure:"header"`       // first CSV line holds column names
	Comma       string    `mapstructure:"comma"`        // single-character delimiter
	GroupBy     []string  `mapstructure:"group_by"`     // column names or 0-based positions
	Value       string    `mapstructure:"value"`        // column name or 0-based position
	Op          string    `mapstructure:"op"`           // see Ops
	Type        string    `mapstructure:"type"`         // see Types
	Limit       int       `mapstructure:"limit"`        // stop after this many records, 0 for all
	Format      string    `mapstructure:"format"`       // see Formats
	SkipInvalid bool      `mapstructure:"skip_invalid"` // drop bad records instead of failing
	Verbose     bool      `mapstructure:"verbose"`      // print run annotations to stderr
	Log         LogConfig `mapstructure:"log"`
}

// LogConfig controls the binary's logger
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"` // console or json
}

// Load reads path (YAML, JSON or TOML; optional) and applies GROUPBY_*
// environment overrides on top of defaults.
func Load(path string) (*Job, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var job Job
	if err := v.Unmarshal(&job); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	job.Normalize()
	return &job, nil
}

// Default returns a job with every default applied
func Default() *Job {
	job, _ := Load("")
	return job
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("input", "")
	v.SetDefault("store", "")
	v.SetDefault("header", true)
	v.SetDefault("comma", ",")
	v.SetDefault("group_by", []string{})
	v.SetDefault("value", "")
	v.SetDefault("op", "sum")
	v.SetDefault("type", "float")
	v.SetDefault("limit", 0)
	v.SetDefault("format", "markdown")
	v.SetDefault("skip_invalid", false)
	v.SetDefault("verbose", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "console")
}

// Normalize lower-cases enumerations and splits comma-joined columns. Load
// calls it; callers that edit a Job afterwards should call it again.
func (j *Job) Normalize() {
	j.Op = strings.ToLower(strings.TrimSpace(j.Op))
	j.Type = strings.ToLower(strings.TrimSpace(j.Type))
	j.Format = strings.ToLower(strings.TrimSpace(j.Format))
	cols := make([]string, 0, len(j.GroupBy))
	for _, c := range j.GroupBy {
		for _, part := range strings.Split(c, ",") {
			if part = strings.TrimSpace(part); part != "" {
				cols = append(cols, part)
			}
		}
	}
	j.GroupBy = cols
	j.Value = strings.TrimSpace(j.Value)
}

// Delimiter returns the CSV delimiter as a rune
func (j *Job) Delimiter() rune {
	if j.Comma == `\t` || strings.EqualFold(j.Comma, "tab") {
		return '\t'
	}
	r := []rune(j.Comma)
	if len(r) == 0 {
		return ','
	}
	return r[0]
}

// Validate checks the job is runnable
func (j *Job) Validate() error {
	if j.Input == "" && j.Store == "" {
		return fmt.Errorf("input or store is required")
	}
	if j.Input != "" && j.Store != "" {
		return fmt.Errorf("input and store are mutually exclusive")
	}
	if len(j.GroupBy) == 0 {
		return fmt.Errorf("group_by needs at least one column")
	}
	if j.Value == "" {
		return fmt.Errorf("value column is required")
	}
	if !contains(Ops, j.Op) {
		return fmt.Errorf("op must be one of %v (got: %s)", Ops, j.Op)
	}
	if !contains(Types, j.Type) {
		return fmt.Errorf("type must be one of %v (got: %s)", Types, j.Type)
	}
	if j.Op == "sum" && j.Type == "string" {
		return fmt.Errorf("sum needs a numeric type (got: string)")
	}
	if !contains(Formats, j.Format) {
		return fmt.Errorf("format must be one of %v (got: %s)", Formats, j.Format)
	}
	if len([]rune(j.Comma)) > 1 && j.Delimiter() != '\t' {
		return fmt.Errorf("comma must be a single character (got: %q)", j.Comma)
	}
	if j.Limit < 0 {
		return fmt.Errorf("limit must not be negative")
	}
	return nil
}

func contains(slice []string, val string) bool {
	for _, s := range slice {
		if s == val {
			return true
		}
	}
	return false
}
