// Package config loads radixrunner settings from defaults, a YAML file,
// .env files and RADIXRUNNER_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Hyphaeic/radixrunner-wasm/codec"
	"github.com/Hyphaeic/radixrunner-wasm/datarecording"
	"github.com/Hyphaeic/radixrunner-wasm/handshake"
	"github.com/Hyphaeic/radixrunner-wasm/monitor"
	"github.com/Hyphaeic/radixrunner-wasm/region"
	"github.com/Hyphaeic/radixrunner-wasm/wasmrt"
)

// EnvPrefix prefixes every environment variable the loader reads.
const EnvPrefix = "RADIXRUNNER_"

// maxPages is the largest memory a 32-bit wasm module can address.
const maxPages = 65536

// Config is the complete radixrunner configuration.
type Config struct {
	Pages    int           `yaml:"pages"`
	Duration time.Duration `yaml:"duration"` // zero runs until interrupted
	Payload  PayloadConfig `yaml:"payload"`
	Wasm     WasmConfig    `yaml:"wasm"`
	Verify   VerifyConfig  `yaml:"verify"`
	Monitor  MonitorConfig `yaml:"monitor"`
	Server   ServerConfig  `yaml:"server"`
	Record   RecordConfig  `yaml:"record"`
}

// PayloadConfig says where the computation module comes from. Path wins over
// URL. With neither, the built-in ticker is used.
type PayloadConfig struct {
	Path    string `yaml:"path"`
	URL     string `yaml:"url"`
	Builtin bool   `yaml:"builtin"`
}

// WasmConfig names the computation module's imports and exports.
type WasmConfig struct {
	InitExport   string `yaml:"init_export"`
	RunExport    string `yaml:"run_export"`
	MemoryModule string `yaml:"memory_module"`
	MemoryName   string `yaml:"memory_name"`
	SharedMemory bool   `yaml:"shared_memory"`
}

// VerifyConfig controls the post-ready head check.
type VerifyConfig struct {
	Delay    time.Duration `yaml:"delay"`
	Attempts int           `yaml:"attempts"`
	Backoff  float64       `yaml:"backoff"`
	MaxDelay time.Duration `yaml:"max_delay"`
}

// MonitorConfig controls the tick monitor.
type MonitorConfig struct {
	FPS          int                    `yaml:"fps"`
	RateInterval time.Duration          `yaml:"rate_interval"`
	Shadows      []monitor.ShadowConfig `yaml:"shadows"`
}

// ServerConfig controls the status server. Setting a port or asking for a
// browser turns the server on.
type ServerConfig struct {
	Enabled     bool `yaml:"enabled"`
	Port        int  `yaml:"port"`
	OpenBrowser bool `yaml:"open_browser"`
}

// ServeStatus tells if the status server should run.
func (c ServerConfig) ServeStatus() bool {
	return c.Enabled || c.Port != 0 || c.OpenBrowser
}

// RecordConfig controls telemetry recording. An empty backend disables it.
// TracePath, if set, also writes handshake stage spans to TracePath.csv.
type RecordConfig struct {
	Backend   string `yaml:"backend"`
	Path      string `yaml:"path"`
	DSN       string `yaml:"dsn"`
	BatchSize int    `yaml:"batch_size"`
	TracePath string `yaml:"trace_path"`
}

// Default returns the built-in configuration.
func Default() *Config {
	policy := handshake.DefaultVerifyPolicy()
	wasm := wasmrt.DefaultConfig()

	return &Config{
		Pages: region.DefaultPages,
		Wasm: WasmConfig{
			InitExport:   wasm.InitExport,
			RunExport:    wasm.RunExport,
			MemoryModule: wasm.MemoryModule,
			MemoryName:   wasm.MemoryName,
			SharedMemory: wasm.SharedMemory,
		},
		Verify: VerifyConfig{
			Delay:    policy.Delay,
			Attempts: policy.Attempts,
			Backoff:  policy.Backoff,
			MaxDelay: policy.MaxDelay,
		},
		Monitor: MonitorConfig{
			FPS:          monitor.DefaultFrameRate,
			RateInterval: monitor.DefaultRateInterval,
		},
		Record: RecordConfig{
			BatchSize: datarecording.DefaultBatchSize,
		},
	}
}

// Load builds a configuration. yamlPath may be empty. When no env files are
// given, ./.env is read if it exists.
func Load(yamlPath string, envFiles ...string) (*Config, error) {
	cfg := Default()

	if yamlPath != "" {
		data, err := os.ReadFile(yamlPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := loadEnvFiles(envFiles); err != nil {
		return nil, err
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadEnvFiles(files []string) error {
	if len(files) == 0 {
		if _, err := os.Stat(".env"); err != nil {
			return nil
		}

		files = []string{".env"}
	}

	if err := godotenv.Load(files...); err != nil {
		return fmt.Errorf("failed to load env files: %w", err)
	}

	return nil
}

// Validate reports the first inconsistency in c.
func (c *Config) Validate() error {
	switch {
	case c.Pages <= 0 || c.Pages > maxPages:
		return fmt.Errorf("pages must be in [1, %d], got %d", maxPages, c.Pages)
	case c.Payload.Path != "" && c.Payload.URL != "":
		return errors.New("payload path and url are mutually exclusive")
	case c.Payload.Builtin && (c.Payload.Path != "" || c.Payload.URL != ""):
		return errors.New("builtin payload excludes path and url")
	case c.Wasm.InitExport == "" || c.Wasm.RunExport == "":
		return errors.New("wasm export names must not be empty")
	case c.Wasm.MemoryModule == "" || c.Wasm.MemoryName == "":
		return errors.New("wasm memory import names must not be empty")
	case c.Verify.Delay <= 0:
		return errors.New("verify delay must be positive")
	case c.Verify.Attempts < 1:
		return errors.New("verify attempts must be at least 1")
	case c.Verify.Backoff < 1:
		return errors.New("verify backoff must be at least 1")
	case c.Monitor.FPS <= 0:
		return errors.New("monitor fps must be positive")
	case c.Monitor.RateInterval <= 0:
		return errors.New("monitor rate interval must be positive")
	case c.Server.Port != 0 && (c.Server.Port < 1000 || c.Server.Port > 65535):
		return fmt.Errorf("server port must be 0 or in [1000, 65535], got %d",
			c.Server.Port)
	case c.Duration < 0:
		return errors.New("duration must not be negative")
	}

	for _, s := range c.Monitor.Shadows {
		if s.Field < 0 || s.Field >= codec.NumFields || s.Divisor == 0 {
			return fmt.Errorf("shadow %q needs a field below %d and a divisor",
				s.Name, codec.NumFields)
		}
	}

	switch c.Record.Backend {
	case "", datarecording.BackendSQLite:
	case datarecording.BackendClickHouse:
		if c.Record.DSN == "" {
			return errors.New("clickhouse recording needs a dsn")
		}
	default:
		return fmt.Errorf("unknown record backend %q", c.Record.Backend)
	}

	return nil
}

// RegionSize is the byte size of the shared region.
func (c *Config) RegionSize() int {
	return c.Pages * region.PageSize
}

// VerifyPolicy converts the verify section.
func (c *Config) VerifyPolicy() handshake.VerifyPolicy {
	return handshake.VerifyPolicy{
		Delay:    c.Verify.Delay,
		Attempts: c.Verify.Attempts,
		Backoff:  c.Verify.Backoff,
		MaxDelay: c.Verify.MaxDelay,
	}
}

// WasmRuntime converts the wasm section.
func (c *Config) WasmRuntime() wasmrt.Config {
	return wasmrt.Config{
		InitExport:   c.Wasm.InitExport,
		RunExport:    c.Wasm.RunExport,
		MemoryModule: c.Wasm.MemoryModule,
		MemoryName:   c.Wasm.MemoryName,
		SharedMemory: c.Wasm.SharedMemory,
	}
}

// Recorder converts the record section. The second result is false when
// recording is disabled.
func (c *Config) Recorder() (datarecording.RecorderConfig, bool) {
	if c.Record.Backend == "" {
		return datarecording.RecorderConfig{}, false
	}

	return datarecording.RecorderConfig{
		Type:      c.Record.Backend,
		Path:      c.Record.Path,
		ConnStr:   c.Record.DSN,
		BatchSize: c.Record.BatchSize,
	}, true
}

func (c *Config) applyEnv() error {
	strs := map[string]*string{
		"PAYLOAD_PATH":   &c.Payload.Path,
		"PAYLOAD_URL":    &c.Payload.URL,
		"INIT_EXPORT":    &c.Wasm.InitExport,
		"RUN_EXPORT":     &c.Wasm.RunExport,
		"RECORD_BACKEND": &c.Record.Backend,
		"RECORD_PATH":    &c.Record.Path,
		"RECORD_DSN":     &c.Record.DSN,
		"TRACE_PATH":     &c.Record.TracePath,
	}
	for key, dst := range strs {
		if v, ok := lookup(key); ok {
			*dst = v
		}
	}

	ints := map[string]*int{
		"PAGES":           &c.Pages,
		"VERIFY_ATTEMPTS": &c.Verify.Attempts,
		"FPS":             &c.Monitor.FPS,
		"MONITOR_PORT":    &c.Server.Port,
	}
	for key, dst := range ints {
		if v, ok := lookup(key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				return envError(key, err)
			}

			*dst = n
		}
	}

	durations := map[string]*time.Duration{
		"VERIFY_DELAY":  &c.Verify.Delay,
		"RATE_INTERVAL": &c.Monitor.RateInterval,
		"DURATION":      &c.Duration,
	}
	for key, dst := range durations {
		if v, ok := lookup(key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				return envError(key, err)
			}

			*dst = d
		}
	}

	bools := map[string]*bool{
		"BUILTIN":       &c.Payload.Builtin,
		"SHARED_MEMORY": &c.Wasm.SharedMemory,
		"SERVER":        &c.Server.Enabled,
		"OPEN_BROWSER":  &c.Server.OpenBrowser,
	}
	for key, dst := range bools {
		if v, ok := lookup(key); ok {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return envError(key, err)
			}

			*dst = b
		}
	}

	return nil
}

func lookup(key string) (string, bool) {
	return os.LookupEnv(EnvPrefix + key)
}

func envError(key string, err error) error {
	return fmt.Errorf("environment variable %s%s: %w", EnvPrefix, key, err)
}
