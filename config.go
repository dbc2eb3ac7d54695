package affinity

import (
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joeycumines/logiface"
)

// Config is the file form of the executor options.
type Config struct {
	IngressCapacity int
	DrainCapacity   int
	RelayBatch      int
	// LogLevel of LevelDisabled disables logging.
	LogLevel logiface.Level
}

// fileConfig maps TOML keys to Config.
type fileConfig struct {
	IngressCapacity int    `toml:"ingress_capacity"`
	DrainCapacity   int    `toml:"drain_capacity"`
	RelayBatch      int    `toml:"relay_batch"`
	LogLevel        string `toml:"log_level"`
}

// DefaultConfig returns the defaults used by [New], with logging disabled.
func DefaultConfig() Config {
	return Config{
		IngressCapacity: defaultIngressCapacity,
		DrainCapacity:   defaultDrainCapacity,
		RelayBatch:      defaultRelayBatch,
		LogLevel:        logiface.LevelDisabled,
	}
}

// LoadConfig reads a TOML file, overlaying the keys it defines on
// [DefaultConfig]. Unknown keys are an error.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Config{}, fmt.Errorf(`load affinity config: %w`, err)
	}

	if undecoded := meta.Undecoded(); len(undecoded) != 0 {
		keys := make([]string, 0, len(undecoded))
		for _, k := range undecoded {
			keys = append(keys, k.String())
		}
		slices.Sort(keys)
		return Config{}, fmt.Errorf(`load affinity config: unknown keys: %s`, strings.Join(keys, `, `))
	}

	if meta.IsDefined(`ingress_capacity`) {
		cfg.IngressCapacity = raw.IngressCapacity
	}
	if meta.IsDefined(`drain_capacity`) {
		cfg.DrainCapacity = raw.DrainCapacity
	}
	if meta.IsDefined(`relay_batch`) {
		cfg.RelayBatch = raw.RelayBatch
	}
	if meta.IsDefined(`log_level`) {
		if cfg.LogLevel, err = ParseLevel(raw.LogLevel); err != nil {
			return Config{}, fmt.Errorf(`load affinity config: %w`, err)
		}
	}

	return cfg, nil
}

// Options converts the config to executor options, logging to w if enabled.
// Values are validated by [New].
func (c Config) Options(w io.Writer) []Option {
	opts := []Option{
		WithIngressCapacity(c.IngressCapacity),
		WithDrainCapacity(c.DrainCapacity),
		WithRelayBatch(c.RelayBatch),
	}
	if c.LogLevel.Enabled() && w != nil {
		opts = append(opts, WithLogger(NewLogger(w, c.LogLevel)))
	}
	return opts
}
