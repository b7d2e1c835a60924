package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/cockroachdb/errors"
	"gopkg.in/yaml.v2"

	"github.com/hyperledger-labs/beefy-relayer/core"
)

type Config struct {
	Global GlobalConfig `yaml:"global" json:"global"`
	Chains []ChainEntry `yaml:"chains" json:"chains"`
	Paths  []PathConfig `yaml:"paths" json:"paths"`

	// cache
	ConfigPath string                `yaml:"-" json:"-"`
	chains     map[string]core.Chain `yaml:"-"`
}

type GlobalConfig struct {
	Timeout string        `yaml:"timeout" json:"timeout"`
	Logger  LoggerConfig  `yaml:"logger" json:"logger"`
	Metrics MetricsConfig `yaml:"metrics" json:"metrics"`
}

type LoggerConfig struct {
	Level  string `yaml:"level" json:"level"`
	Format string `yaml:"format" json:"format"`
	Output string `yaml:"output" json:"output"`
}

type MetricsConfig struct {
	Exporter string `yaml:"exporter" json:"exporter"`
	Addr     string `yaml:"addr" json:"addr"`
}

// PathConfig wires one source chain to the destination chains whose light
// clients follow it.
type PathConfig struct {
	Name         string   `yaml:"name" json:"name"`
	Source       string   `yaml:"source" json:"source"`
	Destinations []string `yaml:"destinations" json:"destinations"`
}

func DefaultConfig(configPath string) Config {
	return Config{
		Global:     newDefaultGlobalConfig(),
		Chains:     []ChainEntry{},
		Paths:      []PathConfig{},
		ConfigPath: configPath,
	}
}

func newDefaultGlobalConfig() GlobalConfig {
	return GlobalConfig{
		Timeout: "10s",
		Logger: LoggerConfig{
			Level:  "DEBUG",
			Format: "json",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Exporter: "null",
		},
	}
}

func (c GlobalConfig) GetTimeout() (time.Duration, error) {
	return time.ParseDuration(c.Timeout)
}

// ChainEntry is one element of the "chains" list. The "type" attribute names
// the module that owns the entry; the remaining attributes are decoded by
// that module's chain config.
type ChainEntry struct {
	Type  string
	Attrs map[string]interface{}
}

var _ yaml.Unmarshaler = (*ChainEntry)(nil)

func (e *ChainEntry) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw map[string]interface{}
	if err := unmarshal(&raw); err != nil {
		return err
	}
	chainType, ok := raw["type"].(string)
	if !ok {
		return errors.New("chain entry misses the \"type\" attribute")
	}
	delete(raw, "type")
	e.Type = chainType
	e.Attrs = raw
	return nil
}

var _ yaml.Marshaler = ChainEntry{}

func (e ChainEntry) MarshalYAML() (interface{}, error) {
	out := map[string]interface{}{"type": e.Type}
	for k, v := range e.Attrs {
		out[k] = v
	}
	return out, nil
}

// decode unmarshals the entry attributes into the module's typed config.
func (e ChainEntry) decode(out ChainConfig) error {
	bz, err := yaml.Marshal(e.Attrs)
	if err != nil {
		return err
	}
	return yaml.Unmarshal(bz, out)
}

// LoadConfig reads and parses the config file without building chains.
func LoadConfig(configPath string) (*Config, error) {
	bz, err := os.ReadFile(configPath)
	if err != nil {
		return nil, err
	}
	var config Config
	if err := yaml.Unmarshal(bz, &config); err != nil {
		return nil, errors.Wrapf(err, "failed to parse %s", configPath)
	}
	config.ConfigPath = configPath
	return &config, nil
}

// Save writes the config back to its file.
func (c *Config) Save() error {
	bz, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(c.ConfigPath), os.ModePerm); err != nil {
		return err
	}
	return os.WriteFile(c.ConfigPath, bz, 0o600)
}

// InitChains validates every chain entry and builds the chain handles using
// the registered modules.
func (c *Config) InitChains(modules []ModuleI) error {
	byName := make(map[string]ModuleI, len(modules))
	for _, m := range modules {
		byName[m.Name()] = m
	}

	c.chains = make(map[string]core.Chain, len(c.Chains))
	for i, entry := range c.Chains {
		m, ok := byName[entry.Type]
		if !ok {
			return fmt.Errorf("chains[%d]: unknown chain type %q", i, entry.Type)
		}
		cc := m.NewChainConfig()
		if err := entry.decode(cc); err != nil {
			return errors.Wrapf(err, "chains[%d]", i)
		}
		if err := cc.Validate(); err != nil {
			return errors.Wrapf(err, "chains[%d]", i)
		}
		chain, err := cc.Build()
		if err != nil {
			return errors.Wrapf(err, "chains[%d]", i)
		}
		if _, ok := c.chains[chain.ChainID()]; ok {
			return fmt.Errorf("chains[%d]: duplicate chain id %q", i, chain.ChainID())
		}
		c.chains[chain.ChainID()] = chain
	}
	return nil
}

func (c *Config) GetChain(chainID string) (core.Chain, error) {
	chain, ok := c.chains[chainID]
	if !ok {
		return nil, fmt.Errorf("chain %q not found", chainID)
	}
	return chain, nil
}

func (c *Config) GetSourceChain(chainID string) (core.SourceChain, error) {
	chain, err := c.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	src, ok := chain.(core.SourceChain)
	if !ok {
		return nil, fmt.Errorf("chain %q cannot serve as a source chain", chainID)
	}
	return src, nil
}

func (c *Config) GetDestChain(chainID string) (core.DestChain, error) {
	chain, err := c.GetChain(chainID)
	if err != nil {
		return nil, err
	}
	dst, ok := chain.(core.DestChain)
	if !ok {
		return nil, fmt.Errorf("chain %q cannot serve as a destination chain", chainID)
	}
	return dst, nil
}

func (c *Config) GetPath(name string) (*PathConfig, error) {
	for i := range c.Paths {
		if c.Paths[i].Name == name {
			return &c.Paths[i], nil
		}
	}
	return nil, fmt.Errorf("path %q not found", name)
}

// ChainsFromPath resolves a path into its source and destination handles.
func (c *Config) ChainsFromPath(name string) (core.SourceChain, []core.DestChain, error) {
	path, err := c.GetPath(name)
	if err != nil {
		return nil, nil, err
	}
	src, err := c.GetSourceChain(path.Source)
	if err != nil {
		return nil, nil, err
	}
	if len(path.Destinations) == 0 {
		return nil, nil, fmt.Errorf("path %q has no destinations", name)
	}
	dsts := make([]core.DestChain, len(path.Destinations))
	for i, chainID := range path.Destinations {
		if dsts[i], err = c.GetDestChain(chainID); err != nil {
			return nil, nil, err
		}
	}
	return src, dsts, nil
}
