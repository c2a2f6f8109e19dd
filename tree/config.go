package tree

import (
	"math/big"
	"os"
	"runtime"
	"strconv"
	"strings"

	"golang.org/x/xerrors"
	"gopkg.in/yaml.v2"

	"quantumvault/entropy"
	"quantumvault/secretsharing"
)

// Level describes one split of the tree: every node of the level above is
// split into Count shares, any Threshold of which rebuild it.
type Level struct {
	Name string `yaml:"name"`
	// Labels names the shares in index order. When empty the shares are
	// called "<Prefix> <index>".
	Labels []string `yaml:"labels,omitempty"`
	// Prefix defaults to Name.
	Prefix    string `yaml:"prefix,omitempty"`
	Threshold int    `yaml:"threshold"`
	Count     int    `yaml:"count"`
}

// Label returns the label of the share with the given index, starting at 1.
func (l Level) Label(index int) string {
	if len(l.Labels) > 0 {
		return l.Labels[index-1]
	}

	prefix := l.Prefix
	if prefix == "" {
		prefix = l.Name
	}
	return prefix + " " + strconv.Itoa(index)
}

// IndexOf returns the share index carried by label.
func (l Level) IndexOf(label string) (uint32, bool) {
	for i := 1; i <= l.Count; i++ {
		if l.Label(i) == label {
			return uint32(i), true
		}
	}
	return 0, false
}

func (l Level) validate(maxShares int) error {
	if l.Name == "" {
		return xerrors.New("level has no name")
	}
	if len(l.Labels) > 0 && len(l.Labels) != l.Count {
		return xerrors.Errorf("level %s has %d labels for %d shares", l.Name, len(l.Labels), l.Count)
	}
	if l.Count < 1 || l.Count > maxShares {
		return xerrors.Errorf("level %s: count %d not in [1, %d]: %w",
			l.Name, l.Count, maxShares, secretsharing.ErrInvalidThreshold)
	}
	if l.Threshold < 1 || l.Threshold > l.Count {
		return xerrors.Errorf("level %s: threshold %d not in [1, %d]: %w",
			l.Name, l.Threshold, l.Count, secretsharing.ErrInvalidThreshold)
	}

	seen := make(map[string]struct{}, l.Count)
	for i := 1; i <= l.Count; i++ {
		label := l.Label(i)
		if label == "" || strings.Contains(label, PathSeparator) {
			return xerrors.Errorf("level %s: invalid label %q", l.Name, label)
		}
		if _, ok := seen[label]; ok {
			return xerrors.Errorf("level %s: duplicate label %q", l.Name, label)
		}
		seen[label] = struct{}{}
	}
	return nil
}

// Config is the shape of the tree and the field it is computed in. It is
// passed explicitly so that tests can use toy parameters.
type Config struct {
	// Modulus is the field prime in any base accepted by big.Int.SetString
	// with base 0 ("0x..." for hex). Empty means the default modulus.
	Modulus string `yaml:"modulus,omitempty"`
	// Workers bounds the number of concurrent splits inside a level.
	// Defaults to the number of CPUs.
	Workers int     `yaml:"workers,omitempty"`
	Levels  []Level `yaml:"levels"`
}

// DefaultConfig returns the geographic hierarchy: 4 Cardinals (3 needed),
// 5 States per Cardinal (3 needed) and 5 Districts per State (3 needed).
func DefaultConfig() Config {
	return Config{
		Levels: []Level{
			{
				Name:      "Cardinal",
				Labels:    []string{"North", "South", "East", "West"},
				Threshold: 3,
				Count:     4,
			},
			{
				Name:      "State",
				Threshold: 3,
				Count:     5,
			},
			{
				Name:      "District",
				Threshold: 3,
				Count:     5,
			},
		},
	}
}

// WithDistricts returns a copy of the configuration where the last level
// produces n shares with threshold t.
func (c Config) WithDistricts(t, n int) Config {
	levels := make([]Level, len(c.Levels))
	copy(levels, c.Levels)
	if len(levels) > 0 {
		last := &levels[len(levels)-1]
		last.Threshold = t
		last.Count = n
	}
	c.Levels = levels
	return c
}

// Field returns the field described by Modulus.
func (c Config) Field() (*secretsharing.Field, error) {
	if c.Modulus == "" {
		return secretsharing.DefaultField(), nil
	}

	p, ok := new(big.Int).SetString(c.Modulus, 0)
	if !ok {
		return nil, xerrors.Errorf("invalid modulus %q", c.Modulus)
	}
	return secretsharing.NewField(p)
}

// Scheme returns a secret sharing scheme over the configured field.
func (c Config) Scheme(random *entropy.Source, production bool) (*secretsharing.Scheme, error) {
	f, err := c.Field()
	if err != nil {
		return nil, xerrors.Errorf("failed to create field: %v", err)
	}

	return secretsharing.NewScheme(secretsharing.Config{
		Field:      f,
		Random:     random,
		Production: production,
	})
}

// Validate checks every level against the field size.
func (c Config) Validate() error {
	f, err := c.Field()
	if err != nil {
		return xerrors.Errorf("failed to create field: %v", err)
	}
	if len(c.Levels) == 0 {
		return xerrors.New("tree has no level")
	}

	for _, level := range c.Levels {
		err := level.validate(f.MaxShares())
		if err != nil {
			return err
		}
	}
	return nil
}

func (c Config) workers() int {
	if c.Workers > 0 {
		return c.Workers
	}
	return runtime.NumCPU()
}

// LoadConfig reads a YAML configuration. Levels missing from the file are
// taken from DefaultConfig.
func LoadConfig(path string) (Config, error) {
	buf, err := os.ReadFile(path)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to read config file: %v", err)
	}

	conf := Config{}
	err = yaml.Unmarshal(buf, &conf)
	if err != nil {
		return Config{}, xerrors.Errorf("failed to unmarshal config: %v", err)
	}

	if len(conf.Levels) == 0 {
		conf.Levels = DefaultConfig().Levels
	}

	for i := range conf.Levels {
		if conf.Levels[i].Count == 0 {
			conf.Levels[i].Count = len(conf.Levels[i].Labels)
		}
	}

	err = conf.Validate()
	if err != nil {
		return Config{}, xerrors.Errorf("invalid config: %w", err)
	}

	return conf, nil
}
