// Package config loads the board layout from YAML files.
//
// Several files may be given; their top-level keys are merged in order, so a
// later file replaces whole sections (for example "spiders") of an earlier one.
package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"spiders/application/agent"
	"spiders/domain"
	"spiders/utils"
)

var (
	ErrNoFiles       = errors.New("config: no yaml files")
	ErrInvalidConfig = errors.New("config: invalid config")
)

//go:embed default.yml
var defaultYAML []byte

type PlayField struct {
	Height int `yaml:"height"`
	Width  int `yaml:"width"`
}

type Spider struct {
	Route        [][]int `yaml:"route"`
	Boundary     [][]int `yaml:"boundary"`
	RoutePassing string  `yaml:"route-passing"`
}

type Delays struct {
	Spider time.Duration `yaml:"spider"`
	Patron time.Duration `yaml:"patron"`
	Player time.Duration `yaml:"player"`
}

// Config mirrors the YAML document.
type Config struct {
	PlayField         PlayField         `yaml:"play-field"`
	NumberOfSpiders   int               `yaml:"number-of-spiders"`
	PlayerCoordinates []int             `yaml:"player-coordinates"`
	WallsCoordinates  [][]int           `yaml:"walls-coordinates"`
	ExitCoordinates   []int             `yaml:"exit-coordinates"`
	Spiders           map[string]Spider `yaml:"spiders"`
	Delays            *Delays           `yaml:"delays"`
}

// Default returns the built-in 10x10 layout.
func Default() (*Config, error) {
	return decode(defaultYAML)
}

// Load reads and merges the given files in order.
func Load(paths ...string) (*Config, error) {
	if len(paths) == 0 {
		return nil, ErrNoFiles
	}
	merged := make(map[string]*yaml.Node)
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		var doc map[string]*yaml.Node
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, path, err)
		}
		for k, v := range doc {
			merged[k] = v
		}
	}
	data, err := yaml.Marshal(merged)
	if err != nil {
		return nil, fmt.Errorf("config: merge: %w", err)
	}
	return decode(data)
}

// LoadDir merges every .yml/.yaml file in dir, in name order.
func LoadDir(dir string) (*Config, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("config: read dir %s: %w", dir, err)
	}
	var paths []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".yml", ".yaml":
			paths = append(paths, filepath.Join(dir, e.Name()))
		}
	}
	if len(paths) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoFiles, dir)
	}
	sort.Strings(paths)
	return Load(paths...)
}

// Resolve loads path as a file or a directory; an empty path yields Default.
func Resolve(path string) (*Config, error) {
	if path == "" {
		return Default()
	}
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if info.IsDir() {
		return LoadDir(path)
	}
	return Load(path)
}

func decode(data []byte) (*Config, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var cfg Config
	if err := dec.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the document shape. Board rules (reachability, walls under
// routes) are checked when the session is built.
func (c *Config) Validate() error {
	var errs []error
	if c.PlayField.Height <= 0 || c.PlayField.Width <= 0 {
		errs = append(errs, fmt.Errorf("play-field must be positive, got %dx%d", c.PlayField.Height, c.PlayField.Width))
	}
	if len(c.PlayerCoordinates) != 2 {
		errs = append(errs, errors.New("player-coordinates must be a [row, col] pair"))
	}
	if len(c.ExitCoordinates) != 2 {
		errs = append(errs, errors.New("exit-coordinates must be a [row, col] pair"))
	}
	for i, w := range c.WallsCoordinates {
		if len(w) != 2 {
			errs = append(errs, fmt.Errorf("walls-coordinates[%d] must be a [row, col] pair", i))
		}
	}
	if len(c.Spiders) == 0 {
		errs = append(errs, errors.New("at least one spider is required"))
	}
	if c.NumberOfSpiders != 0 && c.NumberOfSpiders != len(c.Spiders) {
		errs = append(errs, fmt.Errorf("number-of-spiders is %d but %d spiders are defined", c.NumberOfSpiders, len(c.Spiders)))
	}
	for _, name := range c.spiderNames() {
		sp := c.Spiders[name]
		if len(sp.Route) == 0 {
			errs = append(errs, fmt.Errorf("spider %q: route is empty", name))
		}
		for i, p := range slices.Concat(sp.Route, sp.Boundary) {
			if len(p) != 2 {
				errs = append(errs, fmt.Errorf("spider %q: coordinate %d must be a [row, col] pair", name, i))
			}
		}
		if _, err := domain.ParsePassingMode(sp.RoutePassing); err != nil {
			errs = append(errs, fmt.Errorf("spider %q: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

func (c *Config) spiderNames() []string {
	names := make([]string, 0, len(c.Spiders))
	for name := range c.Spiders {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Layout converts the document into a domain.Layout. Spiders are ordered by name.
func (c *Config) Layout() (domain.Layout, error) {
	if err := c.Validate(); err != nil {
		return domain.Layout{}, err
	}
	l := domain.Layout{
		Height:      c.PlayField.Height,
		Width:       c.PlayField.Width,
		Walls:       positions(c.WallsCoordinates),
		Exit:        position(c.ExitCoordinates),
		PlayerStart: position(c.PlayerCoordinates),
	}
	for _, name := range c.spiderNames() {
		sp := c.Spiders[name]
		mode, _ := domain.ParsePassingMode(sp.RoutePassing)
		l.Spiders = append(l.Spiders, domain.SpiderPlan{
			Name:     name,
			Route:    positions(sp.Route),
			Boundary: positions(sp.Boundary),
			Passing:  mode,
		})
	}
	return l, nil
}

// AgentDelays returns the agent delays. The SPIDERS_DELAY_* variables take
// precedence over the YAML delays block, which overrides the defaults.
func (c *Config) AgentDelays() (agent.Delays, error) {
	d := agent.DefaultDelays()
	if c.Delays != nil {
		if c.Delays.Spider > 0 {
			d.Spider = c.Delays.Spider
		}
		if c.Delays.Patron > 0 {
			d.Patron = c.Delays.Patron
		}
		if c.Delays.Player > 0 {
			d.Player = c.Delays.Player
		}
	}
	var err error
	if d.Spider, err = envDuration("SPIDERS_DELAY_SPIDER", d.Spider); err != nil {
		return d, err
	}
	if d.Patron, err = envDuration("SPIDERS_DELAY_PATRON", d.Patron); err != nil {
		return d, err
	}
	if d.Player, err = envDuration("SPIDERS_DELAY_PLAYER", d.Player); err != nil {
		return d, err
	}
	return d, nil
}

func envDuration(key string, def time.Duration) (time.Duration, error) {
	v := utils.GetEnvDefault(key, "")
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d < 0 {
		return def, fmt.Errorf("%w: %s=%q", ErrInvalidConfig, key, v)
	}
	return d, nil
}

func position(p []int) domain.Position {
	return domain.Position{Row: p[0], Col: p[1]}
}

func positions(ps [][]int) []domain.Position {
	out := make([]domain.Position, 0, len(ps))
	for _, p := range ps {
		out = append(out, position(p))
	}
	return out
}
