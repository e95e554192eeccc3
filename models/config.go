package models

import (
	"os"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/szgerii/Safari-sub001/quadtree"
	"gopkg.in/yaml.v3"
)

const (
	ErrTypeInvalidConfig = "invalid_config"
)

// Config describes a level: its map, the tuning of its spatial index and the
// entities spawned when it loads.
type Config struct {
	Name     string          `yaml:"name"`
	Bounds   quadtree.Rect   `yaml:"bounds"`
	Quadtree quadtree.Config `yaml:"quadtree"`

	// Also index jeeps, which are left out by default.
	IndexVehicles bool `yaml:"index_vehicles"`

	Spawns []SpawnConfig `yaml:"spawns"`
}

// SpawnConfig describes a group of entities of one kind.
type SpawnConfig struct {
	Kind   EntityKind `yaml:"kind"`
	Count  int        `yaml:"count"`
	Width  float64    `yaml:"width"`
	Height float64    `yaml:"height"`
}

// DefaultConfig returns a savanna level sized for a few hundred entities.
func DefaultConfig() Config {
	return Config{
		Name:   "savanna",
		Bounds: quadtree.NewRect(0, 0, 4096, 4096),
		Quadtree: quadtree.Config{
			Capacity:               8,
			MaxDepth:               6,
			ExpectedCollisionCount: 32,
		},
		Spawns: []SpawnConfig{
			{Kind: KindAnimal, Count: 200, Width: 24, Height: 24},
			{Kind: KindRanger, Count: 10, Width: 16, Height: 16},
			{Kind: KindPoacher, Count: 6, Width: 16, Height: 16},
			{Kind: KindTourist, Count: 40, Width: 12, Height: 12},
			{Kind: KindJeep, Count: 8, Width: 32, Height: 18},
			{Kind: KindPlant, Count: 400, Width: 8, Height: 8},
		},
	}
}

// LoadConfig reads a level from a YAML file. Settings missing from the file
// keep their default value, spawns excepted.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.New("reading level file failed").
			WithTag("path", path).
			Wrap(err)
	}

	conf, err := ParseConfig(data)
	if err != nil {
		return Config{}, errors.New("loading level file failed").
			WithTag("path", path).
			Wrap(err)
	}
	return conf, nil
}

// ParseConfig decodes and validates a YAML level.
func ParseConfig(data []byte) (Config, error) {
	conf := DefaultConfig()
	conf.Spawns = nil

	if err := yaml.Unmarshal(data, &conf); err != nil {
		return Config{}, errors.New("parsing level yaml failed").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	if err := conf.Validate(); err != nil {
		return Config{}, err
	}
	return conf, nil
}

func (c Config) Validate() error {
	if c.Name == "" {
		return errors.New("level name is empty").WithType(ErrTypeInvalidConfig)
	}

	if !c.Bounds.Valid() || c.Bounds.Width == 0 || c.Bounds.Height == 0 {
		return errors.New("level bounds must have a positive area").
			WithType(ErrTypeInvalidConfig).
			WithTag("bounds", c.Bounds.String())
	}

	if err := c.Quadtree.Validate(); err != nil {
		return errors.New("invalid level quadtree").
			WithType(ErrTypeInvalidConfig).
			Wrap(err)
	}

	for i, s := range c.Spawns {
		if s.Kind == KindUnknown {
			return errors.New("spawn kind is missing").
				WithType(ErrTypeInvalidConfig).
				WithTag("spawn", i)
		}
		if s.Count < 0 || s.Width < 0 || s.Height < 0 {
			return errors.New("spawn count and size must not be negative").
				WithType(ErrTypeInvalidConfig).
				WithTag("spawn", i).
				WithTag("kind", s.Kind.String())
		}
		if s.Width > c.Bounds.Width || s.Height > c.Bounds.Height {
			return errors.New("spawn size exceeds the level bounds").
				WithType(ErrTypeInvalidConfig).
				WithTag("spawn", i).
				WithTag("kind", s.Kind.String())
		}
	}
	return nil
}

// IndexPolicy returns the index policy of the level.
func (c Config) IndexPolicy() IndexPolicy {
	if c.IndexVehicles {
		return IndexKinds(KindAnimal, KindRanger, KindPoacher, KindJeep, KindPlant)
	}
	return DefaultIndexPolicy
}
