package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vancomm/minesweeper/internal/mines"
)

type Difficulty struct {
	Name             string `json:"name" yaml:"name"`
	mines.GameParams `yaml:",inline"`
}

var builtinDifficulties = []Difficulty{
	{Name: "Easy", GameParams: mines.GameParams{Cols: 9, Rows: 9, MineCount: 10}},
	{Name: "Normal", GameParams: mines.GameParams{Cols: 16, Rows: 16, MineCount: 40}},
	{Name: "Hard", GameParams: mines.GameParams{Cols: 30, Rows: 20, MineCount: 99}},
}

const builtinDefault = "Normal"

// Difficulties are the presets offered to players, from easiest to hardest.
type Difficulties struct {
	Presets []Difficulty `yaml:"presets"`
	Default string       `yaml:"default"`
}

func BuiltinDifficulties() *Difficulties {
	presets := make([]Difficulty, len(builtinDifficulties))
	copy(presets, builtinDifficulties)
	return &Difficulties{Presets: presets, Default: builtinDefault}
}

// NewDifficulties uses the built-in presets unless DIFFICULTIES_FILE names
// a YAML file with its own. DEFAULT_DIFFICULTY overrides the default of
// either.
func NewDifficulties() (*Difficulties, error) {
	d := BuiltinDifficulties()
	if path, ok := os.LookupEnv("DIFFICULTIES_FILE"); ok && path != "" {
		var err error
		if d, err = LoadDifficulties(path); err != nil {
			return nil, err
		}
	}
	if name, ok := os.LookupEnv("DEFAULT_DIFFICULTY"); ok && name != "" {
		d.Default = name
	}
	if _, err := d.Lookup(d.Default); err != nil {
		return nil, fmt.Errorf("invalid default difficulty: %w", err)
	}
	return d, nil
}

func LoadDifficulties(path string) (*Difficulties, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("unable to read difficulties: %w", err)
	}
	var d Difficulties
	if err := yaml.Unmarshal(data, &d); err != nil {
		return nil, fmt.Errorf("unable to parse %s: %w", path, err)
	}
	if err := d.validate(); err != nil {
		return nil, fmt.Errorf("invalid difficulties in %s: %w", path, err)
	}
	if d.Default == "" {
		d.Default = d.Presets[0].Name
	}
	return &d, nil
}

func (d *Difficulties) validate() error {
	if len(d.Presets) == 0 {
		return fmt.Errorf("no presets")
	}
	seen := make(map[string]bool, len(d.Presets))
	for _, p := range d.Presets {
		key := strings.ToLower(p.Name)
		if key == "" {
			return fmt.Errorf("preset without a name")
		}
		if seen[key] {
			return fmt.Errorf("duplicate preset %q", p.Name)
		}
		seen[key] = true
		if err := p.Validate(); err != nil {
			return fmt.Errorf("preset %q: %w", p.Name, err)
		}
	}
	return nil
}

func (d *Difficulties) Lookup(name string) (Difficulty, error) {
	for _, p := range d.Presets {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return Difficulty{}, fmt.Errorf("unknown difficulty %q", name)
}

func (d *Difficulties) DefaultDifficulty() Difficulty {
	p, err := d.Lookup(d.Default)
	if err != nil {
		return d.Presets[0]
	}
	return p
}
