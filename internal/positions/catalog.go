package positions

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/kapu/endgame-coach-go/internal/domain"
	yaml "gopkg.in/yaml.v3"
)

//go:embed drills.yaml
var defaultFiles embed.FS

var ErrDrillNotFound = errors.New("drill not found")

// Catalog holds the training positions, loaded from embedded defaults plus an
// optional override directory of extra YAML files.
type Catalog struct {
	byID  map[string]domain.Drill
	order []string
}

type drillFile struct {
	Drills []struct {
		ID    string `yaml:"id"`
		Title string `yaml:"title"`
		FEN   string `yaml:"fen"`
		Goal  string `yaml:"goal"`
		Hint  string `yaml:"hint"`
	} `yaml:"drills"`
}

// New loads the embedded drills and then applies overrides from dir if given.
// Override entries with a known id replace the default drill.
func New(overrideDir string) (*Catalog, error) {
	c := &Catalog{byID: make(map[string]domain.Drill)}

	raw, err := fs.ReadFile(defaultFiles, "drills.yaml")
	if err != nil {
		return nil, fmt.Errorf("read embedded drills: %w", err)
	}
	if err := c.applyYAML(raw); err != nil {
		return nil, err
	}

	if strings.TrimSpace(overrideDir) != "" {
		if err := c.applyDir(overrideDir); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func (c *Catalog) applyDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read drills dir: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(e.Name()))
		if ext == ".yaml" || ext == ".yml" {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)
	for _, name := range names {
		raw, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("read %s: %w", name, err)
		}
		if err := c.applyYAML(raw); err != nil {
			return fmt.Errorf("parse %s: %w", name, err)
		}
	}
	return nil
}

func (c *Catalog) applyYAML(raw []byte) error {
	var file drillFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return fmt.Errorf("parse drills: %w", err)
	}
	for _, d := range file.Drills {
		id := strings.TrimSpace(d.ID)
		if id == "" || strings.TrimSpace(d.FEN) == "" {
			return fmt.Errorf("drill needs id and fen: %+v", d)
		}
		goal := strings.ToLower(strings.TrimSpace(d.Goal))
		if goal != "win" && goal != "draw" {
			return fmt.Errorf("drill %s: goal must be win or draw, got %q", id, d.Goal)
		}
		if _, exists := c.byID[id]; !exists {
			c.order = append(c.order, id)
		}
		c.byID[id] = domain.Drill{
			ID:    id,
			Title: strings.TrimSpace(d.Title),
			FEN:   strings.TrimSpace(d.FEN),
			Goal:  goal,
			Hint:  strings.TrimSpace(d.Hint),
		}
	}
	return nil
}

func (c *Catalog) Get(id string) (domain.Drill, error) {
	d, ok := c.byID[strings.TrimSpace(id)]
	if !ok {
		return domain.Drill{}, ErrDrillNotFound
	}
	return d, nil
}

// List returns the drills in load order.
func (c *Catalog) List() []domain.Drill {
	out := make([]domain.Drill, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, c.byID[id])
	}
	return out
}
