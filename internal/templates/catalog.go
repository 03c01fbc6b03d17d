package templates

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

type Catalog struct {
	Projects []CatalogProject `yaml:"projects"`
}

type CatalogProject struct {
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	ColorTheme  string         `yaml:"color_theme"`
	Boards      []CatalogBoard `yaml:"boards"`
	Lists       []CatalogList  `yaml:"lists"`
}

type CatalogBoard struct {
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	ColorTheme  string      `yaml:"color_theme"`
	Stages      []StageSpec `yaml:"stages"`
	Tasks       []TaskSpec  `yaml:"tasks"`
}

func (b CatalogBoard) Data() BoardData {
	return BoardData{Stages: b.Stages, Tasks: b.Tasks}
}

type CatalogList struct {
	Name       string   `yaml:"name"`
	ColorTheme string   `yaml:"color_theme"`
	Items      []string `yaml:"items"`
}

// Data numbers the items in catalog order.
func (l CatalogList) Data() ListData {
	d := ListData{Items: make([]ItemSpec, len(l.Items))}
	for i, content := range l.Items {
		d.Items[i] = ItemSpec{Content: content, Position: i}
	}
	return d
}

var (
	catalogOnce sync.Once
	catalog     Catalog
	catalogErr  error
)

// DefaultCatalog returns the starter templates seeded for new users.
func DefaultCatalog() (Catalog, error) {
	catalogOnce.Do(func() {
		catalog, catalogErr = ParseCatalog(catalogYAML)
	})
	return catalog, catalogErr
}

func ParseCatalog(raw []byte) (Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return Catalog{}, fmt.Errorf("parse template catalog: %w", err)
	}
	for i := range c.Projects {
		p := &c.Projects[i]
		if p.ColorTheme == "" {
			p.ColorTheme = "blue"
		}
		for j := range p.Boards {
			if p.Boards[j].ColorTheme == "" {
				p.Boards[j].ColorTheme = "blue"
			}
		}
		for j := range p.Lists {
			if p.Lists[j].ColorTheme == "" {
				p.Lists[j].ColorTheme = "gray"
			}
		}
	}
	return c, nil
}
