// Package catalog describes the resources the console can browse and the
// recon presets it can run. The default catalog is embedded; a YAML file
// with the same shape can replace it.
package catalog

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/mmcdole/recon/internal/domain"
)

//go:embed resources.yaml
var embedded []byte

// DefaultItemPath is used when a resource does not declare one.
const DefaultItemPath = "{id}"

const defaultColumnWidth = 16

// Catalog is an immutable set of resources and run presets.
type Catalog struct {
	Resources       []domain.Resource  `yaml:"resources"`
	Presets         []domain.RunPreset `yaml:"presets"`
	CommandTemplate string             `yaml:"command_template"`

	byKey    map[string]int
	template *template.Template
}

// Invocation holds the values substituted into the command template.
type Invocation struct {
	Binary  string
	Mode    string
	Program string
	Target  string
	LastRun bool
	Verbose bool
}

// Default returns the embedded catalog.
func Default() (*Catalog, error) {
	return Parse(embedded)
}

// Load reads the catalog from file, or returns the embedded catalog when
// file is empty.
func Load(file string) (*Catalog, error) {
	if file == "" {
		return Default()
	}
	data, err := os.ReadFile(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog: %w", err)
	}
	return Parse(data)
}

// Parse decodes and validates a catalog document.
func Parse(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := c.init(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Catalog) init() error {
	if len(c.Resources) == 0 {
		return errors.New("catalog: no resources defined")
	}

	c.byKey = make(map[string]int, len(c.Resources))
	for i := range c.Resources {
		r := &c.Resources[i]
		if r.Key == "" || r.Path == "" {
			return fmt.Errorf("catalog: resource %d needs key and path", i)
		}
		if _, dup := c.byKey[r.Key]; dup {
			return fmt.Errorf("catalog: duplicate resource %q", r.Key)
		}
		c.byKey[r.Key] = i

		r.Path = strings.Trim(r.Path, "/")
		if r.ItemPath == "" {
			r.ItemPath = DefaultItemPath
		}
		if r.Title == "" {
			r.Title = r.Key
		}
		if len(r.Columns) == 0 {
			return fmt.Errorf("catalog: resource %q has no columns", r.Key)
		}
		for j := range r.Columns {
			col := &r.Columns[j]
			if col.Width <= 0 {
				col.Width = defaultColumnWidth
			}
			if col.Kind == "" {
				col.Kind = domain.KindText
			}
			if col.Header == "" {
				col.Header = col.Path
			}
		}
	}

	seen := make(map[string]bool, len(c.Presets))
	for _, p := range c.Presets {
		if p.Key == "" || p.Mode == "" {
			return errors.New("catalog: preset needs key and mode")
		}
		if seen[p.Key] {
			return fmt.Errorf("catalog: duplicate preset %q", p.Key)
		}
		seen[p.Key] = true
	}

	if c.CommandTemplate == "" {
		return nil
	}
	tmpl, err := template.New("command").Option("missingkey=error").Parse(c.CommandTemplate)
	if err != nil {
		return fmt.Errorf("catalog: invalid command template: %w", err)
	}
	c.template = tmpl
	return nil
}

// Resource looks up a resource by key.
func (c *Catalog) Resource(key string) (domain.Resource, error) {
	i, ok := c.byKey[key]
	if !ok {
		return domain.Resource{}, fmt.Errorf("%w: %s", domain.ErrUnknownResource, key)
	}
	return c.Resources[i], nil
}

// Groups returns resource groups in declaration order.
func (c *Catalog) Groups() []string {
	var groups []string
	seen := make(map[string]bool)
	for _, r := range c.Resources {
		if !seen[r.Group] {
			seen[r.Group] = true
			groups = append(groups, r.Group)
		}
	}
	return groups
}

// Preset looks up a run preset by key.
func (c *Catalog) Preset(key string) (domain.RunPreset, bool) {
	for _, p := range c.Presets {
		if p.Key == key {
			return p, true
		}
	}
	return domain.RunPreset{}, false
}

// Command renders the command line for an invocation.
func (c *Catalog) Command(inv Invocation) (string, error) {
	if c.template == nil {
		return "", errors.New("catalog: no command template")
	}
	if inv.Mode == "" {
		return "", domain.ErrEmptyCommand
	}
	var b strings.Builder
	if err := c.template.Execute(&b, inv); err != nil {
		return "", fmt.Errorf("failed to render command: %w", err)
	}
	return strings.TrimSpace(b.String()), nil
}
