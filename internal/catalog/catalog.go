package catalog

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v2"
)

// Entry is one bookable service. Name is the value stored on a booking,
// Title and Price label the landing page card.
type Entry struct {
	Name  string `yaml:"name"`
	Title string `yaml:"title"`
	Price string `yaml:"price"`
}

type Catalog struct {
	entries []Entry
}

var defaultEntries = []Entry{
	{Name: "Fade / Taper (High & Low) - KES 700", Title: "Fade / Taper", Price: "High & Low • KES 700"},
	{Name: "Twists - KES 1,500", Title: "Twists", Price: "Premium styling • KES 1,500"},
	{Name: "Cornrows - KES 1,500", Title: "Cornrows", Price: "Expert braiding • KES 1,500"},
	{Name: "Finger Coils - KES 2,000", Title: "Finger Coils", Price: "Signature style • KES 2,000"},
}

// Default returns the built-in Heritage Blade price list.
func Default() *Catalog {
	return New(defaultEntries)
}

func New(entries []Entry) *Catalog {
	return &Catalog{entries: append([]Entry(nil), entries...)}
}

// Parse reads a catalog from YAML of the form `services: [{name, title, price}]`.
func Parse(data []byte) (*Catalog, error) {
	var file struct {
		Services []Entry `yaml:"services"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse services: %w", err)
	}
	if len(file.Services) == 0 {
		return nil, errors.New("services list is empty")
	}

	for i := range file.Services {
		e := &file.Services[i]
		e.Name = strings.TrimSpace(e.Name)
		if e.Name == "" {
			return nil, fmt.Errorf("service %d has no name", i+1)
		}
		if e.Title == "" {
			e.Title = e.Name
		}
	}
	return New(file.Services), nil
}

// Load reads the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

func (c *Catalog) Entries() []Entry {
	return append([]Entry(nil), c.entries...)
}

// Names lists the values offered by the booking form's service select.
func (c *Catalog) Names() []string {
	names := make([]string, len(c.entries))
	for i, e := range c.entries {
		names[i] = e.Name
	}
	return names
}

// First is the default service selection.
func (c *Catalog) First() string {
	if len(c.entries) == 0 {
		return ""
	}
	return c.entries[0].Name
}

// Resolve returns the first service whose name starts with prefix, or the
// default when prefix is empty or nothing matches.
func (c *Catalog) Resolve(prefix string) string {
	if prefix == "" {
		return c.First()
	}
	for _, e := range c.entries {
		if strings.HasPrefix(e.Name, prefix) {
			return e.Name
		}
	}
	return c.First()
}

// Contains reports whether name is one of the catalog services.
func (c *Catalog) Contains(name string) bool {
	for _, e := range c.entries {
		if e.Name == name {
			return true
		}
	}
	return false
}
