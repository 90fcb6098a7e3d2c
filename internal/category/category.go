package category

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v2"
)

// Category is a static reference entity for classifying line items
type Category struct {
	ID          string `yaml:"id" validate:"required,len=3,alpha"`
	Name        string `yaml:"name" validate:"required"`
	Description string `yaml:"description"`
}

// Directory provides case-insensitive category lookup by id or name.
// Immutable after construction.
type Directory struct {
	categories []Category
	index      map[string]int
}

var validate = validator.New()

// New builds a Directory from the given categories, validating each one
func New(categories []Category) (*Directory, error) {
	if len(categories) == 0 {
		return nil, fmt.Errorf("at least one category is required")
	}

	d := &Directory{
		categories: categories,
		index:      make(map[string]int, len(categories)*2),
	}
	for i, c := range categories {
		if err := validate.Struct(c); err != nil {
			return nil, fmt.Errorf("invalid category %q: %w", c.ID, err)
		}
		d.index[strings.ToLower(c.ID)] = i
		d.index[strings.ToLower(c.Name)] = i
	}
	return d, nil
}

// Load reads a YAML category file and builds a Directory
func Load(path string) (*Directory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category file: %w", err)
	}

	var categories []Category
	if err := yaml.Unmarshal(data, &categories); err != nil {
		return nil, fmt.Errorf("parsing category file: %w", err)
	}

	return New(categories)
}

// Default returns the built-in category set
func Default() *Directory {
	d, err := New([]Category{
		{ID: "FOD", Name: "Food", Description: "Groceries and everyday food"},
		{ID: "HSH", Name: "Household", Description: "Household goods and supplies"},
		{ID: "CHM", Name: "Chemicals", Description: "Cleaning and hygiene products"},
		{ID: "ALC", Name: "Alcohol", Description: "Beer, wine and spirits"},
		{ID: "CLO", Name: "Clothing", Description: "Clothes, shoes and accessories"},
		{ID: "ELE", Name: "Electronics", Description: "Electronics and appliances"},
		{ID: "OTH", Name: "Other", Description: "Everything else"},
	})
	if err != nil {
		panic(err)
	}
	return d
}

// Lookup finds a category by id or name, case-insensitively
func (d *Directory) Lookup(idOrName string) (Category, bool) {
	i, ok := d.index[strings.ToLower(strings.TrimSpace(idOrName))]
	if !ok {
		return Category{}, false
	}
	return d.categories[i], true
}

// All returns the categories in declaration order
func (d *Directory) All() []Category {
	out := make([]Category, len(d.categories))
	copy(out, d.categories)
	return out
}

// Summary formats the category list for chat prompts
func (d *Directory) Summary() string {
	var b strings.Builder
	for _, c := range d.categories {
		fmt.Fprintf(&b, "%s - %s\n", c.ID, c.Name)
	}
	return strings.TrimRight(b.String(), "\n")
}
