// Package knowledge holds the static real-estate knowledge base the assistant
// quotes from: price bands, locations and services. It is loaded once at
// startup and only read afterwards.
package knowledge

import (
	_ "embed"
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

// ErrInvalidKnowledge is returned when a knowledge document is missing required sections.
var ErrInvalidKnowledge = errors.New("knowledge: invalid knowledge base")

// PriceBand describes the price range for one property type.
type PriceBand struct {
	Key         string `yaml:"key" json:"key"`
	Label       string `yaml:"label" json:"label"`
	Summary     string `yaml:"summary" json:"summary"`
	Range       string `yaml:"range" json:"range"`
	Description string `yaml:"description" json:"description"`
}

// Location is a neighbourhood the business sells in.
type Location struct {
	Name        string `yaml:"name" json:"name"`
	ShortName   string `yaml:"short_name" json:"shortName"`
	Description string `yaml:"description" json:"description"`
}

// Service is something the agency offers besides sales.
type Service struct {
	Name      string `yaml:"name" json:"name"`
	ShortName string `yaml:"short_name" json:"shortName,omitempty"`
}

// Base is the whole knowledge document.
type Base struct {
	Brand             string      `yaml:"brand"`
	AgentName         string      `yaml:"agent_name"`
	PriceBands        []PriceBand `yaml:"price_bands"`
	DefaultPriceRange string      `yaml:"default_price_range"`
	Locations         []Location  `yaml:"locations"`
	Services          []Service   `yaml:"services"`
}

// Default returns the built-in knowledge base.
func Default() *Base {
	base, err := Parse(defaultYAML)
	if err != nil {
		panic(fmt.Sprintf("knowledge: embedded default is invalid: %v", err))
	}
	return base
}

// Load reads a YAML knowledge file. An empty path returns the built-in default.
func Load(path string) (*Base, error) {
	if strings.TrimSpace(path) == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("knowledge: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a YAML knowledge document.
func Parse(data []byte) (*Base, error) {
	var base Base
	if err := yaml.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("knowledge: parse: %w", err)
	}
	if err := base.validate(); err != nil {
		return nil, err
	}
	return &base, nil
}

func (b *Base) validate() error {
	if strings.TrimSpace(b.Brand) == "" {
		return fmt.Errorf("%w: brand is required", ErrInvalidKnowledge)
	}
	if strings.TrimSpace(b.AgentName) == "" {
		return fmt.Errorf("%w: agent_name is required", ErrInvalidKnowledge)
	}
	if len(b.PriceBands) == 0 {
		return fmt.Errorf("%w: at least one price band is required", ErrInvalidKnowledge)
	}
	for _, band := range b.PriceBands {
		if band.Key == "" || band.Range == "" {
			return fmt.Errorf("%w: price band needs key and range", ErrInvalidKnowledge)
		}
	}
	return nil
}

// PriceRange returns the quoted range for a property type, or the catch-all
// range for types without a band (e.g. commercial).
func (b *Base) PriceRange(propertyType string) string {
	key := strings.ToLower(strings.TrimSpace(propertyType))
	for _, band := range b.PriceBands {
		if band.Key == key {
			return band.Range
		}
	}
	return b.DefaultPriceRange
}

// Catalog is the public JSON shape served by GET /properties.
type Catalog struct {
	Pricing   map[string]string `json:"pricing"`
	Locations []string          `json:"locations"`
	Services  []string          `json:"services"`
}

// Catalog renders the knowledge base for clients. Pricing is keyed by the
// plural, lower-cased band label ("apartments", "houses", "luxury").
func (b *Base) Catalog() Catalog {
	cat := Catalog{
		Pricing:   make(map[string]string, len(b.PriceBands)),
		Locations: make([]string, 0, len(b.Locations)),
		Services:  make([]string, 0, len(b.Services)),
	}
	for _, band := range b.PriceBands {
		cat.Pricing[strings.ToLower(band.Label)] = band.Description
	}
	for _, loc := range b.Locations {
		if loc.Description == "" {
			cat.Locations = append(cat.Locations, loc.Name)
			continue
		}
		cat.Locations = append(cat.Locations, loc.Name+" - "+loc.Description)
	}
	for _, svc := range b.Services {
		cat.Services = append(cat.Services, svc.Name)
	}
	return cat
}

// PropertyTypesLine renders "Apartments ($150k-$400k), Houses (...)".
func (b *Base) PropertyTypesLine() string {
	parts := make([]string, 0, len(b.PriceBands))
	for _, band := range b.PriceBands {
		parts = append(parts, fmt.Sprintf("%s (%s)", band.Label, band.Summary))
	}
	return strings.Join(parts, ", ")
}

// ServicesLine lists service short names, skipping services that have none.
func (b *Base) ServicesLine() string {
	parts := make([]string, 0, len(b.Services))
	for _, svc := range b.Services {
		if svc.ShortName != "" {
			parts = append(parts, svc.ShortName)
		}
	}
	return strings.Join(parts, ", ")
}

// LocationsLine lists location short names.
func (b *Base) LocationsLine() string {
	parts := make([]string, 0, len(b.Locations))
	for _, loc := range b.Locations {
		name := loc.ShortName
		if name == "" {
			name = loc.Name
		}
		parts = append(parts, name)
	}
	return strings.Join(parts, ", ")
}
