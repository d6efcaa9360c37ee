package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/poiesic/wayfarer/core"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML document the seed command reads.
type seedFile struct {
	POIs []seedPOI `yaml:"pois"`
}

// seedPOI is one point of interest in a seed file.
type seedPOI struct {
	Name        string  `yaml:"name"`
	Category    string  `yaml:"category"`
	Attraction  string  `yaml:"attraction"`
	Description string  `yaml:"description"`
	Address     string  `yaml:"address"`
	Lat         float64 `yaml:"lat"`
	Lon         float64 `yaml:"lon"`
}

// loadSeedFile parses a YAML seed file into entities.
func loadSeedFile(path string) ([]*core.Entity, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading seed file: %w", err)
	}

	var file seedFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parsing seed file: %w", err)
	}

	entities := make([]*core.Entity, 0, len(file.POIs))
	for i, poi := range file.POIs {
		attraction, err := parseAttraction(poi.Attraction)
		if err != nil {
			return nil, fmt.Errorf("poi %d (%s): %w", i, poi.Name, err)
		}
		entities = append(entities, &core.Entity{
			Name:        poi.Name,
			Category:    poi.Category,
			Attraction:  attraction,
			Description: poi.Description,
			Address:     poi.Address,
			Lat:         poi.Lat,
			Lon:         poi.Lon,
		})
	}
	return entities, nil
}

// parseAttraction maps a seed-file attraction label to the enum.
// An empty label defaults to secondary.
func parseAttraction(label string) (core.AttractionType, error) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "primary":
		return core.AttractionTypePrimary, nil
	case "secondary", "":
		return core.AttractionTypeSecondary, nil
	default:
		return 0, fmt.Errorf("invalid attraction %q: must be primary or secondary", label)
	}
}
