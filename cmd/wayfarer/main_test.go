package main

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/poiesic/wayfarer/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestLoadSeedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pois.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
pois:
  - name: Wat Pho
    category: temple
    attraction: primary
    description: Temple of the Reclining Buddha
    address: 2 Sanam Chai Road
    lat: 13.7465
    lon: 100.4927
  - name: Chatuchak Market
    category: market
    description: Weekend market
`), 0644))

	entities, err := loadSeedFile(path)
	require.NoError(t, err)
	require.Len(t, entities, 2)

	assert.Equal(t, "Wat Pho", entities[0].Name)
	assert.Equal(t, core.AttractionTypePrimary, entities[0].Attraction)
	assert.Equal(t, 13.7465, entities[0].Lat)

	// Missing attraction defaults to secondary.
	assert.Equal(t, core.AttractionTypeSecondary, entities[1].Attraction)
}

func TestLoadSeedFile_Invalid(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing file", func(t *testing.T) {
		_, err := loadSeedFile(filepath.Join(dir, "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("bad yaml", func(t *testing.T) {
		path := filepath.Join(dir, "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("pois: {not a list"), 0644))
		_, err := loadSeedFile(path)
		assert.Error(t, err)
	})

	t.Run("bad attraction label", func(t *testing.T) {
		path := filepath.Join(dir, "badattr.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
pois:
  - name: Somewhere
    category: temple
    attraction: tertiary
`), 0644))
		_, err := loadSeedFile(path)
		assert.ErrorContains(t, err, "invalid attraction")
	})
}

func TestParseAttraction(t *testing.T) {
	tests := []struct {
		label   string
		want    core.AttractionType
		wantErr bool
	}{
		{"primary", core.AttractionTypePrimary, false},
		{"Primary", core.AttractionTypePrimary, false},
		{"secondary", core.AttractionTypeSecondary, false},
		{"", core.AttractionTypeSecondary, false},
		{"  SECONDARY  ", core.AttractionTypeSecondary, false},
		{"tertiary", 0, true},
	}
	for _, tt := range tests {
		got, err := parseAttraction(tt.label)
		if tt.wantErr {
			assert.Error(t, err, tt.label)
			continue
		}
		require.NoError(t, err, tt.label)
		assert.Equal(t, tt.want, got, tt.label)
	}
}

func TestSetupLogger(t *testing.T) {
	defer slog.SetDefault(slog.Default())

	app := &cli.App{
		Name: "wayfarer",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "log-level", Value: "info"},
		},
		Before: setupLogger,
		Action: func(c *cli.Context) error { return nil },
	}

	t.Run("valid level", func(t *testing.T) {
		assert.NoError(t, app.Run([]string{"wayfarer", "--log-level", "debug"}))
	})

	t.Run("invalid level", func(t *testing.T) {
		assert.Error(t, app.Run([]string{"wayfarer", "--log-level", "loud"}))
	})
}
