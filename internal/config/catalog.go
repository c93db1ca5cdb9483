package config

import (
	"fmt"
	"os"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/vieneu/tts-server/internal/models"
)

// Catalog lists the backbone and codec builds the engine can be configured
// with. It is informational: the server never loads models itself, it only
// surfaces the catalog to the UI.
type Catalog struct {
	Backbones map[string]CatalogEntry `yaml:"backbone_configs"`
	Codecs    map[string]CatalogEntry `yaml:"codec_configs"`
}

type CatalogEntry struct {
	Repo        string `yaml:"repo"`
	Description string `yaml:"description"`
}

// LoadCatalog parses the YAML catalog at path.
func LoadCatalog(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog: %w", err)
	}

	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parse catalog: %w", err)
	}
	return &c, nil
}

// BackboneList returns the backbone entries sorted by name.
func (c *Catalog) BackboneList() []models.ModelInfo {
	return entryList(c.Backbones)
}

// CodecList returns the codec entries sorted by name.
func (c *Catalog) CodecList() []models.ModelInfo {
	return entryList(c.Codecs)
}

func entryList(entries map[string]CatalogEntry) []models.ModelInfo {
	out := make([]models.ModelInfo, 0, len(entries))
	for name, e := range entries {
		out = append(out, models.ModelInfo{Name: name, Repo: e.Repo, Description: e.Description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
