package tuning

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mcdev12/presence/go/internal/models"
)

// File is the layout of config.yaml shared by the API server and the gateway
type File struct {
	Presence Config          `yaml:"presence"`
	Servers  []models.Server `yaml:"servers"`
}

// LoadFile reads path. Keys missing from the presence block keep their
// defaults. A missing file is reported with an error wrapping os.ErrNotExist.
func LoadFile(path string) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	file := File{Presence: DefaultConfig()}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := file.Presence.Validate(); err != nil {
		return nil, err
	}
	return &file, nil
}
