package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/wardwatch-systems/wardwatch/internal/models"
)

// bootstrapFile is the shape of a sources.yaml pre-registration file.
type bootstrapFile struct {
	Sources []bootstrapSource `yaml:"sources"`
}

type bootstrapSource struct {
	ID         string `yaml:"id"`
	Name       string `yaml:"name"`
	Address    string `yaml:"address"`
	Credential string `yaml:"credential"`
	Type       string `yaml:"type"`
}

// Bootstrap registers the systems declared in a YAML file, skipping
// any that are already present. It returns the number of systems
// newly registered.
func Bootstrap(ctx context.Context, reg Registry, path string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, fmt.Errorf("failed to read sources file: %w", err)
	}

	var file bootstrapFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return 0, fmt.Errorf("failed to parse sources file: %w", err)
	}

	added := 0
	for i, src := range file.Sources {
		if src.Name == "" || src.Address == "" {
			return added, fmt.Errorf("source %d: name and address are required", i)
		}
		id := src.ID
		if id == "" {
			id = uuid.New().String()
		}

		desc := &models.SystemDescriptor{
			ID:         id,
			Name:       src.Name,
			Address:    src.Address,
			Credential: src.Credential,
			Type:       src.Type,
			Status:     models.SystemStatusInactive,
			CreatedAt:  time.Now().UTC(),
		}

		err := reg.Register(ctx, desc)
		if errors.Is(err, ErrSystemExists) {
			continue
		}
		if err != nil {
			return added, fmt.Errorf("failed to register source %q: %w", src.Name, err)
		}
		added++
	}

	return added, nil
}
