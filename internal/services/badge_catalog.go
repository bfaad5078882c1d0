package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"badgehub/internal/events"
	"badgehub/internal/models"
	"badgehub/internal/repositories"
	"badgehub/internal/validation"

	"go.uber.org/zap"
	"golang.org/x/exp/slices"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout of a badge seed file
type catalogFile struct {
	Badges []*models.Badge `yaml:"badges"`
}

// LoadCatalogFile reads and validates badge definitions from a YAML file
func LoadCatalogFile(path string) ([]*models.Badge, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read badge catalog %s: %w", path, err)
	}
	return LoadCatalog(bytes.NewReader(data))
}

// LoadCatalog decodes badge definitions, applies rarity defaults and
// rejects the whole catalog if any definition is invalid.
func LoadCatalog(r io.Reader) ([]*models.Badge, error) {
	var file catalogFile
	decoder := yaml.NewDecoder(r)
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		if errors.Is(err, io.EOF) {
			return nil, NewValidationError("badge catalog is empty", nil)
		}
		return nil, NewValidationError("failed to decode badge catalog", err)
	}

	if len(file.Badges) == 0 {
		return nil, NewValidationError("badge catalog is empty", nil)
	}

	seen := make(map[string]int, len(file.Badges))
	var problems []string

	for i, badge := range file.Badges {
		if badge == nil {
			problems = append(problems, fmt.Sprintf("badge #%d: empty definition", i+1))
			continue
		}
		badge.ApplyDefaults()

		if err := validation.ValidateStruct(badge); err != nil {
			problems = append(problems, fmt.Sprintf("badge #%d (%s): %v", i+1, badge.Name, err))
		}
		if errs := badge.Validate(); errs.HasErrors() {
			problems = append(problems, fmt.Sprintf("badge #%d (%s): %v", i+1, badge.Name, errs))
		}

		if prev, dup := seen[badge.Name]; dup {
			problems = append(problems, fmt.Sprintf("badge #%d: name %q already used by badge #%d", i+1, badge.Name, prev))
		} else {
			seen[badge.Name] = i + 1
		}
	}

	if len(problems) > 0 {
		return nil, NewValidationError("invalid badge catalog", errors.New(strings.Join(problems, "; ")))
	}

	return file.Badges, nil
}

// SortCatalog orders badges rarest first, then by display order and name
func SortCatalog(badges []*models.Badge) {
	slices.SortStableFunc(badges, func(a, b *models.Badge) int {
		if ra, rb := a.Rarity.Rank(), b.Rarity.Rank(); ra != rb {
			return rb - ra
		}
		if a.DisplayOrder != b.DisplayOrder {
			return a.DisplayOrder - b.DisplayOrder
		}
		return strings.Compare(a.Name, b.Name)
	})
}

// CatalogSeeder upserts badge definitions into storage
type CatalogSeeder struct {
	badges   repositories.BadgeRepository
	eventBus events.EventBus
	logger   *zap.Logger
}

// NewCatalogSeeder creates a seeder. eventBus may be nil.
func NewCatalogSeeder(badges repositories.BadgeRepository, eventBus events.EventBus, logger *zap.Logger) *CatalogSeeder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CatalogSeeder{badges: badges, eventBus: eventBus, logger: logger}
}

// Seed upserts every definition by name. Running it twice is a no-op apart
// from refreshed descriptive fields.
func (s *CatalogSeeder) Seed(ctx context.Context, badges []*models.Badge) (*repositories.UpsertResult, error) {
	result, err := s.badges.UpsertAll(ctx, badges)
	if err != nil {
		return nil, NewStorageError("seed badge catalog", err)
	}

	s.logger.Info("Badge catalog seeded",
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
	)

	if s.eventBus != nil {
		if err := s.eventBus.Publish(ctx, events.NewCatalogSeededEvent(result.Created, result.Updated)); err != nil {
			s.logger.Warn("Failed to publish catalog seeded event", zap.Error(err))
		}
	}

	return result, nil
}

// SeedFile loads a YAML catalog and seeds it
func (s *CatalogSeeder) SeedFile(ctx context.Context, path string) (*repositories.UpsertResult, error) {
	badges, err := LoadCatalogFile(path)
	if err != nil {
		return nil, err
	}
	return s.Seed(ctx, badges)
}
