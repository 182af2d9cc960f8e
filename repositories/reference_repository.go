package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/store"
)

// SeedMarker records when reference data was last seeded.
type SeedMarker struct {
	Version  int       `json:"version"`
	SeededAt time.Time `json:"seeded_at"`
	SeededBy string    `json:"seeded_by,omitempty"`
}

var seedMarkerPath = store.Join(PathReference, "meta")

type ReferenceRepository interface {
	ListSports(ctx context.Context) ([]models.Sport, error)
	ListZones(ctx context.Context) ([]models.Zone, error)
	SeedMarker(ctx context.Context) (*SeedMarker, error)

	StageSport(b *Batch, s models.Sport)
	StageZone(b *Batch, z models.Zone)
	StageSeedMarker(b *Batch, m SeedMarker)
}

type storeReferenceRepository struct {
	st store.Store
}

func NewReferenceRepository(st store.Store) ReferenceRepository {
	return &storeReferenceRepository{st: st}
}

func (r *storeReferenceRepository) ListSports(ctx context.Context) ([]models.Sport, error) {
	docs, err := listDocuments[models.Sport](ctx, r.st, store.Join(PathReference, "sports"))
	if err != nil {
		return nil, fmt.Errorf("failed to list sports: %w", err)
	}
	return values(docs), nil
}

func (r *storeReferenceRepository) ListZones(ctx context.Context) ([]models.Zone, error) {
	docs, err := listDocuments[models.Zone](ctx, r.st, store.Join(PathReference, "zones"))
	if err != nil {
		return nil, fmt.Errorf("failed to list zones: %w", err)
	}
	return values(docs), nil
}

// SeedMarker returns nil without error when nothing has been seeded yet.
func (r *storeReferenceRepository) SeedMarker(ctx context.Context) (*SeedMarker, error) {
	m, err := getDocument[SeedMarker](ctx, r.st, seedMarkerPath, errNoSeedMarker)
	if errors.Is(err, errNoSeedMarker) {
		return nil, nil
	}
	return m, err
}

var errNoSeedMarker = errors.New("no seed marker")

func (r *storeReferenceRepository) StageSport(b *Batch, s models.Sport) {
	b.Set(SportPath(s.Key), s)
}

func (r *storeReferenceRepository) StageZone(b *Batch, z models.Zone) {
	if z.Key == "" {
		z.Key = ZoneKey(z.Name)
	}
	b.Set(ZonePath(z.Key), z)
}

func (r *storeReferenceRepository) StageSeedMarker(b *Batch, m SeedMarker) {
	b.Set(seedMarkerPath, m)
}

// ZoneKey turns a zone name into a path segment.
func ZoneKey(name string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(name)), " ", "-")
}
