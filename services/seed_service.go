package services

import (
	"context"
	"strings"
	"time"

	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/scoring"
	"github.com/nhsfuk/dharmic-games/store"
)

// Bump when the seeded reference data changes shape.
const seedVersion = 1

var defaultZones = []string{"London", "Midlands", "North", "South"}

type SeedService interface {
	// Seed writes the reference sports and zones once. Later calls with the
	// same version leave the store untouched.
	Seed(ctx context.Context, actorID string, input SeedInput) (*SeedResult, error)
	Sports(ctx context.Context) ([]models.Sport, error)
	Zones(ctx context.Context) ([]models.Zone, error)
}

type SeedInput struct {
	Zones []ZoneInput `json:"zones" validate:"omitempty,dive"`
}

type ZoneInput struct {
	Name           string    `json:"name" validate:"required,max=60"`
	TournamentDate time.Time `json:"tournament_date"`
}

type SeedResult struct {
	Seeded bool                     `json:"seeded"`
	Sports int                      `json:"sports"`
	Zones  int                      `json:"zones"`
	Marker *repositories.SeedMarker `json:"marker"`
}

type seedService struct {
	st            store.Store
	referenceRepo repositories.ReferenceRepository
	now           func() time.Time
}

func NewSeedService(st store.Store, referenceRepo repositories.ReferenceRepository) SeedService {
	return &seedService{st: st, referenceRepo: referenceRepo, now: time.Now}
}

func (s *seedService) Seed(ctx context.Context, actorID string, input SeedInput) (*SeedResult, error) {
	if err := validateInput(input); err != nil {
		return nil, err
	}
	marker, err := s.referenceRepo.SeedMarker(ctx)
	if err != nil {
		return nil, storeError("read seed marker", err)
	}
	if marker != nil && marker.Version >= seedVersion {
		return &SeedResult{Seeded: false, Marker: marker}, nil
	}

	zones := input.Zones
	if len(zones) == 0 {
		zones = make([]ZoneInput, len(defaultZones))
		for i, name := range defaultZones {
			zones[i] = ZoneInput{Name: name}
		}
	}

	b := repositories.NewBatch(s.st)
	sports := scoring.Sports()
	for _, sport := range sports {
		s.referenceRepo.StageSport(b, sport)
	}
	for _, z := range zones {
		name := strings.TrimSpace(z.Name)
		s.referenceRepo.StageZone(b, models.Zone{
			Key:            repositories.ZoneKey(name),
			Name:           name,
			TournamentDate: z.TournamentDate.UTC(),
		})
	}
	m := repositories.SeedMarker{Version: seedVersion, SeededAt: s.now().UTC(), SeededBy: actorID}
	s.referenceRepo.StageSeedMarker(b, m)

	if err := b.Commit(ctx); err != nil {
		return nil, storeError("seed reference data", err)
	}
	return &SeedResult{Seeded: true, Sports: len(sports), Zones: len(zones), Marker: &m}, nil
}

func (s *seedService) Sports(ctx context.Context) ([]models.Sport, error) {
	sports, err := s.referenceRepo.ListSports(ctx)
	if err != nil {
		return nil, storeError("list sports", err)
	}
	return sports, nil
}

func (s *seedService) Zones(ctx context.Context) ([]models.Zone, error) {
	zones, err := s.referenceRepo.ListZones(ctx)
	if err != nil {
		return nil, storeError("list zones", err)
	}
	return zones, nil
}
