package services

import (
	"bytes"
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/goccy/go-json"

	"github.com/nhsfuk/dharmic-games/metrics"
	"github.com/nhsfuk/dharmic-games/models"
	"github.com/nhsfuk/dharmic-games/repositories"
	"github.com/nhsfuk/dharmic-games/store"
)

type ReconcileReport struct {
	Players        int       `json:"players"`
	IndexRestored  int       `json:"index_restored"`
	MirrorsWritten int       `json:"mirrors_written"`
	MirrorsRemoved int       `json:"mirrors_removed"`
	CheckedAt      time.Time `json:"checked_at"`
}

func (r ReconcileReport) Repaired() int {
	return r.IndexRestored + r.MirrorsWritten + r.MirrorsRemoved
}

// ReconcileService repairs drift between the players index and the roster
// mirrors. The index wins; players that only exist in a roster are restored to it.
type ReconcileService interface {
	Reconcile(ctx context.Context) (*ReconcileReport, error)
	// Run reconciles every interval until ctx is cancelled.
	Run(ctx context.Context, interval time.Duration)
	LastReport() *ReconcileReport
}

type reconcileService struct {
	st         store.Store
	playerRepo repositories.PlayerRepository
	logger     *slog.Logger
	now        func() time.Time

	mu   sync.Mutex
	last *ReconcileReport
}

func NewReconcileService(st store.Store, playerRepo repositories.PlayerRepository, logger *slog.Logger) ReconcileService {
	return &reconcileService{
		st:         st,
		playerRepo: playerRepo,
		logger:     logger,
		now:        time.Now,
	}
}

func (s *reconcileService) Reconcile(ctx context.Context) (*ReconcileReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	indexed, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, storeError("list players index", err)
	}
	entries, err := s.playerRepo.ListMirrors(ctx)
	if err != nil {
		return nil, storeError("list roster mirrors", err)
	}

	index := make(map[string]models.Player, len(indexed))
	for _, p := range indexed {
		index[p.ID] = p
	}
	mirrors := make(map[string][]repositories.MirrorEntry)
	for _, e := range entries {
		mirrors[e.Player.ID] = append(mirrors[e.Player.ID], e)
	}

	report := &ReconcileReport{CheckedAt: s.now().UTC()}
	b := repositories.NewBatch(s.st)

	for _, id := range sortedKeys(mirrors) {
		if _, ok := index[id]; ok {
			continue
		}
		p := newestCopy(mirrors[id])
		s.playerRepo.StageIndex(b, &p)
		index[id] = p
		report.IndexRestored++
	}

	for _, id := range sortedKeys(index) {
		p := index[id]
		expected := repositories.PlayerMirrorPath(p.UniversityID, p.Sport, p.ID)
		found := false
		for _, e := range mirrors[id] {
			if e.Path != expected {
				b.Remove(e.Path)
				report.MirrorsRemoved++
				continue
			}
			found = true
			if !sameDocument(e.Player, p) {
				s.playerRepo.StageMirror(b, &p)
				report.MirrorsWritten++
			}
		}
		if !found {
			s.playerRepo.StageMirror(b, &p)
			report.MirrorsWritten++
		}
	}
	report.Players = len(index)

	if b.Len() > 0 {
		if err := b.Commit(ctx); err != nil {
			return nil, storeError("write player repairs", err)
		}
	}
	metrics.PlayersRepaired.WithLabelValues("index_restored").Add(float64(report.IndexRestored))
	metrics.PlayersRepaired.WithLabelValues("mirror_written").Add(float64(report.MirrorsWritten))
	metrics.PlayersRepaired.WithLabelValues("mirror_removed").Add(float64(report.MirrorsRemoved))

	if report.Repaired() > 0 {
		s.logger.Warn("player copies repaired",
			slog.Int("index_restored", report.IndexRestored),
			slog.Int("mirrors_written", report.MirrorsWritten),
			slog.Int("mirrors_removed", report.MirrorsRemoved),
		)
	}
	s.last = report
	return report, nil
}

func (s *reconcileService) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	s.logger.Info("player reconciliation started", slog.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("player reconciliation stopped")
			return
		case <-ticker.C:
			if _, err := s.Reconcile(ctx); err != nil {
				s.logger.Error("player reconciliation failed", slog.Any("error", err))
			}
		}
	}
}

func (s *reconcileService) LastReport() *ReconcileReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil {
		return nil
	}
	r := *s.last
	return &r
}

// newestCopy picks the most recently updated mirror, then the lowest path.
func newestCopy(entries []repositories.MirrorEntry) models.Player {
	best := entries[0]
	for _, e := range entries[1:] {
		if e.Player.UpdatedAt.After(best.Player.UpdatedAt) ||
			(e.Player.UpdatedAt.Equal(best.Player.UpdatedAt) && e.Path < best.Path) {
			best = e
		}
	}
	return best.Player
}

func sameDocument(a, b models.Player) bool {
	ab, err := json.Marshal(a)
	if err != nil {
		return false
	}
	bb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ab, bb)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
