package memory

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/dotastats/prostats/internal/domain/match"
	"github.com/dotastats/prostats/internal/usecase"
)

// MatchRepository is the in-memory twin of the postgres match store. It keeps
// whole normalized bundles keyed by match id, which is enough for tests and
// local dry runs.
type MatchRepository struct {
	mu      sync.RWMutex
	matches map[int64]match.Normalized
}

func NewMatchRepository() *MatchRepository {
	return &MatchRepository{matches: make(map[int64]match.Normalized)}
}

func (r *MatchRepository) WriteMatch(_ context.Context, bundle match.Normalized) (usecase.WriteOutcome, error) {
	if err := checkBundleReferences(bundle); err != nil {
		return usecase.WriteOutcome{}, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, existed := r.matches[bundle.Match.MatchID]
	r.matches[bundle.Match.MatchID] = bundle

	return usecase.WriteOutcome{Inserted: !existed}, nil
}

// checkBundleReferences stands in for the foreign keys the relational store
// enforces: every child row must point at the bundle's own match.
func checkBundleReferences(bundle match.Normalized) error {
	id := bundle.Match.MatchID
	if id <= 0 {
		return fmt.Errorf("bundle has no match id")
	}
	for _, p := range bundle.Performances {
		if p.MatchID != id {
			return fmt.Errorf("performance row references match %d, want %d", p.MatchID, id)
		}
	}
	for _, d := range bundle.DraftEvents {
		if d.MatchID != id {
			return fmt.Errorf("draft row references match %d, want %d", d.MatchID, id)
		}
	}
	for _, f := range bundle.TeamFights {
		if f.MatchID != id {
			return fmt.Errorf("team fight row references match %d, want %d", f.MatchID, id)
		}
	}
	for _, o := range bundle.Objectives {
		if o.MatchID != id {
			return fmt.Errorf("objective row references match %d, want %d", o.MatchID, id)
		}
	}
	for _, c := range bundle.ChatEvents {
		if c.MatchID != id {
			return fmt.Errorf("chat row references match %d, want %d", c.MatchID, id)
		}
	}
	for _, s := range bundle.TimeSeries {
		if s.MatchID != id {
			return fmt.Errorf("time series row references match %d, want %d", s.MatchID, id)
		}
	}
	return nil
}

func (r *MatchRepository) ExistingMatchIDs(_ context.Context, matchIDs []int64) (map[int64]struct{}, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[int64]struct{}, len(matchIDs))
	for _, id := range matchIDs {
		if _, ok := r.matches[id]; ok {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// ListEntityKeys derives the per-kind key sets from the stored bundles.
func (r *MatchRepository) ListEntityKeys(_ context.Context, kind usecase.Kind) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]struct{})
	for id, bundle := range r.matches {
		switch kind {
		case usecase.KindMatch:
			seen[strconv.FormatInt(id, 10)] = struct{}{}
		case usecase.KindLeague:
			if bundle.League != nil {
				seen[bundle.League.ID.String()] = struct{}{}
			}
		case usecase.KindTeam:
			for _, t := range bundle.Teams {
				seen[t.ID.String()] = struct{}{}
			}
		case usecase.KindPlayer:
			for _, p := range bundle.Players {
				seen[strconv.FormatInt(p.AccountID, 10)] = struct{}{}
			}
		case usecase.KindHero:
			for _, h := range bundle.Heroes {
				seen[strconv.FormatInt(h.ID, 10)] = struct{}{}
			}
		}
	}

	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	return keys, nil
}

// Get returns the stored bundle for a match id.
func (r *MatchRepository) Get(matchID int64) (match.Normalized, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bundle, ok := r.matches[matchID]
	return bundle, ok
}

// Len reports how many matches are stored.
func (r *MatchRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.matches)
}
