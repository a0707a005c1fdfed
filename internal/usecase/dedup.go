package usecase

import (
	"context"
	"fmt"
	"strconv"
	"sync"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/match"
	"github.com/dotastats/prostats/internal/domain/player"
	"github.com/dotastats/prostats/internal/domain/team"
)

// Kind names one dedup'd entity dimension.
type Kind string

const (
	KindLeague Kind = "league"
	KindTeam   Kind = "team"
	KindPlayer Kind = "player"
	KindHero   Kind = "hero"
	KindMatch  Kind = "match"
)

// Kinds lists every indexed entity kind in load order.
func Kinds() []Kind {
	return []Kind{KindLeague, KindTeam, KindPlayer, KindHero, KindMatch}
}

// Index is the in-run set of already-ingested primary keys per entity kind.
// Keys are canonical decimal strings, so identifiers too large for an int64
// dedup exactly. The orchestrator consults it before fetching a match and
// before re-upserting reference rows, and adds keys right after a successful
// write so a team shared by two matches in the same batch is only written
// once.
type Index struct {
	mu   sync.RWMutex
	sets map[Kind]map[string]struct{}
}

func NewIndex() *Index {
	sets := make(map[Kind]map[string]struct{}, len(Kinds()))
	for _, kind := range Kinds() {
		sets[kind] = make(map[string]struct{})
	}
	return &Index{sets: sets}
}

// LoadIndex builds the index from the store, one key-listing query per kind.
func LoadIndex(ctx context.Context, lister EntityKeyLister) (*Index, error) {
	idx := NewIndex()
	for _, kind := range Kinds() {
		keys, err := lister.ListEntityKeys(ctx, kind)
		if err != nil {
			return nil, fmt.Errorf("list %s keys: %w", kind, err)
		}
		for _, key := range keys {
			idx.Add(kind, key)
		}
	}
	return idx, nil
}

func (idx *Index) Contains(kind Kind, key string) bool {
	if idx == nil || key == "" {
		return false
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.sets[kind][key]
	return ok
}

func (idx *Index) Add(kind Kind, key string) {
	if idx == nil || key == "" {
		return
	}
	idx.mu.Lock()
	defer idx.mu.Unlock()
	set, ok := idx.sets[kind]
	if !ok {
		set = make(map[string]struct{})
		idx.sets[kind] = set
	}
	set[key] = struct{}{}
}

// Len reports how many keys are indexed for one kind.
func (idx *Index) Len(kind Kind) int {
	if idx == nil {
		return 0
	}
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.sets[kind])
}

// pruneKnownReferences strips reference rows the index already holds, so a
// bundle only carries the stubs the store is still missing. The match row and
// its children always stay.
func pruneKnownReferences(idx *Index, bundle match.Normalized) match.Normalized {
	if idx == nil {
		return bundle
	}
	if bundle.League != nil && idx.Contains(KindLeague, bundle.League.ID.String()) {
		bundle.League = nil
	}
	if len(bundle.Teams) > 0 {
		teams := make([]team.Team, 0, len(bundle.Teams))
		for _, t := range bundle.Teams {
			if !idx.Contains(KindTeam, t.ID.String()) {
				teams = append(teams, t)
			}
		}
		bundle.Teams = teams
	}
	if len(bundle.Players) > 0 {
		players := make([]player.Player, 0, len(bundle.Players))
		for _, p := range bundle.Players {
			if !idx.Contains(KindPlayer, strconv.FormatInt(p.AccountID, 10)) {
				players = append(players, p)
			}
		}
		bundle.Players = players
	}
	if len(bundle.Heroes) > 0 {
		heroes := make([]hero.Hero, 0, len(bundle.Heroes))
		for _, h := range bundle.Heroes {
			if !idx.Contains(KindHero, strconv.FormatInt(h.ID, 10)) {
				heroes = append(heroes, h)
			}
		}
		bundle.Heroes = heroes
	}
	return bundle
}

// recordWrittenBundle adds every key the write just persisted.
func recordWrittenBundle(idx *Index, bundle match.Normalized) {
	if idx == nil {
		return
	}
	idx.Add(KindMatch, strconv.FormatInt(bundle.Match.MatchID, 10))
	if bundle.League != nil {
		idx.Add(KindLeague, bundle.League.ID.String())
	}
	for _, t := range bundle.Teams {
		idx.Add(KindTeam, t.ID.String())
	}
	for _, p := range bundle.Players {
		idx.Add(KindPlayer, strconv.FormatInt(p.AccountID, 10))
	}
	for _, h := range bundle.Heroes {
		idx.Add(KindHero, strconv.FormatInt(h.ID, 10))
	}
}

// candidateMatchIDs extracts the fetchable match ids from one listing page,
// preserving order and dropping duplicates and ids that do not fit the
// primary key range. The second return is the smallest id on the page, the
// next pagination cursor; zero when the page held no usable ids.
func candidateMatchIDs(summaries []ExternalMatchSummary) ([]int64, int64) {
	ids := make([]int64, 0, len(summaries))
	seen := make(map[int64]struct{}, len(summaries))
	var minID int64
	for _, item := range summaries {
		id, ok := item.MatchID.Int64()
		if !ok || id <= 0 || item.MatchID.Overflows() {
			continue
		}
		if minID == 0 || id < minID {
			minID = id
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids, minID
}

func filterExisting(ids []int64, existing map[int64]struct{}) []int64 {
	if len(existing) == 0 {
		return ids
	}
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := existing[id]; ok {
			continue
		}
		out = append(out, id)
	}
	return out
}
