package memory

import (
	"context"
	"sync"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/ident"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/player"
)

type ReferenceRepository struct {
	mu      sync.RWMutex
	heroes  map[int64]hero.Hero
	leagues map[ident.ID]league.League
	players map[int64]player.Player
}

func NewReferenceRepository() *ReferenceRepository {
	return &ReferenceRepository{
		heroes:  make(map[int64]hero.Hero),
		leagues: make(map[ident.ID]league.League),
		players: make(map[int64]player.Player),
	}
}

func (r *ReferenceRepository) UpsertHeroes(_ context.Context, heroes []hero.Hero) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, h := range heroes {
		r.heroes[h.ID] = h
	}
	return nil
}

func (r *ReferenceRepository) UpsertLeagues(_ context.Context, leagues []league.League) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, l := range leagues {
		r.leagues[l.ID] = l
	}
	return nil
}

func (r *ReferenceRepository) UpsertPlayers(_ context.Context, players []player.Player) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, p := range players {
		r.players[p.AccountID] = p
	}
	return nil
}

// Hero returns a stored hero by id.
func (r *ReferenceRepository) Hero(id int64) (hero.Hero, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	h, ok := r.heroes[id]
	return h, ok
}

// League returns a stored league by id.
func (r *ReferenceRepository) League(id ident.ID) (league.League, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	l, ok := r.leagues[id]
	return l, ok
}

// Player returns a stored player by account id.
func (r *ReferenceRepository) Player(accountID int64) (player.Player, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.players[accountID]
	return p, ok
}
