package postgres

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/player"
)

// ReferenceRepository persists the reference catalogs refreshed from the
// provider: heroes, leagues, and known pro players.
type ReferenceRepository struct {
	db *sqlx.DB
}

func NewReferenceRepository(db *sqlx.DB) *ReferenceRepository {
	return &ReferenceRepository{db: db}
}

func (r *ReferenceRepository) UpsertHeroes(ctx context.Context, heroes []hero.Hero) error {
	if len(heroes) == 0 {
		return nil
	}
	if err := upsertHeroRows(ctx, r.db, heroes); err != nil {
		return fmt.Errorf("upsert hero catalog: %w", err)
	}
	return nil
}

func (r *ReferenceRepository) UpsertLeagues(ctx context.Context, leagues []league.League) error {
	if len(leagues) == 0 {
		return nil
	}
	if err := upsertLeagueRows(ctx, r.db, leagues); err != nil {
		return fmt.Errorf("upsert league catalog: %w", err)
	}
	return nil
}

func (r *ReferenceRepository) UpsertPlayers(ctx context.Context, players []player.Player) error {
	if len(players) == 0 {
		return nil
	}
	if err := upsertPlayerRows(ctx, r.db, players); err != nil {
		return fmt.Errorf("upsert player catalog: %w", err)
	}
	return nil
}
