package usecase

import (
	"context"
	"fmt"
	"strings"

	"github.com/sourcegraph/conc/pool"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/player"
	"github.com/dotastats/prostats/internal/platform/logging"
)

// ReferenceService keeps the lookup tables (heroes, leagues, notable
// players) current. Match ingestion only upserts the reference rows a
// document mentions, so a periodic full refresh fills in the rest.
type ReferenceService struct {
	source ReferenceSource
	writer ReferenceWriter
	logger *logging.Logger
}

func NewReferenceService(source ReferenceSource, writer ReferenceWriter, logger *logging.Logger) *ReferenceService {
	if logger == nil {
		logger = logging.NewNop()
	}
	return &ReferenceService{
		source: source,
		writer: writer,
		logger: logger,
	}
}

// Refresh fetches and upserts all three reference tables concurrently. The
// first failure cancels the remaining fetches.
func (s *ReferenceService) Refresh(ctx context.Context) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.ReferenceService.Refresh")
	defer span.End()

	p := pool.New().WithContext(ctx).WithCancelOnError().WithFirstError()

	p.Go(func(ctx context.Context) error {
		items, err := s.source.FetchHeroes(ctx)
		if err != nil {
			return fmt.Errorf("fetch heroes: %w", err)
		}
		heroes := mapExternalHeroes(items)
		if len(heroes) == 0 {
			return nil
		}
		if err := s.writer.UpsertHeroes(ctx, heroes); err != nil {
			return fmt.Errorf("upsert heroes: %w", err)
		}
		s.logger.InfoContext(ctx, "refreshed heroes", "count", len(heroes))
		return nil
	})

	p.Go(func(ctx context.Context) error {
		items, err := s.source.FetchLeagues(ctx)
		if err != nil {
			return fmt.Errorf("fetch leagues: %w", err)
		}
		leagues := mapExternalLeagues(items)
		if len(leagues) == 0 {
			return nil
		}
		if err := s.writer.UpsertLeagues(ctx, leagues); err != nil {
			return fmt.Errorf("upsert leagues: %w", err)
		}
		s.logger.InfoContext(ctx, "refreshed leagues", "count", len(leagues))
		return nil
	})

	p.Go(func(ctx context.Context) error {
		items, err := s.source.FetchProPlayers(ctx)
		if err != nil {
			return fmt.Errorf("fetch pro players: %w", err)
		}
		players := mapExternalProPlayers(items)
		if len(players) == 0 {
			return nil
		}
		if err := s.writer.UpsertPlayers(ctx, players); err != nil {
			return fmt.Errorf("upsert pro players: %w", err)
		}
		s.logger.InfoContext(ctx, "refreshed pro players", "count", len(players))
		return nil
	})

	return p.Wait()
}

func mapExternalHeroes(items []ExternalHero) []hero.Hero {
	out := make([]hero.Hero, 0, len(items))
	for _, item := range items {
		if item.ID <= 0 {
			continue
		}
		out = append(out, hero.Hero{
			ID:            item.ID,
			Name:          strings.TrimSpace(item.Name),
			LocalizedName: strings.TrimSpace(item.LocalizedName),
			PrimaryAttr:   strings.TrimSpace(item.PrimaryAttr),
			AttackType:    strings.TrimSpace(item.AttackType),
			Roles:         item.Roles,
		})
	}
	return out
}

func mapExternalLeagues(items []ExternalLeague) []league.League {
	out := make([]league.League, 0, len(items))
	for _, item := range items {
		if item.LeagueID.IsZero() {
			continue
		}
		out = append(out, league.League{
			ID:   item.LeagueID,
			Name: strings.TrimSpace(item.Name),
			Tier: strings.TrimSpace(item.Tier),
		})
	}
	return out
}

func mapExternalProPlayers(items []ExternalProPlayer) []player.Player {
	out := make([]player.Player, 0, len(items))
	seen := make(map[int64]struct{}, len(items))
	for _, item := range items {
		if item.AccountID <= 0 {
			continue
		}
		if _, dup := seen[item.AccountID]; dup {
			continue
		}
		seen[item.AccountID] = struct{}{}
		out = append(out, player.Player{
			AccountID:   item.AccountID,
			Name:        strings.TrimSpace(item.Name),
			PersonaName: strings.TrimSpace(item.PersonaName),
		})
	}
	return out
}
