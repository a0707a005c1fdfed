package usecase

import (
	"context"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/match"
	"github.com/dotastats/prostats/internal/domain/player"
)

// MatchSource is the remote provider surface the ingestion pipeline pulls
// from. FetchProMatches pages backwards: lessThan == 0 asks for the most
// recent page, otherwise only matches with a smaller id are returned.
type MatchSource interface {
	FetchProMatches(ctx context.Context, lessThan int64) ([]ExternalMatchSummary, error)
	FetchMatch(ctx context.Context, matchID int64) (ExternalMatchDocument, []byte, error)
}

type ReferenceSource interface {
	FetchHeroes(ctx context.Context) ([]ExternalHero, error)
	FetchLeagues(ctx context.Context) ([]ExternalLeague, error)
	FetchProPlayers(ctx context.Context) ([]ExternalProPlayer, error)
}

// WriteOutcome reports whether a match write created the row or refreshed
// an existing one.
type WriteOutcome struct {
	Inserted bool
}

// MatchWriter persists one normalized match bundle atomically. A second
// write of the same bundle must leave the store unchanged apart from
// updated timestamps.
type MatchWriter interface {
	WriteMatch(ctx context.Context, bundle match.Normalized) (WriteOutcome, error)
}

// MatchExistence reports which of the given match ids are already stored.
type MatchExistence interface {
	ExistingMatchIDs(ctx context.Context, ids []int64) (map[int64]struct{}, error)
}

// EntityKeyLister enumerates the stored primary keys of one entity kind, in
// canonical decimal form. LoadIndex uses it to seed the dedup index at run
// start.
type EntityKeyLister interface {
	ListEntityKeys(ctx context.Context, kind Kind) ([]string, error)
}

type ReferenceWriter interface {
	UpsertHeroes(ctx context.Context, heroes []hero.Hero) error
	UpsertLeagues(ctx context.Context, leagues []league.League) error
	UpsertPlayers(ctx context.Context, players []player.Player) error
}
