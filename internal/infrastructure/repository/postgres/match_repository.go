package postgres

import (
	"context"
	"fmt"

	sonic "github.com/bytedance/sonic"
	"github.com/jmoiron/sqlx"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/match"
	"github.com/dotastats/prostats/internal/domain/player"
	"github.com/dotastats/prostats/internal/domain/team"
	qb "github.com/dotastats/prostats/internal/platform/querybuilder"
	"github.com/dotastats/prostats/internal/usecase"
)

const childInsertBatchSize = 100

const existingMatchIDsChunkSize = 500

type MatchRepository struct {
	db *sqlx.DB
}

func NewMatchRepository(db *sqlx.DB) *MatchRepository {
	return &MatchRepository{db: db}
}

// WriteMatch persists the full entity bundle for one match in a single
// transaction. Re-ingesting the same match replaces its child rows wholesale,
// so a shrunken document never leaves stale rows behind. The returned outcome
// reports whether the match row was newly inserted or refreshed.
func (r *MatchRepository) WriteMatch(ctx context.Context, bundle match.Normalized) (usecase.WriteOutcome, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return usecase.WriteOutcome{}, fmt.Errorf("%w: begin tx write match: %v", usecase.ErrStoreUnavailable, err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := upsertReferenceStubs(ctx, tx, bundle); err != nil {
		return usecase.WriteOutcome{}, markWriteError(err)
	}

	inserted, err := upsertMatchRow(ctx, tx, bundle.Match)
	if err != nil {
		return usecase.WriteOutcome{}, markWriteError(err)
	}

	if !inserted {
		if err := deleteMatchChildRows(ctx, tx, bundle.Match.MatchID); err != nil {
			return usecase.WriteOutcome{}, markWriteError(err)
		}
	}

	if err := insertMatchChildRows(ctx, tx, bundle); err != nil {
		return usecase.WriteOutcome{}, markWriteError(err)
	}

	if err := tx.Commit(); err != nil {
		return usecase.WriteOutcome{}, fmt.Errorf("%w: commit write match %d tx: %v", usecase.ErrStoreUnavailable, bundle.Match.MatchID, err)
	}

	return usecase.WriteOutcome{Inserted: inserted}, nil
}

// ExistingMatchIDs reports which of the given match ids are already stored.
func (r *MatchRepository) ExistingMatchIDs(ctx context.Context, matchIDs []int64) (map[int64]struct{}, error) {
	out := make(map[int64]struct{}, len(matchIDs))
	for start := 0; start < len(matchIDs); start += existingMatchIDsChunkSize {
		end := start + existingMatchIDsChunkSize
		if end > len(matchIDs) {
			end = len(matchIDs)
		}
		chunk := matchIDs[start:end]

		values := make([]any, 0, len(chunk))
		for _, id := range chunk {
			values = append(values, id)
		}

		query, args, err := qb.Select("match_id").
			From("matches").
			Where(qb.In("match_id", values)).
			ToSQL()
		if err != nil {
			return nil, fmt.Errorf("build existing match ids query: %w", err)
		}

		var rows []int64
		if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
			return nil, fmt.Errorf("select existing match ids: %w", err)
		}
		for _, id := range rows {
			out[id] = struct{}{}
		}
	}
	return out, nil
}

// ListEntityKeys enumerates the stored primary keys of one entity kind as
// text, feeding the run-start dedup index.
func (r *MatchRepository) ListEntityKeys(ctx context.Context, kind usecase.Kind) ([]string, error) {
	var table, column string
	switch kind {
	case usecase.KindLeague:
		table, column = "leagues", "league_id"
	case usecase.KindTeam:
		table, column = "teams", "team_id"
	case usecase.KindPlayer:
		table, column = "players", "account_id::text"
	case usecase.KindHero:
		table, column = "heroes", "hero_id::text"
	case usecase.KindMatch:
		table, column = "matches", "match_id::text"
	default:
		return nil, fmt.Errorf("unknown entity kind %q", kind)
	}

	query, args, err := qb.Select(column).From(table).ToSQL()
	if err != nil {
		return nil, fmt.Errorf("build list %s keys query: %w", kind, err)
	}

	var keys []string
	if err := r.db.SelectContext(ctx, &keys, query, args...); err != nil {
		return nil, fmt.Errorf("list %s keys: %w", kind, err)
	}
	return keys, nil
}

func upsertMatchRow(ctx context.Context, tx *sqlx.Tx, m match.Match) (bool, error) {
	insertModel := matchInsertModel{
		MatchID:        m.MatchID,
		StartTime:      m.StartTime,
		Duration:       m.Duration,
		LeagueID:       nullableIdent(m.LeagueID),
		SeriesID:       nullableIdent(m.SeriesID),
		SeriesType:     m.SeriesType,
		RadiantTeamID:  nullableIdent(m.RadiantTeamID),
		DireTeamID:     nullableIdent(m.DireTeamID),
		RadiantScore:   m.RadiantScore,
		DireScore:      m.DireScore,
		RadiantWin:     m.RadiantWin,
		GameVersion:    m.GameVersion,
		RadiantGoldAdv: m.RadiantGoldAdv,
		RadiantXPAdv:   m.RadiantXPAdv,
		RawData:        m.RawData,
	}

	query, args, err := qb.InsertModel("matches", insertModel, `ON CONFLICT (match_id)
DO UPDATE SET
    start_time = EXCLUDED.start_time,
    duration = EXCLUDED.duration,
    league_id = EXCLUDED.league_id,
    series_id = EXCLUDED.series_id,
    series_type = EXCLUDED.series_type,
    radiant_team_id = EXCLUDED.radiant_team_id,
    dire_team_id = EXCLUDED.dire_team_id,
    radiant_score = EXCLUDED.radiant_score,
    dire_score = EXCLUDED.dire_score,
    radiant_win = EXCLUDED.radiant_win,
    game_version = EXCLUDED.game_version,
    radiant_gold_adv = EXCLUDED.radiant_gold_adv,
    radiant_xp_adv = EXCLUDED.radiant_xp_adv,
    raw_data = EXCLUDED.raw_data,
    updated_at = NOW()
RETURNING (xmax = 0) AS inserted`)
	if err != nil {
		return false, fmt.Errorf("build upsert match query: %w", err)
	}

	var inserted bool
	if err := tx.GetContext(ctx, &inserted, query, args...); err != nil {
		return false, fmt.Errorf("upsert match %d: %w", m.MatchID, err)
	}
	return inserted, nil
}

// upsertReferenceStubs keeps every league, team, player, and hero the match
// touches present in the store. Fields already filled by the reference sync
// win over the (possibly empty) values carried in a match document.
func upsertReferenceStubs(ctx context.Context, tx *sqlx.Tx, bundle match.Normalized) error {
	if bundle.League != nil {
		if err := upsertLeagueRows(ctx, tx, []league.League{*bundle.League}); err != nil {
			return err
		}
	}
	if err := upsertTeamRows(ctx, tx, bundle.Teams); err != nil {
		return err
	}
	if err := upsertPlayerRows(ctx, tx, bundle.Players); err != nil {
		return err
	}
	if err := upsertHeroRows(ctx, tx, bundle.Heroes); err != nil {
		return err
	}
	return nil
}

func upsertLeagueRows(ctx context.Context, tx sqlx.ExtContext, leagues []league.League) error {
	for _, l := range leagues {
		insertModel := leagueInsertModel{ID: string(l.ID), Name: l.Name, Tier: l.Tier}
		query, args, err := qb.InsertModel("leagues", insertModel, `ON CONFLICT (league_id)
DO UPDATE SET
    name = COALESCE(NULLIF(EXCLUDED.name, ''), leagues.name),
    tier = COALESCE(NULLIF(EXCLUDED.tier, ''), leagues.tier),
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert league query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert league %s: %w", l.ID, err)
		}
	}
	return nil
}

func upsertTeamRows(ctx context.Context, tx sqlx.ExtContext, teams []team.Team) error {
	for _, t := range teams {
		insertModel := teamInsertModel{ID: string(t.ID), Name: t.Name, Tag: t.Tag, LogoURL: t.LogoURL}
		query, args, err := qb.InsertModel("teams", insertModel, `ON CONFLICT (team_id)
DO UPDATE SET
    name = COALESCE(NULLIF(EXCLUDED.name, ''), teams.name),
    tag = COALESCE(NULLIF(EXCLUDED.tag, ''), teams.tag),
    logo_url = COALESCE(NULLIF(EXCLUDED.logo_url, ''), teams.logo_url),
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert team query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert team %s: %w", t.ID, err)
		}
	}
	return nil
}

func upsertPlayerRows(ctx context.Context, tx sqlx.ExtContext, players []player.Player) error {
	for _, p := range players {
		insertModel := playerInsertModel{AccountID: p.AccountID, Name: p.Name, PersonaName: p.PersonaName}
		query, args, err := qb.InsertModel("players", insertModel, `ON CONFLICT (account_id)
DO UPDATE SET
    name = COALESCE(NULLIF(EXCLUDED.name, ''), players.name),
    persona_name = COALESCE(NULLIF(EXCLUDED.persona_name, ''), players.persona_name),
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert player query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert player %d: %w", p.AccountID, err)
		}
	}
	return nil
}

func upsertHeroRows(ctx context.Context, tx sqlx.ExtContext, heroes []hero.Hero) error {
	for _, h := range heroes {
		insertModel := heroInsertModel{
			ID:            h.ID,
			Name:          h.Name,
			LocalizedName: h.LocalizedName,
			PrimaryAttr:   h.PrimaryAttr,
			AttackType:    h.AttackType,
			Roles:         encodeRoles(h.Roles),
		}
		query, args, err := qb.InsertModel("heroes", insertModel, `ON CONFLICT (hero_id)
DO UPDATE SET
    name = COALESCE(NULLIF(EXCLUDED.name, ''), heroes.name),
    localized_name = COALESCE(NULLIF(EXCLUDED.localized_name, ''), heroes.localized_name),
    primary_attr = COALESCE(NULLIF(EXCLUDED.primary_attr, ''), heroes.primary_attr),
    attack_type = COALESCE(NULLIF(EXCLUDED.attack_type, ''), heroes.attack_type),
    roles = CASE WHEN EXCLUDED.roles = '[]' THEN heroes.roles ELSE EXCLUDED.roles END,
    updated_at = NOW()`)
		if err != nil {
			return fmt.Errorf("build upsert hero query: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("upsert hero %d: %w", h.ID, err)
		}
	}
	return nil
}

var matchChildTables = []string{
	"time_series",
	"chat_events",
	"objective_events",
	"team_fights",
	"draft_events",
	"match_players",
}

func deleteMatchChildRows(ctx context.Context, tx *sqlx.Tx, matchID int64) error {
	// team_fight_players rows go with their team_fight via ON DELETE CASCADE.
	for _, table := range matchChildTables {
		query := fmt.Sprintf("DELETE FROM %s WHERE match_id = $1", table)
		if _, err := tx.ExecContext(ctx, query, matchID); err != nil {
			return fmt.Errorf("delete %s rows for match %d: %w", table, matchID, err)
		}
	}
	return nil
}

func insertMatchChildRows(ctx context.Context, tx *sqlx.Tx, bundle match.Normalized) error {
	matchID := bundle.Match.MatchID

	players := make([]matchPlayerInsertModel, 0, len(bundle.Performances))
	for _, p := range bundle.Performances {
		players = append(players, matchPlayerInsertModel{
			MatchID:     p.MatchID,
			AccountID:   p.AccountID,
			HeroID:      p.HeroID,
			PlayerSlot:  p.PlayerSlot,
			IsRadiant:   p.IsRadiant,
			Won:         p.Won,
			Kills:       p.Kills,
			Deaths:      p.Deaths,
			Assists:     p.Assists,
			LastHits:    p.LastHits,
			Denies:      p.Denies,
			GoldPerMin:  p.GoldPerMin,
			XPPerMin:    p.XPPerMin,
			HeroDamage:  p.HeroDamage,
			TowerDamage: p.TowerDamage,
			HeroHealing: p.HeroHealing,
			Level:       p.Level,
			Item0:       p.Items[0],
			Item1:       p.Items[1],
			Item2:       p.Items[2],
			Item3:       p.Items[3],
			Item4:       p.Items[4],
			Item5:       p.Items[5],
		})
	}
	if err := insertInBatches(ctx, tx, "match_players", players); err != nil {
		return fmt.Errorf("insert match %d players: %w", matchID, err)
	}

	draft := make([]draftEventInsertModel, 0, len(bundle.DraftEvents))
	for _, d := range bundle.DraftEvents {
		draft = append(draft, draftEventInsertModel{
			MatchID:        d.MatchID,
			DraftOrder:     d.Order,
			IsPick:         d.IsPick,
			ActiveTeam:     d.ActiveTeam,
			HeroID:         d.HeroID,
			PlayerSlot:     d.PlayerSlot,
			ExtraTime:      d.ExtraTime,
			TotalTimeTaken: d.TotalTimeTaken,
		})
	}
	if err := insertInBatches(ctx, tx, "draft_events", draft); err != nil {
		return fmt.Errorf("insert match %d draft events: %w", matchID, err)
	}

	if err := insertTeamFights(ctx, tx, bundle.TeamFights); err != nil {
		return fmt.Errorf("insert match %d teamfights: %w", matchID, err)
	}

	objectives := make([]objectiveInsertModel, 0, len(bundle.Objectives))
	for _, o := range bundle.Objectives {
		objectives = append(objectives, objectiveInsertModel{
			MatchID:    o.MatchID,
			Seq:        o.Seq,
			EventTime:  o.Time,
			EventType:  o.Type,
			Slot:       o.Slot,
			Key:        o.Key,
			PlayerSlot: o.PlayerSlot,
			Unit:       o.Unit,
			Value:      o.Value,
			Killer:     o.Killer,
			Team:       o.Team,
		})
	}
	if err := insertInBatches(ctx, tx, "objective_events", objectives); err != nil {
		return fmt.Errorf("insert match %d objectives: %w", matchID, err)
	}

	chat := make([]chatEventInsertModel, 0, len(bundle.ChatEvents))
	for _, c := range bundle.ChatEvents {
		chat = append(chat, chatEventInsertModel{
			MatchID:    c.MatchID,
			Seq:        c.Seq,
			EventTime:  c.Time,
			EventType:  c.Type,
			Key:        c.Key,
			Slot:       c.Slot,
			PlayerSlot: c.PlayerSlot,
		})
	}
	if err := insertInBatches(ctx, tx, "chat_events", chat); err != nil {
		return fmt.Errorf("insert match %d chat events: %w", matchID, err)
	}

	series := make([]timeSeriesInsertModel, 0, len(bundle.TimeSeries))
	for _, s := range bundle.TimeSeries {
		series = append(series, timeSeriesInsertModel{
			MatchID:    s.MatchID,
			Seq:        s.Seq,
			PlayerSlot: s.PlayerSlot,
			SampleTime: s.Time,
			Gold:       s.Gold,
			XP:         s.XP,
			LastHits:   s.LastHits,
			Denies:     s.Denies,
			EventType:  s.EventType,
			Payload:    s.Payload,
		})
	}
	if err := insertInBatches(ctx, tx, "time_series", series); err != nil {
		return fmt.Errorf("insert match %d time series: %w", matchID, err)
	}

	return nil
}

func insertTeamFights(ctx context.Context, tx *sqlx.Tx, fights []match.TeamFight) error {
	for _, fight := range fights {
		insertModel := teamFightInsertModel{
			MatchID:    fight.MatchID,
			FightStart: fight.Start,
			FightEnd:   fight.End,
			LastDeath:  fight.LastDeath,
			Deaths:     fight.Deaths,
		}
		query, args, err := qb.InsertModel("team_fights", insertModel, "RETURNING id")
		if err != nil {
			return fmt.Errorf("build insert teamfight query: %w", err)
		}

		var fightID int64
		if err := tx.GetContext(ctx, &fightID, query, args...); err != nil {
			return fmt.Errorf("insert teamfight start=%d: %w", fight.Start, err)
		}

		participants := make([]teamFightPlayerInsertModel, 0, len(fight.Participants))
		for _, p := range fight.Participants {
			participants = append(participants, teamFightPlayerInsertModel{
				TeamFightID: fightID,
				PlayerSlot:  p.PlayerSlot,
				Deaths:      p.Deaths,
				Buybacks:    p.Buybacks,
				Damage:      p.Damage,
				Healing:     p.Healing,
				GoldDelta:   p.GoldDelta,
				XPDelta:     p.XPDelta,
			})
		}
		if err := insertInBatches(ctx, tx, "team_fight_players", participants); err != nil {
			return fmt.Errorf("insert teamfight participants start=%d: %w", fight.Start, err)
		}
	}
	return nil
}

func insertInBatches[T any](ctx context.Context, tx *sqlx.Tx, table string, models []T) error {
	for start := 0; start < len(models); start += childInsertBatchSize {
		end := start + childInsertBatchSize
		if end > len(models) {
			end = len(models)
		}

		query, args, err := qb.InsertModels(table, models[start:end], "")
		if err != nil {
			return fmt.Errorf("build insert %s batch query: %w", table, err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert %s batch: %w", table, err)
		}
	}
	return nil
}

func encodeRoles(roles []string) string {
	if len(roles) == 0 {
		return "[]"
	}
	encoded, err := sonic.Marshal(roles)
	if err != nil {
		return "[]"
	}
	return string(encoded)
}
