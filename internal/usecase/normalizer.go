package usecase

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/ident"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/match"
	"github.com/dotastats/prostats/internal/domain/player"
	"github.com/dotastats/prostats/internal/domain/team"
)

// NormalizeMatch maps one provider match document into the relational entity
// bundle. It is pure: no clock, no I/O. The raw document bytes travel along
// for archival.
func NormalizeMatch(doc ExternalMatchDocument, raw []byte) (match.Normalized, error) {
	matchID, ok := doc.MatchID.Int64()
	if !ok || matchID <= 0 {
		return match.Normalized{}, fmt.Errorf("%w: match_id %q is missing or out of range", ErrMalformedDocument, doc.MatchID)
	}
	if doc.StartTime <= 0 {
		return match.Normalized{}, fmt.Errorf("%w: match %d has no start_time", ErrMalformedDocument, matchID)
	}
	if doc.Duration < 0 {
		return match.Normalized{}, fmt.Errorf("%w: match %d has negative duration", ErrMalformedDocument, matchID)
	}

	goldAdv, err := encodeAdvantage(doc.RadiantGoldAdv)
	if err != nil {
		return match.Normalized{}, fmt.Errorf("%w: match %d gold advantage: %v", ErrMalformedDocument, matchID, err)
	}
	xpAdv, err := encodeAdvantage(doc.RadiantXPAdv)
	if err != nil {
		return match.Normalized{}, fmt.Errorf("%w: match %d xp advantage: %v", ErrMalformedDocument, matchID, err)
	}

	out := match.Normalized{
		Match: match.Match{
			MatchID:        matchID,
			StartTime:      time.Unix(doc.StartTime, 0).UTC(),
			Duration:       doc.Duration,
			LeagueID:       doc.LeagueID,
			SeriesID:       doc.SeriesID,
			SeriesType:     doc.SeriesType,
			RadiantTeamID:  doc.RadiantTeamID,
			DireTeamID:     doc.DireTeamID,
			RadiantScore:   doc.RadiantScore,
			DireScore:      doc.DireScore,
			RadiantWin:     doc.RadiantWin,
			GameVersion:    doc.Version,
			RadiantGoldAdv: goldAdv,
			RadiantXPAdv:   xpAdv,
			RawData:        raw,
		},
	}

	out.League = normalizeLeague(doc)
	out.Teams = normalizeTeams(doc)
	out.Players = normalizePlayers(doc.Players)
	out.Heroes = normalizeHeroStubs(doc)
	out.Performances = normalizePerformances(matchID, doc)
	out.DraftEvents = normalizeDraft(matchID, doc.DraftTimings)
	out.TeamFights = normalizeTeamFights(matchID, doc)
	out.Objectives = normalizeObjectives(matchID, doc.Objectives)
	out.ChatEvents = normalizeChat(matchID, doc.Chat)
	out.TimeSeries = normalizeTimeSeries(matchID, doc.Players)

	return out, nil
}

// encodeAdvantage renders per-minute advantage values as a JSON array of
// decimal strings so arbitrarily large values survive storage untouched.
func encodeAdvantage(values []int64) (string, error) {
	if len(values) == 0 {
		return "", nil
	}
	parts := make([]string, 0, len(values))
	for _, v := range values {
		parts = append(parts, strconv.FormatInt(v, 10))
	}
	encoded, err := sonic.Marshal(parts)
	if err != nil {
		return "", err
	}
	return string(encoded), nil
}

func normalizeLeague(doc ExternalMatchDocument) *league.League {
	id := doc.LeagueID
	name := ""
	tier := ""
	if doc.League != nil {
		if !doc.League.LeagueID.IsZero() {
			id = doc.League.LeagueID
		}
		name = strings.TrimSpace(doc.League.Name)
		tier = strings.TrimSpace(doc.League.Tier)
	}
	if id.IsZero() {
		return nil
	}
	return &league.League{ID: id, Name: name, Tier: tier}
}

func normalizeTeams(doc ExternalMatchDocument) []team.Team {
	out := make([]team.Team, 0, 2)
	appendTeam := func(id ident.ID, side *ExternalTeam) {
		if side != nil && !side.TeamID.IsZero() {
			id = side.TeamID
		}
		if id.IsZero() {
			return
		}
		row := team.Team{ID: id}
		if side != nil {
			row.Name = strings.TrimSpace(side.Name)
			row.Tag = strings.TrimSpace(side.Tag)
			row.LogoURL = strings.TrimSpace(side.LogoURL)
		}
		out = append(out, row)
	}
	appendTeam(doc.RadiantTeamID, doc.RadiantTeam)
	appendTeam(doc.DireTeamID, doc.DireTeam)
	return out
}

func normalizePlayers(players []ExternalMatchPlayer) []player.Player {
	out := make([]player.Player, 0, len(players))
	seen := make(map[int64]struct{}, len(players))
	for _, p := range players {
		if p.AccountID <= 0 {
			continue
		}
		if _, dup := seen[p.AccountID]; dup {
			continue
		}
		seen[p.AccountID] = struct{}{}
		out = append(out, player.Player{
			AccountID:   p.AccountID,
			Name:        strings.TrimSpace(p.Name),
			PersonaName: strings.TrimSpace(p.PersonaName),
		})
	}
	return out
}

// normalizeHeroStubs collects every hero id the document touches so the match
// rows never reference a hero the store has not seen. The stubs carry only the
// id; the reference sync fills in names later without being overwritten here.
func normalizeHeroStubs(doc ExternalMatchDocument) []hero.Hero {
	seen := make(map[int64]struct{}, len(doc.Players))
	out := make([]hero.Hero, 0, len(doc.Players))
	add := func(id int64) {
		if id <= 0 {
			return
		}
		if _, dup := seen[id]; dup {
			return
		}
		seen[id] = struct{}{}
		out = append(out, hero.Hero{ID: id})
	}
	for _, p := range doc.Players {
		add(p.HeroID)
	}
	for _, t := range doc.DraftTimings {
		add(t.HeroID)
	}
	return out
}

func normalizePerformances(matchID int64, doc ExternalMatchDocument) []match.PlayerPerformance {
	out := make([]match.PlayerPerformance, 0, len(doc.Players))
	type perfKey struct {
		account int64
		hero    int64
	}
	seen := make(map[perfKey]struct{}, len(doc.Players))
	for _, p := range doc.Players {
		// Anonymous players carry no stable identity; the row would collide
		// with every other anonymous row, so it is dropped.
		if p.AccountID <= 0 {
			continue
		}
		if p.PlayerSlot < 0 || p.PlayerSlot > match.MaxSlot {
			continue
		}
		key := perfKey{account: p.AccountID, hero: p.HeroID}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		isRadiant := match.IsRadiant(p.PlayerSlot)
		out = append(out, match.PlayerPerformance{
			MatchID:     matchID,
			AccountID:   p.AccountID,
			HeroID:      p.HeroID,
			PlayerSlot:  p.PlayerSlot,
			IsRadiant:   isRadiant,
			Won:         isRadiant == doc.RadiantWin,
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
			Items:       [6]int64{p.Item0, p.Item1, p.Item2, p.Item3, p.Item4, p.Item5},
		})
	}
	return out
}

func normalizeDraft(matchID int64, timings []ExternalDraftTiming) []match.DraftEvent {
	out := make([]match.DraftEvent, 0, len(timings))
	seen := make(map[int]struct{}, len(timings))
	for _, t := range timings {
		if _, dup := seen[t.Order]; dup {
			continue
		}
		seen[t.Order] = struct{}{}
		slot := -1
		if t.PlayerSlot != nil {
			slot = *t.PlayerSlot
		}
		out = append(out, match.DraftEvent{
			MatchID:        matchID,
			Order:          t.Order,
			IsPick:         t.Pick,
			ActiveTeam:     t.ActiveTeam,
			HeroID:         t.HeroID,
			PlayerSlot:     slot,
			ExtraTime:      t.ExtraTime,
			TotalTimeTaken: t.TotalTimeTaken,
		})
	}
	return out
}

func normalizeTeamFights(matchID int64, doc ExternalMatchDocument) []match.TeamFight {
	out := make([]match.TeamFight, 0, len(doc.Teamfights))
	for _, tf := range doc.Teamfights {
		fight := match.TeamFight{
			MatchID:   matchID,
			Start:     tf.Start,
			End:       tf.End,
			LastDeath: tf.LastDeath,
			Deaths:    tf.Deaths,
		}
		fight.Participants = make([]match.TeamFightParticipant, 0, len(tf.Players))
		for idx, tp := range tf.Players {
			fight.Participants = append(fight.Participants, match.TeamFightParticipant{
				PlayerSlot: teamFightSlot(doc.Players, idx),
				Deaths:     tp.Deaths,
				Buybacks:   tp.Buybacks,
				Damage:     tp.Damage,
				Healing:    tp.Healing,
				GoldDelta:  tp.GoldDelta,
				XPDelta:    tp.XPDelta,
			})
		}
		out = append(out, fight)
	}
	return out
}

// teamFightSlot resolves the fight participant array index to a player slot.
// The provider aligns teamfight players with the match players array; when
// that alignment is unavailable the positional convention applies.
func teamFightSlot(players []ExternalMatchPlayer, idx int) int {
	if idx >= 0 && idx < len(players) {
		return players[idx].PlayerSlot
	}
	if idx < 5 {
		return idx
	}
	return match.DireSlotOffset + (idx - 5)
}

func normalizeObjectives(matchID int64, objectives []ExternalObjective) []match.ObjectiveEvent {
	out := make([]match.ObjectiveEvent, 0, len(objectives))
	for idx, o := range objectives {
		out = append(out, match.ObjectiveEvent{
			MatchID:    matchID,
			Seq:        idx,
			Time:       o.Time,
			Type:       strings.TrimSpace(o.Type),
			Slot:       intOrDefault(o.Slot, -1),
			Key:        o.Key.String(),
			PlayerSlot: intOrDefault(o.PlayerSlot, -1),
			Unit:       strings.TrimSpace(o.Unit),
			Value:      o.Value,
			Killer:     o.Killer,
			Team:       o.Team,
		})
	}
	return out
}

func normalizeChat(matchID int64, events []ExternalChatEvent) []match.ChatEvent {
	out := make([]match.ChatEvent, 0, len(events))
	for idx, e := range events {
		out = append(out, match.ChatEvent{
			MatchID:    matchID,
			Seq:        idx,
			Time:       e.Time,
			Type:       strings.TrimSpace(e.Type),
			Key:        e.Key.String(),
			Slot:       intOrDefault(e.Slot, -1),
			PlayerSlot: intOrDefault(e.PlayerSlot, -1),
		})
	}
	return out
}

type samplePayload struct {
	Key string `json:"key"`
}

func normalizeTimeSeries(matchID int64, players []ExternalMatchPlayer) []match.TimeSeriesSample {
	out := make([]match.TimeSeriesSample, 0, 64)
	seq := 0
	next := func(sample match.TimeSeriesSample) {
		sample.MatchID = matchID
		sample.Seq = seq
		seq++
		out = append(out, sample)
	}

	for _, p := range players {
		for minute, gold := range p.GoldT {
			sample := match.TimeSeriesSample{
				PlayerSlot: p.PlayerSlot,
				Time:       minute * 60,
				Gold:       gold,
				EventType:  match.SampleInterval,
			}
			if minute < len(p.XPT) {
				sample.XP = p.XPT[minute]
			}
			if minute < len(p.LastHitT) {
				sample.LastHits = p.LastHitT[minute]
			}
			if minute < len(p.DenyT) {
				sample.Denies = p.DenyT[minute]
			}
			next(sample)
		}

		for _, event := range p.PurchaseLog {
			next(logEventSample(p.PlayerSlot, match.SamplePurchase, event))
		}
		for _, event := range p.KillsLog {
			next(logEventSample(p.PlayerSlot, match.SampleKill, event))
		}
	}

	return out
}

func logEventSample(slot int, eventType string, event ExternalLogEvent) match.TimeSeriesSample {
	payload, err := sonic.Marshal(samplePayload{Key: event.Key.String()})
	if err != nil {
		payload = nil
	}
	return match.TimeSeriesSample{
		PlayerSlot: slot,
		Time:       event.Time,
		EventType:  eventType,
		Payload:    payload,
	}
}

func intOrDefault(value *int, fallback int) int {
	if value == nil {
		return fallback
	}
	return *value
}
