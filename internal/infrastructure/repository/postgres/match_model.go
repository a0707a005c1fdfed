package postgres

import (
	"time"

	"github.com/dotastats/prostats/internal/domain/ident"
)

type matchInsertModel struct {
	MatchID        int64     `db:"match_id"`
	StartTime      time.Time `db:"start_time"`
	Duration       int       `db:"duration"`
	LeagueID       *string   `db:"league_id"`
	SeriesID       *string   `db:"series_id"`
	SeriesType     int       `db:"series_type"`
	RadiantTeamID  *string   `db:"radiant_team_id"`
	DireTeamID     *string   `db:"dire_team_id"`
	RadiantScore   int       `db:"radiant_score"`
	DireScore      int       `db:"dire_score"`
	RadiantWin     bool      `db:"radiant_win"`
	GameVersion    int       `db:"game_version"`
	RadiantGoldAdv string    `db:"radiant_gold_adv"`
	RadiantXPAdv   string    `db:"radiant_xp_adv"`
	RawData        []byte    `db:"raw_data"`
}

type matchPlayerInsertModel struct {
	MatchID     int64 `db:"match_id"`
	AccountID   int64 `db:"account_id"`
	HeroID      int64 `db:"hero_id"`
	PlayerSlot  int   `db:"player_slot"`
	IsRadiant   bool  `db:"is_radiant"`
	Won         bool  `db:"won"`
	Kills       int   `db:"kills"`
	Deaths      int   `db:"deaths"`
	Assists     int   `db:"assists"`
	LastHits    int   `db:"last_hits"`
	Denies      int   `db:"denies"`
	GoldPerMin  int   `db:"gold_per_min"`
	XPPerMin    int   `db:"xp_per_min"`
	HeroDamage  int   `db:"hero_damage"`
	TowerDamage int   `db:"tower_damage"`
	HeroHealing int   `db:"hero_healing"`
	Level       int   `db:"level"`
	Item0       int64 `db:"item_0"`
	Item1       int64 `db:"item_1"`
	Item2       int64 `db:"item_2"`
	Item3       int64 `db:"item_3"`
	Item4       int64 `db:"item_4"`
	Item5       int64 `db:"item_5"`
}

type draftEventInsertModel struct {
	MatchID        int64 `db:"match_id"`
	DraftOrder     int   `db:"draft_order"`
	IsPick         bool  `db:"is_pick"`
	ActiveTeam     int   `db:"active_team"`
	HeroID         int64 `db:"hero_id"`
	PlayerSlot     int   `db:"player_slot"`
	ExtraTime      int   `db:"extra_time"`
	TotalTimeTaken int   `db:"total_time_taken"`
}

type teamFightInsertModel struct {
	MatchID    int64 `db:"match_id"`
	FightStart int   `db:"fight_start"`
	FightEnd   int   `db:"fight_end"`
	LastDeath  int   `db:"last_death"`
	Deaths     int   `db:"deaths"`
}

type teamFightPlayerInsertModel struct {
	TeamFightID int64 `db:"teamfight_id"`
	PlayerSlot  int   `db:"player_slot"`
	Deaths      int   `db:"deaths"`
	Buybacks    int   `db:"buybacks"`
	Damage      int   `db:"damage"`
	Healing     int   `db:"healing"`
	GoldDelta   int   `db:"gold_delta"`
	XPDelta     int   `db:"xp_delta"`
}

type objectiveInsertModel struct {
	MatchID    int64  `db:"match_id"`
	Seq        int    `db:"seq"`
	EventTime  int    `db:"event_time"`
	EventType  string `db:"event_type"`
	Slot       int    `db:"slot"`
	Key        string `db:"obj_key"`
	PlayerSlot int    `db:"player_slot"`
	Unit       string `db:"unit"`
	Value      int64  `db:"value"`
	Killer     int    `db:"killer"`
	Team       int    `db:"team"`
}

type chatEventInsertModel struct {
	MatchID    int64  `db:"match_id"`
	Seq        int    `db:"seq"`
	EventTime  int    `db:"event_time"`
	EventType  string `db:"event_type"`
	Key        string `db:"chat_key"`
	Slot       int    `db:"slot"`
	PlayerSlot int    `db:"player_slot"`
}

type timeSeriesInsertModel struct {
	MatchID    int64  `db:"match_id"`
	Seq        int    `db:"seq"`
	PlayerSlot int    `db:"player_slot"`
	SampleTime int    `db:"sample_time"`
	Gold       int    `db:"gold"`
	XP         int    `db:"xp"`
	LastHits   int    `db:"last_hits"`
	Denies     int    `db:"denies"`
	EventType  string `db:"event_type"`
	Payload    []byte `db:"payload"`
}

type leagueInsertModel struct {
	ID   string `db:"league_id"`
	Name string `db:"name"`
	Tier string `db:"tier"`
}

type teamInsertModel struct {
	ID      string `db:"team_id"`
	Name    string `db:"name"`
	Tag     string `db:"tag"`
	LogoURL string `db:"logo_url"`
}

type playerInsertModel struct {
	AccountID   int64  `db:"account_id"`
	Name        string `db:"name"`
	PersonaName string `db:"persona_name"`
}

type heroInsertModel struct {
	ID            int64  `db:"hero_id"`
	Name          string `db:"name"`
	LocalizedName string `db:"localized_name"`
	PrimaryAttr   string `db:"primary_attr"`
	AttackType    string `db:"attack_type"`
	Roles         string `db:"roles"`
}

type checkpointInsertModel struct {
	RunName string `db:"run_name"`
	Cursor  int64  `db:"cursor"`
}

func nullableIdent(id ident.ID) *string {
	if id == "" {
		return nil
	}
	v := string(id)
	return &v
}
