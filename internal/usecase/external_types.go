package usecase

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/dotastats/prostats/internal/domain/ident"
)

// FlexString decodes a JSON field that the provider serves either as a
// string or as a bare number. Objective and chat event keys do this
// routinely (building names vs. chatwheel ids).
type FlexString string

func (s *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = ""
		return nil
	}
	if data[0] == '"' {
		unquoted, err := strconv.Unquote(string(data))
		if err != nil {
			return fmt.Errorf("decode flexible string: %w", err)
		}
		*s = FlexString(unquoted)
		return nil
	}
	*s = FlexString(data)
	return nil
}

func (s FlexString) String() string {
	return string(s)
}

// ExternalMatchSummary is one row of the provider's paginated pro-match
// listing. It carries enough to decide whether the full document is worth
// fetching and to advance the pagination cursor.
type ExternalMatchSummary struct {
	MatchID       ident.ID `json:"match_id"`
	StartTime     int64    `json:"start_time"`
	Duration      int      `json:"duration"`
	LeagueID      ident.ID `json:"leagueid"`
	LeagueName    string   `json:"league_name"`
	SeriesID      ident.ID `json:"series_id"`
	SeriesType    int      `json:"series_type"`
	RadiantTeamID ident.ID `json:"radiant_team_id"`
	DireTeamID    ident.ID `json:"dire_team_id"`
	RadiantName   string   `json:"radiant_name"`
	DireName      string   `json:"dire_name"`
	RadiantScore  int      `json:"radiant_score"`
	DireScore     int      `json:"dire_score"`
	RadiantWin    bool     `json:"radiant_win"`
}

// ExternalMatchDocument is the provider's full match detail payload. Only
// the fields the normalizer consumes are declared; the raw bytes are kept
// separately for archival.
type ExternalMatchDocument struct {
	MatchID        ident.ID              `json:"match_id"`
	StartTime      int64                 `json:"start_time"`
	Duration       int                   `json:"duration"`
	LeagueID       ident.ID              `json:"leagueid"`
	League         *ExternalLeague       `json:"league"`
	SeriesID       ident.ID              `json:"series_id"`
	SeriesType     int                   `json:"series_type"`
	RadiantScore   int                   `json:"radiant_score"`
	DireScore      int                   `json:"dire_score"`
	RadiantWin     bool                  `json:"radiant_win"`
	Version        int                   `json:"version"`
	RadiantTeamID  ident.ID              `json:"radiant_team_id"`
	DireTeamID     ident.ID              `json:"dire_team_id"`
	RadiantTeam    *ExternalTeam         `json:"radiant_team"`
	DireTeam       *ExternalTeam         `json:"dire_team"`
	RadiantGoldAdv []int64               `json:"radiant_gold_adv"`
	RadiantXPAdv   []int64               `json:"radiant_xp_adv"`
	Players        []ExternalMatchPlayer `json:"players"`
	DraftTimings   []ExternalDraftTiming `json:"draft_timings"`
	Teamfights     []ExternalTeamFight   `json:"teamfights"`
	Objectives     []ExternalObjective   `json:"objectives"`
	Chat           []ExternalChatEvent   `json:"chat"`
}

type ExternalMatchPlayer struct {
	AccountID   int64  `json:"account_id"`
	HeroID      int64  `json:"hero_id"`
	PlayerSlot  int    `json:"player_slot"`
	Name        string `json:"name"`
	PersonaName string `json:"personaname"`
	Kills       int    `json:"kills"`
	Deaths      int    `json:"deaths"`
	Assists     int    `json:"assists"`
	LastHits    int    `json:"last_hits"`
	Denies      int    `json:"denies"`
	GoldPerMin  int    `json:"gold_per_min"`
	XPPerMin    int    `json:"xp_per_min"`
	HeroDamage  int    `json:"hero_damage"`
	TowerDamage int    `json:"tower_damage"`
	HeroHealing int    `json:"hero_healing"`
	Level       int    `json:"level"`
	Item0       int64  `json:"item_0"`
	Item1       int64  `json:"item_1"`
	Item2       int64  `json:"item_2"`
	Item3       int64  `json:"item_3"`
	Item4       int64  `json:"item_4"`
	Item5       int64  `json:"item_5"`

	GoldT    []int `json:"gold_t"`
	XPT      []int `json:"xp_t"`
	LastHitT []int `json:"lh_t"`
	DenyT    []int `json:"dn_t"`

	PurchaseLog []ExternalLogEvent `json:"purchase_log"`
	KillsLog    []ExternalLogEvent `json:"kills_log"`
}

type ExternalLogEvent struct {
	Time int        `json:"time"`
	Key  FlexString `json:"key"`
}

type ExternalDraftTiming struct {
	Order          int   `json:"order"`
	Pick           bool  `json:"pick"`
	ActiveTeam     int   `json:"active_team"`
	HeroID         int64 `json:"hero_id"`
	PlayerSlot     *int  `json:"player_slot"`
	ExtraTime      int   `json:"extra_time"`
	TotalTimeTaken int   `json:"total_time_taken"`
}

type ExternalTeamFight struct {
	Start     int                       `json:"start"`
	End       int                       `json:"end"`
	LastDeath int                       `json:"last_death"`
	Deaths    int                       `json:"deaths"`
	Players   []ExternalTeamFightPlayer `json:"players"`
}

type ExternalTeamFightPlayer struct {
	Deaths    int `json:"deaths"`
	Buybacks  int `json:"buybacks"`
	Damage    int `json:"damage"`
	Healing   int `json:"healing"`
	GoldDelta int `json:"gold_delta"`
	XPDelta   int `json:"xp_delta"`
}

type ExternalObjective struct {
	Time       int        `json:"time"`
	Type       string     `json:"type"`
	Slot       *int       `json:"slot"`
	Key        FlexString `json:"key"`
	PlayerSlot *int       `json:"player_slot"`
	Unit       string     `json:"unit"`
	Value      int64      `json:"value"`
	Killer     int        `json:"killer"`
	Team       int        `json:"team"`
}

type ExternalChatEvent struct {
	Time       int        `json:"time"`
	Type       string     `json:"type"`
	Key        FlexString `json:"key"`
	Slot       *int       `json:"slot"`
	PlayerSlot *int       `json:"player_slot"`
}

type ExternalLeague struct {
	LeagueID ident.ID `json:"leagueid"`
	Name     string   `json:"name"`
	Tier     string   `json:"tier"`
}

type ExternalTeam struct {
	TeamID  ident.ID `json:"team_id"`
	Name    string   `json:"name"`
	Tag     string   `json:"tag"`
	LogoURL string   `json:"logo_url"`
}

type ExternalHero struct {
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	LocalizedName string   `json:"localized_name"`
	PrimaryAttr   string   `json:"primary_attr"`
	AttackType    string   `json:"attack_type"`
	Roles         []string `json:"roles"`
}

type ExternalProPlayer struct {
	AccountID   int64    `json:"account_id"`
	Name        string   `json:"name"`
	PersonaName string   `json:"personaname"`
	TeamID      ident.ID `json:"team_id"`
}
