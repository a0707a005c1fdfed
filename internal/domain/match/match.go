package match

import (
	"time"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/ident"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/player"
	"github.com/dotastats/prostats/internal/domain/team"
)

// DireSlotOffset splits the 0-255 player slot range: slots below it are
// Radiant, the rest are Dire.
const DireSlotOffset = 128

// MaxSlot is the largest valid player slot.
const MaxSlot = 255

// IsRadiant applies the slot convention. It is the single place this rule
// lives; everything downstream reuses the stored flag.
func IsRadiant(slot int) bool { return slot < DireSlotOffset }

// Match is one completed professional game.
type Match struct {
	MatchID        int64
	StartTime      time.Time
	Duration       int
	LeagueID       ident.ID
	SeriesID       ident.ID
	SeriesType     int
	RadiantTeamID  ident.ID
	DireTeamID     ident.ID
	RadiantScore   int
	DireScore      int
	RadiantWin     bool
	GameVersion    int
	RadiantGoldAdv string // JSON array of decimal strings
	RadiantXPAdv   string // JSON array of decimal strings
	RawData        []byte
}

// PlayerPerformance is one player's stat line in one match.
type PlayerPerformance struct {
	MatchID     int64
	AccountID   int64
	HeroID      int64
	PlayerSlot  int
	IsRadiant   bool
	Won         bool
	Kills       int
	Deaths      int
	Assists     int
	LastHits    int
	Denies      int
	GoldPerMin  int
	XPPerMin    int
	HeroDamage  int
	TowerDamage int
	HeroHealing int
	Level       int
	Items       [6]int64
}

// DraftEvent is one pick or ban in the pre-game draft.
type DraftEvent struct {
	MatchID        int64
	Order          int
	IsPick         bool
	ActiveTeam     int
	HeroID         int64
	PlayerSlot     int
	ExtraTime      int
	TotalTimeTaken int
}

// TeamFight is a time-bounded cluster of deaths with per-player deltas.
type TeamFight struct {
	MatchID      int64
	Start        int
	End          int
	LastDeath    int
	Deaths       int
	Participants []TeamFightParticipant
}

type TeamFightParticipant struct {
	PlayerSlot int
	Deaths     int
	Buybacks   int
	Damage     int
	Healing    int
	GoldDelta  int
	XPDelta    int
}

// ObjectiveEvent is a tower/roshan/rune style map event. Seq is the position
// in the source document and keys the uniqueness guard.
type ObjectiveEvent struct {
	MatchID    int64
	Seq        int
	Time       int
	Type       string
	Slot       int
	Key        string
	PlayerSlot int
	Unit       string
	Value      int64
	Killer     int
	Team       int
}

// ChatEvent is one chat or chatwheel line.
type ChatEvent struct {
	MatchID    int64
	Seq        int
	Time       int
	Type       string
	Key        string
	Slot       int
	PlayerSlot int
}

// Time-series sample kinds.
const (
	SampleInterval = "interval"
	SamplePurchase = "purchase"
	SampleKill     = "kill"
)

// TimeSeriesSample is one minute-by-minute stat snapshot or one timestamped
// event (kill, purchase, rune) for a player.
type TimeSeriesSample struct {
	MatchID    int64
	Seq        int
	PlayerSlot int
	Time       int
	Gold       int
	XP         int
	LastHits   int
	Denies     int
	EventType  string
	Payload    []byte
}

// Normalized is the full entity bundle produced from one raw match document.
type Normalized struct {
	Match        Match
	League       *league.League
	Teams        []team.Team
	Players      []player.Player
	Heroes       []hero.Hero
	Performances []PlayerPerformance
	DraftEvents  []DraftEvent
	TeamFights   []TeamFight
	Objectives   []ObjectiveEvent
	ChatEvents   []ChatEvent
	TimeSeries   []TimeSeriesSample
}
