package usecase

import (
	"errors"
	"reflect"
	"testing"

	sonic "github.com/bytedance/sonic"

	"github.com/dotastats/prostats/internal/domain/match"
)

const matchDocFixture = `{
	"match_id": 7654321001,
	"start_time": 1756600000,
	"duration": 2400,
	"leagueid": 15728,
	"league": {"leagueid": 15728, "name": "The International", "tier": "premium"},
	"series_id": 880011,
	"series_type": 2,
	"radiant_score": 30,
	"dire_score": 18,
	"radiant_win": true,
	"version": 21,
	"radiant_team_id": 99999999999999999999,
	"dire_team_id": 2163,
	"radiant_team": {"team_id": 99999999999999999999, "name": "Overflow Esports", "tag": "OVR", "logo_url": "https://cdn.example/ovr.png"},
	"dire_team": {"team_id": 2163, "name": "Team Liquid", "tag": "TL"},
	"radiant_gold_adv": [0, 312, -120],
	"radiant_xp_adv": [0, 150, 90],
	"players": [
		{
			"account_id": 111, "hero_id": 14, "player_slot": 0,
			"name": "Carry One", "personaname": "carry.one",
			"kills": 12, "deaths": 2, "assists": 9,
			"last_hits": 310, "denies": 15, "gold_per_min": 642, "xp_per_min": 701,
			"hero_damage": 31000, "tower_damage": 9100, "hero_healing": 0, "level": 25,
			"item_0": 1, "item_1": 0, "item_2": 116, "item_3": 108, "item_4": 48, "item_5": 147,
			"gold_t": [0, 420, 980],
			"xp_t": [0, 380, 900],
			"lh_t": [0, 9, 22],
			"dn_t": [0, 2, 3],
			"purchase_log": [{"time": -60, "key": "tango"}, {"time": 240, "key": "bottle"}],
			"kills_log": [{"time": 300, "key": "npc_dota_hero_pudge"}]
		},
		{
			"account_id": 222, "hero_id": 86, "player_slot": 128,
			"kills": 3, "deaths": 8, "assists": 12, "level": 18,
			"gold_t": [0, 250]
		},
		{
			"account_id": 0, "hero_id": 41, "player_slot": 129,
			"kills": 5, "deaths": 5, "assists": 5, "level": 20
		}
	],
	"draft_timings": [
		{"order": 0, "pick": false, "active_team": 2, "hero_id": 9, "extra_time": 130, "total_time_taken": 12},
		{"order": 1, "pick": true, "active_team": 3, "hero_id": 14, "player_slot": 0, "extra_time": 130, "total_time_taken": 25}
	],
	"teamfights": [
		{
			"start": 600, "end": 645, "last_death": 640, "deaths": 4,
			"players": [
				{"deaths": 0, "buybacks": 0, "damage": 2100, "healing": 0, "gold_delta": 950, "xp_delta": 800},
				{"deaths": 1, "buybacks": 1, "damage": 400, "healing": 150, "gold_delta": -320, "xp_delta": 200}
			]
		}
	],
	"objectives": [
		{"time": 732, "type": "building_kill", "key": "npc_dota_badguys_tower1_mid", "player_slot": 0, "value": 0},
		{"time": 1100, "type": "CHAT_MESSAGE_FIRSTBLOOD", "slot": 1, "key": 0, "player_slot": 128}
	],
	"chat": [
		{"time": 30, "type": "chatwheel", "key": 6103, "slot": 4, "player_slot": 128},
		{"time": 95, "type": "chat", "key": "gg", "slot": 0, "player_slot": 0}
	]
}`

func decodeMatchDoc(t *testing.T) (ExternalMatchDocument, []byte) {
	t.Helper()
	var doc ExternalMatchDocument
	raw := []byte(matchDocFixture)
	if err := sonic.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode fixture: %v", err)
	}
	return doc, raw
}

func TestNormalizeMatchCore(t *testing.T) {
	t.Parallel()

	doc, raw := decodeMatchDoc(t)
	bundle, err := NormalizeMatch(doc, raw)
	if err != nil {
		t.Fatalf("NormalizeMatch: %v", err)
	}

	m := bundle.Match
	if m.MatchID != 7654321001 {
		t.Fatalf("unexpected match id %d", m.MatchID)
	}
	if m.StartTime.Unix() != 1756600000 {
		t.Fatalf("unexpected start time %v", m.StartTime)
	}
	if got := string(m.RadiantTeamID); got != "99999999999999999999" {
		t.Fatalf("overflowing team id mangled: %q", got)
	}
	if !m.RadiantTeamID.Overflows() {
		t.Fatal("expected radiant team id to overflow the safe range")
	}
	if got := string(m.DireTeamID); got != "2163" {
		t.Fatalf("unexpected dire team id %q", got)
	}
	if m.GameVersion != 21 {
		t.Fatalf("unexpected game version %d", m.GameVersion)
	}
	if m.RadiantGoldAdv != `["0","312","-120"]` {
		t.Fatalf("unexpected gold advantage encoding %q", m.RadiantGoldAdv)
	}
	if len(m.RawData) == 0 {
		t.Fatal("raw document bytes were dropped")
	}

	if bundle.League == nil || bundle.League.Name != "The International" || bundle.League.Tier != "premium" {
		t.Fatalf("unexpected league %+v", bundle.League)
	}
	if len(bundle.Teams) != 2 {
		t.Fatalf("expected 2 teams, got %d", len(bundle.Teams))
	}
	if bundle.Teams[0].Name != "Overflow Esports" || bundle.Teams[0].Tag != "OVR" {
		t.Fatalf("unexpected radiant team %+v", bundle.Teams[0])
	}
}

func TestNormalizeMatchPerformances(t *testing.T) {
	t.Parallel()

	doc, raw := decodeMatchDoc(t)
	bundle, err := NormalizeMatch(doc, raw)
	if err != nil {
		t.Fatalf("NormalizeMatch: %v", err)
	}

	// The anonymous third player must be dropped.
	if len(bundle.Performances) != 2 {
		t.Fatalf("expected 2 performances, got %d", len(bundle.Performances))
	}
	if len(bundle.Players) != 2 {
		t.Fatalf("expected 2 identified players, got %d", len(bundle.Players))
	}

	// Hero stubs cover every hero the document touches, including the
	// anonymous player's hero and draft-only picks, without duplicates.
	stubs := make([]int64, 0, len(bundle.Heroes))
	for _, h := range bundle.Heroes {
		stubs = append(stubs, h.ID)
	}
	if len(stubs) != 4 || stubs[0] != 14 || stubs[1] != 86 || stubs[2] != 41 || stubs[3] != 9 {
		t.Fatalf("unexpected hero stubs: %v", stubs)
	}

	radiant := bundle.Performances[0]
	if !radiant.IsRadiant || !radiant.Won {
		t.Fatalf("radiant winner flags wrong: %+v", radiant)
	}
	if radiant.Kills != 12 || radiant.GoldPerMin != 642 || radiant.Level != 25 {
		t.Fatalf("unexpected radiant stat line: %+v", radiant)
	}
	if radiant.Items != [6]int64{1, 0, 116, 108, 48, 147} {
		t.Fatalf("unexpected items: %v", radiant.Items)
	}

	dire := bundle.Performances[1]
	if dire.IsRadiant || dire.Won {
		t.Fatalf("dire loser flags wrong: %+v", dire)
	}
}

func TestNormalizeMatchChildRows(t *testing.T) {
	t.Parallel()

	doc, raw := decodeMatchDoc(t)
	bundle, err := NormalizeMatch(doc, raw)
	if err != nil {
		t.Fatalf("NormalizeMatch: %v", err)
	}

	if len(bundle.DraftEvents) != 2 {
		t.Fatalf("expected 2 draft events, got %d", len(bundle.DraftEvents))
	}
	ban := bundle.DraftEvents[0]
	if ban.IsPick || ban.PlayerSlot != -1 || ban.HeroID != 9 {
		t.Fatalf("unexpected ban row: %+v", ban)
	}
	pick := bundle.DraftEvents[1]
	if !pick.IsPick || pick.PlayerSlot != 0 {
		t.Fatalf("unexpected pick row: %+v", pick)
	}

	if len(bundle.TeamFights) != 1 {
		t.Fatalf("expected 1 teamfight, got %d", len(bundle.TeamFights))
	}
	fight := bundle.TeamFights[0]
	if fight.Start != 600 || fight.Deaths != 4 {
		t.Fatalf("unexpected teamfight: %+v", fight)
	}
	if len(fight.Participants) != 2 {
		t.Fatalf("expected 2 participants, got %d", len(fight.Participants))
	}
	// Participant slots come from the aligned players array.
	if fight.Participants[0].PlayerSlot != 0 || fight.Participants[1].PlayerSlot != 128 {
		t.Fatalf("unexpected participant slots: %+v", fight.Participants)
	}

	if len(bundle.Objectives) != 2 {
		t.Fatalf("expected 2 objectives, got %d", len(bundle.Objectives))
	}
	if bundle.Objectives[0].Key != "npc_dota_badguys_tower1_mid" || bundle.Objectives[0].Seq != 0 {
		t.Fatalf("unexpected objective: %+v", bundle.Objectives[0])
	}
	// Numeric keys are coerced to their decimal text form.
	if bundle.Objectives[1].Key != "0" || bundle.Objectives[1].Slot != 1 {
		t.Fatalf("unexpected coerced objective: %+v", bundle.Objectives[1])
	}

	if len(bundle.ChatEvents) != 2 {
		t.Fatalf("expected 2 chat events, got %d", len(bundle.ChatEvents))
	}
	if bundle.ChatEvents[0].Key != "6103" || bundle.ChatEvents[1].Key != "gg" {
		t.Fatalf("unexpected chat keys: %+v", bundle.ChatEvents)
	}
}

func TestNormalizeMatchTimeSeries(t *testing.T) {
	t.Parallel()

	doc, raw := decodeMatchDoc(t)
	bundle, err := NormalizeMatch(doc, raw)
	if err != nil {
		t.Fatalf("NormalizeMatch: %v", err)
	}

	// Player one: 3 interval rows + 2 purchases + 1 kill. Player two: 2
	// interval rows. The anonymous player has no arrays.
	if len(bundle.TimeSeries) != 8 {
		t.Fatalf("expected 8 samples, got %d", len(bundle.TimeSeries))
	}
	for idx, sample := range bundle.TimeSeries {
		if sample.Seq != idx {
			t.Fatalf("sample %d has seq %d", idx, sample.Seq)
		}
		if sample.MatchID != 7654321001 {
			t.Fatalf("sample %d has match id %d", idx, sample.MatchID)
		}
	}

	minuteTwo := bundle.TimeSeries[2]
	if minuteTwo.EventType != match.SampleInterval || minuteTwo.Time != 120 || minuteTwo.Gold != 980 || minuteTwo.LastHits != 22 {
		t.Fatalf("unexpected interval sample: %+v", minuteTwo)
	}

	purchase := bundle.TimeSeries[3]
	if purchase.EventType != match.SamplePurchase || purchase.Time != -60 {
		t.Fatalf("unexpected purchase sample: %+v", purchase)
	}
	if string(purchase.Payload) != `{"key":"tango"}` {
		t.Fatalf("unexpected purchase payload: %s", purchase.Payload)
	}

	kill := bundle.TimeSeries[5]
	if kill.EventType != match.SampleKill || kill.Time != 300 {
		t.Fatalf("unexpected kill sample: %+v", kill)
	}
}

func TestNormalizeMatchIsDeterministic(t *testing.T) {
	t.Parallel()

	doc, raw := decodeMatchDoc(t)
	first, err := NormalizeMatch(doc, raw)
	if err != nil {
		t.Fatalf("NormalizeMatch: %v", err)
	}
	second, err := NormalizeMatch(doc, raw)
	if err != nil {
		t.Fatalf("NormalizeMatch: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatal("normalizing the same document twice produced different bundles")
	}
}

func TestNormalizeMatchRejectsMalformedDocuments(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*ExternalMatchDocument)
	}{
		{"missing match id", func(doc *ExternalMatchDocument) { doc.MatchID = "" }},
		{"overflowing match id", func(doc *ExternalMatchDocument) { doc.MatchID = "99999999999999999999" }},
		{"missing start time", func(doc *ExternalMatchDocument) { doc.StartTime = 0 }},
		{"negative duration", func(doc *ExternalMatchDocument) { doc.Duration = -5 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			doc, raw := decodeMatchDoc(t)
			tc.mutate(&doc)
			if _, err := NormalizeMatch(doc, raw); !errors.Is(err, ErrMalformedDocument) {
				t.Fatalf("expected ErrMalformedDocument, got %v", err)
			}
		})
	}
}

func TestNormalizeMatchEmptyOptionalSections(t *testing.T) {
	t.Parallel()

	doc, raw := decodeMatchDoc(t)
	doc.DraftTimings = nil
	doc.Teamfights = nil
	doc.Objectives = nil
	doc.Chat = nil
	doc.RadiantGoldAdv = nil
	doc.RadiantXPAdv = nil

	bundle, err := NormalizeMatch(doc, raw)
	if err != nil {
		t.Fatalf("NormalizeMatch: %v", err)
	}
	if bundle.Match.RadiantGoldAdv != "" {
		t.Fatalf("expected empty advantage encoding, got %q", bundle.Match.RadiantGoldAdv)
	}
	if len(bundle.DraftEvents) != 0 || len(bundle.TeamFights) != 0 {
		t.Fatal("expected empty child slices")
	}
}
