package usecase

import (
	"context"
	"testing"

	"github.com/dotastats/prostats/internal/domain/hero"
	"github.com/dotastats/prostats/internal/domain/league"
	"github.com/dotastats/prostats/internal/domain/match"
	"github.com/dotastats/prostats/internal/domain/player"
	"github.com/dotastats/prostats/internal/domain/team"
)

type fakeKeyLister struct {
	keys map[Kind][]string
}

func (f *fakeKeyLister) ListEntityKeys(_ context.Context, kind Kind) ([]string, error) {
	return f.keys[kind], nil
}

func TestLoadIndex(t *testing.T) {
	t.Parallel()

	lister := &fakeKeyLister{keys: map[Kind][]string{
		KindMatch:  {"7005", "7003"},
		KindTeam:   {"99999999999999999999"},
		KindLeague: {"15728"},
	}}

	idx, err := LoadIndex(context.Background(), lister)
	if err != nil {
		t.Fatalf("LoadIndex: %v", err)
	}
	if !idx.Contains(KindMatch, "7005") || !idx.Contains(KindMatch, "7003") {
		t.Fatal("expected match keys to be indexed")
	}
	if !idx.Contains(KindTeam, "99999999999999999999") {
		t.Fatal("expected oversized team key to be indexed verbatim")
	}
	if idx.Contains(KindMatch, "7001") || idx.Contains(KindHero, "14") {
		t.Fatal("unexpected key reported present")
	}
	if idx.Len(KindMatch) != 2 || idx.Len(KindPlayer) != 0 {
		t.Fatalf("unexpected lengths: match=%d player=%d", idx.Len(KindMatch), idx.Len(KindPlayer))
	}
}

func TestIndexAddAndContains(t *testing.T) {
	t.Parallel()

	idx := NewIndex()
	idx.Add(KindHero, "14")
	idx.Add(KindHero, "14")
	idx.Add(KindHero, "")

	if !idx.Contains(KindHero, "14") {
		t.Fatal("expected added key to be present")
	}
	if idx.Len(KindHero) != 1 {
		t.Fatalf("expected 1 hero key, got %d", idx.Len(KindHero))
	}
	if idx.Contains(KindHero, "") {
		t.Fatal("empty key must never be present")
	}
}

func TestPruneKnownReferences(t *testing.T) {
	t.Parallel()

	bundle := match.Normalized{
		Match:  match.Match{MatchID: 7005},
		League: &league.League{ID: "15728"},
		Teams:  []team.Team{{ID: "111"}, {ID: "222"}},
		Players: []player.Player{
			{AccountID: 101}, {AccountID: 102},
		},
		Heroes: []hero.Hero{{ID: 14}, {ID: 86}},
	}

	idx := NewIndex()
	idx.Add(KindLeague, "15728")
	idx.Add(KindTeam, "111")
	idx.Add(KindPlayer, "101")
	idx.Add(KindHero, "86")

	pruned := pruneKnownReferences(idx, bundle)
	if pruned.League != nil {
		t.Fatal("known league must be pruned")
	}
	if len(pruned.Teams) != 1 || pruned.Teams[0].ID != "222" {
		t.Fatalf("unexpected teams after prune: %+v", pruned.Teams)
	}
	if len(pruned.Players) != 1 || pruned.Players[0].AccountID != 102 {
		t.Fatalf("unexpected players after prune: %+v", pruned.Players)
	}
	if len(pruned.Heroes) != 1 || pruned.Heroes[0].ID != 14 {
		t.Fatalf("unexpected heroes after prune: %+v", pruned.Heroes)
	}
	// The match row and its children are never pruned.
	if pruned.Match.MatchID != 7005 {
		t.Fatalf("match row must survive pruning: %+v", pruned.Match)
	}

	recordWrittenBundle(idx, pruned)
	if !idx.Contains(KindMatch, "7005") || !idx.Contains(KindTeam, "222") ||
		!idx.Contains(KindPlayer, "102") || !idx.Contains(KindHero, "14") {
		t.Fatal("written bundle keys must be added to the index")
	}
}

func TestCandidateMatchIDs(t *testing.T) {
	t.Parallel()

	summaries := []ExternalMatchSummary{
		{MatchID: "7005"},
		{MatchID: "7003"},
		{MatchID: "7005"},
		{MatchID: "99999999999999999999"},
		// Fits an int64 but sits past the safe identifier range.
		{MatchID: "2305843009213693952"},
		{MatchID: ""},
		{MatchID: "7001"},
	}

	ids, minID := candidateMatchIDs(summaries)
	if len(ids) != 3 {
		t.Fatalf("expected 3 usable ids, got %v", ids)
	}
	if ids[0] != 7005 || ids[1] != 7003 || ids[2] != 7001 {
		t.Fatalf("unexpected order: %v", ids)
	}
	if minID != 7001 {
		t.Fatalf("expected cursor 7001, got %d", minID)
	}
}

func TestCandidateMatchIDsEmptyPage(t *testing.T) {
	t.Parallel()

	ids, minID := candidateMatchIDs(nil)
	if len(ids) != 0 || minID != 0 {
		t.Fatalf("expected nothing, got ids=%v min=%d", ids, minID)
	}
}

func TestFilterExisting(t *testing.T) {
	t.Parallel()

	ids := []int64{7005, 7003, 7001}
	existing := map[int64]struct{}{7003: {}}

	out := filterExisting(ids, existing)
	if len(out) != 2 || out[0] != 7005 || out[1] != 7001 {
		t.Fatalf("unexpected filtered ids: %v", out)
	}

	if got := filterExisting(ids, nil); len(got) != 3 {
		t.Fatalf("expected passthrough with no existing rows, got %v", got)
	}
}
