package monitor

import (
	"testing"

	"github.com/walo-labs/leaderboard-monitor/internal/store"
)

func TestTopMoversSortsByDeltaDescending(t *testing.T) {
	changes := map[string]store.MetricChange{
		"Alpha": {Start: 100, End: 150, Rank: 3},
		"Bravo": {Start: 0, End: 500, Rank: 1},
		"Crow":  {Start: 40, End: 60, Rank: 7},
	}

	entries := topMovers(changes, 5)
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}

	wantOrder := []string{"Bravo", "Alpha", "Crow"}
	for i, want := range wantOrder {
		if entries[i].Clan != want {
			t.Errorf("position %d: expected %s, got %s", i, want, entries[i].Clan)
		}
	}
	if entries[0].Delta != 500 {
		t.Errorf("expected top delta 500, got %v", entries[0].Delta)
	}
	if entries[0].Rank != 1 {
		t.Errorf("expected top rank 1, got %d", entries[0].Rank)
	}
}

func TestTopMoversTruncates(t *testing.T) {
	changes := map[string]store.MetricChange{
		"A": {Start: 0, End: 700},
		"B": {Start: 0, End: 600},
		"C": {Start: 0, End: 500},
		"D": {Start: 0, End: 400},
		"E": {Start: 0, End: 300},
		"F": {Start: 0, End: 200},
		"G": {Start: 0, End: 100},
	}

	entries := topMovers(changes, 5)
	if len(entries) != 5 {
		t.Fatalf("expected 5 entries, got %d", len(entries))
	}
	if entries[4].Clan != "E" {
		t.Errorf("expected smallest kept mover E, got %s", entries[4].Clan)
	}
}

func TestTopMoversDropsNonPositive(t *testing.T) {
	changes := map[string]store.MetricChange{
		"Gainer":  {Start: 10, End: 25},
		"Flat":    {Start: 50, End: 50},
		"Decayed": {Start: 90, End: 40},
	}

	entries := topMovers(changes, 5)
	if len(entries) != 1 {
		t.Fatalf("expected 1 entry, got %d", len(entries))
	}
	if entries[0].Clan != "Gainer" || entries[0].Delta != 15 {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestTopMoversTieBreakByName(t *testing.T) {
	changes := map[string]store.MetricChange{
		"Zulu":  {Start: 0, End: 100},
		"Alpha": {Start: 50, End: 150},
		"Mike":  {Start: 10, End: 110},
	}

	entries := topMovers(changes, 5)
	wantOrder := []string{"Alpha", "Mike", "Zulu"}
	for i, want := range wantOrder {
		if entries[i].Clan != want {
			t.Errorf("position %d: expected %s, got %s", i, want, entries[i].Clan)
		}
	}
}

func TestTopMoversEmpty(t *testing.T) {
	if entries := topMovers(map[string]store.MetricChange{}, 5); len(entries) != 0 {
		t.Errorf("expected no entries, got %d", len(entries))
	}
}
