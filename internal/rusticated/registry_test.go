package rusticated

import "testing"

func TestNewRegistry(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	if r.Len() != 107 {
		t.Errorf("Len() = %d, want 107", r.Len())
	}

	def, ok := r.Get("gathered_sulfur_ore")
	if !ok {
		t.Fatal("gathered_sulfur_ore not found")
	}
	if def.Group != "gathered" || def.SortBy != "gathered_sulfur.ore" {
		t.Errorf("gathered_sulfur_ore def = %+v", def)
	}
	if def.Label != "Sulfur Ore Gathered" {
		t.Errorf("Label = %q", def.Label)
	}

	if _, ok := r.Get("kill_player"); ok {
		t.Error("kill_player is a sortBy value, not a metric key; Get should miss")
	}
}

func TestRegistryOrderStable(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}

	all := r.All()
	if len(all) != r.Len() {
		t.Fatalf("All() returned %d defs, want %d", len(all), r.Len())
	}
	if all[0].Key != "pvp_kills" || all[1].Key != "pvp_deaths" {
		t.Errorf("catalog should start with pvp metrics, got %s, %s", all[0].Key, all[1].Key)
	}
}

func TestRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		defs []MetricDef
	}{
		{
			"duplicate key",
			[]MetricDef{
				{"pvp_kills", "pvp", "kill_player", "PvP Kills"},
				{"pvp_kills", "pvp", "kill_player", "PvP Kills"},
			},
		},
		{"empty key", []MetricDef{{"", "pvp", "kill_player", "PvP Kills"}}},
		{"empty group", []MetricDef{{"pvp_kills", "", "kill_player", "PvP Kills"}}},
		{"empty sortBy", []MetricDef{{"pvp_kills", "pvp", "", "PvP Kills"}}},
		{"empty label", []MetricDef{{"pvp_kills", "pvp", "kill_player", ""}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := newRegistry(tt.defs); err == nil {
				t.Error("expected validation error, got nil")
			}
		})
	}
}

func TestDisplayMetricsResolve(t *testing.T) {
	r, err := NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry error: %v", err)
	}
	for _, key := range DisplayMetrics {
		if _, ok := r.Get(key); !ok {
			t.Errorf("display metric %q missing from registry", key)
		}
	}
}
