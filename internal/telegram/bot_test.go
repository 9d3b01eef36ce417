package telegram

import "testing"

func TestSplitCommand(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantCmd string
		wantArg string
	}{
		{"bare command", "/status", "/status", ""},
		{"command with arg", "/track Walobots", "/track", "Walobots"},
		{"multi word arg", "/track The Goon Squad", "/track", "The Goon Squad"},
		{"bot name suffix", "/status@WaloMonitorBot", "/status", ""},
		{"bot name suffix with arg", "/track@WaloMonitorBot Goons", "/track", "Goons"},
		{"uppercase command", "/TRACK Goons", "/track", "Goons"},
		{"surrounding whitespace", "  /untrack Goons  ", "/untrack", "Goons"},
		{"extra spaces before arg", "/track   Goons", "/track", "Goons"},
		{"plain text ignored", "hello there", "", ""},
		{"empty", "", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmd, arg := splitCommand(tt.text)
			if cmd != tt.wantCmd {
				t.Errorf("splitCommand(%q) cmd = %q, want %q", tt.text, cmd, tt.wantCmd)
			}
			if arg != tt.wantArg {
				t.Errorf("splitCommand(%q) arg = %q, want %q", tt.text, arg, tt.wantArg)
			}
		})
	}
}
