package skills

import "testing"

func TestResolveBackend(t *testing.T) {
	tests := []struct {
		name         string
		mode         AgentMode
		requires     bool
		preferred    string
		available    bool
		wantIsolated bool
		wantErr      bool
	}{
		{"sandbox mode uses isolation", AgentModeSandbox, false, "", true, true, false},
		{"sandbox mode fails without backend", AgentModeSandbox, false, "", false, false, true},
		{"direct mode runs on host", AgentModeDirect, false, "sandbox", true, false, false},
		{"direct mode rejects required isolation", AgentModeDirect, true, "", true, false, true},
		{"flexible honors hard requirement", AgentModeFlexible, true, "", true, true, false},
		{"flexible fails required without backend", AgentModeFlexible, true, "", false, false, true},
		{"flexible follows sandbox preference", AgentModeFlexible, false, "sandbox", true, true, false},
		{"flexible preference degrades to host", AgentModeFlexible, false, "sandbox", false, false, false},
		{"flexible follows direct preference", AgentModeFlexible, false, "direct", true, false, false},
		{"flexible unset prefers isolation", AgentModeFlexible, false, "", true, true, false},
		{"flexible unset falls back to host", AgentModeFlexible, false, "", false, false, false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			isolated, err := ResolveBackend(tc.mode, tc.requires, tc.preferred, tc.available)
			if tc.wantErr {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("ResolveBackend: %v", err)
			}
			if isolated != tc.wantIsolated {
				t.Errorf("isolated = %v, want %v", isolated, tc.wantIsolated)
			}
		})
	}
}

func TestResolveBackendIsDeterministic(t *testing.T) {
	for i := 0; i < 3; i++ {
		isolated, err := ResolveBackend(AgentModeFlexible, false, "sandbox", true)
		if err != nil || !isolated {
			t.Fatalf("run %d: isolated=%v err=%v", i, isolated, err)
		}
	}
}

func TestParseAgentMode(t *testing.T) {
	for input, want := range map[string]AgentMode{
		"":         AgentModeFlexible,
		"flexible": AgentModeFlexible,
		"sandbox":  AgentModeSandbox,
		"direct":   AgentModeDirect,
	} {
		got, err := ParseAgentMode(input)
		if err != nil {
			t.Fatalf("ParseAgentMode(%q): %v", input, err)
		}
		if got != want {
			t.Errorf("ParseAgentMode(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseAgentMode("hybrid"); err == nil {
		t.Error("expected error for unknown mode")
	}
}
