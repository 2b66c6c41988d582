package spellfix

import "testing"

func TestFixRepairsBareCommands(t *testing.T) {
	cases := map[string]string{
		"captrue":             "capture",
		"captur":              "capture",
		"Capture":             "capture",
		"read txt":            "read text",
		"histori":             "history",
		"describ":             "describe",
		"what did i say abot": "what did i say about",
	}
	for input, want := range cases {
		if got := Fix(input); got != want {
			t.Errorf("Fix(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestFixLeavesLowConfidenceInput(t *testing.T) {
	inputs := []string{
		"what time is it in tokyo",
		"xyzzy",
		"seventy",
	}
	for _, input := range inputs {
		if got := Fix(input); got != input {
			t.Errorf("Fix(%q) = %q, want input unchanged", input, got)
		}
	}
}

// Parameterized commands have more words than any vocabulary phrase they
// resemble, so the gate keeps their arguments intact.
func TestFixKeepsParameterizedCommands(t *testing.T) {
	inputs := []string{
		"remember wifi password as abc123",
		"what did i say about WiFi Password",
		"what did i say abot wifi",
		"capture the sunset for me",
	}
	for _, input := range inputs {
		if got := Fix(input); got != input {
			t.Errorf("Fix(%q) = %q, want input unchanged", input, got)
		}
	}
}

func TestFixEmpty(t *testing.T) {
	if got := Fix(""); got != "" {
		t.Errorf("Fix(\"\") = %q", got)
	}
	if got := Fix("   "); got != "   " {
		t.Errorf("Fix(blank) = %q", got)
	}
}
