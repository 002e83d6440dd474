package netinfo

import "testing"

func TestNRAvailable(t *testing.T) {
	tests := []struct {
		name  string
		state string
		want  bool
	}{
		{"empty", "", false},
		{"nr connected", "{mVoiceRegState=0(IN SERVICE), nrState=CONNECTED, mIsUsingCarrierAggregation=false}", true},
		{"nr available flag", "NrFrequencyRange=0 isNrAvailable = true", true},
		{"nr not restricted", "nrState=NOT_RESTRICTED", false},
		{"nr available false", "isNrAvailable = false", false},
		{"case sensitive", "nrstate=connected", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NRAvailable(tt.state); got != tt.want {
				t.Errorf("NRAvailable(%q) = %v, want %v", tt.state, got, tt.want)
			}
		})
	}
}

func TestNRFlag_Observe(t *testing.T) {
	var f NRFlag
	if f.Available() {
		t.Fatal("zero value should report false")
	}
	if !f.Observe("nrState=CONNECTED") || !f.Available() {
		t.Fatal("flag should be set after NR marker")
	}
	if f.Observe("nrState=NONE") || f.Available() {
		t.Fatal("flag should clear when marker disappears")
	}
}
