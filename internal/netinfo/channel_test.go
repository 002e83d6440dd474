package netinfo

import (
	"testing"

	"github.com/HerbHall/netbridge/pkg/models"
)

func TestChannelFor(t *testing.T) {
	tests := []struct {
		freq        float64
		wantChannel int
		wantBand    string
	}{
		{2412, 1, models.Band2_4GHz},
		{2437, 6, models.Band2_4GHz},
		{2472, 13, models.Band2_4GHz},
		{2484, 14, models.Band2_4GHz},
		{3657.5, 131, models.Band3_65GHz},
		{3660.0, 132, models.Band3_65GHz},
		{3662.5, 132, models.Band3_65GHz},
		{3689.5, 138, models.Band3_65GHz},
		{3690.0, 138, models.Band3_65GHz},
		{4915, 183, models.Band5GHz},
		{4980, 196, models.Band5GHz},
		{5035, 7, models.Band5GHz},
		{5080, 16, models.Band5GHz},
		{5170, 34, models.Band5GHz},
		{5180, 36, models.Band5GHz},
		{5320, 64, models.Band5GHz},
		{5500, 100, models.Band5GHz},
		{5720, 144, models.Band5GHz},
		{5745, 149, models.Band5GHz},
		{5885, 177, models.Band5GHz},

		// Not in the table.
		{9999, 0, ""},
		{0, 0, ""},
		{2413, 0, ""},
		{2412.5, 0, ""},
		{5955, 0, ""},
	}

	for _, tt := range tests {
		got := ChannelFor(tt.freq)
		if got.Channel != tt.wantChannel || got.Band != tt.wantBand {
			t.Errorf("ChannelFor(%v) = (%d, %q), want (%d, %q)",
				tt.freq, got.Channel, got.Band, tt.wantChannel, tt.wantBand)
		}
		if tt.wantChannel != 0 && got.FrequencyMHz != tt.freq {
			t.Errorf("ChannelFor(%v).FrequencyMHz = %v", tt.freq, got.FrequencyMHz)
		}
	}
}

func TestChannelFor_TableRowsRoundTrip(t *testing.T) {
	for _, e := range Channels() {
		got := ChannelFor(e.FrequencyMHz)
		if got != e {
			t.Errorf("ChannelFor(%v) = %+v, want %+v", e.FrequencyMHz, got, e)
		}
	}
}

func TestChannels_ReturnsCopy(t *testing.T) {
	a := Channels()
	if len(a) != len(channelTable) {
		t.Fatalf("len(Channels()) = %d, want %d", len(a), len(channelTable))
	}
	a[0].Channel = 999
	if channelTable[0].Channel == 999 {
		t.Error("mutating Channels() result changed the table")
	}
}
