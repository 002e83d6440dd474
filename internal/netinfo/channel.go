package netinfo

import "github.com/HerbHall/netbridge/pkg/models"

// unknownChannel is returned by ChannelFor when no table row matches.
var unknownChannel = models.ChannelEntry{}

// channelTable lists Wi-Fi channel centre frequencies. 3.65GHz channels
// appear once per channel width, so some channel numbers repeat.
//
// Link details and scan results carry whole MHz, as nl80211 reports them,
// so the half-MHz 3.65GHz rows only answer explicit channel lookups.
var channelTable = []models.ChannelEntry{
	// 2.4GHz
	{Channel: 1, FrequencyMHz: 2412, Band: models.Band2_4GHz},
	{Channel: 2, FrequencyMHz: 2417, Band: models.Band2_4GHz},
	{Channel: 3, FrequencyMHz: 2422, Band: models.Band2_4GHz},
	{Channel: 4, FrequencyMHz: 2427, Band: models.Band2_4GHz},
	{Channel: 5, FrequencyMHz: 2432, Band: models.Band2_4GHz},
	{Channel: 6, FrequencyMHz: 2437, Band: models.Band2_4GHz},
	{Channel: 7, FrequencyMHz: 2442, Band: models.Band2_4GHz},
	{Channel: 8, FrequencyMHz: 2447, Band: models.Band2_4GHz},
	{Channel: 9, FrequencyMHz: 2452, Band: models.Band2_4GHz},
	{Channel: 10, FrequencyMHz: 2457, Band: models.Band2_4GHz},
	{Channel: 11, FrequencyMHz: 2462, Band: models.Band2_4GHz},
	{Channel: 12, FrequencyMHz: 2467, Band: models.Band2_4GHz},
	{Channel: 13, FrequencyMHz: 2472, Band: models.Band2_4GHz},
	{Channel: 14, FrequencyMHz: 2484, Band: models.Band2_4GHz},

	// 3.65GHz (802.11y)
	{Channel: 131, FrequencyMHz: 3657.5, Band: models.Band3_65GHz},
	{Channel: 132, FrequencyMHz: 3662.5, Band: models.Band3_65GHz},
	{Channel: 132, FrequencyMHz: 3660.0, Band: models.Band3_65GHz},
	{Channel: 133, FrequencyMHz: 3667.5, Band: models.Band3_65GHz},
	{Channel: 133, FrequencyMHz: 3665.0, Band: models.Band3_65GHz},
	{Channel: 134, FrequencyMHz: 3672.5, Band: models.Band3_65GHz},
	{Channel: 134, FrequencyMHz: 3670.0, Band: models.Band3_65GHz},
	{Channel: 135, FrequencyMHz: 3677.5, Band: models.Band3_65GHz},
	{Channel: 136, FrequencyMHz: 3682.5, Band: models.Band3_65GHz},
	{Channel: 136, FrequencyMHz: 3680.0, Band: models.Band3_65GHz},
	{Channel: 137, FrequencyMHz: 3687.5, Band: models.Band3_65GHz},
	{Channel: 137, FrequencyMHz: 3685.0, Band: models.Band3_65GHz},
	{Channel: 138, FrequencyMHz: 3689.5, Band: models.Band3_65GHz},
	{Channel: 138, FrequencyMHz: 3690.0, Band: models.Band3_65GHz},

	// 5.0GHz
	{Channel: 183, FrequencyMHz: 4915, Band: models.Band5GHz},
	{Channel: 184, FrequencyMHz: 4920, Band: models.Band5GHz},
	{Channel: 185, FrequencyMHz: 4925, Band: models.Band5GHz},
	{Channel: 187, FrequencyMHz: 4935, Band: models.Band5GHz},
	{Channel: 188, FrequencyMHz: 4940, Band: models.Band5GHz},
	{Channel: 189, FrequencyMHz: 4945, Band: models.Band5GHz},
	{Channel: 192, FrequencyMHz: 4960, Band: models.Band5GHz},
	{Channel: 196, FrequencyMHz: 4980, Band: models.Band5GHz},
	{Channel: 7, FrequencyMHz: 5035, Band: models.Band5GHz},
	{Channel: 8, FrequencyMHz: 5040, Band: models.Band5GHz},
	{Channel: 9, FrequencyMHz: 5045, Band: models.Band5GHz},
	{Channel: 11, FrequencyMHz: 5055, Band: models.Band5GHz},
	{Channel: 12, FrequencyMHz: 5060, Band: models.Band5GHz},
	{Channel: 16, FrequencyMHz: 5080, Band: models.Band5GHz},
	{Channel: 34, FrequencyMHz: 5170, Band: models.Band5GHz},
	{Channel: 36, FrequencyMHz: 5180, Band: models.Band5GHz},
	{Channel: 38, FrequencyMHz: 5190, Band: models.Band5GHz},
	{Channel: 40, FrequencyMHz: 5200, Band: models.Band5GHz},
	{Channel: 42, FrequencyMHz: 5210, Band: models.Band5GHz},
	{Channel: 44, FrequencyMHz: 5220, Band: models.Band5GHz},
	{Channel: 46, FrequencyMHz: 5230, Band: models.Band5GHz},
	{Channel: 48, FrequencyMHz: 5240, Band: models.Band5GHz},
	{Channel: 52, FrequencyMHz: 5260, Band: models.Band5GHz},
	{Channel: 56, FrequencyMHz: 5280, Band: models.Band5GHz},
	{Channel: 60, FrequencyMHz: 5300, Band: models.Band5GHz},
	{Channel: 64, FrequencyMHz: 5320, Band: models.Band5GHz},
	{Channel: 100, FrequencyMHz: 5500, Band: models.Band5GHz},
	{Channel: 104, FrequencyMHz: 5520, Band: models.Band5GHz},
	{Channel: 108, FrequencyMHz: 5540, Band: models.Band5GHz},
	{Channel: 112, FrequencyMHz: 5560, Band: models.Band5GHz},
	{Channel: 116, FrequencyMHz: 5580, Band: models.Band5GHz},
	{Channel: 120, FrequencyMHz: 5600, Band: models.Band5GHz},
	{Channel: 124, FrequencyMHz: 5620, Band: models.Band5GHz},
	{Channel: 128, FrequencyMHz: 5640, Band: models.Band5GHz},
	{Channel: 132, FrequencyMHz: 5660, Band: models.Band5GHz},
	{Channel: 136, FrequencyMHz: 5680, Band: models.Band5GHz},
	{Channel: 140, FrequencyMHz: 5700, Band: models.Band5GHz},
	{Channel: 144, FrequencyMHz: 5720, Band: models.Band5GHz},
	{Channel: 149, FrequencyMHz: 5745, Band: models.Band5GHz},
	{Channel: 153, FrequencyMHz: 5765, Band: models.Band5GHz},
	{Channel: 157, FrequencyMHz: 5785, Band: models.Band5GHz},
	{Channel: 161, FrequencyMHz: 5805, Band: models.Band5GHz},
	{Channel: 165, FrequencyMHz: 5825, Band: models.Band5GHz},
	{Channel: 169, FrequencyMHz: 5845, Band: models.Band5GHz},
	{Channel: 173, FrequencyMHz: 5865, Band: models.Band5GHz},
	{Channel: 177, FrequencyMHz: 5885, Band: models.Band5GHz},
}

// ChannelFor returns the table row whose frequency equals freqMHz exactly,
// or a zero entry (channel 0, no band) when there is none.
func ChannelFor(freqMHz float64) models.ChannelEntry {
	for _, e := range channelTable {
		if e.FrequencyMHz == freqMHz {
			return e
		}
	}
	return unknownChannel
}

// Channels returns a copy of the channel table in table order.
func Channels() []models.ChannelEntry {
	out := make([]models.ChannelEntry, len(channelTable))
	copy(out, channelTable)
	return out
}
