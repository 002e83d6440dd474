package netinfo

import (
	"strings"

	"github.com/HerbHall/netbridge/pkg/models"
)

// Radio technology codes as reported by the platform telephony service.
const (
	SubtypeUnknown = 0
	SubtypeGPRS    = 1
	SubtypeEDGE    = 2
	SubtypeUMTS    = 3
	SubtypeCDMA    = 4
	SubtypeEVDO0   = 5
	SubtypeEVDOA   = 6
	Subtype1xRTT   = 7
	SubtypeHSDPA   = 8
	SubtypeHSUPA   = 9
	SubtypeHSPA    = 10
	SubtypeIDEN    = 11
	SubtypeEVDOB   = 12
	SubtypeLTE     = 13
	SubtypeEHRPD   = 14
	SubtypeHSPAP   = 15
	SubtypeGSM     = 16
	SubtypeTDSCDMA = 17
	SubtypeIWLAN   = 18
	SubtypeLTECA   = 19
	SubtypeNR      = 20
)

// Medium names reported by the connectivity service.
const (
	MediumWifi     = "wifi"
	MediumMobile   = "mobile"
	MediumCellular = "cellular"
	MediumEthernet = "ethernet"
	ethernetPrefix = "eth"
	nameFourG      = "4g"
	nameFiveG      = "5g"
	cdmaNamePrefix = "cdma"
)

// generationRule describes one radio generation bucket. A subtype matches if
// its id is in ids, its name is in names or starts with one of prefixes, or
// its id is LTE while its name equals lteName.
type generationRule struct {
	class    models.NetworkClass
	ids      map[int]bool
	names    map[string]bool
	prefixes []string
	lteName  string
}

// generationRules is evaluated in order; the first match wins.
var generationRules = []generationRule{
	{
		class: models.Connection2G,
		ids: map[int]bool{
			SubtypeGPRS: true, SubtypeEDGE: true, SubtypeCDMA: true,
			Subtype1xRTT: true, SubtypeIDEN: true, SubtypeGSM: true,
		},
		names: map[string]bool{"gsm": true, "gprs": true, "edge": true, "2g": true},
	},
	{
		class: models.Connection3G,
		ids: map[int]bool{
			SubtypeUMTS: true, SubtypeEVDO0: true, SubtypeEVDOA: true,
			SubtypeHSDPA: true, SubtypeHSUPA: true, SubtypeHSPA: true,
			SubtypeEVDOB: true, SubtypeEHRPD: true, SubtypeHSPAP: true,
			SubtypeTDSCDMA: true,
		},
		names: map[string]bool{
			"umts": true, "1xrtt": true, "ehrpd": true, "hsupa": true,
			"hsdpa": true, "hspa": true, "3g": true,
		},
		prefixes: []string{cdmaNamePrefix},
	},
	{
		class:   models.Connection4G,
		ids:     map[int]bool{SubtypeIWLAN: true, SubtypeLTECA: true},
		names:   map[string]bool{"lte": true, "umb": true, "hspa+": true, nameFourG: true},
		lteName: nameFourG,
	},
	{
		class:   models.Connection5G,
		ids:     map[int]bool{SubtypeNR: true},
		names:   map[string]bool{nameFiveG: true, "nr": true},
		lteName: nameFiveG,
	},
}

func (r *generationRule) matches(id int, name string) bool {
	if r.ids[id] || r.names[name] {
		return true
	}
	if r.lteName != "" && id == SubtypeLTE && name == r.lteName {
		return true
	}
	for _, p := range r.prefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

// Classify maps a connectivity observation to a network class. A 4G match
// is upgraded to 5G when nrAvailable is set. Classify never fails: absent or
// unrecognised input degrades to none or unknown.
func Classify(obs *models.Observation, nrAvailable bool) models.NetworkClass {
	if obs == nil || !obs.Connected {
		return models.ConnectionNone
	}

	medium := strings.ToLower(obs.Medium)
	switch {
	case medium == MediumWifi:
		return models.ConnectionWifi
	case medium == MediumEthernet || strings.HasPrefix(medium, ethernetPrefix):
		return models.ConnectionEthernet
	case medium == MediumMobile || medium == MediumCellular:
		return classifyRadio(obs.RadioSubtypeID, obs.RadioSubtypeName, nrAvailable)
	}
	return models.ConnectionUnknown
}

// classifyRadio resolves a cellular subtype to its radio generation.
func classifyRadio(id int, name string, nrAvailable bool) models.NetworkClass {
	name = strings.ToLower(name)
	for i := range generationRules {
		if !generationRules[i].matches(id, name) {
			continue
		}
		class := generationRules[i].class
		if class == models.Connection4G && nrAvailable {
			return models.Connection5G
		}
		return class
	}
	return models.ConnectionUnknown
}
