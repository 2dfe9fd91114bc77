package riot

import "strings"

const (
	regionAmericas = "americas"
	regionAsia     = "asia"
	regionEurope   = "europe"
)

// Platform routing values map onto the regional cluster that serves
// account-v1. SEA platforms resolve to asia for account lookups.
var platformRegions = map[string]string{
	"NA1":  regionAmericas,
	"BR1":  regionAmericas,
	"LA1":  regionAmericas,
	"LA2":  regionAmericas,
	"KR":   regionAsia,
	"JP1":  regionAsia,
	"OC1":  regionAsia,
	"SG2":  regionAsia,
	"TW2":  regionAsia,
	"VN2":  regionAsia,
	"PH2":  regionAsia,
	"TH2":  regionAsia,
	"EUN1": regionEurope,
	"EUW1": regionEurope,
	"TR1":  regionEurope,
	"RU":   regionEurope,
	"ME1":  regionEurope,
}

// RegionalRoute returns the regional cluster for a platform, defaulting to americas.
func RegionalRoute(platform string) string {
	if region, ok := platformRegions[strings.ToUpper(strings.TrimSpace(platform))]; ok {
		return region
	}
	return regionAmericas
}

// Queue spellings as the provider expects them in paths and query strings.
var knownQueues = []string{
	"RANKED_SOLO_5x5",
	"RANKED_FLEX_SR",
	"RANKED_FLEX_TT",
	"RANKED_TFT",
	"RANKED_TFT_TURBO",
	"RANKED_TFT_DOUBLE_UP",
}

// ProviderQueue maps a normalized queue back to the provider spelling.
func ProviderQueue(queue string) string {
	queue = strings.TrimSpace(queue)
	for _, known := range knownQueues {
		if strings.EqualFold(known, queue) {
			return known
		}
	}
	return queue
}

func apexPath(tier string) (string, bool) {
	switch strings.ToUpper(strings.TrimSpace(tier)) {
	case "CHALLENGER":
		return "challenger", true
	case "GRANDMASTER":
		return "grandmaster", true
	case "MASTER":
		return "master", true
	default:
		return "", false
	}
}
