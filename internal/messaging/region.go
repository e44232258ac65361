// Package messaging talks to the conversational-messaging provider's
// platform API: endpoint resolution, credential probes and usage statistics.
package messaging

import (
	"strings"
)

// Region selects the provider data center.
type Region string

const (
	RegionUS   Region = "US"
	RegionEU   Region = "EU"
	RegionAPAC Region = "APAC"
)

// Regions lists every supported region.
func Regions() []Region {
	return []Region{RegionUS, RegionEU, RegionAPAC}
}

// ParseRegion maps free-form input to a Region. Empty or unknown values
// become RegionUS.
func ParseRegion(s string) Region {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionEU:
		return RegionEU
	case RegionAPAC:
		return RegionAPAC
	default:
		return RegionUS
	}
}

// Known reports whether s names a region exactly (case-insensitive).
func Known(s string) bool {
	switch Region(strings.ToUpper(strings.TrimSpace(s))) {
	case RegionUS, RegionEU, RegionAPAC:
		return true
	}
	return false
}

func (r Region) String() string { return string(ParseRegion(string(r))) }

// ResolveEndpoint returns the platform API base URL for an application, or
// "" when appID is blank. Callers must not issue requests for "".
func ResolveEndpoint(appID string, region Region) string {
	appID = strings.TrimSpace(appID)
	if appID == "" {
		return ""
	}
	switch ParseRegion(string(region)) {
	case RegionEU:
		return "https://api-EU-" + appID + ".sendbird.com/v3"
	case RegionAPAC:
		return "https://api-APAC-" + appID + ".sendbird.com/v3"
	default:
		return "https://api-" + appID + ".sendbird.com/v3"
	}
}
