package catalog

// usRegions are the USGS bulk-fetch partition keys: one per state. The
// service rejects nationwide queries, so the catalog is assembled one state
// at a time.
var usRegions = []string{
	"AL", "AK", "AZ", "AR", "CA", "CO", "CT", "DE", "FL", "GA",
	"HI", "ID", "IL", "IN", "IA", "KS", "KY", "LA", "ME", "MD",
	"MA", "MI", "MN", "MS", "MO", "MT", "NE", "NV", "NH", "NJ",
	"NM", "NY", "NC", "ND", "OH", "OK", "OR", "PA", "RI", "SC",
	"SD", "TN", "TX", "UT", "VT", "VA", "WA", "WV", "WI", "WY",
}

// Regions returns the partition keys used for the USGS bulk fetch.
func Regions() []string {
	keys := make([]string, len(usRegions))
	copy(keys, usRegions)
	return keys
}
