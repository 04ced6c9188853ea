package model

// legacyLocationCodes maps retired two-segment shelf codes to the current
// three-segment layout. Stored rows keep their original code.
var legacyLocationCodes = map[string]string{
	"A-01":       "A-1-1",
	"A-02":       "A-1-2",
	"A-03":       "A-1-3",
	"B-01":       "A-1-4",
	"B-02":       "A-1-5",
	"C-01":       "A-1-6",
	"INBOUND":    "B-1-1",
	"INSPECTION": "B-1-2",
	"SHIPPING":   "B-1-3",
}

// RemapLocationCode translates a legacy code; current codes pass through.
func RemapLocationCode(code string) string {
	if mapped, ok := legacyLocationCodes[code]; ok {
		return mapped
	}
	return code
}

// LegacyLocationCodes returns the legacy codes that display as current.
func LegacyLocationCodes(current string) []string {
	var out []string
	for legacy, mapped := range legacyLocationCodes {
		if mapped == current {
			out = append(out, legacy)
		}
	}
	return out
}
