package tzresolve

// windowsToIANA maps a sample of common Windows timezone names (as
// emitted by Outlook/Exchange-authored VTIMEZONE blocks) to their IANA
// equivalent. Not exhaustive — covers the zones most likely to appear in
// interoperability tests; unknown Windows names fall through to the
// floating-time path.
var windowsToIANA = map[string]string{
	"Eastern Standard Time":    "America/New_York",
	"Central Standard Time":    "America/Chicago",
	"Mountain Standard Time":   "America/Denver",
	"Pacific Standard Time":    "America/Los_Angeles",
	"GMT Standard Time":        "Europe/London",
	"Central European Standard Time": "Europe/Warsaw",
	"W. Europe Standard Time":  "Europe/Berlin",
	"Romance Standard Time":    "Europe/Paris",
	"Tokyo Standard Time":      "Asia/Tokyo",
	"China Standard Time":      "Asia/Shanghai",
	"India Standard Time":      "Asia/Kolkata",
	"AUS Eastern Standard Time": "Australia/Sydney",
	"UTC":                      "Etc/UTC",
}

// aliasToIANA canonicalizes a handful of legacy/vendor IANA aliases that
// still appear in the wild (pre-tzdata-2014 names, CalendarServer's
// historical spellings) to their current IANA name.
var aliasToIANA = map[string]string{
	"US/Eastern":  "America/New_York",
	"US/Central":  "America/Chicago",
	"US/Mountain": "America/Denver",
	"US/Pacific":  "America/Los_Angeles",
	"GB":          "Europe/London",
	"GB-Eire":     "Europe/London",
	"Etc/GMT":     "Etc/UTC",
	"Zulu":        "Etc/UTC",
	"UCT":         "Etc/UTC",
}
