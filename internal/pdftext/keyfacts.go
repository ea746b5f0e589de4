package pdftext

import (
	"regexp"
	"strings"
)

// keyFactPatterns pull the handful of facts sailors actually look up
// in sailing instructions. Best effort, like everything in this
// package.
var keyFactPatterns = map[string]*regexp.Regexp{
	"firstWarningSignal": regexp.MustCompile(`(?i)(?:first\s+)?warning\s+signal[^0-9]*(\d{1,2}[:.]\d{2})`),
	"vhfChannel":         regexp.MustCompile(`(?i)VHF\s+channel\s*(\d{1,3})`),
	"racingArea":         regexp.MustCompile(`(?i)racing\s+area[:\s]+([A-Za-z0-9 ,\-]{3,60})`),
	"protestTimeLimit":   regexp.MustCompile(`(?i)protest\s+time\s+limit[^0-9]*(\d{1,3})\s*min`),
}

// KeyFacts scans sailing-instruction text for well-known facts.
func KeyFacts(text string) map[string]string {
	facts := make(map[string]string)
	for name, re := range keyFactPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			facts[name] = strings.TrimSpace(m[1])
		}
	}
	if len(facts) == 0 {
		return nil
	}
	return facts
}
