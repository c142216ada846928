package scoring

import (
	"net/url"
	"strings"
)

// Source-trust scores per tier.
const (
	MajorSourceScore    = 20
	StandardSourceScore = 15
	GeneralSourceScore  = 10
)

// DomainTiers holds the source-trust allow-lists. Entries are matched as
// case-insensitive substrings of the article's host, major tier first.
type DomainTiers struct {
	Major    []string `yaml:"major" toml:"major"`
	Standard []string `yaml:"standard" toml:"standard"`
}

// DefaultDomainTiers returns the built-in allow-lists.
func DefaultDomainTiers() DomainTiers {
	return DomainTiers{
		Major: []string{
			"reuters.com", "apnews.com", "bloomberg.com", "nytimes.com", "wsj.com",
			"ft.com", "bbc.co.uk", "bbc.com", "theguardian.com", "washingtonpost.com",
		},
		Standard: []string{
			"techcrunch.com", "theverge.com", "wired.com", "arstechnica.com", "zdnet.com",
			"venturebeat.com", "engadget.com", "technologyreview.com", "theregister.com", "infoq.com",
		},
	}
}

// Score returns the metadata signal for an article URL.
func (t DomainTiers) Score(rawURL string) int {
	host := hostOf(rawURL)
	if host == "" {
		return GeneralSourceScore
	}
	if matchesAny(host, t.Major) {
		return MajorSourceScore
	}
	if matchesAny(host, t.Standard) {
		return StandardSourceScore
	}
	return GeneralSourceScore
}

func matchesAny(host string, domains []string) bool {
	for _, d := range domains {
		d = strings.ToLower(strings.TrimSpace(d))
		if d != "" && strings.Contains(host, d) {
			return true
		}
	}
	return false
}

func hostOf(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil || u.Host == "" {
		return strings.ToLower(rawURL)
	}
	return strings.ToLower(u.Hostname())
}

// Defaults are the values used when the completion service gives no usable
// answer. The sub-scores are mid-range so a transient outage does not push
// articles below the index threshold on its own.
type Defaults struct {
	Impact     int    `yaml:"impact" toml:"impact"`
	Innovation int    `yaml:"innovation" toml:"innovation"`
	Timeliness int    `yaml:"timeliness" toml:"timeliness"`
	Category   string `yaml:"category" toml:"category"`
	Reason     string `yaml:"reason" toml:"reason"`
}

// DefaultDefaults returns the built-in fallback values.
func DefaultDefaults() Defaults {
	return Defaults{
		Impact:     10,
		Innovation: 7,
		Timeliness: 7,
		Category:   "General",
		Reason:     "AI evaluation unavailable; default scores applied",
	}
}
