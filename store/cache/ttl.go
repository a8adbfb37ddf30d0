package cache

import (
	"strings"
	"time"
)

// DefaultTTL applies when no rule matches and no explicit TTL is supplied.
const DefaultTTL = time.Hour

// ttlRule maps a key-substring pattern to a TTL. Rules are checked in order;
// the first match wins.
type ttlRule struct {
	pattern string
	ttl     time.Duration
}

// ttlRules routes TTLs by key content. Color relationships are stable and
// cached for a day, trending data churns hourly, style and profile data are
// near-static.
var ttlRules = []ttlRule{
	{"color", 24 * time.Hour},
	{"trending", time.Hour},
	{"style", 7 * 24 * time.Hour},
	{"profile", 7 * 24 * time.Hour},
	{"venue", 4 * time.Hour},
	{"intelligence", 2 * time.Hour},
	{"validation", 12 * time.Hour},
}

// ResolveTTL returns the routed TTL for a key. The raw (pre-normalization)
// key is matched by substring against the routing table.
func ResolveTTL(key string) time.Duration {
	for _, rule := range ttlRules {
		if strings.Contains(key, rule.pattern) {
			return rule.ttl
		}
	}
	return DefaultTTL
}
