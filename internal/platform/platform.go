// Package platform maps job listing URLs to the job board that hosts them.
package platform

import (
	"strings"

	"jobsentry-engine/internal/config"
)

// Other is returned for URLs outside the platform table.
const Other = config.OtherPlatform

type entry struct {
	domain string
	name   string
}

// Classifier is safe for concurrent use; it never mutates after New.
type Classifier struct {
	entries []entry
	names   []string
}

func New(r *config.Rubric) *Classifier {
	c := &Classifier{}
	seen := map[string]bool{}
	for _, p := range r.Platforms {
		c.entries = append(c.entries, entry{
			domain: strings.ToLower(strings.TrimSpace(p.Domain)),
			name:   p.Name,
		})
		if !seen[p.Name] {
			seen[p.Name] = true
			c.names = append(c.names, p.Name)
		}
	}
	c.names = append(c.names, Other)
	return c
}

// Classify returns the platform name for rawURL, or Other. It never fails.
func (c *Classifier) Classify(rawURL string) string {
	if name, ok := c.lookup(rawURL); ok {
		return name
	}
	return Other
}

// KnownHost reports whether host is a table domain or a subdomain of one.
// It does not match inside longer names, so "clever.com" is not Lever.
func (c *Classifier) KnownHost(host string) bool {
	host = strings.TrimSuffix(strings.ToLower(strings.TrimSpace(host)), ".")
	if host == "" {
		return false
	}
	for _, e := range c.entries {
		if host == e.domain || strings.HasSuffix(host, "."+e.domain) {
			return true
		}
	}
	return false
}

// Names lists every value Classify can return.
func (c *Classifier) Names() []string {
	out := make([]string, len(c.names))
	copy(out, c.names)
	return out
}

func (c *Classifier) lookup(rawURL string) (string, bool) {
	u := strings.ToLower(rawURL)
	for _, e := range c.entries {
		if strings.Contains(u, e.domain) {
			return e.name, true
		}
	}
	return "", false
}
