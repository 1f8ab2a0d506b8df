package dbus

import "strings"

// Filter selects which notifications trigger the badge.
type Filter struct {
	// Apps restricts matches to these application names or desktop entries,
	// compared case-insensitively. Empty matches every application.
	Apps []string
	// MinUrgency is the lowest urgency that matches.
	MinUrgency Urgency
	// SkipTransient drops notifications carrying the transient hint.
	SkipTransient bool
}

// NewFilter builds a Filter from configuration values.
func NewFilter(apps []string, minUrgency string, skipTransient bool) (Filter, error) {
	u, err := ParseUrgency(minUrgency)
	if err != nil {
		return Filter{}, err
	}
	return Filter{Apps: apps, MinUrgency: u, SkipTransient: skipTransient}, nil
}

// Match reports whether n passes the filter.
func (f Filter) Match(n *Notification) bool {
	if n == nil {
		return false
	}
	if n.Urgency() < f.MinUrgency {
		return false
	}
	if f.SkipTransient && n.Transient() {
		return false
	}
	if len(f.Apps) == 0 {
		return true
	}

	entry := n.DesktopEntry()
	for _, app := range f.Apps {
		if strings.EqualFold(app, n.AppName) || (entry != "" && strings.EqualFold(app, entry)) {
			return true
		}
	}
	return false
}
