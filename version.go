package webchat

import (
	"strings"

	"github.com/coreos/go-semver/semver"
)

// responseEventCutover is the first widget version that emits
// EventUserDefinedResponse instead of EventCustomResponse.
var responseEventCutover = *semver.New("8.2.0")

// ResponseEventName returns the response event name a widget of the given
// version emits. Versions at or above 8.2.0 use the new name; anything
// below, or anything that does not parse, uses the legacy one.
func ResponseEventName(version string) string {
	v, ok := parseVersion(version)
	if !ok || v.LessThan(responseEventCutover) {
		return EventCustomResponse
	}
	return EventUserDefinedResponse
}

// parseVersion accepts "8", "8.2", "8.2.0" and a leading "v". Missing
// components are zero.
func parseVersion(s string) (semver.Version, bool) {
	s = strings.TrimPrefix(strings.TrimSpace(s), "v")
	if s == "" {
		return semver.Version{}, false
	}

	core, rest := s, ""
	if i := strings.IndexAny(s, "-+"); i >= 0 {
		core, rest = s[:i], s[i:]
	}
	switch strings.Count(core, ".") {
	case 0:
		core += ".0.0"
	case 1:
		core += ".0"
	}

	v, err := semver.NewVersion(core + rest)
	if err != nil {
		return semver.Version{}, false
	}
	return *v, true
}
