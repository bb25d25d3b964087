package sqlinline

import (
	"regexp"
	"strings"
	"testing"
)

var markerRe = regexp.MustCompile(`^--sql [0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

func TestQueriesCarryUniqueMarkers(t *testing.T) {
	seen := map[string]bool{}
	for _, q := range []string{QCreateIntegrationTokens, QSelectIntegrationToken, QUpsertIntegrationToken} {
		first := strings.SplitN(q, "\n", 2)[0]
		if !markerRe.MatchString(first) {
			t.Fatalf("query missing marker: %q", first)
		}
		if seen[first] {
			t.Fatalf("duplicate marker %q", first)
		}
		seen[first] = true
	}
}
