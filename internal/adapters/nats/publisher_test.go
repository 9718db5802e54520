package natsadapter

import (
	"strings"
	"testing"

	"github.com/samirrijal/geofields/internal/core/domain"
)

func TestChangeSubject(t *testing.T) {
	if got := ChangeSubject("parks", domain.ActionCreated); got != "geofields.changes.parks.created" {
		t.Errorf("got %s", got)
	}
}

func TestChangeFilter(t *testing.T) {
	tests := map[string]string{
		"":       "geofields.changes.>",
		"trails": "geofields.changes.trails.>",
	}
	for in, want := range tests {
		if got := ChangeFilter(in); got != want {
			t.Errorf("ChangeFilter(%q) = %s, want %s", in, got, want)
		}
	}
}

func TestChangeFilterMatchesSubjects(t *testing.T) {
	subject := ChangeSubject("trails", domain.ActionDeleted)
	for _, filter := range []string{ChangeFilter(""), ChangeFilter("trails")} {
		if !subjectMatches(filter, subject) {
			t.Errorf("%s should match %s", filter, subject)
		}
	}
	if subjectMatches(ChangeFilter("parks"), subject) {
		t.Errorf("parks filter should not match %s", subject)
	}
}

// subjectMatches implements NATS wildcard matching for the filters above.
func subjectMatches(filter, subject string) bool {
	f := strings.Split(filter, ".")
	s := strings.Split(subject, ".")
	for i, tok := range f {
		switch {
		case tok == ">":
			return len(s) > i
		case i >= len(s):
			return false
		case tok != "*" && tok != s[i]:
			return false
		}
	}
	return len(f) == len(s)
}
