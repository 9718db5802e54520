package http

import (
	"errors"
	"reflect"
	"testing"
)

// fakeSubscriber records live subjects.
type fakeSubscriber struct {
	live map[string]int
	fail string
}

func (f *fakeSubscriber) subscribe(subject string) (func() error, error) {
	if subject == f.fail {
		return nil, errors.New("boom")
	}
	f.live[subject]++
	return func() error {
		f.live[subject]--
		if f.live[subject] == 0 {
			delete(f.live, subject)
		}
		return nil
	}, nil
}

func newFakeFeed(t *testing.T) (*changeFeed, *fakeSubscriber) {
	t.Helper()
	fs := &fakeSubscriber{live: make(map[string]int)}
	feed, err := newChangeFeed(fs.subscribe)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return feed, fs
}

func TestChangeFeed_StartsOnAllResources(t *testing.T) {
	feed, fs := newFakeFeed(t)
	want := []string{"geofields.changes.>"}
	if got := feed.subjects(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if fs.live["geofields.changes.>"] != 1 {
		t.Errorf("expected live all-resources subscription, got %v", fs.live)
	}
}

func TestChangeFeed_ResourceSubscribeNarrows(t *testing.T) {
	feed, fs := newFakeFeed(t)

	subject, exists, err := feed.add("parks")
	if err != nil || exists {
		t.Fatalf("unexpected result %q, %v, %v", subject, exists, err)
	}
	want := []string{"geofields.changes.parks.>"}
	if got := feed.subjects(); !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if len(fs.live) != 1 || fs.live["geofields.changes.parks.>"] != 1 {
		t.Errorf("parks events would be relayed more than once: %v", fs.live)
	}

	if _, _, err := feed.add("trails"); err != nil {
		t.Fatal(err)
	}
	if len(fs.live) != 2 {
		t.Errorf("expected parks and trails, got %v", fs.live)
	}
}

func TestChangeFeed_ExplicitAllIsKept(t *testing.T) {
	feed, fs := newFakeFeed(t)

	if _, exists, _ := feed.add(""); !exists {
		t.Error("expected all-resources subscription to exist")
	}
	if _, _, err := feed.add("parks"); err != nil {
		t.Fatal(err)
	}
	if fs.live["geofields.changes.>"] != 1 {
		t.Errorf("explicit all-resources subscription was dropped: %v", fs.live)
	}
}

func TestChangeFeed_RemoveAndClose(t *testing.T) {
	feed, fs := newFakeFeed(t)

	if _, ok := feed.remove("parks"); ok {
		t.Error("expected remove of unknown resource to fail")
	}
	if _, ok := feed.remove(""); !ok {
		t.Error("expected remove of all-resources to succeed")
	}
	if len(fs.live) != 0 {
		t.Errorf("expected no live subscriptions, got %v", fs.live)
	}

	if _, _, err := feed.add("parks"); err != nil {
		t.Fatal(err)
	}
	feed.close()
	if len(fs.live) != 0 {
		t.Errorf("close left subscriptions open: %v", fs.live)
	}
}

func TestChangeFeed_SubscribeError(t *testing.T) {
	fs := &fakeSubscriber{live: make(map[string]int), fail: "geofields.changes.>"}
	if _, err := newChangeFeed(fs.subscribe); err == nil {
		t.Error("expected error")
	}

	feed, fs := newFakeFeed(t)
	fs.fail = "geofields.changes.parks.>"
	if _, _, err := feed.add("parks"); err == nil {
		t.Fatal("expected error")
	}
	if fs.live["geofields.changes.>"] != 1 {
		t.Errorf("failed subscribe should keep the existing feed: %v", fs.live)
	}
}
