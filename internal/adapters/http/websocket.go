package http

import (
	"encoding/json"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/gofiber/websocket/v2"
	"github.com/nats-io/nats.go"

	natsadapter "github.com/samirrijal/geofields/internal/adapters/nats"
	"github.com/samirrijal/geofields/internal/pkg/metrics"
)

// wsMessage is sent from client to subscribe/unsubscribe to change feeds.
type wsMessage struct {
	Action   string `json:"action"`   // "subscribe" | "unsubscribe"
	Resource string `json:"resource"` // resource name ("" = all)
}

// changeFeed tracks the change subjects one WebSocket client receives. A
// client starts on the all-resources subject; the first subscribe to a named
// resource replaces that implicit subscription.
type changeFeed struct {
	subscribe   func(subject string) (unsubscribe func() error, err error)
	subs        map[string]func() error // subject -> unsubscribe
	implicitAll bool
}

func newChangeFeed(subscribe func(string) (func() error, error)) (*changeFeed, error) {
	f := &changeFeed{subscribe: subscribe, subs: make(map[string]func() error)}
	all := natsadapter.ChangeFilter("")
	unsub, err := subscribe(all)
	if err != nil {
		return nil, err
	}
	f.subs[all] = unsub
	f.implicitAll = true
	return f, nil
}

// add subscribes to resource ("" = all). exists reports an existing
// subscription to the same subject.
func (f *changeFeed) add(resource string) (subject string, exists bool, err error) {
	subject = natsadapter.ChangeFilter(resource)
	all := natsadapter.ChangeFilter("")
	if _, ok := f.subs[subject]; ok {
		if resource == "" {
			f.implicitAll = false
		}
		return subject, true, nil
	}
	unsub, err := f.subscribe(subject)
	if err != nil {
		return subject, false, err
	}
	f.subs[subject] = unsub
	if resource != "" && f.implicitAll {
		if u, ok := f.subs[all]; ok {
			_ = u()
			delete(f.subs, all)
		}
		f.implicitAll = false
	}
	return subject, false, nil
}

// remove drops the subscription to resource. ok is false when there was none.
func (f *changeFeed) remove(resource string) (subject string, ok bool) {
	subject = natsadapter.ChangeFilter(resource)
	unsub, ok := f.subs[subject]
	if !ok {
		return subject, false
	}
	_ = unsub()
	delete(f.subs, subject)
	if resource == "" {
		f.implicitAll = false
	}
	return subject, true
}

func (f *changeFeed) subjects() []string {
	out := make([]string, 0, len(f.subs))
	for s := range f.subs {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

func (f *changeFeed) close() {
	for _, unsub := range f.subs {
		_ = unsub()
	}
	f.subs = map[string]func() error{}
}

// WebSocketHandler returns a handler that relays record change events from
// NATS to connected clients. Clients start on every resource; a message such
// as {"action":"subscribe","resource":"parks"} narrows the feed to the named
// resources until the client subscribes to "" again.
func WebSocketHandler(nc *nats.Conn) func(*websocket.Conn) {
	return func(c *websocket.Conn) {
		defer c.Close()

		metrics.ActiveWebSockets.Inc()
		defer metrics.ActiveWebSockets.Dec()

		remoteAddr := c.RemoteAddr().String()
		slog.Info("ws client connected", "remote", remoteAddr)

		var mu sync.Mutex

		// Helper: thread-safe write
		writeJSON := func(v interface{}) error {
			data, err := json.Marshal(v)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			return c.WriteMessage(websocket.TextMessage, data)
		}

		relay := func(msg *nats.Msg) {
			_ = writeJSON(json.RawMessage(msg.Data))
		}

		feed, err := newChangeFeed(func(subject string) (func() error, error) {
			sub, err := nc.Subscribe(subject, relay)
			if err != nil {
				return nil, err
			}
			return sub.Unsubscribe, nil
		})
		if err != nil {
			slog.Error("ws default subscribe failed", "error", err)
			return
		}

		// Keep-alive ping
		done := make(chan struct{})
		go func() {
			ticker := time.NewTicker(30 * time.Second)
			defer ticker.Stop()
			for {
				select {
				case <-ticker.C:
					mu.Lock()
					err := c.WriteMessage(websocket.PingMessage, nil)
					mu.Unlock()
					if err != nil {
						return
					}
				case <-done:
					return
				}
			}
		}()

		for {
			_, msg, err := c.ReadMessage()
			if err != nil {
				break
			}

			var m wsMessage
			if err := json.Unmarshal(msg, &m); err != nil {
				_ = writeJSON(map[string]string{"error": "invalid JSON"})
				continue
			}

			switch m.Action {
			case "subscribe":
				subject, exists, err := feed.add(m.Resource)
				switch {
				case err != nil:
					_ = writeJSON(map[string]string{"error": "subscribe failed: " + err.Error()})
				case exists:
					_ = writeJSON(map[string]any{"status": "already subscribed", "subject": subject, "subjects": feed.subjects()})
				default:
					_ = writeJSON(map[string]any{"status": "subscribed", "subject": subject, "subjects": feed.subjects()})
				}

			case "unsubscribe":
				if subject, ok := feed.remove(m.Resource); ok {
					_ = writeJSON(map[string]any{"status": "unsubscribed", "subject": subject, "subjects": feed.subjects()})
				} else {
					_ = writeJSON(map[string]string{"error": "not subscribed to " + subject})
				}

			default:
				_ = writeJSON(map[string]string{"error": "unknown action: " + m.Action})
			}
		}

		close(done)
		feed.close()
		slog.Info("ws client disconnected", "remote", remoteAddr)
	}
}
