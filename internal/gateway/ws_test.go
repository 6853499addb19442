package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/gorilla/websocket"
	"github.com/peterldowns/testy/assert"

	"stockdash/internal/model"
	"stockdash/internal/search"
	"stockdash/internal/store/memory"
)

type wireMsg struct {
	Type     string            `json:"type"`
	Seq      uint64            `json:"seq"`
	Keyword  string            `json:"keyword"`
	Items    []model.SearchHit `json:"items"`
	History  bool              `json:"history"`
	Recent   []string          `json:"recent"`
	Message  string            `json:"message"`
	Ping     int64             `json:"ping"`
	ServerTS int64             `json:"server_ts"`
}

// wsPeer reads coalesced frames and hands out one message at a time.
type wsPeer struct {
	t       *testing.T
	conn    *websocket.Conn
	pending []wireMsg
}

func dial(t *testing.T, baseURL string) *wsPeer {
	t.Helper()
	url := "ws" + strings.TrimPrefix(baseURL, "http") + "/ws/search"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	assert.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return &wsPeer{t: t, conn: conn}
}

func (p *wsPeer) send(msg ClientMsg) {
	p.t.Helper()
	assert.NoError(p.t, p.conn.WriteJSON(msg))
}

// next returns the next message of type typ, skipping others.
func (p *wsPeer) next(typ string) wireMsg {
	p.t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for {
		for len(p.pending) > 0 {
			m := p.pending[0]
			p.pending = p.pending[1:]
			if m.Type == typ {
				return m
			}
		}
		p.conn.SetReadDeadline(deadline)
		_, frame, err := p.conn.ReadMessage()
		if err != nil {
			p.t.Fatalf("waiting for %s: %v", typ, err)
		}
		for _, line := range bytes.Split(frame, []byte{'\n'}) {
			var m wireMsg
			if err := json.Unmarshal(line, &m); err != nil {
				p.t.Fatalf("bad frame %q: %v", line, err)
			}
			p.pending = append(p.pending, m)
		}
	}
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met within 3s")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

// ────────────────────────────────────────────────────────────────────────────
// Search session
// ────────────────────────────────────────────────────────────────────────────

func TestWS_DebouncedSearchPublishesLatestKeyword(t *testing.T) {
	hits := []model.SearchHit{{Code: "600519", Name: "贵州茅台", Price: 1500, PctChange: 1.5}}
	api := &fakeAPI{hits: hits}
	_, ts := newTestServer(t, Config{API: api, SearchDebounce: 50 * time.Millisecond})

	peer := dial(t, ts.URL)
	peer.send(ClientMsg{Type: MsgInput, Keyword: "6"})
	peer.send(ClientMsg{Type: MsgInput, Keyword: "60"})

	got := peer.next(MsgSuggestions)
	assert.Equal(t, "60", got.Keyword)
	assert.False(t, got.History)
	if diff := cmp.Diff(hits, got.Items); diff != "" {
		t.Errorf("items mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, []string{"60"}, api.searched())
}

func TestWS_FocusAndEmptyInputShowHistory(t *testing.T) {
	h, err := search.LoadHistory(context.Background(), memory.New())
	assert.NoError(t, err)
	assert.NoError(t, h.Add(context.Background(), "000001"))

	api := &fakeAPI{}
	_, ts := newTestServer(t, Config{API: api, History: h})

	peer := dial(t, ts.URL)
	peer.send(ClientMsg{Type: MsgFocus})
	got := peer.next(MsgSuggestions)
	assert.True(t, got.History)
	assert.Equal(t, []string{"000001"}, got.Recent)

	peer.send(ClientMsg{Type: MsgInput, Keyword: "   "})
	got = peer.next(MsgSuggestions)
	assert.True(t, got.History)
	assert.Equal(t, uint64(1), got.Seq)
	assert.Equal(t, 0, len(api.searched()))
}

func TestWS_SelectRecordsHistory(t *testing.T) {
	h, err := search.LoadHistory(context.Background(), memory.New())
	assert.NoError(t, err)
	_, ts := newTestServer(t, Config{API: &fakeAPI{}, History: h})

	peer := dial(t, ts.URL)
	peer.send(ClientMsg{Type: MsgSelect, Code: "600519"})
	eventually(t, func() bool { return len(h.List()) == 1 })
	assert.Equal(t, []string{"600519"}, h.List())

	peer.send(ClientMsg{Type: MsgSelect})
	got := peer.next(MsgError)
	assert.Equal(t, "SELECT requires a code", got.Message)
}

func TestWS_PingAndUnknown(t *testing.T) {
	_, ts := newTestServer(t, Config{API: &fakeAPI{}})

	peer := dial(t, ts.URL)
	peer.send(ClientMsg{Type: MsgPing, Ping: 1234})
	pong := peer.next(MsgPong)
	assert.Equal(t, int64(1234), pong.Ping)
	assert.True(t, pong.ServerTS > 0)

	peer.send(ClientMsg{Type: "SUBSCRIBE"})
	got := peer.next(MsgError)
	assert.Equal(t, "unknown message type: SUBSCRIBE", got.Message)
}

// ────────────────────────────────────────────────────────────────────────────
// Hub
// ────────────────────────────────────────────────────────────────────────────

func TestHub_SessionExpiredReachesEveryClient(t *testing.T) {
	srv, ts := newTestServer(t, Config{API: &fakeAPI{}})

	a := dial(t, ts.URL)
	b := dial(t, ts.URL)
	eventually(t, func() bool { return srv.Hub().ClientCount() == 2 })

	srv.Hub().NotifySessionExpired()
	for _, p := range []*wsPeer{a, b} {
		got := p.next(MsgSessionExpired)
		assert.Equal(t, "session expired, please log in again", got.Message)
	}
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	srv, ts := newTestServer(t, Config{API: &fakeAPI{}})

	p := dial(t, ts.URL)
	eventually(t, func() bool { return srv.Hub().ClientCount() == 1 })

	p.conn.Close()
	eventually(t, func() bool { return srv.Hub().ClientCount() == 0 })
}
