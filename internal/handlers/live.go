package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/lojf/quizdesk/internal/identity"
	"github.com/lojf/quizdesk/internal/lifecycle"
	"github.com/lojf/quizdesk/internal/metrics"
	"github.com/lojf/quizdesk/internal/quiz"
)

const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:   1024,
	WriteBufferSize:  1024,
	HandshakeTimeout: 10 * time.Second,
}

// liveConn serialises writes; gorilla allows one concurrent writer.
type liveConn struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (c *liveConn) send(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteJSON(v)
}

// open upgrades the request. The returned context ends when the peer goes
// away; onMessage (if any) gets every text frame the peer sends.
func open(w http.ResponseWriter, r *http.Request, onMessage func([]byte)) (*liveConn, context.Context, func(), error) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return nil, nil, nil, err
	}
	// Deadlines set by the http.Server survive the hijack. A dead peer is
	// found by the next failed write instead.
	_ = conn.SetReadDeadline(time.Time{})
	metrics.LiveConnections.Inc()

	ctx, cancel := context.WithCancel(context.WithoutCancel(r.Context()))
	go func() {
		defer cancel()
		for {
			kind, data, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if kind == websocket.TextMessage && onMessage != nil {
				onMessage(data)
			}
		}
	}()

	closeFn := func() {
		cancel()
		_ = conn.Close()
		metrics.LiveConnections.Dec()
	}
	return &liveConn{conn: conn}, ctx, closeFn, nil
}

type sessionTick struct {
	Phase     lifecycle.Phase `json:"phase"`
	Display   string          `json:"display"`
	Remaining int             `json:"remaining"`
}

// GET /student/sessions/{sessionID}/live streams the session's phase and
// countdown once a second until the peer leaves or the session expires.
func SessionLive(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "sessionID")
		if !ok {
			http.NotFound(w, r)
			return
		}
		s, err := a.Client.Session(r.Context(), id)
		if err != nil {
			http.Error(w, http.StatusText(statusFor(err)), statusFor(err))
			return
		}

		lc, ctx, closeFn, err := open(w, r, nil)
		if err != nil {
			a.Logger.Debug().Err(err).Msg("Websocket upgrade failed")
			return
		}
		defer closeFn()

		t := lifecycle.Start(ctx, time.Second, func(time.Time) bool {
			st := lifecycle.Derive(a.now(), s.StartTime, s.EndTime)
			msg := sessionTick{Phase: st.Phase, Display: st.Display, Remaining: int(st.Remaining / time.Second)}
			if err := lc.send(msg); err != nil {
				return false
			}
			return st.Phase != lifecycle.Expired
		})
		<-t.Done()
	}
}

type quizMessage struct {
	Type     string `json:"type"` // answer | feedback
	Question int    `json:"question"`
	Option   int    `json:"option"`
	Text     string `json:"text"`
}

// GET /student/quiz/{attemptID}/live owns the attempt's countdown: it ticks
// only while this socket is open, and a second socket is refused.
func QuizLive(a *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		who, _ := identity.StoreFrom(r).Attendee()
		attempt, ok := a.Quizzes.Get(chi.URLParam(r, "attemptID"), who.ID)
		if !ok {
			http.NotFound(w, r)
			return
		}
		release, ok := attempt.Acquire()
		if !ok {
			http.Error(w, "quiz already open elsewhere", http.StatusConflict)
			return
		}
		defer release()

		var lc *liveConn
		var ready sync.WaitGroup
		ready.Add(1)
		lc, ctx, closeFn, err := open(w, r, func(data []byte) {
			ready.Wait()
			var m quizMessage
			if err := json.Unmarshal(data, &m); err != nil {
				return
			}
			switch strings.ToLower(m.Type) {
			case "answer":
				ans := quiz.Answer{Option: m.Option, Text: m.Text}
				if err := attempt.Answer(m.Question, ans); err != nil {
					a.Logger.Debug().Err(err).Int("question", m.Question).Msg("Live answer rejected")
				}
				_ = lc.send(attempt.Snapshot())
			case "feedback":
				attempt.SetFeedback(m.Text)
			}
		})
		if err != nil {
			ready.Done()
			a.Logger.Debug().Err(err).Msg("Websocket upgrade failed")
			return
		}
		ready.Done()
		defer closeFn()

		first := true
		t := lifecycle.Start(ctx, a.Quizzes.TickInterval(), func(time.Time) bool {
			snap := attempt.Snapshot()
			if !first {
				snap = attempt.Tick(ctx)
			}
			first = false
			if err := lc.send(snap); err != nil {
				return false
			}
			return snap.State != quiz.StateDone && snap.State != quiz.StateError
		})
		<-t.Done()
	}
}
