package server

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/verte-zerg/neontype/internal/model"
	"github.com/verte-zerg/neontype/internal/scores"
	"github.com/verte-zerg/neontype/internal/typing"
)

const (
	writeWait = 10 * time.Second
	keyBuffer = 64
)

// Websocket message types.
const (
	msgTypeKey      = "key"
	msgTypeQuit     = "quit"
	msgTypeSnapshot = "snapshot"
	msgTypeResult   = "result"
	msgTypeError    = "error"
)

type clientMessage struct {
	Type string `json:"type"`
	Key  string `json:"key,omitempty"`
}

type serverMessage struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

type sessionParams struct {
	mode    model.Mode
	minutes int
	name    string
	email   string
}

func parseSessionParams(c *gin.Context) (sessionParams, bool) {
	mode, ok := model.ParseMode(c.Query("mode"))
	if !ok {
		return sessionParams{}, false
	}
	minutes := 1
	if v := c.Query("minutes"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || !model.ValidMinutes(n) {
			return sessionParams{}, false
		}
		minutes = n
	}
	return sessionParams{mode: mode, minutes: minutes, name: c.Query("name"), email: c.Query("email")}, true
}

// wsConn writes JSON messages to one websocket connection. Only the session
// goroutine writes.
type wsConn struct {
	conn *websocket.Conn
}

func (w wsConn) send(msgType string, data any) error {
	if err := w.conn.SetWriteDeadline(time.Now().Add(writeWait)); err != nil {
		return err
	}
	return w.conn.WriteJSON(serverMessage{Type: msgType, Data: data})
}

func (w wsConn) fail(msg string) {
	// Best-effort: the peer may already be gone.
	_ = w.send(msgTypeError, msg)
}

// sessionHandler runs one live typing session over a websocket. The server
// owns the timer and the client only sends keys.
func (app *App) sessionHandler(c *gin.Context) {
	params, ok := parseSessionParams(c)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid session parameters."})
		return
	}
	conn, err := app.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		app.log(c).Warn("websocket upgrade failed", "error", err)
		return
	}
	defer func() {
		if cerr := conn.Close(); cerr != nil {
			// Best-effort close.
			_ = cerr
		}
	}()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	ws := wsConn{conn: conn}
	logger := app.log(c).With("mode", params.mode, "minutes", params.minutes)

	session, err := app.prepareSession(ctx, params)
	if err != nil {
		logger.Info("session refused", "error", err)
		ws.fail(sessionErrorMessage(err))
		return
	}

	driver := typing.NewDriver(session, app.clock, keyBuffer)
	go app.readPump(ctx, cancel, conn, driver.Keys())

	if err := ws.send(msgTypeSnapshot, session.Snapshot()); err != nil {
		return
	}
	driver.Run(ctx, func(ev typing.Event) {
		if err := ws.send(msgTypeSnapshot, ev.Snapshot); err != nil {
			cancel()
			return
		}
		if ev.Result != nil {
			if err := ws.send(msgTypeResult, ev.Result); err != nil {
				cancel()
			}
		}
	})
	if r, ok := session.Result(); ok {
		logger.Info("session finished", "wpm", r.NetWPM, "accuracy", r.Accuracy)
	}
}

var errUserRequired = errors.New("contest sessions need a user")

func sessionErrorMessage(err error) string {
	switch {
	case errors.Is(err, scores.ErrAlreadyPlayed):
		return msgAlreadyPlayed
	case errors.Is(err, scores.ErrContestNotReady):
		return msgContestNotReady
	case errors.Is(err, errUserRequired):
		return msgNameRequired
	default:
		return msgGenerateFailed
	}
}

// prepareSession loads the text for params and attaches the score sink for
// contest sessions.
func (app *App) prepareSession(ctx context.Context, p sessionParams) (*typing.Session, error) {
	opts := []typing.Option{typing.WithClock(app.clock)}
	var text string
	if p.mode == model.ModeContest {
		key := model.UserKey(app.scores.IdentityKey(), p.name, p.email)
		if key == "" || p.name == "" {
			return nil, errUserRequired
		}
		played, err := app.scores.Status(ctx, key)
		if err != nil {
			return nil, err
		}
		if played {
			return nil, scores.ErrAlreadyPlayed
		}
		contest, err := app.contests.Today(ctx)
		if err != nil {
			return nil, err
		}
		text = contest.Text
		// Submissions outlive the connection.
		sink := scores.NewScoreSink(context.WithoutCancel(ctx), app.scores, p.name, p.email, p.mode, app.logger)
		opts = append(opts, typing.WithSink(sink))
	} else {
		t, err := app.texts.PracticeText(ctx, p.minutes)
		if err != nil {
			return nil, err
		}
		text = t.Body
	}

	session, err := typing.NewSession(p.minutes*60, opts...)
	if err != nil {
		return nil, err
	}
	if err := session.Load(text); err != nil {
		return nil, err
	}
	return session, nil
}

// readPump forwards client keys to the driver until the connection closes or
// the client quits.
func (app *App) readPump(ctx context.Context, cancel context.CancelFunc, conn *websocket.Conn, keys chan<- string) {
	defer cancel()
	for {
		var msg clientMessage
		if err := conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && ctx.Err() == nil {
				app.logger.Debug("websocket read failed", "error", err)
			}
			return
		}
		switch msg.Type {
		case msgTypeKey:
			select {
			case keys <- msg.Key:
			case <-ctx.Done():
				return
			}
		case msgTypeQuit:
			return
		}
	}
}
