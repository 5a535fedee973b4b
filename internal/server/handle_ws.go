package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/playperu/emojichain/internal/session"
)

// wsMaxLifetime bounds a single WebSocket connection.
const wsMaxLifetime = 2 * time.Hour

// WSEnvelope is every server to client WebSocket message.
type WSEnvelope struct {
	Type string          `json:"type" enum:"state,feedback,closed,error"`
	Data json.RawMessage `json:"data"`
}

// WSCommand is a client to server WebSocket message.
type WSCommand struct {
	Type  string `json:"type" enum:"start,choice,reset,adReward"`
	Mode  string `json:"mode,omitempty"`
	Emoji string `json:"emoji,omitempty"`
}

func handleWS(logger *slog.Logger, broker *Broker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := entryFrom(r)

		conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
			InsecureSkipVerify: true,
		})
		if err != nil {
			logger.Error("websocket accept failed", "error", err)
			return
		}
		defer conn.CloseNow()

		ctx, cancel := context.WithTimeout(r.Context(), wsMaxLifetime)
		defer cancel()

		ch := broker.Subscribe(e.ID())
		defer broker.Unsubscribe(e.ID(), ch)

		if err := writeEnvelope(ctx, conn, EventState, newStateResponse(e.Session().State())); err != nil {
			logger.Debug("websocket write failed", "error", err)
			return
		}

		g, gctx := errgroup.WithContext(ctx)

		g.Go(func() error {
			for {
				select {
				case <-gctx.Done():
					return gctx.Err()
				case <-e.Done():
					for _, msg := range closing(e, ch) {
						if err := wsjson.Write(gctx, conn, WSEnvelope{Type: msg.Type, Data: msg.Data}); err != nil {
							return err
						}
					}
					return errSessionGone
				case msg, ok := <-ch:
					if !ok {
						return errSessionGone
					}
					env := WSEnvelope{Type: msg.Type, Data: msg.Data}
					if err := wsjson.Write(gctx, conn, env); err != nil {
						return err
					}
					if msg.Type == EventClosed {
						return errSessionGone
					}
				}
			}
		})

		g.Go(func() error {
			for {
				var cmd WSCommand
				if err := wsjson.Read(gctx, conn, &cmd); err != nil {
					return err
				}
				if err := applyCommand(e.Session(), cmd); err != nil {
					if err := writeEnvelope(gctx, conn, "error", ErrorResponse{Error: err.Error()}); err != nil {
						return err
					}
				}
			}
		})

		err = g.Wait()
		switch {
		case errors.Is(err, errSessionGone):
			conn.Close(websocket.StatusGoingAway, "session closed")
		case websocket.CloseStatus(err) == websocket.StatusNormalClosure:
		default:
			logger.Debug("websocket ended", "session_id", e.ID(), "error", err)
		}
	}
}

var errSessionGone = errors.New("session gone")

func applyCommand(sess *session.Session, cmd WSCommand) error {
	switch cmd.Type {
	case "start":
		mode, err := parseMode(cmd.Mode)
		if err != nil {
			return err
		}
		return sess.Start(mode)
	case "choice":
		if cmd.Emoji == "" {
			return errors.New("emoji is required")
		}
		sess.Choose(cmd.Emoji)
		return nil
	case "reset":
		sess.Reset()
		return nil
	case "adReward":
		return sess.AdReward()
	default:
		return errors.New("unknown command type " + cmd.Type)
	}
}

func writeEnvelope(ctx context.Context, conn *websocket.Conn, typ string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return wsjson.Write(ctx, conn, WSEnvelope{Type: typ, Data: data})
}
