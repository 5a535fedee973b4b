package server

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/playperu/emojichain/internal/emojichain"
	"github.com/playperu/emojichain/internal/session"
)

type CreateSessionRequest struct {
	Mode string `json:"mode" enum:"normal,timed,survival,blitz" required:"true"`
}

type CreateSessionResponse struct {
	Token     string        `json:"token"`
	SessionID string        `json:"sessionId"`
	State     StateResponse `json:"state"`
}

type StartRequest struct {
	Mode string `json:"mode" enum:"normal,timed,survival,blitz" required:"true"`
}

type ChoiceRequest struct {
	Emoji string `json:"emoji" required:"true"`
}

type ResetResponse struct {
	State StateResponse `json:"state"`
	// ShowAd is set when the player left a finished game and an
	// interstitial may be shown on the home screen.
	ShowAd bool `json:"showAd"`
}

func parseMode(raw string) (emojichain.Mode, error) {
	return emojichain.ParseMode(strings.ToLower(strings.TrimSpace(raw)))
}

func handleCreateSession(logger *slog.Logger, hub *Hub, tokens *Tokens) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req CreateSessionRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		mode, err := parseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		e, err := hub.Create()
		if errors.Is(err, ErrTooManySessions) {
			writeError(w, http.StatusServiceUnavailable, "too many active sessions")
			return
		}
		if err != nil {
			logger.Error("creating session", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		token, err := tokens.Issue(e.ID())
		if err != nil {
			hub.Remove(e.ID())
			logger.Error("issuing token", "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if err := e.Session().Start(mode); err != nil {
			hub.Remove(e.ID())
			logger.Error("starting game", "session_id", e.ID(), "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}

		writeJSON(w, http.StatusCreated, CreateSessionResponse{
			Token:     token,
			SessionID: e.ID(),
			State:     newStateResponse(e.Session().State()),
		})
	}
}

func handleGetSession() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, newStateResponse(entryFrom(r).Session().State()))
	}
}

func handleStart() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req StartRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		mode, err := parseMode(req.Mode)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		sess := entryFrom(r).Session()
		if err := sess.Start(mode); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(sess.State()))
	}
}

// handleChoice submits an answer. Choices that arrive while no question is
// open are ignored by the session; the response carries the current state
// either way.
func handleChoice() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req ChoiceRequest
		if err := readJSON(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		req.Emoji = strings.TrimSpace(req.Emoji)
		if req.Emoji == "" {
			writeError(w, http.StatusBadRequest, "emoji is required")
			return
		}

		sess := entryFrom(r).Session()
		sess.Choose(req.Emoji)
		writeJSON(w, http.StatusOK, newStateResponse(sess.State()))
	}
}

func handleReset() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		e := entryFrom(r)
		if e.Session().State().Result.Terminal() {
			e.Ads().MarkHomeReturn()
		}
		e.Session().Reset()
		writeJSON(w, http.StatusOK, ResetResponse{
			State:  newStateResponse(e.Session().State()),
			ShowAd: e.Ads().ShowOnHomeReturn(),
		})
	}
}

func handleAdReward() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess := entryFrom(r).Session()
		if err := sess.AdReward(); err != nil {
			writeSessionError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, newStateResponse(sess.State()))
	}
}

func handleDeleteSession(hub *Hub) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := hub.Remove(entryFrom(r).ID()); err != nil {
			writeError(w, http.StatusNotFound, "session not found")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func writeSessionError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNoContinueOffered):
		writeError(w, http.StatusConflict, "no continue offered")
	case errors.Is(err, session.ErrUnknownMode):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, session.ErrClosed):
		writeError(w, http.StatusGone, "session closed")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}
