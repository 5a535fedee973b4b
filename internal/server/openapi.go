package server

import (
	"encoding/json"
	"net/http"

	openapi "github.com/swaggest/openapi-go"
	"github.com/swaggest/openapi-go/openapi3"
	"github.com/swaggest/swgui/v5emb"
)

// ErrorResponse is returned for all error responses.
type ErrorResponse struct {
	Error string `json:"error"`
}

// HealthResponse documents /healthz: one entry per checked dependency.
type HealthResponse map[string]struct {
	Status    string `json:"status" enum:"ok,error"`
	LatencyMS int64  `json:"latency_ms"`
}

const bearerAuth = "bearerAuth"

func newOpenAPISpec() *openapi3.Spec {
	r := openapi3.NewReflector()
	r.Spec.Info.Title = "EmojiChain API"
	r.Spec.Info.Version = "0.1.0"
	r.Spec.Info.WithDescription("Game server for EmojiChain: guess the emoji that continues the chain.")
	r.Spec.SetHTTPBearerTokenSecurity(bearerAuth, "JWT", "Session token returned by POST /api/sessions.")

	// GET /healthz
	getHealthz, _ := r.NewOperationContext(http.MethodGet, "/healthz")
	getHealthz.SetSummary("Health check")
	getHealthz.SetDescription("Returns the health status of backend dependencies.")
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getHealthz.AddRespStructure(HealthResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(getHealthz)

	// GET /api/catalog
	getCatalog, _ := r.NewOperationContext(http.MethodGet, "/api/catalog")
	getCatalog.SetSummary("Emoji catalog")
	getCatalog.SetDescription("Lists the emoji categories, chain rules and game modes.")
	getCatalog.AddRespStructure(CatalogResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getCatalog)

	// GET /api/highscores
	getScores, _ := r.NewOperationContext(http.MethodGet, "/api/highscores")
	getScores.SetSummary("High scores")
	getScores.SetDescription("Returns the best score for every game mode.")
	getScores.AddRespStructure(HighScoresResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	_ = r.AddOperation(getScores)

	// POST /api/sessions
	postSession, _ := r.NewOperationContext(http.MethodPost, "/api/sessions")
	postSession.SetSummary("Create session")
	postSession.SetDescription("Creates a player session, starts a game in the given mode and returns a session token.")
	postSession.AddReqStructure(CreateSessionRequest{})
	postSession.AddRespStructure(CreateSessionResponse{}, openapi.WithHTTPStatus(http.StatusCreated))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusServiceUnavailable))
	_ = r.AddOperation(postSession)

	// GET /api/session
	getSession, _ := r.NewOperationContext(http.MethodGet, "/api/session")
	getSession.SetSummary("Get game state")
	getSession.SetDescription("Returns the current snapshot. The correct answer is hidden until the question is answered.")
	getSession.AddSecurity(bearerAuth)
	getSession.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	getSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusNotFound))
	_ = r.AddOperation(getSession)

	// DELETE /api/session
	deleteSession, _ := r.NewOperationContext(http.MethodDelete, "/api/session")
	deleteSession.SetSummary("End session")
	deleteSession.SetDescription("Stops the session and disconnects its event streams.")
	deleteSession.AddSecurity(bearerAuth)
	deleteSession.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusNoContent))
	deleteSession.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(deleteSession)

	// POST /api/session/start
	postStart, _ := r.NewOperationContext(http.MethodPost, "/api/session/start")
	postStart.SetSummary("Start game")
	postStart.SetDescription("Starts a new game, abandoning the one in progress.")
	postStart.AddSecurity(bearerAuth)
	postStart.AddReqStructure(StartRequest{})
	postStart.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postStart.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postStart)

	// POST /api/session/choice
	postChoice, _ := r.NewOperationContext(http.MethodPost, "/api/session/choice")
	postChoice.SetSummary("Choose an emoji")
	postChoice.SetDescription("Answers the current question. Ignored while no question is open.")
	postChoice.AddSecurity(bearerAuth)
	postChoice.AddReqStructure(ChoiceRequest{})
	postChoice.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postChoice.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusBadRequest))
	postChoice.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postChoice)

	// POST /api/session/reset
	postReset, _ := r.NewOperationContext(http.MethodPost, "/api/session/reset")
	postReset.SetSummary("Back to home")
	postReset.SetDescription("Cancels timers and returns to the pre-game state.")
	postReset.AddSecurity(bearerAuth)
	postReset.AddRespStructure(ResetResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postReset.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postReset)

	// POST /api/session/ad-reward
	postReward, _ := r.NewOperationContext(http.MethodPost, "/api/session/ad-reward")
	postReward.SetSummary("Continue after rewarded ad")
	postReward.SetDescription("Accepts the continue offer: restores lives (and clock in timed mode) and resumes.")
	postReward.AddSecurity(bearerAuth)
	postReward.AddRespStructure(StateResponse{}, openapi.WithHTTPStatus(http.StatusOK))
	postReward.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusConflict))
	postReward.AddRespStructure(ErrorResponse{}, openapi.WithHTTPStatus(http.StatusUnauthorized))
	_ = r.AddOperation(postReward)

	// GET /api/session/events
	getEvents, _ := r.NewOperationContext(http.MethodGet, "/api/session/events")
	getEvents.SetSummary("SSE event stream")
	getEvents.SetDescription("Server-Sent Events: state, feedback and closed events. Pass the token as query parameter.")
	getEvents.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusOK),
		openapi.WithContentType("text/event-stream"))
	_ = r.AddOperation(getEvents)

	// GET /api/session/ws
	getWS, _ := r.NewOperationContext(http.MethodGet, "/api/session/ws")
	getWS.SetSummary("WebSocket")
	getWS.SetDescription("Pushes the same events as the SSE stream and accepts start, choice, reset and adReward commands.")
	getWS.AddRespStructure(nil, openapi.WithHTTPStatus(http.StatusSwitchingProtocols),
		openapi.WithContentType("text/plain"))
	_ = r.AddOperation(getWS)

	return r.Spec
}

func handleOpenAPI() http.HandlerFunc {
	spec := newOpenAPISpec()
	data, _ := json.MarshalIndent(spec, "", "  ")

	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write(data)
	}
}

func handleSwaggerUI() http.HandlerFunc {
	return v5emb.New("EmojiChain API", "/openapi.json", "/docs").ServeHTTP
}
