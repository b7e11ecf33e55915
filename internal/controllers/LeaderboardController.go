package controllers

import (
	"errors"
	"net/http"
	"rankview/internal/leaderboard"
	"rankview/internal/models"
	"rankview/internal/providers"
	"rankview/internal/services"

	"github.com/go-chi/chi/v5"
	json "github.com/goccy/go-json"
)

const KindParam = "kind"

type LeaderboardController struct {
	logger  providers.Logger
	service services.LeaderboardServiceInterface
}

type errorResponse struct {
	Error     string `json:"error"`
	Retryable bool   `json:"retryable"`
}

func NewLeaderboardController(logger providers.Logger, service services.LeaderboardServiceInterface) *LeaderboardController {
	return &LeaderboardController{
		logger:  logger,
		service: service,
	}
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	gson, err := json.Marshal(payload)
	if err != nil {
		http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(gson)
}

// upstreamFailure answers 502 for anything that went wrong behind us; the
// client keeps its state and may retry with the same parameters.
func (lc *LeaderboardController) upstreamFailure(w http.ResponseWriter, r *http.Request, err error) {
	msg := "ranking service unavailable"
	var upstreamErr *services.UpstreamError
	if errors.As(err, &upstreamErr) {
		msg = upstreamErr.Error()
	}
	lc.logger.Errorf(providers.GetLogTypeByRequestType(r.Method), "%s %s: %s", r.Method, r.URL.RequestURI(), err)
	writeJSON(w, http.StatusBadGateway, errorResponse{Error: msg, Retryable: true})
}

func kindFromPath(r *http.Request) (models.Kind, bool) {
	return models.ParseKind(chi.URLParam(r, KindParam))
}

func (lc *LeaderboardController) GetLeaderboard(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(r)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	period, page := leaderboard.ParseQuery(r.URL.RawQuery)
	state := models.PageState{Kind: kind, Period: period, Page: page}

	view, err := lc.service.BuildView(r.Context(), state, r.Header.Get("Authorization"))
	if err != nil {
		lc.upstreamFailure(w, r, err)
		return
	}

	view.Query = leaderboard.EncodeQuery(r.URL.RawQuery, view.State())
	w.Header().Set("Content-Location", r.URL.Path+"?"+view.Query)
	writeJSON(w, http.StatusOK, view)
}

func (lc *LeaderboardController) GetSelfRank(w http.ResponseWriter, r *http.Request) {
	kind, ok := kindFromPath(r)
	if !ok {
		http.Error(w, "Not Found", http.StatusNotFound)
		return
	}
	period, _ := leaderboard.ParseQuery(r.URL.RawQuery)

	record, err := lc.service.FetchSelfRank(r.Context(), kind, period, r.Header.Get("Authorization"))
	if err != nil {
		lc.upstreamFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, record)
}
