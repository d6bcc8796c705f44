package api

import (
	"context"
	"encoding/json"
	"html/template"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kdimtricp/moviesearch/internal/database"
	"github.com/kdimtricp/moviesearch/internal/logger"
	"github.com/kdimtricp/moviesearch/internal/metrics"
	"github.com/kdimtricp/moviesearch/internal/session"
)

const (
	sessionCookie = "moviesearch_session"
	recentLimit   = 8
)

// ImageResolver turns catalog image paths into URLs.
type ImageResolver interface {
	PosterURL(path string) string
	BackdropURL(path string) string
}

// SearchHistory lists and clears recent searches for the search page.
type SearchHistory interface {
	Recent(ctx context.Context, limit int) ([]database.RecentSearch, error)
	Clear(ctx context.Context) error
}

type App struct {
	Sessions   *session.Store
	History    SearchHistory
	Images     ImageResolver
	Templates  *template.Template
	Logger     logger.Logger
	Metrics    *metrics.Metrics
	RenderWait time.Duration
}

func PingHandler(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("pong"))
}

func (app *App) HomeHandler(w http.ResponseWriter, r *http.Request) {
	ctl := app.sessionFor(w, r)

	var recent []database.RecentSearch
	if app.History != nil {
		var err error
		recent, err = app.History.Recent(r.Context(), recentLimit)
		if err != nil {
			logger.FromContext(r.Context()).Warn("Failed to load recent searches", logger.Error(err))
		}
	}

	snapshot := ctl.Snapshot()
	data := struct {
		Title   string
		Recent  []database.RecentSearch
		Results resultsView
	}{
		Title:   "Movie Search",
		Recent:  recent,
		Results: app.newResultsView(snapshot, ctl.TakeNotices()),
	}

	app.render(w, r, "index", data)
}

// SearchHandler handles onSubmit(query).
func (app *App) SearchHandler(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, "Invalid form", http.StatusBadRequest)
		return
	}

	ctl := app.sessionFor(w, r)
	ctl.Submit(r.FormValue("query"))
	app.renderResults(w, r, ctl)
}

func (app *App) ResultsHandler(w http.ResponseWriter, r *http.Request) {
	app.renderResults(w, r, app.sessionFor(w, r))
}

// PageHandler handles onPageChange(zeroBasedIndex).
func (app *App) PageHandler(w http.ResponseWriter, r *http.Request) {
	index, err := strconv.Atoi(r.URL.Query().Get("index"))
	if err != nil || index < 0 {
		http.Error(w, "Invalid page index", http.StatusBadRequest)
		return
	}

	ctl := app.sessionFor(w, r)
	ctl.RequestPage(index + 1)
	app.renderResults(w, r, ctl)
}

// LoadMoreHandler handles the proximity signal from the scroll sentinel.
func (app *App) LoadMoreHandler(w http.ResponseWriter, r *http.Request) {
	ctl := app.sessionFor(w, r)
	ctl.LoadMore()
	app.renderResults(w, r, ctl)
}

// SelectMovieHandler handles onSelect(movie).
func (app *App) SelectMovieHandler(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		http.NotFound(w, r)
		return
	}

	ctl := app.sessionFor(w, r)
	if !ctl.Select(id) {
		http.NotFound(w, r)
		return
	}

	selected := ctl.Snapshot().Selected
	if selected == nil {
		http.NotFound(w, r)
		return
	}

	app.render(w, r, "modal", modalView{
		Movie:       *selected,
		BackdropURL: app.Images.BackdropURL(selected.BackdropPath),
	})
}

// CloseMovieHandler handles onClose().
func (app *App) CloseMovieHandler(w http.ResponseWriter, r *http.Request) {
	app.sessionFor(w, r).ClearSelection()
	w.WriteHeader(http.StatusOK)
}

func (app *App) SessionAPIHandler(w http.ResponseWriter, r *http.Request) {
	snapshot := app.sessionFor(w, r).Snapshot()

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		logger.FromContext(r.Context()).Error("Failed to encode session", logger.Error(err))
	}
}

// ResetSessionHandler drops the browser's session so the next request starts fresh.
func (app *App) ResetSessionHandler(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(sessionCookie); err == nil {
		if _, ok := app.Sessions.Get(c.Value); ok {
			app.Sessions.Delete(c.Value)
		}
	}

	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusNoContent)
}

// ClearHistoryHandler empties the recent searches list.
func (app *App) ClearHistoryHandler(w http.ResponseWriter, r *http.Request) {
	if app.History == nil {
		w.WriteHeader(http.StatusOK)
		return
	}

	if err := app.History.Clear(r.Context()); err != nil {
		logger.FromContext(r.Context()).Error("Failed to clear search history", logger.Error(err))
		http.Error(w, "Failed to clear search history", http.StatusInternalServerError)
		return
	}
	w.WriteHeader(http.StatusOK)
}

func (app *App) renderResults(w http.ResponseWriter, r *http.Request, ctl *session.Controller) {
	ctx, cancel := context.WithTimeout(r.Context(), app.RenderWait)
	defer cancel()

	// A timeout just means the loader is rendered and the client polls.
	snapshot, _ := ctl.Wait(ctx)
	notices := ctl.TakeNotices()

	if len(notices) > 0 {
		w.Header().Set("HX-Trigger", "noMoviesFound")
	}

	app.render(w, r, "results", app.newResultsView(snapshot, notices))
}

func (app *App) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := app.Templates.ExecuteTemplate(w, name, data); err != nil {
		logger.FromContext(r.Context()).Error("Error rendering template",
			logger.String("template", name),
			logger.Error(err),
		)
		http.Error(w, "Error rendering template", http.StatusInternalServerError)
	}
}

func (app *App) sessionFor(w http.ResponseWriter, r *http.Request) *session.Controller {
	var current string
	if c, err := r.Cookie(sessionCookie); err == nil {
		current = c.Value
	}

	id, ctl := app.Sessions.GetOrCreate(current)
	if id != current {
		http.SetCookie(w, &http.Cookie{
			Name:     sessionCookie,
			Value:    id,
			Path:     "/",
			HttpOnly: true,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return ctl
}
