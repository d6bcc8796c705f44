package api

import (
	"io/fs"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kdimtricp/moviesearch/web"
)

func NewRouter(app *App) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(app.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/", app.HomeHandler)
	r.Get("/ping", PingHandler)

	r.Post("/search", app.SearchHandler)
	r.Get("/results", app.ResultsHandler)
	r.Get("/results/page", app.PageHandler)
	r.Get("/results/more", app.LoadMoreHandler)

	r.Get("/movies/{id}", app.SelectMovieHandler)
	r.Delete("/movies/selected", app.CloseMovieHandler)

	r.Get("/api/session", app.SessionAPIHandler)
	r.Delete("/api/session", app.ResetSessionHandler)

	r.Delete("/history", app.ClearHistoryHandler)

	if app.Metrics != nil {
		r.Handle("/metrics", app.Metrics.Handler())
	}

	static, _ := fs.Sub(web.Static, "static")
	fileServer := http.FileServer(http.FS(static))
	r.Handle("/static/*", http.StripPrefix("/static", fileServer))

	return r
}
