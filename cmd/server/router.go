package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/athorsen/bestiary-api/internal/api"
	apiMiddleware "github.com/athorsen/bestiary-api/internal/api/middleware"
)

// setupRouter configures the application router with all routes and
// middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	creatureHandler := api.NewCreatureHandler(app.creatureStore)
	importHandler := api.NewImportHandler(app.orchestrator, app.taskStore)

	r.Route("/api", func(r chi.Router) {
		r.Route("/creatures", func(r chi.Router) {
			r.Get("/", creatureHandler.ListCreatures)
			r.Post("/", creatureHandler.CreateCreature)
			r.Get("/summary", creatureHandler.GetSummary)
			r.Get("/name/{name}", creatureHandler.GetCreatureByName)
			r.Get("/{id}", creatureHandler.GetCreature)
			r.Put("/{id}", creatureHandler.UpdateCreature)
			r.Delete("/{id}", creatureHandler.DeleteCreature)
		})

		r.Route("/import", func(r chi.Router) {
			r.Post("/start", importHandler.StartImport)
			r.Get("/tasks", importHandler.ListTasks)
			r.Get("/tasks/{taskID}", importHandler.GetTask)
			r.Post("/tasks/{taskID}/cancel", importHandler.CancelTask)
		})
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	return r
}
