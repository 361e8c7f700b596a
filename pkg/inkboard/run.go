package inkboard

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// Routes builds the HTTP router. Exposed separately from Run so tests can
// mount it on an httptest server.
func (a *App) Routes() http.Handler {
	router := mux.NewRouter()

	api := router.PathPrefix("/api").Subrouter()

	// Health check
	api.HandleFunc("/health", a.handleHealth).Methods("GET")

	// Board routes
	api.HandleFunc("/boards", a.handleCreateBoard).Methods("POST")
	api.HandleFunc("/boards/{id}", a.handleGetBoard).Methods("GET")

	// Item routes
	api.HandleFunc("/boards/{id}/items", a.handleListItems).Methods("GET")
	api.HandleFunc("/boards/{id}/items", a.handleCreateItem).Methods("POST")
	api.HandleFunc("/boards/{id}/items/batch", a.handleBatchUpdateItems).Methods("PUT")
	api.HandleFunc("/items/{id}", a.handleUpdateItem).Methods("PUT")
	api.HandleFunc("/items/{id}", a.handleDeleteItem).Methods("DELETE")

	// Revision routes
	api.HandleFunc("/boards/{id}/revisions", a.handleListRevisions).Methods("GET")
	api.HandleFunc("/boards/{id}/revisions", a.handleCreateRevision).Methods("POST")
	api.HandleFunc("/boards/{id}/revisions/{version}/restore", a.handleRestoreRevision).Methods("POST")

	// Health check route (outside of /api prefix)
	router.HandleFunc("/health", a.handleHealth).Methods("GET")

	return router
}

// Run serves the API on the configured address until ctx is cancelled or
// the listener fails. On cancellation it gives in-flight requests up to
// 5 seconds to finish.
func (a *App) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:    a.config.ListenAddr,
		Handler: a.Routes(),
	}

	a.log.Info().Str("addr", a.config.ListenAddr).Msg("starting inkboard server")

	serverErr := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	select {
	case <-ctx.Done():
		a.log.Info().Msg("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	case err := <-serverErr:
		return err
	}
}
