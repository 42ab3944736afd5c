package app

import (
	"context"
	"errors"
	"net/http"

	"idsearch/internal/platform/httpserver"
)

// Serve runs the HTTP server and the cache sweeper until ctx is cancelled,
// then shuts both down within the configured shutdown timeout.
func (a *App) Serve(ctx context.Context) error {
	srv := httpserver.New(a.Config.Server.Addr, a.Router, a.Config.Search.Deadline)

	if a.Sweeper != nil {
		a.Sweeper.Start()
	}

	errCh := make(chan error, 1)
	go func() {
		a.Logger.Info("starting idsearch", "addr", a.Config.Server.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()
	a.Logger.Info("shutting down idsearch")
	shutdownErr := srv.Shutdown(shutdownCtx)
	return errors.Join(shutdownErr, a.Close(shutdownCtx))
}
