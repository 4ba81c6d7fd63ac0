package kit

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
)

type ServerTimeouts struct {
	ReadHeader time.Duration
	Shutdown   time.Duration
}

var DefaultServerTimeouts = ServerTimeouts{
	ReadHeader: 5 * time.Second,
	Shutdown:   10 * time.Second,
}

func RunHTTPServer(addr string, h http.Handler, log *zap.Logger, t ServerTimeouts) error {
	if t.ReadHeader <= 0 {
		t.ReadHeader = DefaultServerTimeouts.ReadHeader
	}
	if t.Shutdown <= 0 {
		t.Shutdown = DefaultServerTimeouts.Shutdown
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           h,
		ReadHeaderTimeout: t.ReadHeader,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server starting", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case sig := <-stop:
		log.Info("shutdown signal", zap.String("signal", sig.String()))
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), t.Shutdown)
	defer cancel()
	return srv.Shutdown(ctx)
}
