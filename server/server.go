// Package server exposes an engine over a JSON HTTP API.
package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	logging "github.com/op/go-logging"

	"github.com/viert/slotstore/common"
	"github.com/viert/slotstore/config"
	"github.com/viert/slotstore/engine"
)

const shutdownTimeout = 5 * time.Second

// Server represents slotstore http server
type Server struct {
	bind   string
	engine *engine.Engine
}

var (
	log = logging.MustGetLogger("server")
)

// NewServer creates and configures a new Server instance
// on top of a given engine
func NewServer(eng *engine.Engine, cfg *config.ServerCfg) *Server {
	return &Server{
		bind:   cfg.Bind,
		engine: eng,
	}
}

// Handler returns the API router
func (s *Server) Handler() http.Handler {
	r := mux.NewRouter()
	r.HandleFunc("/api/v1/info", common.JSONResponse(s.appInfo)).Methods("GET")
	r.HandleFunc("/api/v1/data/get/{ids}", common.JSONResponse(s.getData)).Methods("GET")
	r.HandleFunc("/api/v1/data/append", common.JSONResponse(s.appendData)).Methods("POST")
	r.HandleFunc("/api/v1/data/delete/{ids}", common.JSONResponse(s.deleteData)).Methods("POST")
	return r
}

// Run listens on the configured address until ctx is done,
// then shuts the http server down gracefully
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.bind,
		Handler: s.Handler(),
	}

	errc := make(chan error, 1)
	go func() {
		log.Infof("server is starting at %s", s.bind)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	log.Info("server is shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	err := srv.Shutdown(sctx)
	if err != nil {
		return err
	}
	if err = <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
