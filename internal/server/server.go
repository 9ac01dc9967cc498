package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/Vasiliy82/ArchiScoper/retailer-checkout/pkg/tracing"
)

type Server struct {
	httpServer *http.Server
}

// New создает HTTP-сервер. Входящие запросы получают спан с извлеченным контекстом трассировки.
func New(addr string, handler http.Handler) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              addr,
		Handler:           tracing.WrapHTTPHandler(handler),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// Start блокируется до остановки сервера
func (s *Server) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown корректно завершает работу сервера
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
