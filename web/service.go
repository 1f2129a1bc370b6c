package web

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/zeptools/pdf-joiner/svc"
)

type Service struct {
	Ctx             context.Context    // Service Context
	cancel          context.CancelFunc // Service Context CancelFunc
	state           int                // internal service state
	done            chan error         // Shutdown Error Channel
	Server          *http.Server
	ShutdownTimeout time.Duration // grace period for in-flight requests
	listener        net.Listener
}

// Ensure Service implements svc.Service
var _ svc.Service = (*Service)(nil)

func NewService(parentCtx context.Context, addr string, router http.Handler, shutdownTimeout time.Duration) *Service {
	svcCtx, svcCancel := context.WithCancel(parentCtx)
	return &Service{
		Ctx:    svcCtx,
		cancel: svcCancel,
		state:  svc.StateREADY,
		done:   make(chan error, 1),
		Server: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: 10 * time.Second,
			// uploads are large and slow, so no ReadTimeout / WriteTimeout
			BaseContext: func(net.Listener) context.Context { return svcCtx },
		},
		ShutdownTimeout: shutdownTimeout,
	}
}

func (s *Service) Name() string {
	return "WebService"
}

// Addr is the bound address once started
func (s *Service) Addr() string {
	if s.listener == nil {
		return s.Server.Addr
	}
	return s.listener.Addr().String()
}

// Start binds the listen address and serves in the background.
// Bootstrapping errors are returned immediately.
// Runtime errors are pushed into Done().
func (s *Service) Start() error {
	listener, err := net.Listen("tcp", s.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen(%q) failed: %w", s.Server.Addr, err)
	}
	s.listener = listener
	s.state = svc.StateRUNNING
	go s.run()
	return nil
}

// Stop stops accepting new requests. In-flight requests get
// ShutdownTimeout to finish.
func (s *Service) Stop() {
	s.cancel()
	s.state = svc.StateSTOPPED
}

func (s *Service) Done() <-chan error {
	return s.done
}

func (s *Service) run() {
	serveErr := make(chan error, 1)
	go func() {
		log.Printf("[INFO][WEB] listening on %s ...", s.listener.Addr())
		serveErr <- s.Server.Serve(s.listener)
	}()

	select {
	case err := <-serveErr:
		// server died on its own
		if !errors.Is(err, http.ErrServerClosed) {
			log.Printf("[ERROR][WEB] serve: %v", err)
			s.done <- err
			return
		}
		s.done <- nil
		return
	case <-s.Ctx.Done():
	}

	log.Printf("[INFO][WEB] shutting down ...")
	ctx, cancel := context.WithTimeout(context.Background(), s.ShutdownTimeout)
	defer cancel()
	// Shutdown stops accepting new requests immediately, in-flight requests get time to finish
	err := s.Server.Shutdown(ctx)
	if err != nil {
		log.Printf("[ERROR][WEB] shutdown: %v", err)
		_ = s.Server.Close()
	}
	<-serveErr
	log.Printf("[INFO][WEB] service stopped")
	s.done <- err
}
