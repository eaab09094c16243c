// Package pprof serves the runtime profiling endpoints on an optional
// debug listener.
package pprof

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	hpprof "net/http/pprof"
	"strings"
	"time"

	"forgewatch/pkg/logx"
)

// Config controls the optional pprof HTTP server.
//
// Security:
//   - Prefer binding to localhost (default).
//   - Binding to a non-loopback address requires a token.
type Config struct {
	Enabled bool
	Addr    string
	Token   string
}

type Service struct {
	cfg Config
	log logx.Logger
}

func New(cfg Config, log logx.Logger) *Service {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{cfg: cfg, log: log}
}

func (s *Service) Enabled() bool { return s.cfg.Enabled }

// Run serves until ctx is cancelled. A refused insecure bind is an error;
// the caller decides whether that is fatal.
func (s *Service) Run(ctx context.Context) error {
	if !s.cfg.Enabled {
		return nil
	}

	addr := strings.TrimSpace(s.cfg.Addr)
	if addr == "" {
		addr = "127.0.0.1:6060"
	}
	if s.cfg.Token == "" && !isLoopbackAddr(addr) {
		s.log.Error("pprof refused to start: non-loopback addr requires a token", logx.String("addr", addr))
		return errors.New("pprof refused to start: insecure bind")
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("pprof listen %s: %w", addr, err)
	}
	defer ln.Close()

	mux := http.NewServeMux()
	wrap := func(h http.HandlerFunc) http.HandlerFunc { return withAuth(s.cfg.Token, h) }

	mux.HandleFunc("/healthz", wrap(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	}))
	mux.HandleFunc("/debug/pprof/", wrap(hpprof.Index))
	mux.HandleFunc("/debug/pprof/cmdline", wrap(hpprof.Cmdline))
	mux.HandleFunc("/debug/pprof/profile", wrap(hpprof.Profile))
	mux.HandleFunc("/debug/pprof/symbol", wrap(hpprof.Symbol))
	mux.HandleFunc("/debug/pprof/trace", wrap(hpprof.Trace))

	srv := &http.Server{Handler: mux, ReadTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		cctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		_ = srv.Shutdown(cctx)
		cancel()
	}()

	s.log.Info("pprof started",
		logx.String("addr", ln.Addr().String()), logx.Bool("token_set", s.cfg.Token != ""))

	err = srv.Serve(ln)
	if ctx.Err() != nil || errors.Is(err, http.ErrServerClosed) {
		s.log.Info("pprof stopped")
		return nil
	}
	return err
}

func withAuth(token string, h http.HandlerFunc) http.HandlerFunc {
	tok := strings.TrimSpace(token)
	if tok == "" {
		return h
	}
	return func(w http.ResponseWriter, r *http.Request) {
		// Accept either Authorization: Bearer <token> or ?token=<token>.
		if got := r.URL.Query().Get("token"); got != "" {
			if got == tok {
				h(w, r)
				return
			}
			unauthorized(w)
			return
		}
		if ah := r.Header.Get("Authorization"); ah != "" {
			const p = "Bearer "
			if strings.HasPrefix(ah, p) && strings.TrimSpace(strings.TrimPrefix(ah, p)) == tok {
				h(w, r)
				return
			}
		}
		unauthorized(w)
	}
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("WWW-Authenticate", "Bearer")
	http.Error(w, "unauthorized", http.StatusUnauthorized)
}

func isLoopbackAddr(addr string) bool {
	h, _, err := net.SplitHostPort(addr)
	if err != nil {
		return false
	}
	h = strings.TrimSpace(h)
	if h == "" {
		// empty host means all interfaces
		return false
	}
	if strings.EqualFold(h, "localhost") {
		return true
	}
	ip := net.ParseIP(h)
	if ip == nil {
		return false
	}
	return ip.IsLoopback()
}
