package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/GZTimeWalker/berry-pasty/cfg"
	"github.com/GZTimeWalker/berry-pasty/metrics"
	"github.com/GZTimeWalker/berry-pasty/svc/db"
	"github.com/GZTimeWalker/berry-pasty/svc/lim"
	"github.com/GZTimeWalker/berry-pasty/svc/svc"
	"github.com/GZTimeWalker/berry-pasty/svc/util"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/hlog"
)

type Server struct {
	router     *chi.Mux
	pasty      *svc.Pasty
	lim        *lim.Limiter
	cfg        *cfg.Cfg
	kv         *db.KV
	httpServer *http.Server
}

func NewServer(c *cfg.Cfg, p *svc.Pasty, l *lim.Limiter, kv *db.KV) *Server {
	r := chi.NewRouter()
	mw := NewMw(l, c)
	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		s := &Server{kv: kv, cfg: c}
		r.Get("/health", s.Health)
		r.Get("/ready", s.Ready)
	})
	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Handle("/metrics", mw.BasicAuthMetrics(promhttp.Handler()))
	})
	r.Mount("/debug", middleware.Profiler())

	r.Group(func(r chi.Router) {
		r.Use(mw.Recoverer)
		r.Use(mw.RequestID)
		r.Use(hlog.NewHandler(util.GetLogger()))
		r.Use(hlog.AccessHandler(func(req *http.Request, status, size int, dur time.Duration) {
			metrics.RequestDuration.WithLabelValues(req.Method, strconv.Itoa(status)).Observe(dur.Seconds())
			hlog.FromRequest(req).Info().
				Str("method", req.Method).
				Str("url", req.URL.String()).
				Int("status", status).
				Int("size", size).
				Dur("duration", dur).
				Str("request_id", util.GetRequestID(req.Context())).
				Msg("http request")
		}))
		if len(c.TrustedProxies) > 0 {
			r.Use(middleware.RealIP)
		}
		r.Use(mw.ContextTimeout)
		r.Use(mw.SecurityHeaders)
		r.Use(mw.CORS)
		r.Use(mw.AnomalyDetection)
		hdl := &Hdl{pasty: p, cfg: c}
		r.Get("/", hdl.Index)
		r.With(mw.RateLimitWrite, mw.RequireAccess).Post("/", hdl.CreateRandom)
		r.With(mw.RateLimitRead, mw.RequireAccess).Get("/all", hdl.ListAll)
		r.With(mw.RateLimitRead).Get("/{id}", hdl.GetPasty)
		r.With(mw.RateLimitRead).Get("/{id}/stats", hdl.GetStats)
		r.With(mw.RateLimitWrite, mw.RequireAccess).Post("/{id}", hdl.CreateOrUpdate)
		r.With(mw.RateLimitWrite, mw.RequireAccess).Delete("/{id}", hdl.DeletePasty)
		r.NotFound(hdl.NotFound)
	})
	s := &Server{
		router: r,
		pasty:  p,
		lim:    l,
		cfg:    c,
		kv:     kv,
		httpServer: &http.Server{
			Addr:           ":" + c.Port,
			Handler:        r,
			ReadTimeout:    15 * time.Second,
			WriteTimeout:   15 * time.Second,
			IdleTimeout:    60 * time.Second,
			MaxHeaderBytes: 256 * 1024,
		},
	}
	return s
}
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
func (s *Server) SetTimeouts(read, write, idle time.Duration) {
	s.httpServer.ReadTimeout = read
	s.httpServer.WriteTimeout = write
	s.httpServer.IdleTimeout = idle
}
func (s *Server) Start() error {
	util.Info().Str("port", s.cfg.Port).Msg("starting server")
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		util.Error().Err(err).Str("port", s.cfg.Port).Msg("server failed to start")
		return err
	}
	return nil
}
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}
	return nil
}
