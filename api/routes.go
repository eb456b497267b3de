package api

import (
	"github.com/alepiz/counterprocessor/api/middleware"
	"github.com/alepiz/counterprocessor/schema/msg"
	"github.com/go-macaron/binding"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/raintank/gziper"
	"gopkg.in/macaron.v1"
)

func (s *Server) RegisterRoutes() {
	r := s.Macaron
	if useGzip {
		r.Use(gziper.Gziper())
	}
	r.Use(middleware.RequestStats())
	r.Use(middleware.Tracer(s.Tracer))
	r.Use(macaron.Renderer())
	if len(corsOrigins) > 0 {
		r.Use(middleware.CorsHandler(corsOrigins))
	}

	bind := binding.Bind

	r.Get("/", s.appStatus)
	r.Get("/workers", s.workers)
	r.Get("/functions", s.functions)
	r.Get("/functions/:name", s.function)
	r.Post("/explain", bind(msg.ResolveRequest{}), s.explain)
	if s.Registry != nil {
		r.Get("/metrics", promhttp.HandlerFor(s.Registry, promhttp.HandlerOpts{}))
	}
}
