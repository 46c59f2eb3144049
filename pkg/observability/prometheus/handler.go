package prometheus

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/valyala/fasthttp"
	"github.com/valyala/fasthttp/fasthttpadaptor"
)

// FastHTTPHandler serves the metrics in gatherer (DefaultRegistry when nil) in
// the Prometheus exposition format
func FastHTTPHandler(gatherer prometheus.Gatherer) fasthttp.RequestHandler {
	if gatherer == nil {
		gatherer = DefaultRegistry
	}
	return fasthttpadaptor.NewFastHTTPHandler(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))
}

// NewServer returns a fasthttp server that exposes metrics on path and
// answers 404 elsewhere
func NewServer(path string, gatherer prometheus.Gatherer) *fasthttp.Server {
	if path == "" {
		path = "/metrics"
	}
	metricsHandler := FastHTTPHandler(gatherer)

	return &fasthttp.Server{
		Name: "workpool-metrics",
		Handler: func(ctx *fasthttp.RequestCtx) {
			if string(ctx.Path()) != path {
				ctx.Error("not found", fasthttp.StatusNotFound)
				return
			}
			metricsHandler(ctx)
		},
	}
}
