package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/samvad-hq/retrofit-go/internal/config"
	"github.com/samvad-hq/retrofit-go/internal/storage"
	"github.com/samvad-hq/retrofit-go/pkg/converters"
	"github.com/samvad-hq/retrofit-go/pkg/endpoints"
	"github.com/samvad-hq/retrofit-go/pkg/httpclient"
	"github.com/samvad-hq/retrofit-go/pkg/interceptors"
	"github.com/samvad-hq/retrofit-go/pkg/publishers"
	"github.com/samvad-hq/retrofit-go/pkg/retrofit"
)

// Runtime owns a configured Service together with the resources its
// interceptors hold (response cache, audit sinks, metrics registry).
type Runtime struct {
	cfg       *config.Config
	service   *retrofit.Service
	endpoints *endpoints.Registry
	store     storage.Store
	fanout    *publishers.Fanout
	metrics   *prometheus.Registry
	log       retrofit.Logger
}

// Option tweaks runtime construction.
type Option func(*options)

type options struct {
	transport httpclient.Client
	registry  publishers.Registry
}

// WithTransport replaces the default resty transport.
func WithTransport(t httpclient.Client) Option {
	return func(o *options) { o.transport = t }
}

// WithPublisherRegistry overrides the builders used for publishers_file entries.
func WithPublisherRegistry(reg publishers.Registry) Option {
	return func(o *options) { o.registry = reg }
}

// NewRuntime builds the interceptor chain described by cfg. Interceptors run
// in this order: default headers, logging, metrics, rate limit, cache, audit.
func NewRuntime(ctx context.Context, cfg *config.Config, log retrofit.Logger, opts ...Option) (rt *Runtime, err error) {
	if cfg == nil {
		return nil, fmt.Errorf("config must not be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log = retrofit.EnsureLogger(log)

	o := options{registry: publishers.DefaultRegistry()}
	for _, opt := range opts {
		opt(&o)
	}

	rt = &Runtime{cfg: cfg, log: log}
	defer func() {
		if err != nil {
			_ = rt.Close()
			rt = nil
		}
	}()

	if cfg.EndpointsFile != "" {
		reg, err := endpoints.LoadRegistry(cfg.EndpointsFile)
		if err != nil {
			return nil, fmt.Errorf("load endpoints registry: %w", err)
		}
		rt.endpoints = reg
		log.InfoObj("endpoints registry loaded", "endpoints_meta", map[string]any{
			"count": len(reg.All()),
			"names": reg.Names(),
		})
	}

	builder := retrofit.NewClientBuilder().
		AddTimeout(cfg.Timeout).
		AddLogger(log).
		AddTransport(o.transport).
		AddInterceptor(interceptors.NewHeaderInterceptor(cfg.DefaultHeaders)).
		AddInterceptor(interceptors.NewLoggingInterceptor(log))

	if cfg.MetricsEnabled {
		rt.metrics = prometheus.NewRegistry()
		m, err := interceptors.NewMetrics(rt.metrics)
		if err != nil {
			return nil, fmt.Errorf("register metrics: %w", err)
		}
		builder.AddInterceptor(interceptors.NewMetricsInterceptor(m))
	}

	if cfg.RateLimitRPS > 0 {
		builder.AddInterceptor(interceptors.NewRateLimitInterceptor(cfg.RateLimitRPS, cfg.RateLimitBurst))
	}

	if storage.Enabled(cfg.StorageType) {
		store, err := storage.NewStore(cfg.StorageType, cfg.BBoltPath, storage.Options{
			EntryTTL:        cfg.CacheTTL,
			CleanupInterval: cfg.CacheCleanupInterval,
		})
		if err != nil {
			return nil, fmt.Errorf("init storage: %w", err)
		}
		rt.store = store
		builder.AddInterceptor(interceptors.NewCacheInterceptor(store, log))
		log.InfoObj("response cache initialized", "storage_config", map[string]any{
			"type":                     cfg.StorageType,
			"path":                     cfg.BBoltPath,
			"entry_ttl_seconds":        int(cfg.CacheTTL.Seconds()),
			"cleanup_interval_seconds": int(cfg.CacheCleanupInterval.Seconds()),
		})
	}

	if cfg.PublishersFile != "" {
		fanout, err := buildFanout(ctx, cfg.PublishersFile, o.registry, log)
		if err != nil {
			return nil, err
		}
		rt.fanout = fanout
		if fanout.Size() > 0 {
			builder.AddInterceptor(interceptors.NewAuditInterceptor(fanout, log))
		}
	}

	client, err := builder.Build()
	if err != nil {
		return nil, fmt.Errorf("build client: %w", err)
	}
	svc, err := retrofit.NewServiceBuilder().AddBaseURL(cfg.BaseURL).AddClient(client).Build()
	if err != nil {
		return nil, fmt.Errorf("build service: %w", err)
	}
	rt.service = svc
	return rt, nil
}

func buildFanout(ctx context.Context, path string, reg publishers.Registry, log retrofit.Logger) (*publishers.Fanout, error) {
	publisherReg, err := publishers.LoadRegistry(path)
	if err != nil {
		return nil, fmt.Errorf("load publishers registry: %w", err)
	}

	enabled := publisherReg.Enabled()
	clients, err := publishers.BuildAll(ctx, reg, enabled, log)
	if err != nil {
		return nil, fmt.Errorf("build publishers: %w", err)
	}

	summaries := make([]map[string]string, 0, len(enabled))
	for _, pubCfg := range enabled {
		summaries = append(summaries, map[string]string{
			"id":   pubCfg.ID,
			"type": pubCfg.Type,
		})
	}
	log.InfoObj("publishers registry loaded", "publishers_meta", map[string]any{
		"count":      len(summaries),
		"publishers": summaries,
	})
	return publishers.NewFanout(clients), nil
}

func (r *Runtime) Service() *retrofit.Service     { return r.service }
func (r *Runtime) Endpoints() *endpoints.Registry { return r.endpoints }

// Metrics returns the metrics registry, or nil when metrics are disabled.
func (r *Runtime) Metrics() prometheus.Gatherer {
	if r.metrics == nil {
		return nil
	}
	return r.metrics
}

// Result is the outcome of invoking a declared endpoint.
type Result struct {
	Endpoint string
	Response *retrofit.Response
	// Data is the body decoded with the endpoint's converter; nil for an
	// empty body or a non-2xx response.
	Data any
}

// Invoke binds args to the named endpoint, calls it and decodes the body.
func (r *Runtime) Invoke(ctx context.Context, name string, args map[string]string) (*Result, error) {
	if r.endpoints == nil {
		return nil, errors.New("no endpoints registry loaded")
	}
	ep, ok := r.endpoints.ByName(name)
	if !ok {
		return nil, fmt.Errorf("unknown endpoint %q", name)
	}
	dec, err := converters.Dynamic(ep.Converter)
	if err != nil {
		return nil, fmt.Errorf("endpoint %q: %w", ep.Name, err)
	}
	mb, err := ep.Bind(r.service, args)
	if err != nil {
		return nil, err
	}

	resp, err := r.service.Call(ctx, mb)
	if err != nil {
		return nil, err
	}
	res := &Result{Endpoint: ep.Name, Response: resp}
	if resp.Body == "" || !resp.IsSuccess() {
		return res, nil
	}
	typed, err := retrofit.Decode(resp, dec)
	if err != nil {
		return res, fmt.Errorf("endpoint %q: %w", ep.Name, err)
	}
	res.Data = typed.Data
	return res, nil
}

// PurgeCache empties the response cache. It fails when caching is disabled.
func (r *Runtime) PurgeCache() (int, error) {
	if r.store == nil {
		return 0, errors.New("response cache is disabled (storage_type is none)")
	}
	n, err := r.store.Purge()
	if err != nil {
		return n, fmt.Errorf("purge cache: %w", err)
	}
	r.log.InfoObj("response cache purged", "cache_purge", map[string]any{"removed": n})
	return n, nil
}

// Close releases the cache store and audit sinks.
func (r *Runtime) Close() error {
	if r == nil {
		return nil
	}
	var errs []error
	if r.store != nil {
		if err := r.store.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close storage: %w", err))
		}
	}
	if err := r.fanout.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close publishers: %w", err))
	}
	return errors.Join(errs...)
}
