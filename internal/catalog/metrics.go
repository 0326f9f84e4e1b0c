package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	resultOK        = "ok"
	resultInvalid   = "invalid"
	resultDuplicate = "duplicate"
	resultNotFound  = "not_found"
	resultError     = "error"
)

type storeMetrics struct {
	ops     *prometheus.CounterVec
	latency *prometheus.HistogramVec
}

// instrumented counts and times every call of the wrapped Store.
type instrumented struct {
	next Store
	m    *storeMetrics
}

// Instrument registers product store metrics on reg and returns a Store
// recording them around next.
func Instrument(next Store, reg prometheus.Registerer) Store {
	m := &storeMetrics{
		ops: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "product_store_operations_total",
				Help: "Product store operations by result",
			},
			[]string{"op", "result"},
		),
		latency: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name: "product_store_operation_duration_seconds",
				Help: "Product store operation latency",
			},
			[]string{"op"},
		),
	}
	reg.MustRegister(m.ops, m.latency)

	return &instrumented{next: next, m: m}
}

func (s *instrumented) observe(op string, start time.Time, err error) {
	s.m.latency.WithLabelValues(op).Observe(time.Since(start).Seconds())
	s.m.ops.WithLabelValues(op, resultOf(err)).Inc()
}

func resultOf(err error) string {
	switch {
	case err == nil:
		return resultOK
	case errors.Is(err, ErrInvalidProduct):
		return resultInvalid
	case errors.Is(err, ErrDuplicateCode):
		return resultDuplicate
	case errors.Is(err, ErrNotFound):
		return resultNotFound
	default:
		return resultError
	}
}

func (s *instrumented) Ping(ctx context.Context) error {
	return s.next.Ping(ctx)
}

func (s *instrumented) List(ctx context.Context) ([]Product, error) {
	start := time.Now()
	out, err := s.next.List(ctx)
	s.observe("list", start, err)
	return out, err
}

func (s *instrumented) Get(ctx context.Context, id int64) (Product, error) {
	start := time.Now()
	p, err := s.next.Get(ctx, id)
	s.observe("get", start, err)
	return p, err
}

func (s *instrumented) Create(ctx context.Context, in NewProduct) (Product, error) {
	start := time.Now()
	p, err := s.next.Create(ctx, in)
	s.observe("create", start, err)
	return p, err
}

func (s *instrumented) Update(ctx context.Context, id int64, patch Patch) (Product, error) {
	start := time.Now()
	p, err := s.next.Update(ctx, id, patch)
	s.observe("update", start, err)
	return p, err
}

func (s *instrumented) Delete(ctx context.Context, id int64) error {
	start := time.Now()
	err := s.next.Delete(ctx, id)
	s.observe("delete", start, err)
	return err
}
