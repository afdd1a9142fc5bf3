package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sifan077/ResourceHub/internal/app/model"
	"github.com/sifan077/ResourceHub/internal/infra/prometheus"
)

type instrumentedResourceRepository struct {
	next    ResourceRepository
	metrics *prometheus.Metrics
}

// NewInstrumentedResourceRepository records call counts and latency for next.
func NewInstrumentedResourceRepository(next ResourceRepository, metrics *prometheus.Metrics) ResourceRepository {
	return &instrumentedResourceRepository{next: next, metrics: metrics}
}

func (r *instrumentedResourceRepository) Put(ctx context.Context, resource *model.Resource) error {
	defer r.observe("put", time.Now())
	err := r.next.Put(ctx, resource)
	r.count("put", err)
	return err
}

func (r *instrumentedResourceRepository) Get(ctx context.Context, id, location string) (*model.Resource, error) {
	defer r.observe("get", time.Now())
	resource, err := r.next.Get(ctx, id, location)
	r.count("get", err)
	return resource, err
}

func (r *instrumentedResourceRepository) QueryByType(ctx context.Context, resourceType, locationPrefix string) ([]model.Resource, error) {
	defer r.observe("query", time.Now())
	result, err := r.next.QueryByType(ctx, resourceType, locationPrefix)
	r.count("query", err)
	return result, err
}

func (r *instrumentedResourceRepository) ScanByLocationPrefix(ctx context.Context, locationPrefix string) ([]model.Resource, error) {
	defer r.observe("scan", time.Now())
	result, err := r.next.ScanByLocationPrefix(ctx, locationPrefix)
	r.count("scan", err)
	return result, err
}

func (r *instrumentedResourceRepository) observe(op string, start time.Time) {
	r.metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
}

func (r *instrumentedResourceRepository) count(op string, err error) {
	outcome := "ok"
	switch {
	case errors.Is(err, ErrResourceNotFound):
		outcome = "not_found"
	case err != nil:
		outcome = "error"
	}
	r.metrics.StoreOperations.WithLabelValues(op, outcome).Inc()
}
