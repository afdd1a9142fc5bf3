package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sifan077/ResourceHub/internal/app/model"
	"github.com/sifan077/ResourceHub/internal/app/repository"
	"github.com/sifan077/ResourceHub/internal/app/secret"
	"github.com/sifan077/ResourceHub/internal/infra/perplexity"
	"github.com/sifan077/ResourceHub/internal/infra/prometheus"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const systemPrompt = "You are a helpful assistant that finds local support resources. " +
	"Always format results as a valid JSON array of objects with fields: " +
	"name, address, phoneNumber, hours, website, and description. " +
	"Each object should represent one resource."

// Enricher grows the directory from an external AI search.
//
// Enrich saves each candidate independently. A failed write is skipped and the
// request continues, so the result may hold fewer records than the reply had,
// or none when the reply had no usable candidates. It is not a zero-record
// success when candidates existed but every write failed: that case returns an
// UpstreamError. One failed write never fails the whole request.
type Enricher interface {
	Enrich(ctx context.Context, resourceType, location string) ([]model.Resource, error)
}

// EnricherConfig tunes the enricher.
type EnricherConfig struct {
	// SecretName is the credential looked up for the completion API.
	SecretName       string
	TTLDays          int
	WriteConcurrency int
}

type enricher struct {
	repo      repository.ResourceRepository
	secrets   secret.Provider
	completer perplexity.Completer
	publisher ResourcePublisher
	metrics   *prometheus.Metrics
	logger    *zap.Logger
	cfg       EnricherConfig
	now       func() time.Time
}

// NewEnricher wires the enricher. publisher and metrics may be nil.
func NewEnricher(
	repo repository.ResourceRepository,
	secrets secret.Provider,
	completer perplexity.Completer,
	publisher ResourcePublisher,
	metrics *prometheus.Metrics,
	logger *zap.Logger,
	cfg EnricherConfig,
) Enricher {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if cfg.TTLDays <= 0 {
		cfg.TTLDays = 30
	}
	if cfg.WriteConcurrency <= 0 {
		cfg.WriteConcurrency = 1
	}
	return &enricher{
		repo:      repo,
		secrets:   secrets,
		completer: completer,
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		cfg:       cfg,
		now:       time.Now,
	}
}

func (e *enricher) Enrich(ctx context.Context, resourceType, location string) ([]model.Resource, error) {
	if missing := missingFields(map[string]string{
		"type":     resourceType,
		"location": location,
	}, "type", "location"); len(missing) > 0 {
		return nil, &ValidationError{Message: "both type and location are required", Fields: missing}
	}

	apiKey, err := e.secrets.Secret(ctx, e.cfg.SecretName)
	if err != nil {
		return nil, upstream("failed to load search credentials", err)
	}

	text, err := e.completer.Complete(ctx, apiKey, []perplexity.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt(resourceType, location)},
	})
	if err != nil {
		return nil, upstream("failed to search for external resources", err)
	}

	candidates := extractCandidates(text)
	e.logger.Info("external search completed",
		zap.String("type", resourceType),
		zap.String("location", location),
		zap.Int("candidates", len(candidates)),
	)

	now := e.now().UTC()
	records := make([]*model.Resource, 0, len(candidates))
	for _, c := range candidates {
		name := field(c, "name")
		if name == "" {
			continue
		}
		records = append(records, &model.Resource{
			ID:          model.NewResourceID(now),
			Type:        resourceType,
			Location:    location,
			Name:        name,
			Description: field(c, "description"),
			Address:     field(c, "address"),
			PhoneNumber: firstField(c, "phone", "phoneNumber"),
			Website:     field(c, "website"),
			Hours:       field(c, "hours"),
			Source:      model.SourceExternalSearch,
			CreatedAt:   now,
			UpdatedAt:   now,
			ExpiresAt:   model.ExpiryAfter(now, e.cfg.TTLDays),
		})
	}

	return e.save(ctx, records)
}

// save writes records independently, in order when WriteConcurrency is 1. A
// failed write is skipped; only a batch where every write fails is an error.
func (e *enricher) save(ctx context.Context, records []*model.Resource) ([]model.Resource, error) {
	errs := make([]error, len(records))

	var g errgroup.Group
	g.SetLimit(e.cfg.WriteConcurrency)
	for i, r := range records {
		g.Go(func() error {
			if err := e.repo.Put(ctx, r); err != nil {
				errs[i] = err
				e.record("failed")
				e.logger.Error("failed to save external resource",
					zap.String("id", r.ID),
					zap.String("name", r.Name),
					zap.Error(err),
				)
				return nil
			}
			e.record("saved")
			if err := e.publisher.PublishCreated(ctx, *r); err != nil {
				e.logger.Warn("failed to publish resource event", zap.String("id", r.ID), zap.Error(err))
			}
			return nil
		})
	}
	_ = g.Wait()

	result := make([]model.Resource, 0, len(records))
	var lastErr error
	for i, r := range records {
		if errs[i] != nil {
			lastErr = errs[i]
			continue
		}
		result = append(result, *r)
	}

	if len(records) > 0 && len(result) == 0 {
		return nil, upstream("failed to save external resources", lastErr)
	}
	return result, nil
}

func (e *enricher) record(outcome string) {
	if e.metrics != nil {
		e.metrics.EnrichedResources.WithLabelValues(outcome).Inc()
	}
}

func userPrompt(resourceType, location string) string {
	return fmt.Sprintf("Find %s resources in %s. Include name, address, phone number, hours, "+
		"and website if available. Format as a JSON array with separate fields.", resourceType, location)
}
