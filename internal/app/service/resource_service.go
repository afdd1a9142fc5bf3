package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/sifan077/ResourceHub/internal/app/availability"
	"github.com/sifan077/ResourceHub/internal/app/model"
	"github.com/sifan077/ResourceHub/internal/app/repository"
	"go.uber.org/zap"
)

// ResourceService defines behaviour-level operations on directory records.
type ResourceService interface {
	Create(ctx context.Context, input CreateInput) (*model.Resource, error)
	Get(ctx context.Context, id, location string) (*model.Resource, error)
	Search(ctx context.Context, input SearchInput) ([]model.Resource, error)
}

// CreateInput captures data required to create a record. TTLDays is not stored;
// a positive value only sets the expiry.
type CreateInput struct {
	ID          string
	Type        string
	Location    string
	Name        string
	Description string
	Address     string
	PhoneNumber string
	Email       string
	Website     string
	Hours       string
	TTLDays     int
}

// SearchInput selects records by type and/or location prefix.
type SearchInput struct {
	Type         string
	Location     string
	AvailableNow bool
}

type resourceService struct {
	repo      repository.ResourceRepository
	publisher ResourcePublisher
	logger    *zap.Logger
	zone      *time.Location
	now       func() time.Time
}

// NewResourceService returns a service backed by repo. publisher may be nil.
// zone is where opening hours are evaluated.
func NewResourceService(repo repository.ResourceRepository, publisher ResourcePublisher, logger *zap.Logger, zone *time.Location) ResourceService {
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if zone == nil {
		zone = time.UTC
	}
	return &resourceService{
		repo:      repo,
		publisher: publisher,
		logger:    logger,
		zone:      zone,
		now:       time.Now,
	}
}

func (s *resourceService) Create(ctx context.Context, input CreateInput) (*model.Resource, error) {
	if missing := missingFields(map[string]string{
		"type":     input.Type,
		"location": input.Location,
		"name":     input.Name,
	}, "type", "location", "name"); len(missing) > 0 {
		return nil, &ValidationError{Message: "missing required fields", Fields: missing}
	}
	if input.TTLDays < 0 {
		return nil, &ValidationError{Message: "ttlDays must not be negative", Fields: []string{"ttlDays"}}
	}

	now := s.now().UTC()
	resource := &model.Resource{
		ID:          input.ID,
		Type:        input.Type,
		Location:    input.Location,
		Name:        input.Name,
		Description: input.Description,
		Address:     input.Address,
		PhoneNumber: input.PhoneNumber,
		Email:       input.Email,
		Website:     input.Website,
		Hours:       input.Hours,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if resource.ID == "" {
		resource.ID = model.NewResourceID(now)
	}
	if input.TTLDays > 0 {
		resource.ExpiresAt = model.ExpiryAfter(now, input.TTLDays)
	}

	if err := s.repo.Put(ctx, resource); err != nil {
		return nil, upstream("failed to save resource", err)
	}

	if err := s.publisher.PublishCreated(ctx, *resource); err != nil {
		s.logger.Warn("failed to publish resource event",
			zap.String("id", resource.ID),
			zap.Error(err),
		)
	}
	return resource, nil
}

func (s *resourceService) Get(ctx context.Context, id, location string) (*model.Resource, error) {
	if missing := missingFields(map[string]string{
		"id":       id,
		"location": location,
	}, "id", "location"); len(missing) > 0 {
		return nil, &ValidationError{Message: "id and location are required", Fields: missing}
	}

	resource, err := s.repo.Get(ctx, id, location)
	if err != nil {
		if errors.Is(err, repository.ErrResourceNotFound) {
			return nil, &NotFoundError{ID: id, Location: location}
		}
		return nil, upstream("failed to get resource", err)
	}
	return resource, nil
}

func (s *resourceService) Search(ctx context.Context, input SearchInput) ([]model.Resource, error) {
	var (
		result []model.Resource
		err    error
	)

	location := input.Location
	if blank(location) {
		location = ""
	}

	switch {
	case !blank(input.Type):
		result, err = s.repo.QueryByType(ctx, input.Type, location)
	case location != "":
		result, err = s.repo.ScanByLocationPrefix(ctx, location)
	default:
		return nil, &ValidationError{Message: "at least one of type/location required"}
	}
	if err != nil {
		return nil, upstream("failed to search resources", err)
	}

	if input.AvailableNow {
		result = availability.FilterOpen(result, s.now().In(s.zone))
	}
	if result == nil {
		result = []model.Resource{}
	}
	return result, nil
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}

// missingFields returns the names in order whose values are blank.
func missingFields(values map[string]string, order ...string) []string {
	var missing []string
	for _, name := range order {
		if blank(values[name]) {
			missing = append(missing, name)
		}
	}
	return missing
}
