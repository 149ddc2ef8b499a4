package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/mmcdole/recon/internal/catalog"
	"github.com/mmcdole/recon/internal/domain"
	"github.com/mmcdole/recon/internal/table"
)

// ErrReadOnly is returned when a mutation targets a read-only resource.
var ErrReadOnly = errors.New("resource is read-only")

// ResourceService binds catalog resources to the API repository and hands
// the table engine its fetch and mutate functions.
type ResourceService struct {
	catalog *catalog.Catalog
	repo    domain.ResourceRepository
	logger  *slog.Logger
}

// NewResourceService creates a new resource service
func NewResourceService(cat *catalog.Catalog, repo domain.ResourceRepository, logger *slog.Logger) *ResourceService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ResourceService{catalog: cat, repo: repo, logger: logger}
}

// Catalog returns the catalog the service was built with
func (s *ResourceService) Catalog() *catalog.Catalog {
	return s.catalog
}

// Resources returns every browsable resource
func (s *ResourceService) Resources() []domain.Resource {
	return s.catalog.Resources
}

// Fetcher returns the fetch function for the resource with key.
func (s *ResourceService) Fetcher(key string) (table.FetchFunc[domain.Record], error) {
	res, err := s.catalog.Resource(key)
	if err != nil {
		return nil, err
	}
	return func(ctx context.Context, page, pageSize int, search, category string) (domain.PageResult[domain.Record], error) {
		start := time.Now()
		q := domain.QueryParams{Page: page, PageSize: pageSize, Search: search, Category: category}
		result, err := s.repo.List(ctx, res, q)
		if err != nil {
			s.logger.Error("fetch failed", "resource", res.Key, "page", page, "error", err)
			return result, fmt.Errorf("fetch %s: %w", res.Title, err)
		}
		s.logger.Debug("fetched page",
			"resource", res.Key,
			"page", result.CurrentPage,
			"rows", len(result.Rows),
			"total", result.TotalItems,
			"took", time.Since(start))
		return result, nil
	}, nil
}

// Mutator returns the create/update/delete functions for the resource.
func (s *ResourceService) Mutator(key string) (table.Mutator[domain.Record], error) {
	res, err := s.catalog.Resource(key)
	if err != nil {
		return nil, err
	}
	if res.ReadOnly {
		return nil, fmt.Errorf("%s: %w", res.Title, ErrReadOnly)
	}

	logged := func(op string, fn func(context.Context, domain.Resource, domain.Record) (domain.Envelope[domain.Record], error)) func(context.Context, domain.Record) (domain.Envelope[domain.Record], error) {
		return func(ctx context.Context, item domain.Record) (domain.Envelope[domain.Record], error) {
			env, err := fn(ctx, res, item)
			switch {
			case err != nil:
				s.logger.Error("mutation failed", "op", op, "resource", res.Key, "id", item.GetID(), "error", err)
			case !env.Success:
				s.logger.Warn("mutation rejected", "op", op, "resource", res.Key, "id", item.GetID(), "error", env.Error)
			default:
				s.logger.Info("mutation applied", "op", op, "resource", res.Key, "id", item.GetID())
			}
			return env, err
		}
	}

	return table.MutatorFuncs[domain.Record]{
		CreateFunc: logged("create", s.repo.Create),
		UpdateFunc: logged("update", s.repo.Update),
		DeleteFunc: logged("delete", s.repo.Delete),
	}, nil
}

// Validate checks a form submission against the resource's required
// columns. It returns a message suitable for the status line.
func Validate(res domain.Resource, item domain.Record) error {
	var missing []string
	for _, col := range res.EditableColumns() {
		if col.Required && strings.TrimSpace(item.Text(col.Path)) == "" {
			missing = append(missing, col.Header)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s required", strings.Join(missing, ", "))
	}
	return nil
}

// FormRecord builds a record from form values keyed by column path. Bool
// columns accept yes/no/true/false/1/0 and are sent as 1 or 0.
func FormRecord(res domain.Resource, values map[string]string) domain.Record {
	rec := domain.Record{}
	for _, col := range res.EditableColumns() {
		v, ok := values[col.Path]
		if !ok {
			continue
		}
		v = strings.TrimSpace(v)
		switch col.Kind {
		case domain.KindBool:
			rec[col.Path] = boolValue(v)
		default:
			rec[col.Path] = v
		}
	}
	return rec
}

func boolValue(v string) int {
	switch strings.ToLower(v) {
	case "1", "y", "yes", "true", "on":
		return 1
	default:
		return 0
	}
}
