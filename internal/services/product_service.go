package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"catalog/internal/cache"
	"catalog/internal/dto"
	"catalog/internal/mapper"
	"catalog/internal/metrics"
	"catalog/internal/repositories"
	"catalog/internal/validation"
	"catalog/pkg/rabbitmq"

	"golang.org/x/sync/singleflight"
)

const (
	opCreate  = "create"
	opList    = "list"
	opGet     = "get"
	opByTypes = "group_by_type"
)

const listCacheKey = "products:list"

func productCacheKey(id int64) string {
	return fmt.Sprintf("products:id:%d", id)
}

// productMessages are the messages reported for failed create-request rules.
var productMessages = validation.Messages{
	"name.notblank":         "product name shouldn't be NULL OR EMPTY",
	"productType.notblank":  "product type shouldn't be NULL OR EMPTY",
	"supplierCode.notblank": "supplier code shouldn't be NULL OR EMPTY",
	"quantity.min":          "quantity is not defined !",
	"price.min":             "product price can't be less than 200",
	"price.max":             "product price can't be more than 500000",
}

// EventPublisher sends product events to interested consumers.
type EventPublisher interface {
	PublishProductEvent(ctx context.Context, event rabbitmq.ProductEvent) error
}

// Option configures a ProductService.
type Option func(*ProductService)

// WithLogger sets the logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *ProductService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithPublisher publishes a product.created event after every successful create.
func WithPublisher(p EventPublisher) Option {
	return func(s *ProductService) {
		s.publisher = p
	}
}

// WithMetrics records operation outcomes and cache lookups.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *ProductService) {
		s.metrics = m
	}
}

// WithInvalidateOnCreate drops the cached product list after each create.
// Without it a new product shows up in ListProducts only once the cached list
// expires or is invalidated by a product event.
func WithInvalidateOnCreate(enabled bool) Option {
	return func(s *ProductService) {
		s.invalidateOnCreate = enabled
	}
}

// ProductService handles business logic related to products.
type ProductService struct {
	repo      repositories.ProductRepository
	cache     cache.Cache
	validator *validation.Validator
	publisher EventPublisher
	metrics   *metrics.Metrics
	logger    *slog.Logger

	invalidateOnCreate bool

	// Collapses concurrent cache misses for the same key into one store call.
	loads singleflight.Group
}

// NewProductService creates a new ProductService. c may be nil, in which case
// every read goes to the repository.
func NewProductService(repo repositories.ProductRepository, c cache.Cache, opts ...Option) *ProductService {
	s := &ProductService{
		repo:      repo,
		cache:     c,
		validator: validation.New(productMessages),
		logger:    slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateProduct validates req, persists it and returns the stored product.
func (s *ProductService) CreateProduct(ctx context.Context, req dto.ProductRequest) (resp dto.ProductResponse, err error) {
	defer s.observe(opCreate, time.Now(), &err)

	s.logger.InfoContext(ctx, "ProductService.CreateProduct execution started")
	s.logger.DebugContext(ctx, "ProductService.CreateProduct request", slog.Any("request", req))

	violations, err := s.validator.Struct(req)
	if err != nil {
		return dto.ProductResponse{}, s.failure(ctx, opCreate, "failed to create a new product", err)
	}
	if len(violations) > 0 {
		s.logger.InfoContext(ctx, "ProductService.CreateProduct rejected invalid request",
			slog.Int("violations", len(violations)),
		)
		return dto.ProductResponse{}, &ValidationError{Violations: violations}
	}

	product := mapper.ToEntity(req)
	if err := s.repo.Create(ctx, &product); err != nil {
		return dto.ProductResponse{}, s.failure(ctx, opCreate, "failed to create a new product", err)
	}
	resp = mapper.ToResponse(product)

	if s.invalidateOnCreate {
		s.InvalidateListCache(ctx)
	}
	s.publishCreated(ctx, resp)

	s.logger.InfoContext(ctx, "ProductService.CreateProduct execution ended",
		slog.Int64("product_id", resp.ID),
	)
	return resp, nil
}

// ListProducts returns every product in store order. The result is cached.
func (s *ProductService) ListProducts(ctx context.Context) (products []dto.ProductResponse, err error) {
	defer s.observe(opList, time.Now(), &err)

	s.logger.InfoContext(ctx, "ProductService.ListProducts execution started")

	products, err = loadCached(ctx, s, opList, listCacheKey, func(ctx context.Context) ([]dto.ProductResponse, error) {
		all, err := s.repo.GetAll(ctx)
		if err != nil {
			return nil, s.failure(ctx, opList, "failed to fetch all products", err)
		}
		return mapper.ToResponseList(all), nil
	})
	if err != nil {
		return nil, err
	}
	if products == nil {
		products = []dto.ProductResponse{}
	}

	s.logger.InfoContext(ctx, "ProductService.ListProducts execution ended",
		slog.Int("count", len(products)),
	)
	return products, nil
}

// GetProductByID returns one product. A *NotFoundError is returned when the ID
// is unknown. Found products are cached per ID.
func (s *ProductService) GetProductByID(ctx context.Context, id int64) (product dto.ProductResponse, err error) {
	defer s.observe(opGet, time.Now(), &err)

	s.logger.InfoContext(ctx, "ProductService.GetProductByID execution started", slog.Int64("product_id", id))

	product, err = loadCached(ctx, s, opGet, productCacheKey(id), func(ctx context.Context) (dto.ProductResponse, error) {
		p, err := s.repo.GetByID(ctx, id)
		if err != nil {
			if errors.Is(err, repositories.ErrProductNotFound) {
				s.logger.WarnContext(ctx, "Product not found", slog.Int64("product_id", id))
				return dto.ProductResponse{}, &NotFoundError{ID: id}
			}
			return dto.ProductResponse{}, s.failure(ctx, opGet, fmt.Sprintf("failed to fetch product %d", id), err)
		}
		return mapper.ToResponse(*p), nil
	})
	if err != nil {
		return dto.ProductResponse{}, err
	}

	s.logger.InfoContext(ctx, "ProductService.GetProductByID execution ended", slog.Int64("product_id", id))
	return product, nil
}

// GroupProductsByType groups every product with a type by that type. Groups keep
// the order in which their type first appears in the store.
func (s *ProductService) GroupProductsByType(ctx context.Context) (groups dto.ProductGroups, err error) {
	defer s.observe(opByTypes, time.Now(), &err)

	s.logger.InfoContext(ctx, "ProductService.GroupProductsByType execution started")

	all, err := s.repo.GetAll(ctx)
	if err != nil {
		return dto.ProductGroups{}, s.failure(ctx, opByTypes, "failed to fetch products grouped by type", err)
	}

	for _, resp := range mapper.ToResponseList(all) {
		if resp.ProductType == "" {
			continue
		}
		groups.Add(resp.ProductType, resp)
	}

	s.logger.InfoContext(ctx, "ProductService.GroupProductsByType execution ended",
		slog.Int("types", groups.Len()),
	)
	s.logger.DebugContext(ctx, "ProductService.GroupProductsByType result", slog.Any("types", groups.Types()))
	return groups, nil
}

// InvalidateListCache drops the cached product list. Errors are logged only.
func (s *ProductService) InvalidateListCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, listCacheKey); err != nil {
		s.logger.WarnContext(ctx, "Failed to invalidate product list cache", slog.String("error", err.Error()))
		return
	}
	s.logger.DebugContext(ctx, "Product list cache invalidated")
}

func (s *ProductService) publishCreated(ctx context.Context, p dto.ProductResponse) {
	if s.publisher == nil {
		return
	}
	event := rabbitmq.ProductEvent{
		EventType:   rabbitmq.EventProductCreated,
		ID:          p.ID,
		Name:        p.Name,
		ProductType: p.ProductType,
		OccurredAt:  time.Now().UTC(),
	}
	if err := s.publisher.PublishProductEvent(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "Failed to publish product created event",
			slog.Int64("product_id", p.ID),
			slog.String("error", err.Error()),
		)
	}
}

// failure logs cause and wraps it into a *ServiceError.
func (s *ProductService) failure(ctx context.Context, op, message string, cause error) error {
	s.logger.ErrorContext(ctx, "Product operation failed",
		slog.String("operation", op),
		slog.String("error", cause.Error()),
	)
	return &ServiceError{Op: op, Message: message, Err: cause}
}

func (s *ProductService) observe(op string, start time.Time, errp *error) {
	result := metrics.ResultSuccess
	switch err := *errp; {
	case err == nil:
	case errors.Is(err, ErrValidation):
		result = metrics.ResultInvalid
	case errors.Is(err, ErrNotFound):
		result = metrics.ResultNotFound
	default:
		result = metrics.ResultFailure
	}
	s.metrics.ObserveOperation(op, result, time.Since(start))
}

// loadCached serves key from the cache, or computes it with load and stores the
// result. Cache errors are logged and treated as misses; load errors are never cached.
func loadCached[T any](ctx context.Context, s *ProductService, op, key string, load func(context.Context) (T, error)) (T, error) {
	if s.cache != nil {
		var cached T
		found, err := s.cache.Get(ctx, key, &cached)
		switch {
		case err != nil:
			s.metrics.CacheLookup(op, metrics.CacheError)
			s.logger.WarnContext(ctx, "Cache lookup failed", slog.String("key", key), slog.String("error", err.Error()))
		case found:
			s.metrics.CacheLookup(op, metrics.CacheHit)
			s.logger.DebugContext(ctx, "Cache hit", slog.String("key", key))
			return cached, nil
		default:
			s.metrics.CacheLookup(op, metrics.CacheMiss)
			s.logger.DebugContext(ctx, "Cache miss", slog.String("key", key))
		}
	}

	// The shared load is detached from any one caller's cancellation.
	loadCtx := context.WithoutCancel(ctx)
	ch := s.loads.DoChan(key, func() (any, error) {
		val, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if err := s.cache.Set(loadCtx, key, val); err != nil {
				s.logger.WarnContext(loadCtx, "Failed to populate cache", slog.String("key", key), slog.String("error", err.Error()))
			}
		}
		return val, nil
	})

	var zero T
	select {
	case <-ctx.Done():
		return zero, &ServiceError{Op: op, Message: "request cancelled", Err: ctx.Err()}
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
