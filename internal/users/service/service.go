package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"restapidemo/internal/platform/events"
	"restapidemo/internal/users/metrics"
	"restapidemo/internal/users/models"
	"restapidemo/pkg/domain"
	dErrors "restapidemo/pkg/domain-errors"
	"restapidemo/pkg/platform/sentinel"
	"restapidemo/pkg/requestcontext"
)

//go:generate mockgen -source=service.go -destination=mocks/mocks.go -package=mocks Store,EventSink

const tracerName = "restapidemo/internal/users/service"

// Lifecycle event types.
const (
	EventUserCreated = "user.created"
	EventUserUpdated = "user.updated"
	EventUserDeleted = "user.deleted"
)

type Store interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id domain.UserID) (*models.User, error)
	List(ctx context.Context) ([]*models.User, error)
	Delete(ctx context.Context, id domain.UserID) error
}

// EventSink accepts lifecycle events without blocking.
type EventSink interface {
	Enqueue(ctx context.Context, event events.Event) bool
}

// UserEventData is the payload of every user lifecycle event.
type UserEventData struct {
	UserID   domain.UserID `json:"userId"`
	Username string        `json:"username"`
}

// Service implements user management.
type Service struct {
	store   Store
	events  EventSink
	logger  *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithEvents(sink EventSink) Option {
	return func(s *Service) {
		s.events = sink
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// New constructs a Service.
func New(store Store, opts ...Option) *Service {
	s := &Service{store: store}
	for _, opt := range opts {
		opt(s)
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}
	return s
}

// Create validates req and stores a new user with a server-assigned id.
func (s *Service) Create(ctx context.Context, req *models.UserRequest) (user *models.User, err error) {
	ctx, finish := s.begin(ctx, metrics.OpCreate)
	defer func() { finish(err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user = models.NewUser(domain.NewUserID(), req, requestcontext.Now(ctx))
	if err := s.store.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, usernameTaken()
		}
		return nil, storeFailure(err, "failed to create user")
	}

	s.logAudit(ctx, EventUserCreated, "user_id", user.ID.String(), "username", user.Username)
	s.emit(ctx, EventUserCreated, user)
	return user, nil
}

// List returns every user ordered by creation time.
func (s *Service) List(ctx context.Context) (users []*models.User, err error) {
	ctx, finish := s.begin(ctx, metrics.OpList)
	defer func() { finish(err) }()

	users, err = s.store.List(ctx)
	if err != nil {
		return nil, storeFailure(err, "failed to list users")
	}
	return users, nil
}

// Get returns a single user.
func (s *Service) Get(ctx context.Context, id domain.UserID) (user *models.User, err error) {
	ctx, finish := s.begin(ctx, metrics.OpGet, attribute.String("user.id", id.String()))
	defer func() { finish(err) }()

	user, err = s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookup(err, "failed to load user")
	}
	return user, nil
}

// Update replaces the mutable fields of an existing user.
func (s *Service) Update(ctx context.Context, id domain.UserID, req *models.UserRequest) (user *models.User, err error) {
	ctx, finish := s.begin(ctx, metrics.OpUpdate, attribute.String("user.id", id.String()))
	defer func() { finish(err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	user, err = s.store.FindByID(ctx, id)
	if err != nil {
		return nil, s.translateLookup(err, "failed to load user")
	}

	user.Apply(req, requestcontext.Now(ctx))
	if err := s.store.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, sentinel.ErrConflict):
			return nil, usernameTaken()
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, userNotFound()
		}
		return nil, storeFailure(err, "failed to update user")
	}

	s.logAudit(ctx, EventUserUpdated, "user_id", user.ID.String(), "username", user.Username)
	s.emit(ctx, EventUserUpdated, user)
	return user, nil
}

// Delete removes a user. Deleting an unknown id is not found.
func (s *Service) Delete(ctx context.Context, id domain.UserID) (err error) {
	ctx, finish := s.begin(ctx, metrics.OpDelete, attribute.String("user.id", id.String()))
	defer func() { finish(err) }()

	user, err := s.store.FindByID(ctx, id)
	if err != nil {
		return s.translateLookup(err, "failed to load user")
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.translateLookup(err, "failed to delete user")
	}

	s.logAudit(ctx, EventUserDeleted, "user_id", id.String(), "username", user.Username)
	s.emit(ctx, EventUserDeleted, user)
	return nil
}

// begin starts the span for op and returns a func that closes it and
// records the outcome.
func (s *Service) begin(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, func(error)) {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "users."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		outcome := "ok"
		if err != nil {
			outcome = string(dErrors.CodeInternal)
			if de, ok := dErrors.As(err); ok {
				outcome = string(de.Code)
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
		if s.metrics != nil {
			s.metrics.Observe(op, outcome, start)
		}
	}
}

func (s *Service) translateLookup(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return userNotFound()
	}
	return storeFailure(err, msg)
}

// storeFailure codes an unexpected store error. Deadlines and unreachable
// backends get their own codes so clients can tell them from bugs.
func storeFailure(err error, msg string) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return dErrors.Wrap(err, dErrors.CodeTimeout, "user store timed out")
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, "user store unavailable")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func userNotFound() error {
	return dErrors.New(dErrors.CodeNotFound, "user not found")
}

func usernameTaken() error {
	return &dErrors.Error{
		Code:    dErrors.CodeConflict,
		Message: "username already exists",
		Fields:  map[string]string{models.FieldUsername: "Username is already taken"},
	}
}

func (s *Service) emit(ctx context.Context, eventType string, user *models.User) {
	if s.events == nil {
		return
	}
	s.events.Enqueue(ctx, events.New(ctx, eventType, user.ID.String(), UserEventData{
		UserID:   user.ID,
		Username: user.Username,
	}))
}

func (s *Service) logAudit(ctx context.Context, event string, attributes ...any) {
	if s.logger == nil {
		return
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", event, "log_type", "audit")
	s.logger.InfoContext(ctx, event, args...)
}
