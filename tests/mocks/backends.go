package mocks

import (
	"context"
	"time"

	"ixp-grapher/application/ports"
	"ixp-grapher/domain/core/targets"
	vo "ixp-grapher/domain/core/valueobjects"
	"ixp-grapher/domain/services"

	"github.com/stretchr/testify/mock"
)

// MockBackend is a mock implementation of ports.Backend
type MockBackend struct {
	mock.Mock
	BackendID services.BackendID
}

func NewMockBackend(id services.BackendID) *MockBackend {
	return &MockBackend{BackendID: id}
}

func (m *MockBackend) ID() services.BackendID {
	return m.BackendID
}

func (m *MockBackend) Supports(target targets.GraphTarget, category vo.Category, protocol vo.Protocol) bool {
	args := m.Called(target, category, protocol)
	return args.Bool(0)
}

func (m *MockBackend) Render(ctx context.Context, query ports.BackendQuery) (*ports.Artifact, error) {
	args := m.Called(ctx, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Artifact), args.Error(1)
}

// MockRenderStore is a mock implementation of ports.RenderStore
type MockRenderStore struct {
	mock.Mock
}

func (m *MockRenderStore) Get(ctx context.Context, fingerprint string) (*ports.Artifact, bool, error) {
	args := m.Called(ctx, fingerprint)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*ports.Artifact), args.Bool(1), args.Error(2)
}

func (m *MockRenderStore) Put(ctx context.Context, fingerprint string, artifact *ports.Artifact, ttl time.Duration) error {
	args := m.Called(ctx, fingerprint, artifact, ttl)
	return args.Error(0)
}

func (m *MockRenderStore) Clear(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// MockInvalidationPublisher is a mock implementation of ports.InvalidationPublisher
type MockInvalidationPublisher struct {
	mock.Mock
}

func (m *MockInvalidationPublisher) PublishInvalidation(ctx context.Context, reason string) error {
	args := m.Called(ctx, reason)
	return args.Error(0)
}

// MockRenderCache is a mock implementation of ports.RenderCache that calls
// through to render unless told otherwise.
type MockRenderCache struct {
	mock.Mock
}

func (m *MockRenderCache) GetOrRender(ctx context.Context, fingerprint string, period vo.Period, render ports.RenderFunc) (*ports.Artifact, error) {
	args := m.Called(ctx, fingerprint, period)
	if args.Get(0) == nil && args.Error(1) == nil {
		return render(ctx)
	}
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ports.Artifact), args.Error(1)
}

func (m *MockRenderCache) Invalidate(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

// PNG returns a small artifact as served by id.
func PNG(id services.BackendID) *ports.Artifact {
	return &ports.Artifact{
		Data:        []byte("\x89PNG " + string(id)),
		ContentType: "image/png",
		Backend:     id,
		RenderedAt:  time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}
