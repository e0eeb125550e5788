package handler

import (
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/mock"

	"github.com/sanosuguru/go-amenity-reservation/internal/application"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/reservation"
	"github.com/sanosuguru/go-amenity-reservation/internal/domain/space"
)

// MockSpaceService はSpaceServiceInterfaceのモック
type MockSpaceService struct {
	mock.Mock
}

func (m *MockSpaceService) CreateSpace(ctx context.Context, input application.CreateSpaceInput) (*space.Space, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*space.Space), args.Error(1)
}

func (m *MockSpaceService) GetSpace(ctx context.Context, id string) (*space.Space, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*space.Space), args.Error(1)
}

func (m *MockSpaceService) DeactivateSpace(ctx context.Context, id string) (*space.Space, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*space.Space), args.Error(1)
}

func (m *MockSpaceService) AddAvailability(ctx context.Context, input application.AddAvailabilityInput) (*space.Availability, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*space.Availability), args.Error(1)
}

func (m *MockSpaceService) RemoveAvailability(ctx context.Context, spaceID, availabilityID string) error {
	return m.Called(ctx, spaceID, availabilityID).Error(0)
}

func (m *MockSpaceService) ListAvailability(ctx context.Context, spaceID string) ([]*space.Availability, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*space.Availability), args.Error(1)
}

func (m *MockSpaceService) AddBlock(ctx context.Context, input application.AddBlockInput) (*space.Block, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*space.Block), args.Error(1)
}

func (m *MockSpaceService) RemoveBlock(ctx context.Context, spaceID, blockID string) error {
	return m.Called(ctx, spaceID, blockID).Error(0)
}

func (m *MockSpaceService) ListBlocks(ctx context.Context, spaceID string, from, to time.Time) ([]*space.Block, error) {
	args := m.Called(ctx, spaceID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*space.Block), args.Error(1)
}

func (m *MockSpaceService) SetRule(ctx context.Context, spaceID, key, value string) (*space.Rule, error) {
	args := m.Called(ctx, spaceID, key, value)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*space.Rule), args.Error(1)
}

func (m *MockSpaceService) ListRules(ctx context.Context, spaceID string) (space.Rules, error) {
	args := m.Called(ctx, spaceID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(space.Rules), args.Error(1)
}

// MockSlotService はSlotServiceInterfaceのモック
type MockSlotService struct {
	mock.Mock
}

func (m *MockSlotService) ParseDate(v string) (time.Time, error) {
	args := m.Called(v)
	return args.Get(0).(time.Time), args.Error(1)
}

func (m *MockSlotService) ListAvailableSlots(ctx context.Context, spaceID string, date time.Time) ([]space.Slot, error) {
	args := m.Called(ctx, spaceID, date)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]space.Slot), args.Error(1)
}

// MockReservationService はReservationServiceInterfaceのモック
type MockReservationService struct {
	mock.Mock
}

func (m *MockReservationService) result(args mock.Arguments) (*reservation.Reservation, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) CreateReservation(ctx context.Context, input application.CreateReservationInput) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, input))
}

func (m *MockReservationService) GetReservation(ctx context.Context, id string) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, id))
}

func (m *MockReservationService) ListUnitReservations(ctx context.Context, input application.ListReservationsInput) ([]*reservation.Reservation, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*reservation.Reservation), args.Error(1)
}

func (m *MockReservationService) ListReservationEvents(ctx context.Context, id string) ([]reservation.Event, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]reservation.Event), args.Error(1)
}

func (m *MockReservationService) ApproveReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, id, by))
}

func (m *MockReservationService) RejectReservation(ctx context.Context, id, by, reason string) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, id, by, reason))
}

func (m *MockReservationService) CancelReservation(ctx context.Context, id, by, reason string) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, id, by, reason))
}

func (m *MockReservationService) CheckInReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, id, by))
}

func (m *MockReservationService) CompleteReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, id, by))
}

func (m *MockReservationService) MarkNoShowReservation(ctx context.Context, id, by string) (*reservation.Reservation, error) {
	return m.result(m.Called(ctx, id, by))
}

type testServer struct {
	echo         *echo.Echo
	spaces       *MockSpaceService
	slots        *MockSlotService
	reservations *MockReservationService
}

// newTestServer は本番と同じルーティングでモックサービスをつないだサーバーを作成する
func newTestServer(checks ...HealthCheck) *testServer {
	s := &testServer{
		echo:         NewTestEcho(),
		spaces:       new(MockSpaceService),
		slots:        new(MockSlotService),
		reservations: new(MockReservationService),
	}
	RegisterRoutes(s.echo, Handlers{
		Health:      NewHealthHandler(checks...),
		Space:       NewSpaceHandler(s.spaces),
		Slot:        NewSlotHandler(s.slots),
		Reservation: NewReservationHandler(s.reservations),
	})
	return s
}

func (s *testServer) do(method, path, body, actor string) *httptest.ResponseRecorder {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	if actor != "" {
		req.Header.Set("X-User-ID", actor)
	}
	rec := httptest.NewRecorder()
	s.echo.ServeHTTP(rec, req)
	return rec
}

func (s *testServer) assertExpectations(t *testing.T) {
	t.Helper()
	s.spaces.AssertExpectations(t)
	s.slots.AssertExpectations(t)
	s.reservations.AssertExpectations(t)
}

