package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/repository"
)

// MockQueueRepository implements repository.QueueRepository
type MockQueueRepository struct {
	mock.Mock
}

// Create inserts a queued message
func (m *MockQueueRepository) Create(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// UpdateAttemptState writes the attempt columns of a message
func (m *MockQueueRepository) UpdateAttemptState(ctx context.Context, message *models.Message) error {
	args := m.Called(ctx, message)
	return args.Error(0)
}

// GetByID retrieves a message by its ID
func (m *MockQueueRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// GetByIDs retrieves the messages with the given IDs
func (m *MockQueueRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Message, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// SelectIDs returns the IDs matching filter
func (m *MockQueueRepository) SelectIDs(ctx context.Context, filter repository.Filter, limit int) ([]uint, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]uint), args.Error(1)
}

// Count counts the messages matching filter
func (m *MockQueueRepository) Count(ctx context.Context, filter repository.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

// Delete deletes a message by its ID
func (m *MockQueueRepository) Delete(ctx context.Context, id uint) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// First retrieves the oldest message
func (m *MockQueueRepository) First(ctx context.Context) (*models.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// Last retrieves the newest message
func (m *MockQueueRepository) Last(ctx context.Context) (*models.Message, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Message), args.Error(1)
}

// List retrieves a page of messages and the total count
func (m *MockQueueRepository) List(ctx context.Context, limit, offset int) ([]models.Message, int64, error) {
	args := m.Called(ctx, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Get(1).(int64), args.Error(2)
	}
	return args.Get(0).([]models.Message), args.Get(1).(int64), args.Error(2)
}

// ListCreatedBefore retrieves messages created before the given unix time
func (m *MockQueueRepository) ListCreatedBefore(ctx context.Context, before int64, limit int) ([]models.Message, error) {
	args := m.Called(ctx, before, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Message), args.Error(1)
}

// ResetSequence restarts the id sequence of the queue table
func (m *MockQueueRepository) ResetSequence(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
