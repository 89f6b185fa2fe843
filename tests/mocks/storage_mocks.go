package mocks

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/welldanyogia/webrana-msgqueue/internal/cache"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"github.com/welldanyogia/webrana-msgqueue/internal/storage"
)

// MockAttachmentStore implements storage.AttachmentStore
type MockAttachmentStore struct {
	mock.Mock
}

// Materialize copies staged files and returns the resulting attachments
func (m *MockAttachmentStore) Materialize(staged []storage.Staged) (models.Attachments, error) {
	args := m.Called(staged)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(models.Attachments), args.Error(1)
}

// Purge removes the directory holding attachments
func (m *MockAttachmentStore) Purge(attachments models.Attachments) error {
	args := m.Called(attachments)
	return args.Error(0)
}

// MockDeliveryLog implements cache.DeliveryLog
type MockDeliveryLog struct {
	mock.Mock
}

// StoreDelivered records a delivered message
func (m *MockDeliveryLog) StoreDelivered(ctx context.Context, id uint, channelType models.ChannelType, sent int, deliveredAt time.Time) error {
	args := m.Called(ctx, id, channelType, sent, deliveredAt)
	return args.Error(0)
}

// Delivered looks up a delivered message
func (m *MockDeliveryLog) Delivered(ctx context.Context, id uint) (*cache.Delivery, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*cache.Delivery), args.Error(1)
}
