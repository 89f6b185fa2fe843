package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"gorm.io/gorm"
)

// QueueRepository defines the interface for queued message data access
type QueueRepository interface {
	Create(ctx context.Context, message *models.Message) error
	UpdateAttemptState(ctx context.Context, message *models.Message) error
	GetByID(ctx context.Context, id uint) (*models.Message, error)
	GetByIDs(ctx context.Context, ids []uint) ([]models.Message, error)
	SelectIDs(ctx context.Context, filter Filter, limit int) ([]uint, error)
	Count(ctx context.Context, filter Filter) (int64, error)
	Delete(ctx context.Context, id uint) error
	First(ctx context.Context) (*models.Message, error)
	Last(ctx context.Context) (*models.Message, error)
	List(ctx context.Context, limit, offset int) ([]models.Message, int64, error)
	ListCreatedBefore(ctx context.Context, before int64, limit int) ([]models.Message, error)
	ResetSequence(ctx context.Context) error
}

// queueRepository implements QueueRepository using GORM
type queueRepository struct {
	db *gorm.DB
}

// NewQueueRepository creates a new QueueRepository instance
func NewQueueRepository(db *gorm.DB) QueueRepository {
	return &queueRepository{db: db}
}

// Create inserts a new row and assigns message.ID
func (r *queueRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID != 0 {
		return fmt.Errorf("%w: message already has id %d", ErrInvalidInput, message.ID)
	}
	result := r.db.WithContext(ctx).Create(message)
	if result.Error != nil {
		return fmt.Errorf("failed to create message: %w", result.Error)
	}
	return nil
}

// UpdateAttemptState writes only the attempt and destination columns of an existing row
func (r *queueRepository) UpdateAttemptState(ctx context.Context, message *models.Message) error {
	if message.ID == 0 {
		return ErrNotFound
	}
	result := r.db.WithContext(ctx).
		Model(message).
		Select(models.AttemptColumns).
		Updates(message)
	if result.Error != nil {
		return fmt.Errorf("failed to update message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// GetByID retrieves a message by its ID
func (r *queueRepository) GetByID(ctx context.Context, id uint) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).First(&message, id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get message by ID: %w", result.Error)
	}
	return &message, nil
}

// GetByIDs retrieves the existing messages among ids, ordered by id
func (r *queueRepository) GetByIDs(ctx context.Context, ids []uint) ([]models.Message, error) {
	valid := make([]uint, 0, len(ids))
	for _, id := range ids {
		if id > 0 {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return []models.Message{}, nil
	}

	var messages []models.Message
	result := r.db.WithContext(ctx).Where("id IN ?", valid).Order("id ASC").Find(&messages)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get messages: %w", result.Error)
	}
	return messages, nil
}

// SelectIDs returns the ids matching filter in ascending order; limit <= 0 means no limit
func (r *queueRepository) SelectIDs(ctx context.Context, filter Filter, limit int) ([]uint, error) {
	query := filter.scope(r.db.WithContext(ctx).Model(&models.Message{})).Order("id ASC")
	if limit > 0 {
		query = query.Limit(limit)
	}

	var ids []uint
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("failed to select message ids: %w", err)
	}
	return ids, nil
}

// Count counts the messages matching filter
func (r *queueRepository) Count(ctx context.Context, filter Filter) (int64, error) {
	var count int64
	result := filter.scope(r.db.WithContext(ctx).Model(&models.Message{})).Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to count messages: %w", result.Error)
	}
	return count, nil
}

// Delete deletes a message by its ID
func (r *queueRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Message{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// First returns the message with the lowest id
func (r *queueRepository) First(ctx context.Context) (*models.Message, error) {
	return r.edge(ctx, "id ASC")
}

// Last returns the message with the highest id
func (r *queueRepository) Last(ctx context.Context) (*models.Message, error) {
	return r.edge(ctx, "id DESC")
}

func (r *queueRepository) edge(ctx context.Context, order string) (*models.Message, error) {
	var message models.Message
	result := r.db.WithContext(ctx).Order(order).Limit(1).Find(&message)
	if result.Error != nil {
		return nil, fmt.Errorf("failed to get message: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return nil, ErrNotFound
	}
	return &message, nil
}

// List retrieves messages with pagination, newest first
func (r *queueRepository) List(ctx context.Context, limit, offset int) ([]models.Message, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&models.Message{}).Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count messages: %w", err)
	}

	var messages []models.Message
	result := r.db.WithContext(ctx).Order("id DESC").Limit(limit).Offset(offset).Find(&messages)
	if result.Error != nil {
		return nil, 0, fmt.Errorf("failed to list messages: %w", result.Error)
	}
	return messages, total, nil
}

// ListCreatedBefore returns up to limit messages created before the given epoch;
// before <= 0 matches every message.
func (r *queueRepository) ListCreatedBefore(ctx context.Context, before int64, limit int) ([]models.Message, error) {
	query := r.db.WithContext(ctx).Order("id ASC").Limit(limit)
	if before > 0 {
		query = query.Where("created_at < ?", before)
	}

	var messages []models.Message
	if err := query.Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	return messages, nil
}

// ResetSequence restarts id assignment. It is only meaningful on an empty table.
func (r *queueRepository) ResetSequence(ctx context.Context) error {
	table := models.Message{}.TableName()
	db := r.db.WithContext(ctx)

	var err error
	switch db.Dialector.Name() {
	case "sqlite":
		err = db.Exec("DELETE FROM sqlite_sequence WHERE name = ?", table).Error
		if err != nil && strings.Contains(err.Error(), "no such table") {
			return nil
		}
	case "postgres":
		err = db.Exec("SELECT setval(pg_get_serial_sequence(?, 'id'), 1, false)", table).Error
	default:
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to reset id sequence: %w", err)
	}
	return nil
}
