package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/welldanyogia/webrana-msgqueue/internal/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testNow int64 = 1_700_000_000

// QueueRepositoryTestSuite is the test suite for QueueRepository
type QueueRepositoryTestSuite struct {
	suite.Suite
	db   *gorm.DB
	repo QueueRepository
	ctx  context.Context
}

// SetupSuite runs once before all tests
func (s *QueueRepositoryTestSuite) SetupSuite() {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(s.T(), err)

	// every connection to :memory: opens a separate database
	sqlDB, err := db.DB()
	require.NoError(s.T(), err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(s.T(), db.AutoMigrate(&models.Message{}))

	s.db = db
	s.repo = NewQueueRepository(db)
	s.ctx = context.Background()
}

// TearDownSuite runs once after all tests
func (s *QueueRepositoryTestSuite) TearDownSuite() {
	sqlDB, _ := s.db.DB()
	if sqlDB != nil {
		sqlDB.Close()
	}
}

// SetupTest runs before each test
func (s *QueueRepositoryTestSuite) SetupTest() {
	s.db.Exec("DELETE FROM messages_queue")
}

// TestQueueRepositoryTestSuite runs the test suite
func TestQueueRepositoryTestSuite(t *testing.T) {
	suite.Run(t, new(QueueRepositoryTestSuite))
}

func (s *QueueRepositoryTestSuite) insert(mutate func(m *models.Message)) *models.Message {
	m := &models.Message{
		CreatedAt:    testNow - 3600,
		Type:         models.ChannelEmail,
		Destinations: models.Destinations{{Address: "a@x.com", Name: "A"}},
	}
	if mutate != nil {
		mutate(m)
	}
	require.NoError(s.T(), s.repo.Create(s.ctx, m))
	return m
}

func ptr[T any](v T) *T { return &v }

// ==================== Create / Get Tests ====================

func (s *QueueRepositoryTestSuite) TestCreate_AssignsIDAndRoundTrips() {
	m := s.insert(func(m *models.Message) {
		m.Subject = ptr("Hello")
		m.Body = ptr("<p>Body</p>")
		m.Attachments = models.Attachments{{Filename: "a.txt", Path: "/tmp/q/x/a.txt", Type: "text/plain"}}
		m.FailedDestinations = models.FailedDestinations{{Address: "bad"}}
	})
	assert.NotZero(s.T(), m.ID)

	got, err := s.repo.GetByID(s.ctx, m.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), testNow-3600, got.CreatedAt)
	assert.Equal(s.T(), "Hello", *got.Subject)
	assert.Equal(s.T(), m.Destinations, got.Destinations)
	assert.Equal(s.T(), m.Attachments, got.Attachments)
	assert.Equal(s.T(), []string{"bad"}, models.Destinations(got.FailedDestinations).Addresses())
	assert.Nil(s.T(), got.LastAttemptAt)
	assert.Nil(s.T(), got.LastError)
}

func (s *QueueRepositoryTestSuite) TestCreate_RejectsPersistedMessage() {
	m := s.insert(nil)
	err := s.repo.Create(s.ctx, m)
	assert.ErrorIs(s.T(), err, ErrInvalidInput)
}

func (s *QueueRepositoryTestSuite) TestGetByID_NotFound() {
	result, err := s.repo.GetByID(s.ctx, 99999)

	assert.ErrorIs(s.T(), err, ErrNotFound)
	assert.Nil(s.T(), result)
}

func (s *QueueRepositoryTestSuite) TestGetByIDs_IgnoresMissingAndZero() {
	a := s.insert(nil)
	b := s.insert(nil)

	got, err := s.repo.GetByIDs(s.ctx, []uint{b.ID, 0, 4242, a.ID})
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 2)
	assert.Equal(s.T(), a.ID, got[0].ID)
	assert.Equal(s.T(), b.ID, got[1].ID)

	got, err = s.repo.GetByIDs(s.ctx, []uint{0})
	require.NoError(s.T(), err)
	assert.Empty(s.T(), got)
}

// ==================== UpdateAttemptState Tests ====================

func (s *QueueRepositoryTestSuite) TestUpdateAttemptState_OnlyTouchesAttemptColumns() {
	m := s.insert(func(m *models.Message) { m.Subject = ptr("Original") })

	m.Subject = ptr("Changed")
	m.Type = models.ChannelSMS
	m.Processing = true
	m.Attempts = 3
	m.LastAttemptAt = ptr(testNow)
	m.LastError = ptr("boom")
	m.Destinations = models.Destinations{{Address: "b@x.com"}}
	require.NoError(s.T(), s.repo.UpdateAttemptState(s.ctx, m))

	got, err := s.repo.GetByID(s.ctx, m.ID)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), "Original", *got.Subject)
	assert.Equal(s.T(), models.ChannelEmail, got.Type)
	assert.True(s.T(), got.Processing)
	assert.Equal(s.T(), 3, got.Attempts)
	assert.Equal(s.T(), testNow, *got.LastAttemptAt)
	assert.Equal(s.T(), "boom", *got.LastError)
	assert.Equal(s.T(), []string{"b@x.com"}, got.Destinations.Addresses())

	// clearing nullable columns writes NULL
	m.Processing = false
	m.LastError = nil
	m.FailedDestinations = nil
	require.NoError(s.T(), s.repo.UpdateAttemptState(s.ctx, m))

	got, err = s.repo.GetByID(s.ctx, m.ID)
	require.NoError(s.T(), err)
	assert.False(s.T(), got.Processing)
	assert.Nil(s.T(), got.LastError)
	assert.Empty(s.T(), got.FailedDestinations)
}

func (s *QueueRepositoryTestSuite) TestUpdateAttemptState_MissingRow() {
	err := s.repo.UpdateAttemptState(s.ctx, &models.Message{ID: 777, Type: models.ChannelEmail})
	assert.ErrorIs(s.T(), err, ErrNotFound)

	err = s.repo.UpdateAttemptState(s.ctx, &models.Message{})
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

// ==================== Filter Tests ====================

func (s *QueueRepositoryTestSuite) TestSelectIDs_EligibilityGate() {
	fresh := s.insert(nil)
	recent := s.insert(func(m *models.Message) {
		m.Attempts = 1
		m.LastAttemptAt = ptr(testNow - 60)
	})
	s.insert(func(m *models.Message) { m.Processing = true })
	s.insert(func(m *models.Message) { m.Attempts = 5 })
	stale := s.insert(func(m *models.Message) {
		m.Attempts = 1
		m.LastAttemptAt = ptr(testNow - RecencyWindow - 1)
	})

	gate := &Eligibility{MaxAttempts: 5, Now: testNow}
	ids, err := s.repo.SelectIDs(s.ctx, Filter{Eligibility: gate}, 0)
	require.NoError(s.T(), err)

	// A message last attempted more than ten minutes ago is NOT eligible.
	// This is the inherited behaviour of the gate, not a backoff policy.
	assert.Equal(s.T(), []uint{fresh.ID, recent.ID}, ids)
	assert.NotContains(s.T(), ids, stale.ID)

	count, err := s.repo.Count(s.ctx, Filter{Eligibility: gate})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(2), count)

	all, err := s.repo.Count(s.ctx, Filter{})
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(5), all)
}

func (s *QueueRepositoryTestSuite) TestSelectIDs_IDForcesEligibility() {
	stuck := s.insert(func(m *models.Message) {
		m.Processing = true
		m.Attempts = 99
	})
	s.insert(nil)

	ids, err := s.repo.SelectIDs(s.ctx, Filter{ID: stuck.ID, Eligibility: &Eligibility{MaxAttempts: 5, Now: testNow}}, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []uint{stuck.ID}, ids)
}

func (s *QueueRepositoryTestSuite) TestSelectIDs_AddedAfterAndLimit() {
	s.insert(func(m *models.Message) { m.CreatedAt = testNow - 100 })
	b := s.insert(func(m *models.Message) { m.CreatedAt = testNow - 50 })
	c := s.insert(func(m *models.Message) { m.CreatedAt = testNow })

	ids, err := s.repo.SelectIDs(s.ctx, Filter{AddedAfter: testNow - 50}, 0)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), []uint{b.ID, c.ID}, ids)

	ids, err = s.repo.SelectIDs(s.ctx, Filter{}, 1)
	require.NoError(s.T(), err)
	assert.Len(s.T(), ids, 1)
}

// ==================== Delete / Edge Tests ====================

func (s *QueueRepositoryTestSuite) TestDelete() {
	m := s.insert(nil)

	require.NoError(s.T(), s.repo.Delete(s.ctx, m.ID))
	assert.ErrorIs(s.T(), s.repo.Delete(s.ctx, m.ID), ErrNotFound)

	_, err := s.repo.GetByID(s.ctx, m.ID)
	assert.ErrorIs(s.T(), err, ErrNotFound)
}

func (s *QueueRepositoryTestSuite) TestFirstAndLast() {
	_, err := s.repo.First(s.ctx)
	assert.ErrorIs(s.T(), err, ErrNotFound)

	a := s.insert(nil)
	s.insert(nil)
	c := s.insert(nil)

	first, err := s.repo.First(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), a.ID, first.ID)

	last, err := s.repo.Last(s.ctx)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), c.ID, last.ID)
}

func (s *QueueRepositoryTestSuite) TestList_Pagination() {
	for i := 0; i < 5; i++ {
		s.insert(nil)
	}

	page, total, err := s.repo.List(s.ctx, 2, 1)
	require.NoError(s.T(), err)
	assert.Equal(s.T(), int64(5), total)
	require.Len(s.T(), page, 2)
	assert.Greater(s.T(), page[0].ID, page[1].ID)
}

func (s *QueueRepositoryTestSuite) TestListCreatedBefore() {
	old := s.insert(func(m *models.Message) { m.CreatedAt = testNow - 86400*10 })
	s.insert(func(m *models.Message) { m.CreatedAt = testNow })

	got, err := s.repo.ListCreatedBefore(s.ctx, testNow-86400, 100)
	require.NoError(s.T(), err)
	require.Len(s.T(), got, 1)
	assert.Equal(s.T(), old.ID, got[0].ID)

	got, err = s.repo.ListCreatedBefore(s.ctx, 0, 100)
	require.NoError(s.T(), err)
	assert.Len(s.T(), got, 2)
}

func (s *QueueRepositoryTestSuite) TestResetSequence_RestartsIDs() {
	m := s.insert(nil)
	require.NoError(s.T(), s.repo.Delete(s.ctx, m.ID))

	require.NoError(s.T(), s.repo.ResetSequence(s.ctx))

	next := s.insert(nil)
	assert.Equal(s.T(), uint(1), next.ID)
}
