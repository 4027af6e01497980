package service

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/VPRamon/TSI-sub000/internal/dto"
	"github.com/VPRamon/TSI-sub000/internal/models"
	appErrors "github.com/VPRamon/TSI-sub000/pkg/errors"
)

type stubScheduleStore struct {
	existing     []*models.ScheduleInfo
	findCalls    int
	createErr    error
	insertErrs   []error
	insertCalls  int
	created      []models.ScheduleRow
	inserted     []models.SchedulingBlock
	info         *models.ScheduleInfo
	infoErr      error
	list         []models.ScheduleInfo
	total        int
	lastFilter   models.ScheduleFilter
	nextID       int64
	nextUploaded time.Time
}

func (s *stubScheduleStore) FindByChecksum(ctx context.Context, exec sqlx.ExtContext, checksum string) (*models.ScheduleInfo, error) {
	idx := s.findCalls
	s.findCalls++
	if idx < len(s.existing) && s.existing[idx] != nil {
		return s.existing[idx], nil
	}
	return nil, sql.ErrNoRows
}

func (s *stubScheduleStore) Create(ctx context.Context, exec sqlx.ExtContext, row *models.ScheduleRow) error {
	if s.createErr != nil {
		return s.createErr
	}
	row.ID = s.nextID
	row.UploadedAt = s.nextUploaded
	s.created = append(s.created, *row)
	return nil
}

func (s *stubScheduleStore) InsertBlocks(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, blocks []models.SchedulingBlock) (int, error) {
	idx := s.insertCalls
	s.insertCalls++
	if idx < len(s.insertErrs) && s.insertErrs[idx] != nil {
		return 0, s.insertErrs[idx]
	}
	s.inserted = append(s.inserted, blocks...)
	return len(blocks), nil
}

func (s *stubScheduleStore) Info(ctx context.Context, id int64) (*models.ScheduleInfo, error) {
	return s.info, s.infoErr
}

func (s *stubScheduleStore) List(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleInfo, int, error) {
	s.lastFilter = filter
	return s.list, s.total, nil
}

type stubEnqueuer struct {
	scheduled []int64
	err       error
}

func (s *stubEnqueuer) EnqueuePopulate(scheduleID int64) (*models.ProcessingJob, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.scheduled = append(s.scheduled, scheduleID)
	return &models.ProcessingJob{ID: "job-1", ScheduleID: scheduleID}, nil
}

func f64(v float64) *float64 { return &v }

func sampleStoreRequest() dto.StoreScheduleRequest {
	return dto.StoreScheduleRequest{
		Name:        "night-1",
		DarkPeriods: []dto.PeriodPayload{{Start: f64(60000.0), Stop: f64(60000.4)}},
		Blocks: []dto.BlockPayload{
			{
				OriginalBlockID:      "SB-1",
				TargetRA:             150,
				TargetDec:            -30,
				Priority:             6,
				MinObservationSec:    600,
				RequestedDurationSec: 3600,
				VisibilityPeriods:    []dto.PeriodPayload{{Start: f64(60000.1), Stop: f64(60000.3)}},
			},
			{
				OriginalBlockID:      "SB-2",
				TargetRA:             10,
				TargetDec:            20,
				Priority:             3,
				MinObservationSec:    300,
				RequestedDurationSec: 1800,
			},
		},
	}
}

func newScheduleServiceFixture(t *testing.T, store *stubScheduleStore, jobs populateEnqueuer, cfg ScheduleServiceConfig) (*ScheduleService, func() error) {
	db, mock := newTxMock(t)
	return NewScheduleService(db, store, jobs, nil, fastRetry, nil, nil, cfg), mock.ExpectationsWereMet
}

func TestScheduleServiceStoreCreatesSchedule(t *testing.T) {
	db, mock := newTxMock(t)
	store := &stubScheduleStore{nextID: 11}
	jobs := &stubEnqueuer{}
	svc := NewScheduleService(db, store, jobs, nil, fastRetry, nil, nil, ScheduleServiceConfig{PopulateOnStore: true})

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Store(context.Background(), sampleStoreRequest())
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, int64(11), result.ScheduleID)
	assert.Equal(t, 2, result.BlockCount)
	assert.Len(t, result.Checksum, 64)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, []int64{11}, jobs.scheduled)
	require.Len(t, store.created, 1)
	assert.Equal(t, "night-1", store.created[0].Name)
	assert.Len(t, store.inserted, 2)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceStoreSkipsKnownChecksum(t *testing.T) {
	db, mock := newTxMock(t)
	store := &stubScheduleStore{existing: []*models.ScheduleInfo{{ID: 4, BlockCount: 2}}}
	jobs := &stubEnqueuer{}
	svc := NewScheduleService(db, store, jobs, nil, fastRetry, nil, nil, ScheduleServiceConfig{PopulateOnStore: true})

	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Store(context.Background(), sampleStoreRequest())
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, int64(4), result.ScheduleID)
	assert.Empty(t, store.created)
	assert.Empty(t, jobs.scheduled)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceStorePopulateFlagOverridesDefault(t *testing.T) {
	store := &stubScheduleStore{nextID: 3}
	jobs := &stubEnqueuer{}
	svc, _ := newScheduleServiceFixture(t, store, jobs, ScheduleServiceConfig{PopulateOnStore: true})

	req := sampleStoreRequest()
	populate := false
	req.PopulateAnalytics = &populate

	other := sampleStoreRequest()
	checksumWithFlag, err := req.Checksum()
	require.NoError(t, err)
	checksumWithout, err := other.Checksum()
	require.NoError(t, err)
	assert.Equal(t, checksumWithout, checksumWithFlag)
	assert.False(t, svc.shouldPopulate(req))
	assert.True(t, svc.shouldPopulate(other))
}

func TestScheduleServiceStoreRejectsInvalidPayload(t *testing.T) {
	svc, met := newScheduleServiceFixture(t, &stubScheduleStore{}, nil, ScheduleServiceConfig{})

	empty := sampleStoreRequest()
	empty.Blocks = nil
	_, err := svc.Store(context.Background(), empty)
	assert.ErrorIs(t, err, appErrors.ErrValidation)

	inverted := sampleStoreRequest()
	inverted.Blocks[0].VisibilityPeriods = []dto.PeriodPayload{{Start: f64(60001), Stop: f64(60000)}}
	_, err = svc.Store(context.Background(), inverted)
	assert.ErrorIs(t, err, appErrors.ErrValidation)
	assert.NoError(t, met())
}

func TestScheduleServiceStoreResolvesConcurrentUpload(t *testing.T) {
	db, mock := newTxMock(t)
	store := &stubScheduleStore{
		existing:  []*models.ScheduleInfo{nil, {ID: 9, BlockCount: 2}},
		createErr: &pq.Error{Code: "23505"},
	}
	svc := NewScheduleService(db, store, nil, nil, fastRetry, nil, nil, ScheduleServiceConfig{})

	mock.ExpectBegin()
	mock.ExpectRollback()

	result, err := svc.Store(context.Background(), sampleStoreRequest())
	require.NoError(t, err)
	assert.False(t, result.Created)
	assert.Equal(t, int64(9), result.ScheduleID)
	assert.Equal(t, 2, store.findCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceStoreRetriesTransientFailure(t *testing.T) {
	db, mock := newTxMock(t)
	store := &stubScheduleStore{nextID: 5, insertErrs: []error{driver.ErrBadConn}}
	svc := NewScheduleService(db, store, nil, nil, fastRetry, nil, nil, ScheduleServiceConfig{})

	mock.ExpectBegin()
	mock.ExpectRollback()
	mock.ExpectBegin()
	mock.ExpectCommit()

	result, err := svc.Store(context.Background(), sampleStoreRequest())
	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.Equal(t, 2, store.insertCalls)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleServiceGetNotFound(t *testing.T) {
	svc, _ := newScheduleServiceFixture(t, &stubScheduleStore{infoErr: sql.ErrNoRows}, nil, ScheduleServiceConfig{})

	_, err := svc.Get(context.Background(), 77)
	assert.ErrorIs(t, err, appErrors.ErrScheduleNotFound)
	assert.Equal(t, appErrors.KindNotFound, appErrors.KindOf(err))
}

func TestScheduleServiceListNormalisesPaging(t *testing.T) {
	store := &stubScheduleStore{list: []models.ScheduleInfo{{ID: 1}}, total: 41}
	svc, _ := newScheduleServiceFixture(t, store, nil, ScheduleServiceConfig{})

	items, page, err := svc.List(context.Background(), models.ScheduleFilter{Page: 0, PageSize: 500})
	require.NoError(t, err)
	assert.Len(t, items, 1)
	assert.Equal(t, models.Pagination{Page: 1, PageSize: 20, TotalCount: 41}, *page)
	assert.Equal(t, 20, store.lastFilter.PageSize)
}
