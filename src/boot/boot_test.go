package boot

import (
	"context"
	"errors"
	"testing"
	"time"

	"pbs/src/booking"
	"pbs/src/models"
	"pbs/src/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	d, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	require.Nil(t, err)
	sqlDB, err := d.DB()
	require.Nil(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.Nil(t, d.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PricingRecord{},
		&models.Booking{},
		&models.BlockedRange{},
		&models.Payment{},
		&models.PaymentAttempt{},
		&models.TrailLog{},
		&models.JobTask{},
	))
	return d
}

func TestSeed(t *testing.T) {
	d := newTestDB(t)

	require.Nil(t, Seed(d))

	var properties []models.Property
	require.Nil(t, d.Preload("PricingRecords").Order("id").Find(&properties).Error)
	require.Len(t, properties, 5)
	assert.Equal(t, "tech-bed-kifaru-brussels", properties[0].Slug)
	assert.Equal(t, types.PROPERTY_FREE, properties[0].Status)
	assert.Len(t, properties[0].PricingRecords, 4)
	assert.Len(t, properties[1].PricingRecords, 1)
	assert.Equal(t, types.DURATION_WEEKLY, properties[1].PricingRecords[0].StayType)
	assert.True(t, properties[2].HasJacuzzi)

	var marble models.Property
	require.Nil(t, d.Preload("PricingRecords").Where("slug = ?", "kifaru-marble-inn-mombasa").First(&marble).Error)
	for _, r := range marble.PricingRecords {
		if r.AccommodationType == types.ACCOMMODATION_SINGLE_BEDROOM {
			require.NotNil(t, r.Occupancy)
			assert.Equal(t, uint(1), *r.Occupancy)
		}
	}

	require.Nil(t, Seed(d))
	var count int64
	d.Model(&models.Property{}).Count(&count)
	assert.Equal(t, int64(5), count)
	d.Model(&models.PricingRecord{}).Count(&count)
	assert.Equal(t, int64(14), count)
}

func TestRunSweepRecordsJob(t *testing.T) {
	d := newTestDB(t)
	m := booking.New(d, booking.Deps{})

	RunSweep(d, m, Sweep{
		name: "complete-finished-stays",
		run: func(ctx context.Context, m *booking.Manager) (int, error) {
			return 3, nil
		},
	})

	var job models.JobTask
	require.Nil(t, d.Where("name = ?", "complete-finished-stays").First(&job).Error)
	assert.Equal(t, models.JOB_COMPLETED, job.Status)
	assert.NotNil(t, job.FinishedAt)
	assert.EqualValues(t, 3, job.Payload["affected"])
	assert.Nil(t, job.Error)
}

func TestRunSweepRecordsFailure(t *testing.T) {
	d := newTestDB(t)
	m := booking.New(d, booking.Deps{})

	RunSweep(d, m, Sweep{
		name: "expire-pending-bookings",
		run: func(ctx context.Context, m *booking.Manager) (int, error) {
			return 0, errors.New("database is locked")
		},
	})

	var job models.JobTask
	require.Nil(t, d.Where("name = ?", "expire-pending-bookings").First(&job).Error)
	assert.Equal(t, models.JOB_FAILED, job.Status)
	require.NotNil(t, job.Error)
	assert.Equal(t, "database is locked", *job.Error)
}

func TestRunSweepAgainstManager(t *testing.T) {
	d := newTestDB(t)
	require.Nil(t, Seed(d))
	m := booking.New(d, booking.Deps{})

	for _, s := range sweeps {
		RunSweep(d, m, s)
	}

	var jobs []models.JobTask
	require.Nil(t, d.Order("name").Find(&jobs).Error)
	require.Len(t, jobs, 2)
	for _, j := range jobs {
		assert.Equal(t, models.JOB_COMPLETED, j.Status)
	}
}

func TestUpdateInterruptedJobs(t *testing.T) {
	d := newTestDB(t)
	stale := models.JobTask{Name: "expire-pending-bookings", RunsAt: time.Now().UTC().Add(-2 * time.Hour), Status: models.JOB_RUNNING}
	fresh := models.JobTask{Name: "complete-finished-stays", RunsAt: time.Now().UTC(), Status: models.JOB_RUNNING}
	require.Nil(t, d.Create(&stale).Error)
	require.Nil(t, d.Create(&fresh).Error)

	UpdateInterruptedJobs(d)

	require.Nil(t, d.First(&stale, "id = ?", stale.ID).Error)
	require.Nil(t, d.First(&fresh, "id = ?", fresh.ID).Error)
	assert.Equal(t, models.JOB_INTERRUPTED, stale.Status)
	assert.Equal(t, models.JOB_RUNNING, fresh.Status)
}
