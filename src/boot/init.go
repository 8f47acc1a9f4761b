package boot

import (
	"context"
	"log"
	"time"

	"pbs/src/booking"
	"pbs/src/common"
	"pbs/src/config"
	"pbs/src/db"
	"pbs/src/lib"
	"pbs/src/models"
	"pbs/src/types"
	"pbs/src/utils"

	"gorm.io/gorm"
)

func InitDb() *gorm.DB {
	db := db.GetDb()

	err := db.AutoMigrate(
		&models.User{},
		&models.Property{},
		&models.PricingRecord{},
		&models.Booking{},
		&models.BlockedRange{},
		&models.Payment{},
		&models.PaymentAttempt{},
		&models.TrailLog{},
		&models.JobTask{},
	)
	if err != nil {
		log.Fatalf("error migration: %s", err.Error())
	}

	return db
}

func InitBroker() {
	go UpdateInterruptedJobs(db.GetDb())
	if utils.IsLocal() {
		common.KafkaConsumers()
		return
	}
	common.SQSConsumers()
}

// Sweep is a recurring job run against the booking manager.
type Sweep struct {
	name string
	run  func(ctx context.Context, m *booking.Manager) (int, error)
}

var sweeps = []Sweep{
	{
		name: "expire-pending-bookings",
		run: func(ctx context.Context, m *booking.Manager) (int, error) {
			return m.ExpirePendingBookings(ctx, config.GetPendingBookingTTL())
		},
	},
	{
		name: "complete-finished-stays",
		run: func(ctx context.Context, m *booking.Manager) (int, error) {
			return m.CompleteFinishedStays(ctx)
		},
	},
}

func InitScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("An error has occurred. Check logs for info")
		return
	}
	interval := config.GetSweepInterval()
	manager := booking.GetManager()
	for _, s := range sweeps {
		if _, err := lib.CreateCronJob(s.name, interval, RunSweep, db.GetDb(), manager, s); err != nil {
			log.Printf("Error registering job %s: %s\n", s.name, err.Error())
		}
	}
	log.Println("Jobs in queue:", len(sched.Jobs()))
	sched.Start()
}

func StopScheduler() {
	sched, err := lib.GetScheduler()
	if err != nil {
		log.Println("Error retrieving Scheduler. Check logs for info")
		return
	}
	err = sched.Shutdown()
	if err != nil {
		log.Println("An error has occurred while shutting stopping Scheduler. Check logs for info")
		return
	}
}

// RunSweep executes s once and records the run as a JobTask.
func RunSweep(db *gorm.DB, m *booking.Manager, s Sweep) {
	job := models.JobTask{
		Name:    s.name,
		JobType: "DurationJob",
		RunsAt:  time.Now().UTC(),
		Status:  models.JOB_RUNNING,
	}
	recorded := true
	if err := db.Create(&job).Error; err != nil {
		log.Printf("[scheduler] Could not record job %s: %s\n", s.name, err.Error())
		recorded = false
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()
	affected, runErr := s.run(ctx, m)
	if runErr != nil {
		log.Printf("[scheduler] %s failed: %s\n", s.name, runErr.Error())
	} else if affected > 0 {
		log.Printf("[scheduler] %s: %d bookings updated\n", s.name, affected)
	}

	if !recorded {
		return
	}
	if err := job.Finish(db, types.JSONB{"affected": affected}, runErr); err != nil {
		log.Printf("[scheduler] Could not update job %s: %s\n", job.ID.String(), err.Error())
	}
}

// UpdateInterruptedJobs marks runs left open by a previous process as
// interrupted.
func UpdateInterruptedJobs(db *gorm.DB) {
	err := db.
		Transaction(func(tx *gorm.DB) error {
			return tx.Model(&models.JobTask{}).
				Where("status = ?", models.JOB_RUNNING).
				Where("runs_at < ?", time.Now().UTC().Add(-time.Hour)).
				Update("status", models.JOB_INTERRUPTED).Error
		})
	if err != nil {
		log.Printf("Error while processing interrupted jobs: %s\n", err.Error())
	}
}
