package scheduler

import (
	"context"
	"fmt"
	"time"

	"submission_bot/internal/domain/archive"
	"submission_bot/internal/domain/submission"
	tg "submission_bot/internal/domain/telegram"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// AdminNotifier is the piece of configuration the scheduler needs.
type AdminNotifier interface {
	AdminID() int64
	BlockedCount() int
}

// Scheduler runs the periodic background jobs: a daily digest to the
// admin and a safety flush of the submission snapshot.
type Scheduler struct {
	cronEngine *cron.Cron
	cfg        AdminNotifier
	repo       submission.Repository
	client     tg.Client
	archive    archive.Repository
	log        *logrus.Entry

	cronSpecDigest string
	cronSpecFlush  string
}

func New(cfg AdminNotifier, repo submission.Repository, client tg.Client, arch archive.Repository, log *logrus.Entry, cronSpecDigest, cronSpecFlush string) *Scheduler {
	return &Scheduler{
		cronEngine:     cron.New(cron.WithLocation(time.Local)),
		cfg:            cfg,
		repo:           repo,
		client:         client,
		archive:        arch,
		log:            log,
		cronSpecDigest: cronSpecDigest,
		cronSpecFlush:  cronSpecFlush,
	}
}

func (s *Scheduler) Start() error {
	if _, err := s.cronEngine.AddFunc(s.cronSpecDigest, s.sendDigest); err != nil {
		return fmt.Errorf("add digest cron job (%q): %w", s.cronSpecDigest, err)
	}
	if _, err := s.cronEngine.AddFunc(s.cronSpecFlush, s.flush); err != nil {
		return fmt.Errorf("add flush cron job (%q): %w", s.cronSpecFlush, err)
	}
	s.cronEngine.Start()
	s.log.WithFields(logrus.Fields{
		"digest_spec": s.cronSpecDigest,
		"flush_spec":  s.cronSpecFlush,
	}).Info("Scheduler started")
	return nil
}

// sendDigest reports queue health to the admin once a day.
func (s *Scheduler) sendDigest() {
	adminID := s.cfg.AdminID()
	if adminID == 0 {
		return
	}

	text := fmt.Sprintf("📋 Daily digest\nPending submissions: %d\nBlocked users: %d",
		s.repo.CountPending(), s.cfg.BlockedCount())

	if s.archive != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		approved, aerr := s.archive.CountByOutcome(ctx, submission.OutcomeApproved)
		rejected, rerr := s.archive.CountByOutcome(ctx, submission.OutcomeRejected)
		cancel()
		if aerr == nil && rerr == nil {
			text += fmt.Sprintf("\nAll-time approved: %d\nAll-time rejected: %d", approved, rejected)
		} else {
			s.log.WithFields(logrus.Fields{"approved_err": aerr, "rejected_err": rerr}).
				Warn("Archive stats unavailable for digest")
		}
	}

	if _, err := s.client.SendMessage(tg.Dest(adminID), text, nil); err != nil {
		s.log.WithError(err).Error("Failed to send daily digest")
	}
}

// flush writes the current snapshot even when no mutation happened
// recently, bounding data loss from a hard crash.
func (s *Scheduler) flush() {
	if err := s.repo.Flush(); err != nil {
		s.log.WithError(err).Error("Periodic snapshot flush failed")
	}
}

// Stop halts job scheduling and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cronEngine.Stop()
	<-ctx.Done()
	s.log.Info("Scheduler stopped")
}
