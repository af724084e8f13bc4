package scheduler

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/dokkiitech/okusuri/internal/domain"
	"github.com/dokkiitech/okusuri/internal/notify"
)

// Dispatcher sends one notification per call; notify.Notifier implements it.
type Dispatcher interface {
	SendReminder(ctx context.Context, userID, session string) notify.Result
	SendLowStock(ctx context.Context, userID, medicationName string, remainingDays int) notify.Result
}

// Store is the read side the scheduler scans each tick, plus the alert-ledger
// write. store.Repo implements it.
type Store interface {
	ListReminderEnabled(ctx context.Context) ([]domain.ReminderSettings, error)
	ListLowStockEnabled(ctx context.Context) ([]domain.ReminderSettings, error)
	ListMedications(ctx context.Context, userID string) ([]domain.Medication, error)
	SetLowAlerted(ctx context.Context, id string, alerted bool) error
}

// Scheduler matches reminder times against the wall clock once per minute and
// evaluates low-supply alerts in the same tick.
type Scheduler struct {
	store       Store
	dispatcher  Dispatcher
	log         *zap.Logger
	loc         *time.Location
	threshold   float64 // days of supply, inclusive
	sendTimeout time.Duration
	now         func() time.Time

	cron     *cron.Cron
	mu       sync.Mutex
	armed    bool
	inFlight atomic.Bool
}

func New(st Store, d Dispatcher, log *zap.Logger, loc *time.Location, threshold float64, sendTimeout time.Duration) *Scheduler {
	return &Scheduler{
		store:       st,
		dispatcher:  d,
		log:         log,
		loc:         loc,
		threshold:   threshold,
		sendTimeout: sendTimeout,
		now:         time.Now,
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log.Sugar()})),
		),
	}
}

// cronLogger adapts zap to the cron.Logger interface used by the recovery
// wrapper.
type cronLogger struct{ log *zap.SugaredLogger }

func (l cronLogger) Info(msg string, kv ...interface{}) { l.log.Infow(msg, kv...) }

func (l cronLogger) Error(err error, msg string, kv ...interface{}) {
	l.log.Errorw(msg, append(kv, "error", err)...)
}

// Start arms the every-minute job exactly once and reports whether this call
// armed it. A second call is a no-op returning false, so re-initialization
// can never register a duplicate timer.
func (s *Scheduler) Start() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.armed {
		s.log.Info("scheduler already armed, skipping")
		return false
	}
	// AddFunc only fails on a bad spec; "* * * * *" is constant.
	if _, err := s.cron.AddFunc("* * * * *", func() { s.tick(context.Background()) }); err != nil {
		s.log.Error("arming scheduler failed", zap.Error(err))
		return false
	}
	s.cron.Start()
	s.armed = true
	s.log.Info("scheduler armed",
		zap.String("tz", s.loc.String()),
		zap.Float64("lowStockThresholdDays", s.threshold),
	)
	return true
}

// Stop drains the cron loop. Safe to call when never armed.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.armed {
		return
	}
	<-s.cron.Stop().Done()
	s.armed = false
	s.log.Info("scheduler stopped")
}

// Entries exposes the registered cron entries; used to assert the idempotent
// arming behavior.
func (s *Scheduler) Entries() int {
	return len(s.cron.Entries())
}

// tick runs one full cycle: reminder pass, then low-supply pass. Each pass
// contains its own failures so one bad phase never unregisters the timer. If
// the previous tick is still running, this one is skipped rather than
// overlapping scans against the same data.
func (s *Scheduler) tick(ctx context.Context) {
	if !s.inFlight.CompareAndSwap(false, true) {
		s.log.Warn("previous tick still running, skipping")
		return
	}
	defer s.inFlight.Store(false)

	clock := domain.ClockHHMM(s.now(), s.loc)
	s.reminderPass(ctx, clock)
	s.lowStockPass(ctx)
}

// reminderPass dispatches one notification per (user, session) whose
// configured time equals the current clock string. Matches across all users
// are sent concurrently and joined before the pass returns.
func (s *Scheduler) reminderPass(ctx context.Context, clock string) {
	settings, err := s.store.ListReminderEnabled(ctx)
	if err != nil {
		s.log.Error("reminder scan failed", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, st := range settings {
		for session, raw := range st.ReminderTimes {
			if raw == "" {
				continue // session has no scheduled time (頓服 by default)
			}
			normalized, err := domain.NormalizeHHMM(raw)
			if err != nil {
				s.log.Warn("skipping malformed reminder time",
					zap.String("userID", st.UserID),
					zap.String("session", session),
					zap.String("value", raw),
				)
				continue
			}
			if normalized != clock {
				continue
			}
			wg.Add(1)
			go func(userID, session string) {
				defer wg.Done()
				sctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
				defer cancel()
				s.dispatcher.SendReminder(sctx, userID, session)
			}(st.UserID, session)
		}
	}
	wg.Wait()
}

// lowStockPass alerts once per below-threshold episode: the ledger flag is
// set after a successful send and cleared when the supply recovers, so the
// alert re-fires only on the next crossing.
func (s *Scheduler) lowStockPass(ctx context.Context) {
	settings, err := s.store.ListLowStockEnabled(ctx)
	if err != nil {
		s.log.Error("low-stock scan failed", zap.Error(err))
		return
	}

	var wg sync.WaitGroup
	for _, st := range settings {
		meds, err := s.store.ListMedications(ctx, st.UserID)
		if err != nil {
			s.log.Error("loading medications failed",
				zap.String("userID", st.UserID), zap.Error(err))
			continue
		}
		for _, m := range meds {
			days, ok := m.RemainingDays()
			if !ok {
				continue // no daily intake defined
			}
			if days > s.threshold {
				if m.LowAlerted {
					// Replenished above threshold: re-arm the alert.
					if err := s.store.SetLowAlerted(ctx, m.ID, false); err != nil {
						s.log.Error("clearing alert flag failed",
							zap.String("medicationID", m.ID), zap.Error(err))
					}
				}
				continue
			}
			if m.LowAlerted {
				continue
			}
			ceilDays, _ := m.RemainingDaysCeil()
			wg.Add(1)
			go func(med domain.Medication, ceilDays int) {
				defer wg.Done()
				sctx, cancel := context.WithTimeout(ctx, s.sendTimeout)
				defer cancel()
				res := s.dispatcher.SendLowStock(sctx, med.UserID, med.Name, ceilDays)
				if res.Sent() {
					if err := s.store.SetLowAlerted(ctx, med.ID, true); err != nil {
						s.log.Error("recording alert flag failed",
							zap.String("medicationID", med.ID), zap.Error(err))
					}
				}
			}(m, ceilDays)
		}
	}
	wg.Wait()
}
