// Package scheduler delivers scheduled messages from in-process timers.
//
// A record moves from pending to delivered or cancelled and never back.
// Each record has at most one armed timer per process; records whose timer
// was lost to a restart are re-armed by Recover.
package scheduler

import (
	"context"
	"strings"
	"sync"
	"time"

	"chattrix-backend/internal/schedule/domain"
	"chattrix-backend/internal/schedule/repository"
	"chattrix-backend/pkg/config"
	"chattrix-backend/pkg/docstore"
	"chattrix-backend/pkg/events"
	"chattrix-backend/pkg/logger"
	"chattrix-backend/pkg/metrics"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
)

const deliverTimeout = 30 * time.Second

type MemberChecker interface {
	RequireMember(ctx context.Context, roomID, username string) error
}

type FriendChecker interface {
	RequireFriend(ctx context.Context, username, other string) error
}

// AccessChecker decides whether owner may post to a target conversation
type AccessChecker interface {
	MemberChecker
	FriendChecker
}

type access struct {
	MemberChecker
	FriendChecker
}

// NewAccess combines the room and friend checks
func NewAccess(rooms MemberChecker, friends FriendChecker) AccessChecker {
	return access{MemberChecker: rooms, FriendChecker: friends}
}

type armed struct {
	timer clockwork.Timer
}

// Scheduler arms one timer per scheduled message
type Scheduler struct {
	repo      repository.ScheduleRepository
	access    AccessChecker
	publisher events.Publisher
	clock     clockwork.Clock
	policy    config.FailurePolicy
	catchUp   bool
	log       zerolog.Logger

	mu      sync.Mutex
	timers  map[string]*armed
	stopped bool
	wg      sync.WaitGroup
}

// NewScheduler creates a new Scheduler
func NewScheduler(repo repository.ScheduleRepository, access AccessChecker, publisher events.Publisher, cfg *config.Config, clock clockwork.Clock) *Scheduler {
	return &Scheduler{
		repo:      repo,
		access:    access,
		publisher: publisher,
		clock:     clock,
		policy:    cfg.DeliveryFailurePolicy,
		catchUp:   cfg.ScheduleCatchUp,
		log:       logger.Component("scheduler"),
		timers:    make(map[string]*armed),
	}
}

// Schedule persists the message and arms its timer. It returns without waiting for delivery.
func (s *Scheduler) Schedule(ctx context.Context, owner, text string, at time.Time, target domain.Target) (*domain.ScheduledMessage, error) {
	if !target.Valid() {
		return nil, domain.ErrBadTarget
	}
	if at.IsZero() {
		return nil, domain.ErrDateRequired
	}
	if !at.After(s.clock.Now()) {
		return nil, domain.ErrDateInPast
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, domain.ErrEmptyText
	}
	if err := s.checkAccess(ctx, owner, target); err != nil {
		return nil, err
	}
	if s.isStopped() {
		return nil, domain.ErrStopped
	}

	msg := &domain.ScheduledMessage{
		ID:          uuid.New().String(),
		Owner:       owner,
		Text:        text,
		ScheduledAt: time.UnixMilli(at.UnixMilli()).UTC(),
		Target:      target,
	}
	if err := s.repo.Save(ctx, msg); err != nil {
		return nil, err
	}
	s.arm(msg)
	s.log.Debug().Str("id", msg.ID).Str("owner", owner).Time("at", msg.ScheduledAt).Msg("message scheduled")
	return msg, nil
}

// Cancel disarms the timer and deletes the record. Cancelling a delivered or
// cancelled message does nothing.
func (s *Scheduler) Cancel(ctx context.Context, owner string, target domain.Target, id string) error {
	if !target.Valid() || !docstore.ValidID(id) {
		return domain.ErrBadTarget
	}
	s.disarm(target.Path(owner, id))
	return s.repo.Delete(ctx, owner, target, id)
}

// Recover re-arms the owner's future records for target and returns every
// pending record. Records whose time already passed are flagged Overdue and
// are delivered only when catch-up is enabled.
func (s *Scheduler) Recover(ctx context.Context, owner string, target domain.Target) ([]*domain.ScheduledMessage, error) {
	if !target.Valid() {
		return nil, domain.ErrBadTarget
	}
	if err := s.checkAccess(ctx, owner, target); err != nil {
		return nil, err
	}

	records, err := s.repo.List(ctx, owner, target)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	for _, msg := range records {
		if msg.ScheduledAt.After(now) {
			s.arm(msg)
			continue
		}
		msg.Overdue = true
		if s.catchUp {
			s.arm(msg)
		}
	}
	return records, nil
}

// Armed returns how many timers are live
func (s *Scheduler) Armed() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

func (s *Scheduler) isStopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// Stop disarms every timer and waits for running deliveries
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	for key, a := range s.timers {
		a.timer.Stop()
		delete(s.timers, key)
		metrics.ScheduledArmed.Dec()
	}
	s.mu.Unlock()

	s.wg.Wait()
	s.log.Info().Msg("stopped")
}

func (s *Scheduler) arm(msg *domain.ScheduledMessage) {
	key := msg.Key()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.stopped {
		return
	}
	if _, ok := s.timers[key]; ok {
		return
	}

	delay := msg.ScheduledAt.Sub(s.clock.Now())
	if delay < 0 {
		delay = 0
	}
	a := &armed{}
	s.timers[key] = a
	a.timer = s.clock.AfterFunc(delay, func() { s.fire(key, a, msg) })
	metrics.ScheduledArmed.Inc()
}

func (s *Scheduler) disarm(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if a, ok := s.timers[key]; ok {
		a.timer.Stop()
		delete(s.timers, key)
		metrics.ScheduledArmed.Dec()
	}
}

func (s *Scheduler) fire(key string, a *armed, msg *domain.ScheduledMessage) {
	s.mu.Lock()
	// A cancel that raced with expiry already removed the entry.
	if s.stopped || s.timers[key] != a {
		s.mu.Unlock()
		return
	}
	delete(s.timers, key)
	metrics.ScheduledArmed.Dec()
	s.wg.Add(1)
	s.mu.Unlock()

	defer s.wg.Done()
	ctx, cancel := context.WithTimeout(context.Background(), deliverTimeout)
	defer cancel()
	s.deliver(ctx, msg)
}

func (s *Scheduler) deliver(ctx context.Context, msg *domain.ScheduledMessage) {
	delivered, err := s.repo.Deliver(ctx, msg.Owner, msg.Target, msg.ID)
	if err != nil {
		s.fail(ctx, msg, err)
		return
	}
	if !delivered {
		metrics.ScheduledDeliveriesTotal.WithLabelValues("skipped").Inc()
		s.log.Debug().Str("id", msg.ID).Msg("scheduled message already gone")
		return
	}

	metrics.ScheduledDeliveriesTotal.WithLabelValues("delivered").Inc()
	s.log.Info().Str("id", msg.ID).Str("owner", msg.Owner).Str("scope", string(msg.Target.Scope)).Msg("scheduled message delivered")

	s.publish(ctx, events.Event{
		Type:  events.TypeScheduledDelivered,
		Owner: msg.Owner,
		Data:  eventData(msg),
	})
	if msg.Target.Scope == domain.ScopeDirect {
		s.publish(ctx, events.Event{
			Type:  events.TypeDirectMessage,
			Owner: msg.Target.Friend,
			Data:  map[string]string{"from": msg.Owner, "text": msg.Text},
		})
	}
}

// fail applies the delivery failure policy. The record is kept either way.
func (s *Scheduler) fail(ctx context.Context, msg *domain.ScheduledMessage, err error) {
	metrics.ScheduledDeliveriesTotal.WithLabelValues("failed").Inc()
	if s.policy != config.PolicySurface {
		s.log.Debug().Err(err).Str("id", msg.ID).Msg("scheduled delivery failed")
		return
	}

	s.log.Error().Err(err).Str("id", msg.ID).Str("owner", msg.Owner).Msg("scheduled delivery failed")
	if markErr := s.repo.MarkFailed(ctx, msg.Owner, msg.Target, msg.ID, err.Error()); markErr != nil {
		s.log.Warn().Err(markErr).Str("id", msg.ID).Msg("failed to mark scheduled message")
	}
	data := eventData(msg)
	data["error"] = err.Error()
	s.publish(ctx, events.Event{Type: events.TypeScheduledFailed, Owner: msg.Owner, Data: data})
}

func (s *Scheduler) checkAccess(ctx context.Context, owner string, target domain.Target) error {
	if s.access == nil {
		return nil
	}
	if target.Scope == domain.ScopeDirect {
		return s.access.RequireFriend(ctx, owner, target.Friend)
	}
	return s.access.RequireMember(ctx, target.RoomID, owner)
}

func (s *Scheduler) publish(ctx context.Context, evt events.Event) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.Publish(ctx, evt); err != nil {
		s.log.Warn().Err(err).Str("type", evt.Type).Msg("failed to publish event")
	}
}

func eventData(msg *domain.ScheduledMessage) map[string]string {
	field, value := msg.Target.Field()
	return map[string]string{"id": msg.ID, "scope": string(msg.Target.Scope), field: value}
}
