package challenge

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/oklahomer/go-kasumi/logger"

	"github.com/stewardbot/steward/discord"
)

// Repository persists compliance records. Each call to SaveRecord must replace the stored record atomically.
type Repository interface {
	LoadRecords(ctx context.Context) ([]*Record, error)
	SaveRecord(ctx context.Context, record *Record) error
}

// RoleMutator grants, revokes and lists the tracked role.
type RoleMutator interface {
	GrantRole(ctx context.Context, userID, roleID string) error
	RevokeRole(ctx context.Context, userID, roleID string) error
	MembersWithRole(ctx context.Context, roleID string) ([]string, error)
}

// Notifier delivers direct messages to members.
type Notifier interface {
	SendDirect(ctx context.Context, userID, content string) error
}

// AlertKind classifies problems that need an operator.
type AlertKind int

const (
	// AlertRevocationFailed means a member was eliminated but still holds the role.
	AlertRevocationFailed AlertKind = iota
	// AlertPersistFailed means a record could not be written.
	AlertPersistFailed
	// AlertNotifyFailed means the bot lacks the rights to message a member.
	AlertNotifyFailed
	// AlertMemberListFailed means the tracked members could not be listed.
	AlertMemberListFailed
	// AlertGrantFailed means the bot lacks the rights to grant the role on opt-in.
	AlertGrantFailed
)

// Alert describes a problem that must be reported to the operator channel.
type Alert struct {
	Kind   AlertKind
	UserID string
	Err    error
}

func (a *Alert) String() string {
	switch a.Kind {
	case AlertRevocationFailed:
		return fmt.Sprintf(":warning: %s was eliminated from the challenge but the role could not be removed. Remove it by hand or run `;challenge reset`. (%s)", discord.Mention(a.UserID), a.Err)
	case AlertPersistFailed:
		return fmt.Sprintf(":warning: The challenge record of %s could not be saved. (%s)", discord.Mention(a.UserID), a.Err)
	case AlertNotifyFailed:
		return fmt.Sprintf(":warning: I am not allowed to message %s about the challenge. (%s)", discord.Mention(a.UserID), a.Err)
	case AlertMemberListFailed:
		return fmt.Sprintf(":warning: I cannot list the challenge members. (%s)", a.Err)
	case AlertGrantFailed:
		return fmt.Sprintf(":warning: %s asked to join the challenge but I cannot grant the role. (%s)", discord.Mention(a.UserID), a.Err)
	default:
		return fmt.Sprintf(":warning: %s", a.Err)
	}
}

// Status is a snapshot of the challenge for the status command.
type Status struct {
	Enabled           bool
	TimeLimit         time.Duration
	Schedule          string
	Records           int
	Warned            int
	Eliminated        int
	RevocationPending int
}

// Service owns the compliance records and the enabled toggle.
// All record mutations go through it and are written through to the Repository.
type Service struct {
	config   *Config
	repo     Repository
	roles    RoleMutator
	notifier Notifier

	mu        sync.Mutex
	enabled   bool
	timeLimit time.Duration
	records   map[string]*Record

	// revokeFailures holds the last revocation error of each eliminated member still holding the role.
	revokeFailures map[string]error
}

// NewService loads the stored records and returns a Service ready to be ticked.
func NewService(ctx context.Context, config *Config, repo Repository, roles RoleMutator, notifier Notifier) (*Service, error) {
	if config.TimeLimit <= 0 {
		return nil, ErrInvalidTimeLimit
	}

	stored, err := repo.LoadRecords(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load compliance records: %w", err)
	}

	records := make(map[string]*Record, len(stored))
	for _, r := range stored {
		records[r.UserID] = r
	}
	logger.Infof("Loaded %d compliance records", len(records))

	return &Service{
		config:    config,
		repo:      repo,
		roles:     roles,
		notifier:  notifier,
		enabled:   config.Enabled,
		timeLimit: config.TimeLimit,
		records:   records,

		revokeFailures: map[string]error{},
	}, nil
}

// Enable resumes polling and opt-in role grants.
func (s *Service) Enable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = true
}

// Disable suspends polling and opt-in role grants. Records are kept and activity is still counted.
func (s *Service) Disable() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.enabled = false
}

// Enabled tells if the ladder is currently advancing.
func (s *Service) Enabled() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.enabled
}

// SetTimeLimit changes the time limit used from the next evaluation on.
func (s *Service) SetTimeLimit(d time.Duration) error {
	if d <= 0 {
		return ErrInvalidTimeLimit
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.timeLimit = d
	return nil
}

// Status returns a snapshot of the toggle, the settings and the record counts.
func (s *Service) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Enabled:   s.enabled,
		TimeLimit: s.timeLimit,
		Schedule:  s.config.Schedule,
		Records:   len(s.records),
	}
	for _, r := range s.records {
		switch r.State() {
		case Warned:
			status.Warned++
		case Removed:
			status.Eliminated++
		}
		if r.RevocationPending {
			status.RevocationPending++
		}
	}
	return status
}

// Record returns a copy of the member's record.
func (s *Service) Record(userID string) (*Record, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.records[userID]
	if !ok {
		return nil, false
	}
	return r.Clone(), true
}

// ReportActivity records a qualifying post. It applies while the challenge is disabled too,
// since only warn and remove decisions are suspended.
func (s *Service) ReportActivity(ctx context.Context, userID string, at time.Time) (*Record, error) {
	activitiesObserved.Inc()
	return s.mutate(ctx, userID, func(r *Record) {
		ApplyActivity(r, at)
	})
}

// OnOptIn grants the tracked role and puts the member back on the ladder as compliant.
func (s *Service) OnOptIn(ctx context.Context, userID string) (*Record, error) {
	if !s.Enabled() {
		return nil, ErrDisabled
	}

	if err := s.roles.GrantRole(ctx, userID, s.config.RoleID); err != nil {
		sideEffectFailures.WithLabelValues("grant").Inc()
		return nil, fmt.Errorf("failed to grant the challenge role to %s: %w", userID, err)
	}

	transitions.WithLabelValues("opt_in").Inc()
	return s.mutate(ctx, userID, ApplyOptIn)
}

// CompleteModule marks a module as completed by the member.
func (s *Service) CompleteModule(ctx context.Context, userID, module string) (*Record, bool, error) {
	var added bool
	r, err := s.mutate(ctx, userID, func(r *Record) {
		added = r.AddModule(module)
	})
	return r, added, err
}

// mutate applies fn to a copy of the member's record, stores it and writes it through.
// The in-memory record is updated even when the write fails so the next write catches up.
func (s *Service) mutate(ctx context.Context, userID string, fn func(*Record)) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := NewRecord(userID)
	if current, ok := s.records[userID]; ok {
		next = current.Clone()
	}
	fn(next)
	s.records[userID] = next
	if !next.RevocationPending {
		delete(s.revokeFailures, userID)
	}

	if err := s.repo.SaveRecord(ctx, next); err != nil {
		persistFailures.Inc()
		return next.Clone(), fmt.Errorf("%w of %s: %w", ErrPersist, userID, err)
	}
	return next.Clone(), nil
}

// Tick evaluates every member currently holding the tracked role.
// Each member is evaluated in isolation so one failing member does not stop the others.
// When ctx is canceled the member in flight is finished and the rest are skipped.
func (s *Service) Tick(ctx context.Context, now time.Time) ([]*Alert, error) {
	if !s.Enabled() {
		ticksRun.WithLabelValues("disabled").Inc()
		return nil, nil
	}

	started := time.Now()
	defer func() {
		tickDuration.Observe(time.Since(started).Seconds())
	}()

	memberIDs, err := s.roles.MembersWithRole(ctx, s.config.RoleID)
	if err != nil {
		ticksRun.WithLabelValues("failed").Inc()
		if errors.Is(err, discord.ErrPermissionDenied) {
			return []*Alert{{Kind: AlertMemberListFailed, Err: err}}, nil
		}
		return nil, fmt.Errorf("failed to list challenge members: %w", err)
	}
	trackedMembers.Set(float64(len(memberIDs)))

	var alerts []*Alert
	for _, userID := range memberIDs {
		if ctx.Err() != nil {
			ticksRun.WithLabelValues("canceled").Inc()
			return alerts, ctx.Err()
		}
		alerts = append(alerts, s.evaluateMember(context.WithoutCancel(ctx), userID, now)...)
	}
	alerts = append(alerts, s.reconcileRevocations(ctx, memberIDs)...)

	ticksRun.WithLabelValues("completed").Inc()
	return alerts, nil
}

func (s *Service) evaluateMember(ctx context.Context, userID string, now time.Time) []*Alert {
	s.mu.Lock()
	if !s.enabled {
		s.mu.Unlock()
		return nil
	}

	current, known := s.records[userID]
	dirty := !known
	switch {
	case !known:
		current = NewRecord(userID)

	case current.Eliminated && current.RevocationPending:
		lastErr := s.revokeFailures[userID]
		s.mu.Unlock()
		if errors.Is(lastErr, discord.ErrPermissionDenied) {
			return nil
		}
		return s.revoke(ctx, userID)

	case current.Eliminated:
		// The member holds the role again, so it was granted by hand.
		current = current.Clone()
		ApplyOptIn(current)
		dirty = true
	}

	next, action := Evaluate(now, current, s.timeLimit)
	var saveErr error
	if dirty || action.Changed() {
		s.records[userID] = next
		saveErr = s.repo.SaveRecord(ctx, next)
	}
	timeLimit := s.timeLimit
	s.mu.Unlock()

	var alerts []*Alert
	if saveErr != nil {
		persistFailures.Inc()
		logger.Errorf("Failed to save the challenge record of %s: %+v", userID, saveErr)
		alerts = append(alerts, &Alert{Kind: AlertPersistFailed, UserID: userID, Err: saveErr})
	}

	if action.Changed() {
		transitions.WithLabelValues(action.String()).Inc()
		logger.Debugf("Challenge transition for %s: %s", userID, action)
	}

	switch action {
	case ActionWarn:
		if alert := s.notify(ctx, userID, "warning", s.warningMessage(timeLimit)); alert != nil {
			alerts = append(alerts, alert)
		}

	case ActionRemove:
		alerts = append(alerts, s.revoke(ctx, userID)...)

	}

	return alerts
}

// revoke removes the tracked role from an eliminated member and announces the removal once it is gone.
// A permission problem is not retried until an operator acts. Any other failure is retried on the next tick.
// The operator is alerted on the first failure only.
func (s *Service) revoke(ctx context.Context, userID string) []*Alert {
	err := s.roles.RevokeRole(ctx, userID, s.config.RoleID)
	switch {
	case err == nil:
		return s.completeRevocation(ctx, userID, true)

	case errors.Is(err, discord.ErrTargetNotFound):
		logger.Infof("Member %s left before the challenge role could be revoked", userID)
		return s.completeRevocation(ctx, userID, false)
	}

	sideEffectFailures.WithLabelValues("revoke").Inc()
	logger.Errorf("Failed to revoke the challenge role from %s: %+v", userID, err)

	s.mu.Lock()
	_, retried := s.revokeFailures[userID]
	s.revokeFailures[userID] = err
	s.mu.Unlock()

	if retried {
		return nil
	}
	return []*Alert{{Kind: AlertRevocationFailed, UserID: userID, Err: err}}
}

// completeRevocation clears the pending flag of an eliminated member whose role is gone.
func (s *Service) completeRevocation(ctx context.Context, userID string, announce bool) []*Alert {
	s.mu.Lock()
	delete(s.revokeFailures, userID)
	current, ok := s.records[userID]
	if !ok || !current.RevocationPending {
		s.mu.Unlock()
		return nil
	}
	next := current.Clone()
	next.RevocationPending = false
	s.records[userID] = next
	saveErr := s.repo.SaveRecord(ctx, next)
	s.mu.Unlock()

	var alerts []*Alert
	if saveErr != nil {
		persistFailures.Inc()
		logger.Errorf("Failed to save the challenge record of %s: %+v", userID, saveErr)
		alerts = append(alerts, &Alert{Kind: AlertPersistFailed, UserID: userID, Err: fmt.Errorf("%w of %s: %w", ErrPersist, userID, saveErr)})
	}

	if announce {
		if alert := s.notify(ctx, userID, "removal", s.removalMessage(next)); alert != nil {
			alerts = append(alerts, alert)
		}
	}
	return alerts
}

// reconcileRevocations settles pending revocations of members who no longer hold the role,
// such as when an operator removed it by hand.
func (s *Service) reconcileRevocations(ctx context.Context, memberIDs []string) []*Alert {
	holding := make(map[string]struct{}, len(memberIDs))
	for _, id := range memberIDs {
		holding[id] = struct{}{}
	}

	s.mu.Lock()
	var settled []string
	for userID, r := range s.records {
		if _, ok := holding[userID]; !ok && r.RevocationPending {
			settled = append(settled, userID)
		}
	}
	s.mu.Unlock()
	slices.Sort(settled)

	var alerts []*Alert
	for _, userID := range settled {
		alerts = append(alerts, s.completeRevocation(ctx, userID, true)...)
	}
	return alerts
}

// notify sends a best-effort DM. Only a permission problem is turned into an alert.
func (s *Service) notify(ctx context.Context, userID, effect, content string) *Alert {
	err := s.notifier.SendDirect(ctx, userID, content)
	if err == nil {
		return nil
	}

	sideEffectFailures.WithLabelValues(effect).Inc()
	switch {
	case errors.Is(err, discord.ErrTargetNotFound):
		logger.Debugf("Skipping %s for %s: %+v", effect, userID, err)
		return nil

	case errors.Is(err, discord.ErrPermissionDenied):
		logger.Warnf("Not allowed to send %s to %s: %+v", effect, userID, err)
		return &Alert{Kind: AlertNotifyFailed, UserID: userID, Err: err}

	default:
		logger.Warnf("Failed to send %s to %s: %+v", effect, userID, err)
		return nil
	}
}

// ForceReset revokes the tracked role from every member holding it and clears their ladder.
// Members whose role could not be revoked keep their record and are reported.
func (s *Service) ForceReset(ctx context.Context) (int, []*Alert, error) {
	memberIDs, err := s.roles.MembersWithRole(ctx, s.config.RoleID)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to list challenge members: %w", err)
	}

	var alerts []*Alert
	reset := 0
	for _, userID := range memberIDs {
		err := s.roles.RevokeRole(ctx, userID, s.config.RoleID)
		if err != nil && !errors.Is(err, discord.ErrTargetNotFound) {
			sideEffectFailures.WithLabelValues("revoke").Inc()
			logger.Errorf("Failed to revoke the challenge role from %s during reset: %+v", userID, err)
			alerts = append(alerts, &Alert{Kind: AlertRevocationFailed, UserID: userID, Err: err})
			continue
		}

		if _, err := s.mutate(ctx, userID, ApplyForceReset); err != nil {
			logger.Errorf("Failed to save the reset of %s: %+v", userID, err)
			alerts = append(alerts, &Alert{Kind: AlertPersistFailed, UserID: userID, Err: err})
		}
		reset++
	}

	transitions.WithLabelValues("force_reset").Add(float64(reset))
	return reset, alerts, nil
}

func (s *Service) warningMessage(timeLimit time.Duration) string {
	return fmt.Sprintf(
		"You haven't posted an image in %s for over %s. Post one before the next check or you will lose the challenge role.",
		discord.ChannelMention(s.config.ChannelID),
		FormatDuration(timeLimit),
	)
}

func (s *Service) removalMessage(r *Record) string {
	return fmt.Sprintf(
		"You missed two deadlines in a row, so the challenge role was removed. Your %d images are still on record. React to the sign-up message to join again.",
		r.TotalImages,
	)
}

// FormatDuration renders a duration in days, hours and minutes, dropping zero parts.
func FormatDuration(d time.Duration) string {
	if d < time.Minute {
		return d.String()
	}

	days := d / (24 * time.Hour)
	d -= days * 24 * time.Hour
	hours := d / time.Hour
	d -= hours * time.Hour
	minutes := d / time.Minute

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", int64(days)))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", int64(hours)))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", int64(minutes)))
	}
	return strings.Join(parts, " ")
}
