package blog

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventUserRegistered       ActivityEventType = "user.registered"
	ActivityEventUserConfirmed        ActivityEventType = "user.confirmed"
	ActivityEventLoginSuccess         ActivityEventType = "auth.login.success"
	ActivityEventLoginFailure         ActivityEventType = "auth.login.failure"
	ActivityEventPasswordChanged      ActivityEventType = "auth.password.changed"
	ActivityEventPasswordResetRequest ActivityEventType = "auth.password.reset_requested"
	ActivityEventPasswordResetSuccess ActivityEventType = "auth.password.reset"
	ActivityEventEmailChangeRequest   ActivityEventType = "auth.email.change_requested"
	ActivityEventEmailChanged         ActivityEventType = "auth.email.changed"
	ActivityEventFollowed             ActivityEventType = "graph.followed"
	ActivityEventUnfollowed           ActivityEventType = "graph.unfollowed"
	ActivityEventCommentModerated     ActivityEventType = "comment.moderated"
)

// ActorRef identifies who performed an action
type ActorRef struct {
	ID   string
	Type string
}

// ActivityEvent captures audit-friendly information about an action.
type ActivityEvent struct {
	EventType  ActivityEventType
	Actor      ActorRef
	UserID     string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

func normalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}

// LogActivitySink writes every event to logger at info level
func LogActivitySink(logger Logger) ActivitySink {
	if logger == nil {
		logger = defLogger{}
	}
	return ActivitySinkFunc(func(_ context.Context, event ActivityEvent) error {
		logger.Info("activity %s user=%s actor=%s meta=%v", event.EventType, event.UserID, event.Actor.ID, event.Metadata)
		return nil
	})
}

func userActivity(kind ActivityEventType, user *User, meta map[string]any) ActivityEvent {
	id := ""
	if user != nil {
		id = user.ID.String()
	}
	return ActivityEvent{
		EventType:  kind,
		Actor:      ActorRef{ID: id, Type: "user"},
		UserID:     id,
		Metadata:   meta,
		OccurredAt: time.Now(),
	}
}
