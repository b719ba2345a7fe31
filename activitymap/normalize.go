package activitymap

import (
	"context"
	"strings"
	"time"

	"github.com/goliatone/go-blog"
	"github.com/rs/zerolog"
)

const (
	// MetadataKeyActorType stores the actor type derived from blog.ActorRef.Type.
	MetadataKeyActorType = "actor_type"
	// MetadataKeyObjectID overrides the object id, e.g. a comment id for
	// moderation events.
	MetadataKeyObjectID = "object_id"
)

const (
	defaultChannel  = "blog"
	defaultActorID  = "system"
	objectTypeUser  = "user"
	objectTypePost  = "post"
	objectTypeReply = "comment"
)

// Normalized is a transport-agnostic activity shape for downstream systems.
type Normalized struct {
	ActorID    string         `json:"actor_id"`
	Verb       string         `json:"verb"`
	ObjectType string         `json:"object_type,omitempty"`
	ObjectID   string         `json:"object_id,omitempty"`
	Channel    string         `json:"channel,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	OccurredAt time.Time      `json:"occurred_at"`
}

// Option customizes normalization behavior.
type Option func(*normalizeOptions)

type normalizeOptions struct {
	channel          string
	objectType       string
	actorFallback    string
	objectIDResolver func(blog.ActivityEvent) string
	clock            func() time.Time
}

// Normalize converts a blog.ActivityEvent into a generic normalized shape.
func Normalize(event blog.ActivityEvent, opts ...Option) Normalized {
	options := defaultNormalizeOptions()
	for _, opt := range opts {
		if opt != nil {
			opt(&options)
		}
	}

	actorID := firstNonEmpty(
		strings.TrimSpace(event.Actor.ID),
		strings.TrimSpace(event.UserID),
		strings.TrimSpace(options.actorFallback),
	)

	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = options.clock().UTC()
	}

	objectType := strings.TrimSpace(options.objectType)
	if objectType == "" {
		objectType = objectTypeOf(event.EventType)
	}

	return Normalized{
		ActorID:    actorID,
		Verb:       string(event.EventType),
		ObjectType: objectType,
		ObjectID:   resolveObjectID(event, options.objectIDResolver),
		Channel:    strings.TrimSpace(options.channel),
		Metadata:   normalizeMetadata(event),
		OccurredAt: occurredAt,
	}
}

// WithDefaultChannel sets the default channel for normalized records.
func WithDefaultChannel(channel string) Option {
	return func(opts *normalizeOptions) {
		opts.channel = strings.TrimSpace(channel)
	}
}

// WithObjectType forces the object type instead of deriving it from the
// event verb.
func WithObjectType(objectType string) Option {
	return func(opts *normalizeOptions) {
		opts.objectType = strings.TrimSpace(objectType)
	}
}

// WithObjectIDResolver overrides object-id extraction from ActivityEvent.
func WithObjectIDResolver(resolver func(blog.ActivityEvent) string) Option {
	return func(opts *normalizeOptions) {
		opts.objectIDResolver = resolver
	}
}

// WithActorFallback sets the final actor-id fallback when actor/user ids are empty.
func WithActorFallback(actorID string) Option {
	return func(opts *normalizeOptions) {
		opts.actorFallback = strings.TrimSpace(actorID)
	}
}

func WithClock(clock func() time.Time) Option {
	return func(opts *normalizeOptions) {
		if clock != nil {
			opts.clock = clock
		}
	}
}

// Sink records every event as a structured log line on logger
func Sink(logger zerolog.Logger, opts ...Option) blog.ActivitySink {
	return blog.ActivitySinkFunc(func(_ context.Context, event blog.ActivityEvent) error {
		out := Normalize(event, opts...)
		logger.Info().
			Str("verb", out.Verb).
			Str("actor_id", out.ActorID).
			Str("object_type", out.ObjectType).
			Str("object_id", out.ObjectID).
			Str("channel", out.Channel).
			Fields(out.Metadata).
			Time("occurred_at", out.OccurredAt).
			Msg("activity")
		return nil
	})
}

func defaultNormalizeOptions() normalizeOptions {
	return normalizeOptions{
		channel:       defaultChannel,
		actorFallback: defaultActorID,
		clock:         time.Now,
	}
}

// objectTypeOf maps a verb to the kind of record it touches
func objectTypeOf(kind blog.ActivityEventType) string {
	switch kind {
	case blog.ActivityEventCommentModerated:
		return objectTypeReply
	}
	if strings.HasPrefix(string(kind), "post.") {
		return objectTypePost
	}
	return objectTypeUser
}

func resolveObjectID(event blog.ActivityEvent, resolver func(blog.ActivityEvent) string) string {
	if resolver != nil {
		return strings.TrimSpace(resolver(event))
	}
	if id, ok := event.Metadata[MetadataKeyObjectID].(string); ok && strings.TrimSpace(id) != "" {
		return strings.TrimSpace(id)
	}
	return strings.TrimSpace(event.UserID)
}

func normalizeMetadata(event blog.ActivityEvent) map[string]any {
	metadata := cloneMap(event.Metadata)
	delete(metadata, MetadataKeyObjectID)

	if actorType := strings.TrimSpace(event.Actor.Type); actorType != "" {
		if metadata == nil {
			metadata = map[string]any{}
		}
		if _, exists := metadata[MetadataKeyActorType]; !exists {
			metadata[MetadataKeyActorType] = actorType
		}
	}

	if len(metadata) == 0 {
		return nil
	}
	return metadata
}

func cloneMap(in map[string]any) map[string]any {
	if len(in) == 0 {
		return nil
	}
	out := make(map[string]any, len(in))
	for key, value := range in {
		out[key] = value
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, value := range values {
		if value != "" {
			return value
		}
	}
	return ""
}
