package fixtures

import (
	"context"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/goliatone/go-blog"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/hashid/pkg/hashid"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultPassword is shared by every generated account
const DefaultPassword = "password"

// Generator fills a deployed database with fake users, posts, follows
// and comments for development.
type Generator struct {
	repo     blog.RepositoryManager
	db       bun.IDB
	faker    *gofakeit.Faker
	password string
	hashid   bool
	logger   blog.Logger
	clock    func() time.Time
}

type Option func(*Generator)

// WithSeed makes the generated data reproducible. Zero picks a random
// seed.
func WithSeed(seed int64) Option {
	return func(g *Generator) {
		g.faker = gofakeit.New(seed)
	}
}

func WithPassword(password string) Option {
	return func(g *Generator) {
		if password != "" {
			g.password = password
		}
	}
}

// WithHashid derives user ids from their email so reruns with the same
// seed produce the same ids
func WithHashid(enabled bool) Option {
	return func(g *Generator) {
		g.hashid = enabled
	}
}

func WithLogger(logger blog.Logger) Option {
	return func(g *Generator) {
		if logger != nil {
			g.logger = logger
		}
	}
}

func WithClock(clock func() time.Time) Option {
	return func(g *Generator) {
		if clock != nil {
			g.clock = clock
		}
	}
}

// New returns a generator writing through repo. db is only read to pick
// random users and posts.
func New(repo blog.RepositoryManager, db bun.IDB, opts ...Option) *Generator {
	g := &Generator{
		repo:     repo,
		db:       db,
		faker:    gofakeit.New(0),
		password: DefaultPassword,
		logger:   blog.NopLogger{},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Users creates up to count confirmed accounts with the default role.
// Accounts colliding with an existing email or username are skipped.
func (g *Generator) Users(ctx context.Context, count int) (int, error) {
	hash, err := blog.HashPassword(g.password)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to hash fixture password")
	}

	created := 0
	for i := 0; i < count; i++ {
		if err := ctx.Err(); err != nil {
			return created, err
		}

		user := g.fakeUser(hash)
		err := g.repo.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
			role, err := g.repo.Roles().DefaultTx(ctx, tx)
			switch {
			case err == nil:
				user.RoleID = role.ID
			case !goerrors.IsNotFound(err):
				return err
			}
			_, err = g.repo.Users().RegisterTx(ctx, tx, user)
			return err
		})
		if err != nil {
			if isConflict(err) {
				g.logger.Debug("fixture user %s skipped: %v", user.Username, err)
				continue
			}
			return created, err
		}
		created++
	}

	g.logger.Info("created %d fake users", created)
	return created, nil
}

func (g *Generator) fakeUser(hash string) *blog.User {
	now := g.clock().UTC()
	since := g.faker.DateRange(now.AddDate(-1, 0, 0), now)

	user := blog.NewUser(g.faker.Email(), g.username(), since)
	if g.hashid {
		if id, err := hashid.NewUUID(user.Email); err == nil {
			user.ID = id
		}
	}
	user.PasswordHash = hash
	user.Confirmed = true
	user.Name = g.faker.Name()
	user.Location = g.faker.City()
	user.AboutMe = g.faker.Sentence(g.faker.Number(4, 12))
	user.LastSeen = since
	return user
}

func (g *Generator) username() string {
	name := strings.ToLower(g.faker.Username())
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '_', r == '.':
			return r
		}
		return -1
	}, name)
}

// Posts writes count posts, each by a random existing user
func (g *Generator) Posts(ctx context.Context, count int) (int, error) {
	users, err := g.userIDs(ctx)
	if err != nil || len(users) == 0 {
		return 0, err
	}

	now := g.clock().UTC()
	created := 0
	for i := 0; i < count; i++ {
		author := users[g.faker.Number(0, len(users)-1)]
		post, err := blog.NewPost(author, g.markdown(), g.faker.DateRange(now.AddDate(-1, 0, 0), now))
		if err != nil {
			return created, err
		}
		if _, err := g.repo.Posts().CreateTx(ctx, g.db, post); err != nil {
			return created, err
		}
		created++
	}

	g.logger.Info("created %d fake posts", created)
	return created, nil
}

// Follows adds up to max follow edges per user towards random others
func (g *Generator) Follows(ctx context.Context, max int) (int, error) {
	users, err := g.userIDs(ctx)
	if err != nil || len(users) < 2 {
		return 0, err
	}

	created := 0
	for _, follower := range users {
		n := g.faker.Number(0, max)
		for i := 0; i < n; i++ {
			followed := users[g.faker.Number(0, len(users)-1)]
			if followed == follower {
				continue
			}
			exists, err := g.repo.Follows().IsFollowing(ctx, follower, followed)
			if err != nil {
				return created, err
			}
			if exists {
				continue
			}
			if err := g.repo.Follows().Follow(ctx, follower, followed); err != nil {
				return created, err
			}
			created++
		}
	}

	g.logger.Info("created %d fake follows", created)
	return created, nil
}

// Comments writes count comments by random users on random posts
func (g *Generator) Comments(ctx context.Context, count int) (int, error) {
	users, err := g.userIDs(ctx)
	if err != nil || len(users) == 0 {
		return 0, err
	}

	var posts []int64
	if err := g.db.NewSelect().Model((*blog.Post)(nil)).Column("id").Scan(ctx, &posts); err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list posts")
	}
	if len(posts) == 0 {
		return 0, nil
	}

	now := g.clock().UTC()
	created := 0
	for i := 0; i < count; i++ {
		author := users[g.faker.Number(0, len(users)-1)]
		post := posts[g.faker.Number(0, len(posts)-1)]
		comment, err := blog.NewComment(author, post, g.faker.Sentence(g.faker.Number(3, 15)), g.faker.DateRange(now.AddDate(0, -1, 0), now))
		if err != nil {
			return created, err
		}
		if _, err := g.repo.Comments().CreateTx(ctx, g.db, comment); err != nil {
			return created, err
		}
		created++
	}

	g.logger.Info("created %d fake comments", created)
	return created, nil
}

func (g *Generator) markdown() string {
	n := g.faker.Number(1, 3)
	sentences := make([]string, 0, n)
	for i := 0; i < n; i++ {
		sentence := g.faker.Sentence(g.faker.Number(5, 20))
		if g.faker.Number(0, 4) == 0 {
			sentence = "*" + strings.TrimSuffix(sentence, ".") + "*."
		}
		sentences = append(sentences, sentence)
	}
	return strings.Join(sentences, " ")
}

func (g *Generator) userIDs(ctx context.Context) ([]uuid.UUID, error) {
	return g.repo.Users().IDs(ctx)
}

func isConflict(err error) bool {
	var richErr *goerrors.Error
	return goerrors.As(err, &richErr) && richErr.Category == goerrors.CategoryConflict
}
