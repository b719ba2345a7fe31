package blog

import (
	"context"
	"iter"

	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Posts is the article store
type Posts interface {
	GetByID(ctx context.Context, id int64) (*Post, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Post, error)
	CreateTx(ctx context.Context, tx bun.IDB, post *Post) (*Post, error)
	UpdateBodyTx(ctx context.Context, tx bun.IDB, post *Post) (*Post, error)

	List(ctx context.Context, page Page) (PageResult[*Post], error)
	ByAuthor(ctx context.Context, authorID uuid.UUID, page Page) (PageResult[*Post], error)
	CountByAuthor(ctx context.Context, authorID uuid.UUID) (int, error)

	FollowedPostsPage(ctx context.Context, userID uuid.UUID, page Page) (PageResult[*Post], error)
	FollowedPosts(ctx context.Context, userID uuid.UUID, pageSize int) iter.Seq2[*Post, error]
}

type posts struct {
	db *bun.DB
}

var _ Posts = (*posts)(nil)

// NewPostsRepository returns the bun backed Posts store
func NewPostsRepository(db *bun.DB) Posts {
	return &posts{db: db}
}

func (p *posts) GetByID(ctx context.Context, id int64) (*Post, error) {
	return p.GetByIDTx(ctx, p.db, id)
}

func (p *posts) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Post, error) {
	post := &Post{}
	err := tx.NewSelect().
		Model(post).
		Relation("Author").
		Where("pst.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "post")
	}
	return post, nil
}

func (p *posts) CreateTx(ctx context.Context, tx bun.IDB, post *Post) (*Post, error) {
	if _, err := tx.NewInsert().Model(post).Returning("id").Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert post")
	}
	return post, nil
}

// UpdateBodyTx writes the body pair of post
func (p *posts) UpdateBodyTx(ctx context.Context, tx bun.IDB, post *Post) (*Post, error) {
	res, err := tx.NewUpdate().
		Model(post).
		Column("body", "body_html").
		WherePK().
		Exec(ctx)
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update post")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return nil, NotFound("post")
	}
	return post, nil
}

func (p *posts) List(ctx context.Context, page Page) (PageResult[*Post], error) {
	var records []*Post
	return p.page(ctx, page, &records, p.newestFirst(&records))
}

func (p *posts) ByAuthor(ctx context.Context, authorID uuid.UUID, page Page) (PageResult[*Post], error) {
	var records []*Post
	return p.page(ctx, page, &records, p.newestFirst(&records).Where("pst.author_id = ?", authorID))
}

func (p *posts) CountByAuthor(ctx context.Context, authorID uuid.UUID) (int, error) {
	n, err := p.db.NewSelect().Model((*Post)(nil)).Where("author_id = ?", authorID).Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count posts")
	}
	return n, nil
}

// FollowedPostsPage returns one page of posts written by users that
// userID follows, including the user's own posts via the reflexive edge.
func (p *posts) FollowedPostsPage(ctx context.Context, userID uuid.UUID, page Page) (PageResult[*Post], error) {
	var records []*Post
	return p.page(ctx, page, &records, p.followedQuery(&records, userID))
}

// FollowedPosts yields the followed timeline newest first, fetching
// pageSize rows at a time as the caller ranges over it.
func (p *posts) FollowedPosts(ctx context.Context, userID uuid.UUID, pageSize int) iter.Seq2[*Post, error] {
	if pageSize < 1 {
		pageSize = DefaultPageSize
	}
	return func(yield func(*Post, error) bool) {
		for offset := 0; ; offset += pageSize {
			var batch []*Post
			err := p.followedQuery(&batch, userID).
				Limit(pageSize).
				Offset(offset).
				Scan(ctx)
			if err != nil {
				yield(nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to load followed posts"))
				return
			}
			for _, post := range batch {
				if !yield(post, nil) {
					return
				}
			}
			if len(batch) < pageSize {
				return
			}
		}
	}
}

func (p *posts) followedQuery(dest *[]*Post, userID uuid.UUID) *bun.SelectQuery {
	return p.newestFirst(dest).
		Join("JOIN follows AS fl ON fl.followed_id = pst.author_id").
		Where("fl.follower_id = ?", userID)
}

func (p *posts) newestFirst(dest *[]*Post) *bun.SelectQuery {
	return p.db.NewSelect().
		Model(dest).
		Relation("Author").
		Order("pst.timestamp DESC", "pst.id DESC")
}

func (p *posts) page(ctx context.Context, page Page, records *[]*Post, q *bun.SelectQuery) (PageResult[*Post], error) {
	total, err := q.
		Limit(page.Limit()).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return PageResult[*Post]{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list posts")
	}
	return newPageResult(*records, page, total), nil
}
