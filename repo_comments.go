package blog

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

// Comments is the comment store
type Comments interface {
	GetByID(ctx context.Context, id int64) (*Comment, error)
	GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Comment, error)
	CreateTx(ctx context.Context, tx bun.IDB, comment *Comment) (*Comment, error)
	SetDisabledTx(ctx context.Context, tx bun.IDB, id int64, disabled bool) error

	List(ctx context.Context, page Page) (PageResult[*Comment], error)
	ByPost(ctx context.Context, postID int64, page Page) (PageResult[*Comment], error)
	CountByPost(ctx context.Context, postID int64) (int, error)
}

type comments struct {
	db *bun.DB
}

var _ Comments = (*comments)(nil)

// NewCommentsRepository returns the bun backed Comments store
func NewCommentsRepository(db *bun.DB) Comments {
	return &comments{db: db}
}

func (c *comments) GetByID(ctx context.Context, id int64) (*Comment, error) {
	return c.GetByIDTx(ctx, c.db, id)
}

func (c *comments) GetByIDTx(ctx context.Context, tx bun.IDB, id int64) (*Comment, error) {
	comment := &Comment{}
	err := tx.NewSelect().
		Model(comment).
		Relation("Author").
		Where("cmt.id = ?", id).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, notFoundOr(err, "comment")
	}
	return comment, nil
}

func (c *comments) CreateTx(ctx context.Context, tx bun.IDB, comment *Comment) (*Comment, error) {
	if _, err := tx.NewInsert().Model(comment).Returning("id").Exec(ctx); err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to insert comment")
	}
	return comment, nil
}

func (c *comments) SetDisabledTx(ctx context.Context, tx bun.IDB, id int64, disabled bool) error {
	res, err := tx.NewUpdate().
		Model((*Comment)(nil)).
		Set("disabled = ?", disabled).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to update comment")
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return NotFound("comment")
	}
	return nil
}

// List returns every comment newest first, the moderation view
func (c *comments) List(ctx context.Context, page Page) (PageResult[*Comment], error) {
	var records []*Comment
	q := c.db.NewSelect().
		Model(&records).
		Relation("Author").
		Order("cmt.timestamp DESC", "cmt.id DESC")
	return c.page(ctx, page, &records, q)
}

// ByPost returns the comments of postID oldest first
func (c *comments) ByPost(ctx context.Context, postID int64, page Page) (PageResult[*Comment], error) {
	var records []*Comment
	q := c.db.NewSelect().
		Model(&records).
		Relation("Author").
		Where("cmt.post_id = ?", postID).
		Order("cmt.timestamp ASC", "cmt.id ASC")
	return c.page(ctx, page, &records, q)
}

func (c *comments) CountByPost(ctx context.Context, postID int64) (int, error) {
	n, err := c.db.NewSelect().Model((*Comment)(nil)).Where("post_id = ?", postID).Count(ctx)
	if err != nil {
		return 0, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to count comments")
	}
	return n, nil
}

func (c *comments) page(ctx context.Context, page Page, records *[]*Comment, q *bun.SelectQuery) (PageResult[*Comment], error) {
	total, err := q.
		Limit(page.Limit()).
		Offset(page.Offset()).
		ScanAndCount(ctx)
	if err != nil {
		return PageResult[*Comment]{}, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to list comments")
	}
	return newPageResult(*records, page, total), nil
}
