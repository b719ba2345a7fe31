package blog

import (
	"context"

	goerrors "github.com/goliatone/go-errors"
	"github.com/uptrace/bun"
)

type tableSpec struct {
	model       any
	foreignKeys []string
}

var schemaTables = []tableSpec{
	{model: (*Role)(nil)},
	{
		model:       (*User)(nil),
		foreignKeys: []string{`("role_id") REFERENCES "roles" ("id") ON DELETE SET NULL`},
	},
	{
		model: (*Follow)(nil),
		foreignKeys: []string{
			`("follower_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("followed_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
		},
	},
	{
		model:       (*Post)(nil),
		foreignKeys: []string{`("author_id") REFERENCES "users" ("id") ON DELETE CASCADE`},
	},
	{
		model: (*Comment)(nil),
		foreignKeys: []string{
			`("author_id") REFERENCES "users" ("id") ON DELETE CASCADE`,
			`("post_id") REFERENCES "posts" ("id") ON DELETE CASCADE`,
		},
	},
}

type indexSpec struct {
	model   any
	name    string
	columns []string
}

var schemaIndexes = []indexSpec{
	{model: (*Follow)(nil), name: "follows_followed_id_idx", columns: []string{"followed_id"}},
	{model: (*Post)(nil), name: "posts_timestamp_idx", columns: []string{"timestamp"}},
	{model: (*Post)(nil), name: "posts_author_id_idx", columns: []string{"author_id"}},
	{model: (*Comment)(nil), name: "comments_post_id_idx", columns: []string{"post_id"}},
	{model: (*Comment)(nil), name: "comments_timestamp_idx", columns: []string{"timestamp"}},
}

// CreateSchema creates every table and index if missing
func CreateSchema(ctx context.Context, db bun.IDB) error {
	for _, t := range schemaTables {
		q := db.NewCreateTable().Model(t.model).IfNotExists()
		for _, fk := range t.foreignKeys {
			q = q.ForeignKey(fk)
		}
		if _, err := q.Exec(ctx); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create table")
		}
	}

	for _, idx := range schemaIndexes {
		_, err := db.NewCreateIndex().
			Model(idx.model).
			Index(idx.name).
			Column(idx.columns...).
			IfNotExists().
			Exec(ctx)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to create index "+idx.name)
		}
	}
	return nil
}
