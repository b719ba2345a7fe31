package blog_test

import (
	"testing"

	"github.com/goliatone/go-blog"
	"github.com/stretchr/testify/assert"
)

func TestPageNormalization(t *testing.T) {
	tests := []struct {
		name   string
		page   blog.Page
		offset int
		limit  int
	}{
		{name: "first page", page: blog.NewPage(1, 7), offset: 0, limit: 7},
		{name: "third page", page: blog.NewPage(3, 7), offset: 14, limit: 7},
		{name: "zero number", page: blog.Page{Number: 0, Size: 5}, offset: 0, limit: 5},
		{name: "negative size", page: blog.Page{Number: 2, Size: -1}, offset: blog.DefaultPageSize, limit: blog.DefaultPageSize},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.offset, tt.page.Offset())
			assert.Equal(t, tt.limit, tt.page.Limit())
		})
	}
}

func TestPageResultNavigation(t *testing.T) {
	result := blog.PageResult[int]{Page: 1, Size: 6, Total: 13}
	assert.Equal(t, 3, result.Pages())
	assert.False(t, result.HasPrev())
	assert.True(t, result.HasNext())

	result.Page = 3
	assert.True(t, result.HasPrev())
	assert.False(t, result.HasNext())

	empty := blog.PageResult[int]{Page: 1, Size: 6}
	assert.Equal(t, 0, empty.Pages())
	assert.False(t, empty.HasNext())
}
