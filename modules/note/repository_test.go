package note

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domain "github.com/collabnotes/collabnotes/domain/note"
)

func TestRepository_ListAccessScope(t *testing.T) {
	service, db := newTestService(t)
	repo := service.repo
	alice := createUser(t, db, "alice")
	bob := createUser(t, db, "bob")
	ctx := context.Background()

	mine := createNote(t, service, alice.ID, "Mine")
	shared := createNote(t, service, bob.ID, "Shared")
	createNote(t, service, bob.ID, "Private")
	_, _, err := service.Share(ctx, shared.ID, bob.ID, []string{alice.ID}, domain.PermissionRead)
	require.NoError(t, err)

	page, err := repo.List(alice.ID, ListFilter{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)

	ids := map[string]bool{}
	for _, n := range page.Notes {
		ids[n.ID] = true
	}
	assert.True(t, ids[mine.ID])
	assert.True(t, ids[shared.ID])
}

func TestRepository_ListSearch(t *testing.T) {
	service, db := newTestService(t)
	repo := service.repo
	alice := createUser(t, db, "alice")
	ctx := context.Background()

	_, err := service.Create(ctx, alice.ID, CreateInput{Title: "Meeting Notes", Content: "agenda for monday"})
	require.NoError(t, err)
	_, err = service.Create(ctx, alice.ID, CreateInput{Title: "Groceries", Content: "milk and MEETING snacks"})
	require.NoError(t, err)
	_, err = service.Create(ctx, alice.ID, CreateInput{Title: "Ideas", Content: "nothing relevant"})
	require.NoError(t, err)

	// Search is case-insensitive and matches title or content.
	page, err := repo.List(alice.ID, ListFilter{Search: "meeting"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestRepository_ListLabelFilter(t *testing.T) {
	service, db := newTestService(t)
	repo := service.repo
	alice := createUser(t, db, "alice")
	ctx := context.Background()

	_, err := service.Create(ctx, alice.ID, CreateInput{Title: "A", Content: "a", Labels: []string{"work", "urgent"}})
	require.NoError(t, err)
	_, err = service.Create(ctx, alice.ID, CreateInput{Title: "B", Content: "b", Labels: []string{"home"}})
	require.NoError(t, err)
	_, err = service.Create(ctx, alice.ID, CreateInput{Title: "C", Content: "c"})
	require.NoError(t, err)

	page, err := repo.List(alice.ID, ListFilter{Labels: []string{"work"}})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "A", page.Notes[0].Title)

	// Multiple labels match any, not all.
	page, err = repo.List(alice.ID, ListFilter{Labels: []string{"work", "home"}})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestRepository_ListFlagsAndOrdering(t *testing.T) {
	service, db := newTestService(t)
	repo := service.repo
	alice := createUser(t, db, "alice")
	ctx := context.Background()

	first := createNote(t, service, alice.ID, "First")
	second := createNote(t, service, alice.ID, "Second")
	createNote(t, service, alice.ID, "Third")

	yes := true
	_, err := service.Update(ctx, first.ID, alice.ID, UpdateInput{Pinned: &yes})
	require.NoError(t, err)
	_, err = service.Update(ctx, second.ID, alice.ID, UpdateInput{Archived: &yes})
	require.NoError(t, err)

	no := false
	page, err := repo.List(alice.ID, ListFilter{Archived: &no})
	require.NoError(t, err)
	require.Equal(t, int64(2), page.Total)

	// Pinned notes come first regardless of recency.
	assert.Equal(t, "First", page.Notes[0].Title)
	assert.Equal(t, "Third", page.Notes[1].Title)

	page, err = repo.List(alice.ID, ListFilter{Pinned: &yes})
	require.NoError(t, err)
	require.Equal(t, int64(1), page.Total)
	assert.Equal(t, "First", page.Notes[0].Title)
}

func TestRepository_ListPagination(t *testing.T) {
	service, db := newTestService(t)
	repo := service.repo
	alice := createUser(t, db, "alice")

	for _, title := range []string{"One", "Two", "Three", "Four", "Five"} {
		createNote(t, service, alice.ID, title)
	}

	page, err := repo.List(alice.ID, ListFilter{Page: 1, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, 3, page.TotalPages)
	assert.Equal(t, 1, page.CurrentPage)
	assert.Len(t, page.Notes, 2)

	page, err = repo.List(alice.ID, ListFilter{Page: 3, Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page.Notes, 1)

	// Out-of-range pages are empty, not errors.
	page, err = repo.List(alice.ID, ListFilter{Page: 9, Limit: 2})
	require.NoError(t, err)
	assert.Empty(t, page.Notes)
}
