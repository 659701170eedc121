package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"eventadmission/internal/domain"
)

func queued(eventID, userID string, position int) *domain.Registration {
	reg := domain.NewRegistration(eventID, userID, nil, nil)
	reg.State = domain.StateWaitingList
	reg.Position = &position
	return reg
}

func TestRegistrationRepository_SaveClonesAndKeepsCreatedAt(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepository()

	reg := domain.NewRegistration("ev-1", "user-1", map[string]any{"k": "v"}, nil)
	require.NoError(t, repo.Save(ctx, reg))
	created := reg.CreatedAt

	reg.FormData["k"] = "changed"
	got, err := repo.GetByID(ctx, reg.ID)
	require.NoError(t, err)
	assert.Equal(t, "v", got.FormData["k"])

	got.State = domain.StateConfirmed
	require.NoError(t, repo.Save(ctx, got))
	assert.Equal(t, created, got.CreatedAt)
}

func TestRegistrationRepository_RejectsSecondRowForSameUser(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepository()

	require.NoError(t, repo.Save(ctx, domain.NewRegistration("ev-1", "user-1", nil, nil)))
	err := repo.Save(ctx, domain.NewRegistration("ev-1", "user-1", nil, nil))
	require.ErrorIs(t, err, domain.ErrAlreadyRegistered)
}

func TestRegistrationRepository_WaitingListQueries(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepository()

	next, err := repo.NextWaitingListPosition(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 1, next)

	_, err = repo.FirstInWaitingList(ctx, "ev-1")
	require.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, repo.Save(ctx, queued("ev-1", "c", 3)))
	require.NoError(t, repo.Save(ctx, queued("ev-1", "a", 1)))
	require.NoError(t, repo.Save(ctx, queued("ev-2", "z", 9)))

	next, err = repo.NextWaitingListPosition(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, 4, next)

	head, err := repo.FirstInWaitingList(ctx, "ev-1")
	require.NoError(t, err)
	assert.Equal(t, "a", head.UserID)

	queue, err := repo.ListWaitingList(ctx, "ev-1")
	require.NoError(t, err)
	require.Len(t, queue, 2)
	assert.Equal(t, "c", queue[1].UserID)

	n, err := repo.CountByEventAndState(ctx, "ev-1", domain.StateWaitingList)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestRegistrationRepository_ListByEventPaginates(t *testing.T) {
	ctx := context.Background()
	repo := NewRegistrationRepository()
	for _, u := range []string{"u1", "u2", "u3", "u4", "u5"} {
		require.NoError(t, repo.Save(ctx, domain.NewRegistration("ev-1", u, nil, nil)))
	}

	tests := []struct {
		name  string
		page  domain.PaginationParams
		users []string
	}{
		{name: "unbounded", page: domain.PaginationParams{}, users: []string{"u1", "u2", "u3", "u4", "u5"}},
		{name: "second page", page: domain.PaginationParams{Page: 2, PageSize: 2}, users: []string{"u3", "u4"}},
		{name: "past the end", page: domain.PaginationParams{Page: 4, PageSize: 2}, users: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			regs, total, err := repo.ListByEvent(ctx, "ev-1", nil, tt.page)
			require.NoError(t, err)
			assert.Equal(t, 5, total)
			users := []string{}
			for _, r := range regs {
				users = append(users, r.UserID)
			}
			assert.Equal(t, tt.users, users)
		})
	}
}
