package repository

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/ticketdesk/internal/domain"
)

func TestMemoryAdminRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryAdminRepository(
		domain.AdminIdentity{ID: "a2", Name: "Zed", Email: "zed@example.com", Role: domain.AdminRoleAdmin, Status: domain.AdminStatusActive},
		domain.AdminIdentity{ID: "a1", Name: "Ana", Email: "ana@example.com", Role: domain.AdminRoleSuperAdmin, Status: domain.AdminStatusActive},
	)

	got, err := repo.GetByEmail(ctx, "ANA@example.com")
	require.NoError(t, err)
	assert.Equal(t, "a1", got.ID)

	_, err = repo.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	err = repo.Create(ctx, &domain.AdminIdentity{ID: "a3", Email: "zed@example.com"})
	assert.ErrorIs(t, err, ErrAlreadyExists)

	require.NoError(t, repo.Create(ctx, &domain.AdminIdentity{
		ID: "a3", Name: "Mia", Email: "mia@example.com", Role: domain.AdminRoleAdmin, Status: domain.AdminStatusInactive,
	}))

	all, err := repo.List(ctx, AdminFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, []string{"Ana", "Mia", "Zed"}, []string{all[0].Name, all[1].Name, all[2].Name})

	active := domain.AdminStatusActive
	actives, err := repo.List(ctx, AdminFilter{Status: &active})
	require.NoError(t, err)
	assert.Len(t, actives, 2)
}
