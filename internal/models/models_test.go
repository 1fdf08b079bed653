package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserCheckRole(t *testing.T) {
	assert.NoError(t, User{Username: "alice", Role: RoleUser}.CheckRole())
	assert.NoError(t, User{Username: "admin", Role: RoleAdmin}.CheckRole())
	assert.ErrorIs(t, User{Username: "alice", Role: RoleAdmin}.CheckRole(), ErrAdminRoleReserved)
	assert.Error(t, User{Username: "alice", Role: "root"}.CheckRole())
}

func TestMenuSummaryNeverNilItems(t *testing.T) {
	s := Menu{ID: "m1", Name: "Main"}.Summary()
	assert.NotNil(t, s.Items)
	assert.Equal(t, "Main", s.Name)
}
