package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUserHasPermission(t *testing.T) {
	member := &User{Role: &Role{Name: RoleMember, Permissions: []*Permission{
		{Resource: ResourceBooks, Operation: OperationRead},
		{Resource: ResourceRequests, Operation: OperationWrite},
	}}}

	assert.True(t, member.HasPermission(ResourceBooks, OperationRead))
	assert.True(t, member.HasPermission(ResourceRequests, OperationWrite))
	assert.False(t, member.HasPermission(ResourceBorrows, OperationWrite))
	assert.False(t, member.IsAdmin())

	assert.False(t, (&User{}).HasPermission(ResourceBooks, OperationRead))
	assert.True(t, (&User{Role: &Role{Name: RoleAdmin}}).IsAdmin())
}

func TestBorrowIsActive(t *testing.T) {
	assert.True(t, (&Borrow{Status: BorrowStatusBorrowed}).IsActive())
	assert.True(t, (&Borrow{Status: BorrowStatusOverdue}).IsActive())
	assert.False(t, (&Borrow{Status: BorrowStatusReturned}).IsActive())
}

func TestAuthorFullName(t *testing.T) {
	assert.Equal(t, "Ursula Le Guin", (&Author{FirstName: "Ursula", LastName: "Le Guin"}).FullName())
	assert.Equal(t, "Homer", (&Author{LastName: "Homer"}).FullName())
	assert.Equal(t, "Moebius", (&Author{FirstName: "Moebius"}).FullName())
}
