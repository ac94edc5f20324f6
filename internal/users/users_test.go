package users

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsAdmin(t *testing.T) {
	assert.False(t, (&User{}).IsAdmin())
	assert.False(t, (&User{Roles: []string{"coach", "parent"}}).IsAdmin())
	assert.True(t, (&User{Roles: []string{"coach", "admin"}}).IsAdmin())
}
