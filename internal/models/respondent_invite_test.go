package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestInviteIsExpired(t *testing.T) {
	now := time.Now()
	invite := &RespondentInvite{ExpiresAt: now.Add(time.Hour)}

	assert.False(t, invite.IsExpired(now))
	assert.True(t, invite.IsExpired(now.Add(time.Hour)))       // 过期时刻本身视为已过期
	assert.True(t, invite.IsExpired(now.Add(2*time.Hour)))
}

func TestInviteExhausted(t *testing.T) {
	invite := &RespondentInvite{MaxUses: 2, Uses: 1}
	assert.False(t, invite.Exhausted())

	invite.Uses = 2
	assert.True(t, invite.Exhausted())
}

func TestValidInviteMode(t *testing.T) {
	assert.True(t, ValidInviteMode(InviteModeSelfEntry))
	assert.True(t, ValidInviteMode(InviteModeLinked))
	assert.False(t, ValidInviteMode("anonymous"))
}

func TestClientDisplayName(t *testing.T) {
	client := &Client{FirstName: "Jane", LastName: "Doe", Email: "jane@example.com", Slug: "jane-doe"}
	assert.Equal(t, "Jane Doe", client.DisplayName())

	client.FirstName = ""
	client.LastName = ""
	assert.Equal(t, "jane@example.com", client.DisplayName())

	client.Email = ""
	assert.Equal(t, "jane-doe", client.DisplayName())
}
