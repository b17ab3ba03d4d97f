package services

import (
	"testing"
	"time"

	"bakerapi/internal/models"
	"bakerapi/pkg/linktoken"

	"github.com/stretchr/testify/assert"
	"gorm.io/datatypes"
)

func baseInvite(now time.Time) *models.RespondentInvite {
	return &models.RespondentInvite{
		Token:         "token",
		OwnerID:       1,
		Assessments:   datatypes.JSONSlice[string]{"mood-check-in"},
		Mode:          models.InviteModeSelfEntry,
		PendingClient: true,
		ExpiresAt:     now.Add(24 * time.Hour),
		MaxUses:       1,
		Uses:          0,
	}
}

func basePayload() *linktoken.Payload {
	return &linktoken.Payload{
		OwnerID:       1,
		Assessments:   []string{"mood-check-in"},
		Mode:          models.InviteModeSelfEntry,
		PendingClient: true,
		Nonce:         "abc",
	}
}

func TestEvaluateInviteValid(t *testing.T) {
	now := time.Now()
	assert.Nil(t, evaluateInvite(baseInvite(now), "", basePayload(), now))
}

func TestEvaluateInviteOwnerMismatch(t *testing.T) {
	now := time.Now()
	payload := basePayload()
	payload.OwnerID = 99

	err := evaluateInvite(baseInvite(now), "", payload, now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusMismatch, err.Status)
}

func TestEvaluateInviteModeMismatch(t *testing.T) {
	now := time.Now()
	payload := basePayload()
	payload.Mode = models.InviteModeLinked

	err := evaluateInvite(baseInvite(now), "", payload, now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusMismatch, err.Status)
}

func TestEvaluateInvitePendingClientMismatch(t *testing.T) {
	// 行已绑定客户，但令牌声称仍处于待绑定状态
	now := time.Now()
	clientID := uint(5)
	invite := baseInvite(now)
	invite.ClientID = &clientID
	invite.PendingClient = false

	payload := basePayload()
	payload.PendingClient = true
	payload.ClientSlug = ""

	err := evaluateInvite(invite, "", payload, now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusMismatch, err.Status)
}

func TestEvaluateInviteClientSlugMismatch(t *testing.T) {
	now := time.Now()
	clientID := uint(5)
	invite := baseInvite(now)
	invite.ClientID = &clientID
	invite.Mode = models.InviteModeLinked
	invite.PendingClient = false

	payload := basePayload()
	payload.Mode = models.InviteModeLinked
	payload.PendingClient = false
	payload.ClientSlug = "other-client"

	err := evaluateInvite(invite, "bound-client", payload, now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusMismatch, err.Status)
}

func TestEvaluateInviteBoundClientMatch(t *testing.T) {
	now := time.Now()
	clientID := uint(5)
	invite := baseInvite(now)
	invite.ClientID = &clientID
	invite.Mode = models.InviteModeLinked
	invite.PendingClient = false

	payload := basePayload()
	payload.Mode = models.InviteModeLinked
	payload.PendingClient = false
	payload.ClientSlug = "bound-client"

	assert.Nil(t, evaluateInvite(invite, "bound-client", payload, now))
}

func TestEvaluateInviteAssessmentMismatch(t *testing.T) {
	now := time.Now()

	payload := basePayload()
	payload.Assessments = []string{"other-scale"}
	err := evaluateInvite(baseInvite(now), "", payload, now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusMismatch, err.Status)

	payload = basePayload()
	payload.Assessments = []string{"mood-check-in", "extra"}
	err = evaluateInvite(baseInvite(now), "", payload, now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusMismatch, err.Status)
}

func TestEvaluateInviteExpiredRow(t *testing.T) {
	now := time.Now()
	invite := baseInvite(now)
	invite.ExpiresAt = now.Add(-time.Minute)

	err := evaluateInvite(invite, "", basePayload(), now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusExpired, err.Status)
}

func TestEvaluateInviteExpiryBoundary(t *testing.T) {
	now := time.Now()
	invite := baseInvite(now)
	invite.ExpiresAt = now

	// 过期时刻本身视为已过期
	err := evaluateInvite(invite, "", basePayload(), now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusExpired, err.Status)
}

func TestEvaluateInviteExhausted(t *testing.T) {
	now := time.Now()
	invite := baseInvite(now)
	invite.Uses = 1

	err := evaluateInvite(invite, "", basePayload(), now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusExhausted, err.Status)
}

func TestEvaluateInviteMultiUse(t *testing.T) {
	now := time.Now()
	invite := baseInvite(now)
	invite.MaxUses = 3
	invite.Uses = 2

	assert.Nil(t, evaluateInvite(invite, "", basePayload(), now))
}

func TestEvaluateInviteMismatchBeforeExpiry(t *testing.T) {
	// 载荷不一致的判定先于行过期
	now := time.Now()
	invite := baseInvite(now)
	invite.ExpiresAt = now.Add(-time.Hour)

	payload := basePayload()
	payload.OwnerID = 99

	err := evaluateInvite(invite, "", payload, now)
	assert.NotNil(t, err)
	assert.Equal(t, LinkStatusMismatch, err.Status)
}

func TestBindable(t *testing.T) {
	now := time.Now()

	invite := baseInvite(now)
	assert.True(t, bindable(invite))

	// 已换绑过的self-entry邀请不能再次绑定
	bound := baseInvite(now)
	bound.PendingClient = false
	assert.False(t, bindable(bound))

	linked := baseInvite(now)
	linked.Mode = models.InviteModeLinked
	linked.PendingClient = false
	assert.False(t, bindable(linked))
}

func TestBindPayloadLinkedMode(t *testing.T) {
	now := time.Now()
	invite := baseInvite(now)
	invite.ShareResults = true

	payload := bindPayload(invite, "new-client")

	// 换绑后的令牌必须是linked模式，不再处于待绑定状态
	assert.Equal(t, models.InviteModeLinked, payload.Mode)
	assert.False(t, payload.PendingClient)
	assert.Equal(t, "new-client", payload.ClientSlug)
	assert.Equal(t, invite.OwnerID, payload.OwnerID)
	assert.Equal(t, []string{"mood-check-in"}, payload.Assessments)
	assert.True(t, payload.ShareResults)
}
