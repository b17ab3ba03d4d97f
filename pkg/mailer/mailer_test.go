package mailer

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeSubject(t *testing.T) {
	assert.Equal(t, "您的Baker Street评估邀请", normalizeSubject(""))
	assert.Equal(t, "您的Baker Street评估邀请", normalizeSubject("   "))
	assert.Equal(t, "每周回访", normalizeSubject("  每周回访  "))
}

func TestBuildTextBody(t *testing.T) {
	body := buildTextBody("你好，请完成本周的评估。", "https://app.example.com/respondent?token=abc", true)

	assert.Contains(t, body, "你好，请完成本周的评估。")
	assert.Contains(t, body, "https://app.example.com/respondent?token=abc")
	assert.Contains(t, body, DefaultConsentText)
}

func TestBuildTextBodyWithoutConsent(t *testing.T) {
	body := buildTextBody("正文", "https://example.com", false)
	assert.NotContains(t, body, DefaultConsentText)
}

func TestBuildTextBodyOnlyLink(t *testing.T) {
	body := buildTextBody("", "https://example.com", false)
	assert.False(t, strings.HasPrefix(body, "\n"))
	assert.Contains(t, body, "https://example.com")
}

func TestBuildHTMLBody(t *testing.T) {
	html := buildHTMLBody("第一行\n第二行", "https://example.com", true)

	assert.Contains(t, html, "第一行<br />第二行")
	assert.Contains(t, html, `href="https://example.com"`)
	assert.Contains(t, html, DefaultConsentText)
}

func TestSendInviteRequiresAPIKey(t *testing.T) {
	m := &Mailer{}
	err := m.SendInvite(InviteContent{ClientEmail: "a@b.com"})
	assert.ErrorIs(t, err, ErrNotConfigured)
}
