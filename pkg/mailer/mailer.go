package mailer

import (
	"bakerapi/pkg/config"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/sendgrid/sendgrid-go"
	"github.com/sendgrid/sendgrid-go/helpers/mail"
)

// 受访者邀请邮件发送，通过SendGrid外发。
// 发送失败属于独立的故障域，由调用方决定回滚策略。

var (
	// ErrNotConfigured 邮件服务未配置
	ErrNotConfigured = errors.New("邮件服务未配置API密钥")
	// ErrSendFailed 邮件服务商调用失败
	ErrSendFailed = errors.New("邀请邮件发送失败")
)

// DefaultConsentText 默认知情同意文案
const DefaultConsentText = "完成这些评估即表示您同意Baker Street按照相关隐私法规安全地处理和存储您的回答。"

// InviteContent 邀请邮件内容
type InviteContent struct {
	Subject        string     // 主题，为空时使用默认主题
	Message        string     // 正文
	IncludeConsent bool       // 是否附加知情同意文案
	InviteURL      string     // 邀请链接
	ClientEmail    string     // 收件人
	ReplyTo        string     // 回复地址，可为空
	SendAt         *time.Time // 定时发送时间，nil表示立即发送
}

// Sender 邀请邮件发送接口
type Sender interface {
	SendInvite(content InviteContent) error
}

// Mailer SendGrid邮件发送器
type Mailer struct {
	apiKey    string
	fromEmail string
	fromName  string
	replyTo   string
}

// NewMailer 创建邮件发送器
func NewMailer(cfg config.MailConfig) *Mailer {
	return &Mailer{
		apiKey:    cfg.APIKey,
		fromEmail: cfg.FromEmail,
		fromName:  cfg.FromName,
		replyTo:   cfg.ReplyTo,
	}
}

// SendInvite 发送邀请邮件，content.SendAt非空时走服务商的定时发送
func (m *Mailer) SendInvite(content InviteContent) error {
	if m.apiKey == "" {
		return ErrNotConfigured
	}

	from := mail.NewEmail(m.fromName, m.fromEmail)
	to := mail.NewEmail("", content.ClientEmail)
	subject := normalizeSubject(content.Subject)

	textBody := buildTextBody(content.Message, content.InviteURL, content.IncludeConsent)
	htmlBody := buildHTMLBody(content.Message, content.InviteURL, content.IncludeConsent)

	message := mail.NewSingleEmail(from, subject, to, textBody, htmlBody)

	replyTo := content.ReplyTo
	if replyTo == "" {
		replyTo = m.replyTo
	}
	if replyTo != "" {
		message.SetReplyTo(mail.NewEmail("", replyTo))
	}

	if content.SendAt != nil {
		message.SendAt = int(content.SendAt.UTC().Unix())
	}

	client := sendgrid.NewSendClient(m.apiKey)
	resp, err := client.Send(message)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: 服务商返回状态 %d", ErrSendFailed, resp.StatusCode)
	}

	return nil
}

// normalizeSubject 主题为空时回退到默认主题
func normalizeSubject(subject string) string {
	cleaned := strings.TrimSpace(subject)
	if cleaned == "" {
		return "您的Baker Street评估邀请"
	}
	return cleaned
}

// buildTextBody 构造纯文本正文
func buildTextBody(message, inviteURL string, includeConsent bool) string {
	var lines []string
	body := strings.TrimSpace(message)
	if body != "" {
		lines = append(lines, body)
	}
	if inviteURL != "" {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, "请通过安全链接开始评估: "+inviteURL)
	}
	if includeConsent {
		if len(lines) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, DefaultConsentText)
	}
	return strings.Join(lines, "\n")
}

// buildHTMLBody 构造HTML正文
func buildHTMLBody(message, inviteURL string, includeConsent bool) string {
	var paragraphs []string
	body := strings.ReplaceAll(strings.TrimSpace(message), "\n", "<br />")
	if body != "" {
		paragraphs = append(paragraphs, "<p>"+body+"</p>")
	}
	if inviteURL != "" {
		paragraphs = append(paragraphs, fmt.Sprintf(
			`<p><a href="%s" style="color:#0f766e;font-weight:600;">开始评估</a></p>`, inviteURL))
	}
	if includeConsent {
		paragraphs = append(paragraphs, fmt.Sprintf(
			`<p style="font-size:12px;color:#475569;">%s</p>`, DefaultConsentText))
	}
	return strings.Join(paragraphs, "")
}

// BuildInviteURL 拼接受访者邀请地址
func BuildInviteURL(token string) string {
	base := strings.TrimRight(config.GetConfig().Link.FrontendBase, "/")
	return base + "/respondent?token=" + url.QueryEscape(token)
}

// 单例实现
var (
	defaultMailer *Mailer
	once          sync.Once
)

// GetMailer 获取全局邮件发送器实例
func GetMailer() *Mailer {
	once.Do(func() {
		defaultMailer = NewMailer(config.GetConfig().Mail)
	})
	return defaultMailer
}
