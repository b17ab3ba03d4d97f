package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/config"
	"bakerapi/pkg/linktoken"
	"bakerapi/pkg/logger"
	"bakerapi/pkg/mailer"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 链接解析结果状态
const (
	LinkStatusMalformed        = "malformed"         // 令牌无法解析或签名无效
	LinkStatusSignatureExpired = "signature_expired" // 签名层面超过最大有效期
	LinkStatusNotFound         = "not_found"         // 数据库中无对应邀请行
	LinkStatusMismatch         = "mismatch"          // 令牌载荷与邀请行不一致
	LinkStatusExpired          = "expired"           // 邀请行已过期
	LinkStatusExhausted        = "exhausted"         // 使用次数已耗尽
	LinkStatusValid            = "valid"
)

// LinkError 链接解析失败，携带状态码供前端区分提示
type LinkError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Error 实现error接口
func (e *LinkError) Error() string {
	return e.Message
}

func newLinkError(status, message string) *LinkError {
	return &LinkError{Status: status, Message: message}
}

// ResolvedLink 解析成功的受访链接
type ResolvedLink struct {
	Invite      *models.RespondentInvite
	Payload     *linktoken.Payload
	Client      *models.Client
	Assessments []models.Assessment
}

// IssueLinkInput 签发受访链接的参数
type IssueLinkInput struct {
	Assessments  []string `json:"assessments" binding:"required,min=1"`
	Mode         string   `json:"mode" binding:"required"`
	ClientID     *uint    `json:"client_id"`
	ShareResults bool     `json:"share_results"`
	MaxUses      int      `json:"max_uses"`
	ExpiryDays   int      `json:"expiry_days"`
}

// RespondentLinkService 受访链接服务：签发、解析、消费与客户绑定
type RespondentLinkService struct {
	db                *gorm.DB
	log               *logrus.Logger
	codec             *linktoken.Codec
	sender            mailer.Sender
	inviteService     *InviteService
	clientService     *ClientService
	assessmentService *AssessmentService
}

// NewRespondentLinkService 创建受访链接服务
func NewRespondentLinkService() *RespondentLinkService {
	return &RespondentLinkService{
		db:                database.GetDB(),
		log:               logger.GetLogger(),
		codec:             linktoken.GetCodec(),
		sender:            mailer.GetMailer(),
		inviteService:     NewInviteService(),
		clientService:     NewClientService(),
		assessmentService: NewAssessmentService(),
	}
}

// IssueLink 为咨询师签发一条受访链接。linked模式必须指定客户，
// self-entry模式的邀请在受访者提交身份信息前保持待绑定状态。
func (s *RespondentLinkService) IssueLink(ownerID uint, input *IssueLinkInput) (*models.RespondentInvite, error) {
	if !models.ValidInviteMode(input.Mode) {
		return nil, fmt.Errorf("邀请模式无效")
	}

	input.Assessments = dedupeSlugs(input.Assessments)
	if _, err := s.assessmentService.ValidatePublishedSlugs(ownerID, input.Assessments); err != nil {
		return nil, err
	}

	cfg := config.GetConfig()

	var client *models.Client
	if input.Mode == models.InviteModeLinked {
		if input.ClientID == nil {
			return nil, fmt.Errorf("linked模式必须指定客户")
		}
		var err error
		client, err = s.clientService.GetByID(ownerID, *input.ClientID)
		if err != nil {
			return nil, err
		}
	}

	payload := linktoken.Payload{
		OwnerID:       ownerID,
		Assessments:   input.Assessments,
		Mode:          input.Mode,
		ShareResults:  input.ShareResults,
		PendingClient: input.Mode == models.InviteModeSelfEntry,
	}
	if client != nil {
		payload.ClientSlug = client.Slug
	}

	token, err := s.codec.Encode(payload)
	if err != nil {
		s.log.Errorf("链接令牌签发失败: %v", err)
		return nil, fmt.Errorf("链接签发失败")
	}

	maxUses := input.MaxUses
	if maxUses <= 0 {
		maxUses = cfg.Link.DefaultMaxUses
	}
	expiryDays := input.ExpiryDays
	if expiryDays <= 0 {
		expiryDays = cfg.Link.ExpiryDays
	}

	invite := &models.RespondentInvite{
		Token:         token,
		OwnerID:       ownerID,
		Assessments:   datatypes.JSONSlice[string](input.Assessments),
		Mode:          input.Mode,
		ShareResults:  input.ShareResults,
		PendingClient: payload.PendingClient,
		ExpiresAt:     time.Now().AddDate(0, 0, expiryDays),
		MaxUses:       maxUses,
	}
	if client != nil {
		invite.ClientID = &client.ID
	}

	if err := s.inviteService.Create(nil, invite); err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"owner_id":  ownerID,
		"invite_id": invite.ID,
		"mode":      invite.Mode,
	}).Info("签发受访链接")

	return invite, nil
}

// EmailInviteInput 邮件发送受访链接的参数
type EmailInviteInput struct {
	IssueLinkInput
	Email          string `json:"email"`
	Subject        string `json:"subject"`
	Message        string `json:"message"`
	IncludeConsent *bool  `json:"include_consent"`
}

// IssueAndEmail 签发受访链接并立即通过邮件发出。
// linked模式默认发到客户邮箱，也可显式指定收件人。
// 邮件提交失败时删除刚创建的邀请行，错误包含 mailer.ErrSendFailed。
func (s *RespondentLinkService) IssueAndEmail(ownerID uint, input *EmailInviteInput) (*models.RespondentInvite, error) {
	recipient := input.Email
	if recipient == "" && input.Mode == models.InviteModeLinked && input.ClientID != nil {
		client, err := s.clientService.GetByID(ownerID, *input.ClientID)
		if err != nil {
			return nil, err
		}
		recipient = client.Email
	}
	if recipient == "" {
		return nil, fmt.Errorf("缺少收件人邮箱")
	}

	invite, err := s.IssueLink(ownerID, &input.IssueLinkInput)
	if err != nil {
		return nil, err
	}

	includeConsent := true
	if input.IncludeConsent != nil {
		includeConsent = *input.IncludeConsent
	}

	content := mailer.InviteContent{
		Subject:        input.Subject,
		Message:        input.Message,
		IncludeConsent: includeConsent,
		InviteURL:      mailer.BuildInviteURL(invite.Token),
		ClientEmail:    recipient,
	}
	if err := s.sender.SendInvite(content); err != nil {
		if delErr := s.db.Delete(invite).Error; delErr != nil {
			s.log.Errorf("回滚邀请行失败: invite_id=%d, %v", invite.ID, delErr)
		}
		s.log.Errorf("邀请邮件提交失败: %v", err)
		return nil, err
	}

	return invite, nil
}

// evaluateInvite 纯函数：对照令牌载荷检查邀请行状态。
// boundClientSlug 为邀请当前绑定客户的slug，未绑定时传空串。
// 检查顺序固定：载荷与行不一致 -> 行过期 -> 次数耗尽。
func evaluateInvite(invite *models.RespondentInvite, boundClientSlug string, payload *linktoken.Payload, now time.Time) *LinkError {
	if invite.OwnerID != payload.OwnerID || invite.Mode != payload.Mode {
		return newLinkError(LinkStatusMismatch, "链接内容与邀请记录不一致")
	}
	if invite.PendingClient != payload.PendingClient || boundClientSlug != payload.ClientSlug {
		return newLinkError(LinkStatusMismatch, "链接内容与邀请记录不一致")
	}
	if len(invite.Assessments) != len(payload.Assessments) {
		return newLinkError(LinkStatusMismatch, "链接内容与邀请记录不一致")
	}
	for i, slug := range invite.Assessments {
		if payload.Assessments[i] != slug {
			return newLinkError(LinkStatusMismatch, "链接内容与邀请记录不一致")
		}
	}
	if invite.IsExpired(now) {
		return newLinkError(LinkStatusExpired, "链接已过期")
	}
	if invite.Exhausted() {
		return newLinkError(LinkStatusExhausted, "链接使用次数已耗尽")
	}
	return nil
}

// Resolve 解析受访链接。只读操作，不消费使用次数。
// 失败时返回 *LinkError，按固定顺序归类：
// 令牌无效 -> 签名过期 -> 行不存在 -> 载荷不一致 -> 行过期 -> 次数耗尽。
func (s *RespondentLinkService) Resolve(token string) (*ResolvedLink, error) {
	payload, err := s.codec.Decode(token)
	if err != nil {
		switch {
		case errors.Is(err, linktoken.ErrExpired):
			return nil, newLinkError(LinkStatusSignatureExpired, "链接已过期")
		default:
			return nil, newLinkError(LinkStatusMalformed, "链接无效")
		}
	}

	invite, err := s.inviteService.FindByToken(token)
	if err != nil {
		if errors.Is(err, ErrInviteNotFound) {
			return nil, newLinkError(LinkStatusNotFound, "邀请不存在或已被撤销")
		}
		return nil, err
	}

	var boundClient *models.Client
	if invite.ClientID != nil {
		var client models.Client
		if err := s.db.First(&client, *invite.ClientID).Error; err == nil {
			boundClient = &client
		}
	}

	boundSlug := ""
	if boundClient != nil {
		boundSlug = boundClient.Slug
	}
	if linkErr := evaluateInvite(invite, boundSlug, payload, time.Now()); linkErr != nil {
		return nil, linkErr
	}

	resolved := &ResolvedLink{Invite: invite, Payload: payload, Client: boundClient}

	var assessments []models.Assessment
	err = s.db.Preload("Questions", func(db *gorm.DB) *gorm.DB {
		return db.Order("assessment_questions.\"order\"")
	}).Where("slug IN ? AND status = ?", []string(invite.Assessments), models.AssessmentStatusPublished).
		Find(&assessments).Error
	if err != nil {
		return nil, fmt.Errorf("查询量表失败")
	}
	resolved.Assessments = assessments

	return resolved, nil
}

// Consume 消费一次使用次数，在解析通过后调用
func (s *RespondentLinkService) Consume(token string) (*models.RespondentInvite, error) {
	invite, err := s.inviteService.Consume(token, time.Now())
	if err != nil {
		if errors.Is(err, ErrInviteExhausted) {
			return nil, newLinkError(LinkStatusExhausted, "链接使用次数已耗尽")
		}
		if errors.Is(err, ErrInviteNotFound) {
			return nil, newLinkError(LinkStatusNotFound, "邀请不存在或已被撤销")
		}
		return nil, err
	}
	return invite, nil
}

// BindResult 客户绑定结果
type BindResult struct {
	Client  *models.Client `json:"client"`
	Token   string         `json:"token"`
	Created bool           `json:"created"`
}

// bindable 纯函数：判断邀请是否允许受访者自行绑定客户。
// 只有self-entry且仍处于待绑定状态的邀请可以绑定，
// 已换绑过的邀请不能再次绑定。
func bindable(invite *models.RespondentInvite) bool {
	return invite.Mode == models.InviteModeSelfEntry && invite.PendingClient
}

// bindPayload 纯函数：构造换绑后新令牌的载荷。
// 换绑完成后邀请转为linked模式，不再处于待绑定状态。
func bindPayload(invite *models.RespondentInvite, clientSlug string) linktoken.Payload {
	return linktoken.Payload{
		OwnerID:      invite.OwnerID,
		Assessments:  []string(invite.Assessments),
		Mode:         models.InviteModeLinked,
		ClientSlug:   clientSlug,
		ShareResults: invite.ShareResults,
	}
}

// BindClient 受访者提交身份信息，绑定到客户档案并换发令牌。
// 原邀请行就地换绑：写入客户、清零使用计数、转为linked模式。
// 仅接受仍处于待绑定状态的self-entry邀请。
func (s *RespondentLinkService) BindClient(token string, details *ClientDetails) (*BindResult, error) {
	resolved, err := s.Resolve(token)
	if err != nil {
		return nil, err
	}

	invite := resolved.Invite
	if !bindable(invite) {
		return nil, fmt.Errorf("该邀请不支持受访者自行绑定")
	}

	if err := details.Normalize(); err != nil {
		return nil, err
	}

	var result *BindResult
	err = s.inviteService.Transaction(func(tx *gorm.DB) error {
		client, created, err := s.clientService.UpsertByEmail(tx, invite.OwnerID, details)
		if err != nil {
			return err
		}

		newToken, err := s.codec.Encode(bindPayload(invite, client.Slug))
		if err != nil {
			s.log.Errorf("换发链接令牌失败: %v", err)
			return fmt.Errorf("换发链接失败")
		}

		if err := s.inviteService.RebindInPlace(tx, invite, client.ID, newToken); err != nil {
			return err
		}

		result = &BindResult{Client: client, Token: newToken, Created: created}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Created {
		notifyClientCreated(invite.OwnerID, result.Client)
	}

	return result, nil
}

// ListInvites 分页列出某咨询师的邀请
func (s *RespondentLinkService) ListInvites(ownerID uint, page, pageSize int) ([]models.RespondentInvite, int64, error) {
	var invites []models.RespondentInvite
	var total int64

	query := s.db.Model(&models.RespondentInvite{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计邀请失败")
	}

	err := query.Preload("Client").Order("issued_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&invites).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询邀请失败")
	}
	return invites, total, nil
}
