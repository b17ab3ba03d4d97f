package services

import (
	"bakerapi/internal/database"
	"bakerapi/internal/models"
	"bakerapi/pkg/config"
	"bakerapi/pkg/linktoken"
	"bakerapi/pkg/logger"
	"bakerapi/pkg/mailer"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// 计划频率到间隔天数的映射。"three-months"为历史别名，等同quarter。
var frequencyDays = map[string]int{
	"none":         0,
	"day":          1,
	"week":         7,
	"fortnight":    14,
	"month":        30,
	"quarter":      90,
	"three-months": 90,
}

// 单个计划允许的最大发送次数
const maxScheduleCycles = 99

// ScheduleInput 创建周期邀请计划的参数
type ScheduleInput struct {
	ClientID       uint     `json:"client_id" binding:"required"`
	Assessments    []string `json:"assessments" binding:"required,min=1"`
	Subject        string   `json:"subject"`
	Message        string   `json:"message"`
	IncludeConsent *bool    `json:"include_consent"`
	ShareResults   bool     `json:"share_results"`
	StartDate      string   `json:"start_date" binding:"required"`
	Frequency      string   `json:"frequency" binding:"required"`
	Cycles         int      `json:"cycles"`
}

// computeRunTimes 计算各次发送时刻。首次定在起始日当地时间09:00，
// 该时刻已过去时改为当前时间5分钟后；后续按频率间隔顺延。
func computeRunTimes(startDate time.Time, frequency string, cycles int, now time.Time) ([]time.Time, error) {
	interval, ok := frequencyDays[strings.ToLower(strings.TrimSpace(frequency))]
	if !ok {
		return nil, fmt.Errorf("发送频率无效: %s", frequency)
	}

	if interval == 0 {
		cycles = 1
	}
	if cycles < 1 {
		cycles = 1
	}
	if cycles > maxScheduleCycles {
		return nil, fmt.Errorf("发送次数不能超过 %d", maxScheduleCycles)
	}

	first := time.Date(startDate.Year(), startDate.Month(), startDate.Day(),
		9, 0, 0, 0, now.Location())
	if !first.After(now) {
		first = now.Add(5 * time.Minute)
	}

	times := make([]time.Time, 0, cycles)
	for i := 0; i < cycles; i++ {
		times = append(times, first.AddDate(0, 0, i*interval))
	}
	return times, nil
}

// InviteScheduleService 周期邀请计划服务
type InviteScheduleService struct {
	db                *gorm.DB
	log               *logrus.Logger
	codec             *linktoken.Codec
	sender            mailer.Sender
	clientService     *ClientService
	assessmentService *AssessmentService
}

// NewInviteScheduleService 创建计划服务
func NewInviteScheduleService() *InviteScheduleService {
	return &InviteScheduleService{
		db:                database.GetDB(),
		log:               logger.GetLogger(),
		codec:             linktoken.GetCodec(),
		sender:            mailer.GetMailer(),
		clientService:     NewClientService(),
		assessmentService: NewAssessmentService(),
	}
}

// CreateSchedule 创建周期邀请计划并把每次发送交给邮件服务商托管。
// 任何一次令牌签发或邮件提交失败都会回滚整个计划，不留下半成品。
// 邮件失败时返回的错误会包含 mailer.ErrSendFailed，供上层映射为网关错误。
func (s *InviteScheduleService) CreateSchedule(ownerID uint, input *ScheduleInput) (*models.RespondentInviteSchedule, error) {
	client, err := s.clientService.GetByID(ownerID, input.ClientID)
	if err != nil {
		return nil, err
	}
	if client.Email == "" {
		return nil, fmt.Errorf("客户没有邮箱，无法发送邀请")
	}

	input.Assessments = dedupeSlugs(input.Assessments)
	if _, err := s.assessmentService.ValidatePublishedSlugs(ownerID, input.Assessments); err != nil {
		return nil, err
	}

	startDate, err := time.Parse("2006-01-02", input.StartDate)
	if err != nil {
		return nil, fmt.Errorf("起始日期格式无效，应为 YYYY-MM-DD")
	}

	now := time.Now()
	runTimes, err := computeRunTimes(startDate, input.Frequency, input.Cycles, now)
	if err != nil {
		return nil, err
	}

	includeConsent := true
	if input.IncludeConsent != nil {
		includeConsent = *input.IncludeConsent
	}

	cfg := config.GetConfig()

	schedule := &models.RespondentInviteSchedule{
		Reference:      uuid.New(),
		OwnerID:        ownerID,
		ClientID:       client.ID,
		Assessments:    datatypes.JSONSlice[string](input.Assessments),
		Subject:        input.Subject,
		Message:        input.Message,
		IncludeConsent: includeConsent,
		ShareResults:   input.ShareResults,
		StartAt:        runTimes[0],
		Frequency:      strings.ToLower(strings.TrimSpace(input.Frequency)),
		Cycles:         len(runTimes),
	}

	err = s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(schedule).Error; err != nil {
			s.log.Errorf("创建邀请计划失败: %v", err)
			return fmt.Errorf("创建邀请计划失败")
		}

		for _, runAt := range runTimes {
			payload := linktoken.Payload{
				OwnerID:      ownerID,
				Assessments:  input.Assessments,
				Mode:         models.InviteModeLinked,
				ClientSlug:   client.Slug,
				ShareResults: input.ShareResults,
			}
			token, err := s.codec.Encode(payload)
			if err != nil {
				s.log.Errorf("计划令牌签发失败: %v", err)
				return fmt.Errorf("链接签发失败")
			}

			invite := &models.RespondentInvite{
				Token:        token,
				OwnerID:      ownerID,
				Assessments:  datatypes.JSONSlice[string](input.Assessments),
				Mode:         models.InviteModeLinked,
				ClientID:     &client.ID,
				ShareResults: input.ShareResults,
				ExpiresAt:    runAt.AddDate(0, 0, cfg.Link.ExpiryDays),
				MaxUses:      cfg.Link.DefaultMaxUses,
			}
			if err := tx.Create(invite).Error; err != nil {
				s.log.Errorf("创建计划邀请失败: %v", err)
				return fmt.Errorf("创建邀请失败")
			}

			run := &models.RespondentInviteScheduleRun{
				ScheduleID:  schedule.ID,
				Token:       token,
				ScheduledAt: runAt,
				Status:      models.ScheduleRunStatusScheduled,
			}

			content := mailer.InviteContent{
				Subject:        input.Subject,
				Message:        input.Message,
				IncludeConsent: includeConsent,
				InviteURL:      mailer.BuildInviteURL(token),
				ClientEmail:    client.Email,
			}
			if runAt.After(now.Add(time.Minute)) {
				sendAt := runAt
				content.SendAt = &sendAt
			}

			if err := s.sender.SendInvite(content); err != nil {
				s.log.WithFields(logrus.Fields{
					"owner_id":  ownerID,
					"client_id": client.ID,
				}).Errorf("计划邮件提交失败: %v", err)
				return err
			}

			if content.SendAt == nil {
				run.MarkSent()
			}
			if err := tx.Create(run).Error; err != nil {
				return fmt.Errorf("记录计划发送失败")
			}
			schedule.Runs = append(schedule.Runs, *run)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.WithFields(logrus.Fields{
		"owner_id":  ownerID,
		"reference": schedule.Reference,
		"cycles":    schedule.Cycles,
	}).Info("创建周期邀请计划")

	notifyScheduleSent(ownerID, schedule, len(schedule.Runs))

	return schedule, nil
}

// ErrScheduleNotFound 计划不存在或不属于该咨询师
var ErrScheduleNotFound = fmt.Errorf("邀请计划不存在")

// GetByReference 按引用查询计划，校验归属
func (s *InviteScheduleService) GetByReference(ownerID uint, reference uuid.UUID) (*models.RespondentInviteSchedule, error) {
	var schedule models.RespondentInviteSchedule
	err := s.db.Preload("Client").
		Where("reference = ? AND owner_id = ?", reference, ownerID).
		First(&schedule).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, ErrScheduleNotFound
		}
		return nil, fmt.Errorf("查询邀请计划失败")
	}
	return &schedule, nil
}

// 发送记录过滤条件的规范值
const (
	runFilterAll    = "all"
	runFilterSent   = "sent"
	runFilterFuture = "future"
)

// normalizeRunFilter 纯函数：归一化发送记录过滤条件。
// pending、scheduled、future均表示尚未发出的记录。
func normalizeRunFilter(filter string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(filter)) {
	case "", runFilterAll:
		return runFilterAll, nil
	case runFilterSent:
		return runFilterSent, nil
	case "pending", "scheduled", runFilterFuture:
		return runFilterFuture, nil
	default:
		return "", fmt.Errorf("过滤条件无效: %s", filter)
	}
}

// applyRunFilter 按过滤条件约束发送记录查询。
// 托管发送的邮件到点后由服务商发出，本地状态不一定及时更新，
// 因此计划时刻已过的记录也按已发送归类。
func applyRunFilter(query *gorm.DB, filter string, now time.Time) *gorm.DB {
	switch filter {
	case runFilterSent:
		return query.Where("status = ? OR scheduled_at <= ?", models.ScheduleRunStatusSent, now)
	case runFilterFuture:
		return query.Where("status = ? AND scheduled_at > ?", models.ScheduleRunStatusScheduled, now)
	default:
		return query
	}
}

// ListRuns 查询计划的发送记录。filter取值：
// sent已发送、pending/scheduled/future待发送、all全部（默认）。
func (s *InviteScheduleService) ListRuns(ownerID uint, reference uuid.UUID, filter string) ([]models.RespondentInviteScheduleRun, error) {
	normalized, err := normalizeRunFilter(filter)
	if err != nil {
		return nil, err
	}

	schedule, err := s.GetByReference(ownerID, reference)
	if err != nil {
		return nil, err
	}

	query := applyRunFilter(s.db.Where("schedule_id = ?", schedule.ID), normalized, time.Now())

	var runs []models.RespondentInviteScheduleRun
	if err := query.Order("scheduled_at").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询发送记录失败")
	}
	return runs, nil
}

// ListRunsForClient 跨计划查询某客户名下的发送记录，校验客户归属
func (s *InviteScheduleService) ListRunsForClient(ownerID, clientID uint, filter string) ([]models.RespondentInviteScheduleRun, error) {
	normalized, err := normalizeRunFilter(filter)
	if err != nil {
		return nil, err
	}

	if _, err := s.clientService.GetByID(ownerID, clientID); err != nil {
		return nil, err
	}

	query := s.db.Model(&models.RespondentInviteScheduleRun{}).
		Joins("JOIN respondent_invite_schedules ON respondent_invite_schedules.id = respondent_invite_schedule_runs.schedule_id").
		Where("respondent_invite_schedules.owner_id = ? AND respondent_invite_schedules.client_id = ?", ownerID, clientID)
	query = applyRunFilter(query, normalized, time.Now())

	var runs []models.RespondentInviteScheduleRun
	if err := query.Order("scheduled_at").Find(&runs).Error; err != nil {
		return nil, fmt.Errorf("查询发送记录失败")
	}
	return runs, nil
}

// ListSchedules 分页列出咨询师的邀请计划
func (s *InviteScheduleService) ListSchedules(ownerID uint, page, pageSize int) ([]models.RespondentInviteSchedule, int64, error) {
	var schedules []models.RespondentInviteSchedule
	var total int64

	query := s.db.Model(&models.RespondentInviteSchedule{}).Where("owner_id = ?", ownerID)
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("统计邀请计划失败")
	}

	err := query.Preload("Client").Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&schedules).Error
	if err != nil {
		return nil, 0, fmt.Errorf("查询邀请计划失败")
	}
	return schedules, total, nil
}

// DeleteSchedule 删除计划及其发送记录，未发送的邀请行一并作废
func (s *InviteScheduleService) DeleteSchedule(ownerID uint, reference uuid.UUID) error {
	schedule, err := s.GetByReference(ownerID, reference)
	if err != nil {
		return err
	}

	return s.db.Transaction(func(tx *gorm.DB) error {
		var pendingTokens []string
		err := tx.Model(&models.RespondentInviteScheduleRun{}).
			Where("schedule_id = ? AND status = ?", schedule.ID, models.ScheduleRunStatusScheduled).
			Pluck("token", &pendingTokens).Error
		if err != nil {
			return fmt.Errorf("查询发送记录失败")
		}

		if len(pendingTokens) > 0 {
			if err := tx.Where("token IN ?", pendingTokens).
				Delete(&models.RespondentInvite{}).Error; err != nil {
				return fmt.Errorf("作废计划邀请失败")
			}
		}

		if err := tx.Where("schedule_id = ?", schedule.ID).
			Delete(&models.RespondentInviteScheduleRun{}).Error; err != nil {
			return fmt.Errorf("删除发送记录失败")
		}

		if err := tx.Delete(schedule).Error; err != nil {
			return fmt.Errorf("删除邀请计划失败")
		}

		s.log.WithFields(logrus.Fields{
			"owner_id":  ownerID,
			"reference": schedule.Reference,
		}).Info("删除周期邀请计划")

		return nil
	})
}
