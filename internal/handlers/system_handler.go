package handlers

import (
	"context"
	"encoding/json"
	"time"

	"bakerapi/internal/database"
	"bakerapi/pkg/response"

	"github.com/gin-gonic/gin"
)

// 健康检查结果缓存键与有效期
const (
	healthCacheKey = "bakerapi:health"
	healthCacheTTL = 30 * time.Second
)

// SystemHandler 系统状态接口
type SystemHandler struct{}

// NewSystemHandler 创建系统处理器
func NewSystemHandler() *SystemHandler {
	return &SystemHandler{}
}

// healthStatus 健康检查载荷
type healthStatus struct {
	Status    string    `json:"status"`
	Database  string    `json:"database"`
	CheckedAt time.Time `json:"checked_at"`
	Cached    bool      `json:"cached"`
}

// Ping 存活探针
func (h *SystemHandler) Ping(c *gin.Context) {
	response.Success(c, gin.H{"message": "pong"})
}

// Health 健康检查。数据库探测结果在Redis缓存30秒，
// 避免探针高频打到数据库。Redis不可用时直接探测。
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
	defer cancel()

	rdb := database.GetRedisClient()
	if cached, err := rdb.Get(ctx, healthCacheKey).Bytes(); err == nil {
		var status healthStatus
		if json.Unmarshal(cached, &status) == nil {
			status.Cached = true
			response.Success(c, status)
			return
		}
	}

	status := healthStatus{Status: "ok", Database: "ok", CheckedAt: time.Now()}

	sqlDB, err := database.GetDB().DB()
	if err != nil || sqlDB.PingContext(ctx) != nil {
		status.Status = "degraded"
		status.Database = "unreachable"
	}

	if data, err := json.Marshal(status); err == nil {
		rdb.Set(ctx, healthCacheKey, data, healthCacheTTL)
	}

	if status.Status != "ok" {
		response.ServerError(c, "数据库不可用")
		return
	}
	response.Success(c, status)
}
