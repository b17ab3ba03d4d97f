package linktoken

import (
	"bakerapi/pkg/config"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// 受访者链接令牌编解码器。对链接载荷做HMAC签名，
// 不感知数据库状态，行级的过期/次数控制由邀请存储负责。

var (
	// ErrBadSignature 签名无效或令牌格式损坏
	ErrBadSignature = errors.New("链接签名无效或已被篡改")
	// ErrExpired 签名层超过系统最大有效期
	ErrExpired = errors.New("链接签名已超过最大有效期")
	// ErrMalformed 载荷字段缺失或类型错误
	ErrMalformed = errors.New("链接载荷格式错误")
)

// Payload 链接载荷
type Payload struct {
	OwnerID       uint     // 签发链接的咨询师
	Assessments   []string // 可访问的量表slug列表
	Mode          string   // self-entry / linked
	ClientSlug    string   // 绑定的客户slug，未绑定时为空
	ShareResults  bool     // 是否向客户共享评分结果
	PendingClient bool     // 尚未绑定客户
	Nonce         string   // 随机数，保证语义相同的重签产生不同令牌
}

// linkClaims JWT声明结构
type linkClaims struct {
	Owner       uint     `json:"owner"`
	Assessments []string `json:"assessments"`
	Mode        string   `json:"mode"`
	Client      string   `json:"client,omitempty"`
	Share       bool     `json:"share"`
	Pending     bool     `json:"pending"`
	Nonce       string   `json:"nonce"`
	jwt.RegisteredClaims
}

// Codec 链接令牌编解码器
type Codec struct {
	secret []byte
	maxAge time.Duration
}

// NewCodec 创建编解码器
func NewCodec(secret string, maxAge time.Duration) *Codec {
	return &Codec{
		secret: []byte(secret),
		maxAge: maxAge,
	}
}

// NewNonce 生成随机数（8字节，URL安全）
func NewNonce() (string, error) {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(bytes), nil
}

// Encode 签名链接载荷，nonce为空时自动生成
func (c *Codec) Encode(payload Payload) (string, error) {
	nonce := payload.Nonce
	if nonce == "" {
		var err error
		nonce, err = NewNonce()
		if err != nil {
			return "", err
		}
	}

	claims := linkClaims{
		Owner:       payload.OwnerID,
		Assessments: payload.Assessments,
		Mode:        payload.Mode,
		Client:      payload.ClientSlug,
		Share:       payload.ShareResults,
		Pending:     payload.PendingClient,
		Nonce:       nonce,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(c.secret)
}

// Decode 验证并解析令牌，使用编解码器默认的最大有效期
func (c *Codec) Decode(tokenString string) (*Payload, error) {
	return c.DecodeWithMaxAge(tokenString, c.maxAge)
}

// DecodeWithMaxAge 验证并解析令牌。签名层的过期检查独立于
// 邀请行自身的expires_at，纵深防御：即使行的过期时间被误设到
// 很远的将来，超过系统最大有效期的令牌仍会被拒绝。
func (c *Codec) DecodeWithMaxAge(tokenString string, maxAge time.Duration) (*Payload, error) {
	token, err := jwt.ParseWithClaims(
		tokenString,
		&linkClaims{},
		func(token *jwt.Token) (interface{}, error) {
			// 只接受HMAC签名
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, ErrBadSignature
			}
			return c.secret, nil
		},
	)
	if err != nil || !token.Valid {
		return nil, ErrBadSignature
	}

	claims, ok := token.Claims.(*linkClaims)
	if !ok {
		return nil, ErrBadSignature
	}

	if claims.IssuedAt == nil {
		return nil, ErrMalformed
	}
	if maxAge > 0 && time.Since(claims.IssuedAt.Time) > maxAge {
		return nil, ErrExpired
	}

	if claims.Owner == 0 || claims.Mode == "" || claims.Nonce == "" {
		return nil, ErrMalformed
	}

	return &Payload{
		OwnerID:       claims.Owner,
		Assessments:   claims.Assessments,
		Mode:          claims.Mode,
		ClientSlug:    claims.Client,
		ShareResults:  claims.Share,
		PendingClient: claims.Pending,
		Nonce:         claims.Nonce,
	}, nil
}

// MaxAge 返回签名层最大有效期
func (c *Codec) MaxAge() time.Duration {
	return c.maxAge
}

// 单例实现
var (
	defaultCodec *Codec
	once         sync.Once
)

// GetCodec 获取全局链接编解码器实例
func GetCodec() *Codec {
	once.Do(func() {
		cfg := config.GetConfig()
		maxAge, err := time.ParseDuration(cfg.Link.MaxAge)
		if err != nil {
			maxAge = 14 * 24 * time.Hour
		}
		defaultCodec = NewCodec(cfg.Link.SigningSecret, maxAge)
	})
	return defaultCodec
}
