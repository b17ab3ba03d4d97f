package services

import (
	"fmt"
	"strings"
	"unicode"

	"gorm.io/gorm"
)

// slugify 将任意名称转为URL安全的slug
func slugify(value string) string {
	var b strings.Builder
	lastDash := true
	for _, r := range strings.ToLower(strings.TrimSpace(value)) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			lastDash = false
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if !lastDash {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	return strings.Trim(b.String(), "-")
}

// uniqueSlug 在给定查重函数下生成唯一slug，冲突时追加数字后缀
func uniqueSlug(base string, fallback string, exists func(slug string) (bool, error)) (string, error) {
	baseSlug := slugify(base)
	if baseSlug == "" {
		baseSlug = fallback
	}

	slug := baseSlug
	suffix := 1
	for {
		taken, err := exists(slug)
		if err != nil {
			return "", err
		}
		if !taken {
			return slug, nil
		}
		suffix++
		slug = fmt.Sprintf("%s-%d", baseSlug, suffix)
	}
}

// slugExistsFn 构造基于数据表的slug查重函数
func slugExistsFn(db *gorm.DB, model interface{}, ownerID uint) func(string) (bool, error) {
	return func(slug string) (bool, error) {
		var count int64
		err := db.Model(model).
			Where("owner_id = ? AND slug = ?", ownerID, slug).
			Count(&count).Error
		if err != nil {
			return false, err
		}
		return count > 0, nil
	}
}
