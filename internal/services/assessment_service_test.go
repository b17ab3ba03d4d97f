package services

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDedupeSlugs(t *testing.T) {
	// 去重后保留首次出现的顺序
	slugs := dedupeSlugs([]string{"mood-check-in", "sleep-diary", "mood-check-in", "sleep-diary"})
	assert.Equal(t, []string{"mood-check-in", "sleep-diary"}, slugs)
}

func TestDedupeSlugsNoDuplicates(t *testing.T) {
	slugs := dedupeSlugs([]string{"a", "b"})
	assert.Equal(t, []string{"a", "b"}, slugs)
}

func TestDedupeSlugsEmpty(t *testing.T) {
	assert.Empty(t, dedupeSlugs(nil))
}
