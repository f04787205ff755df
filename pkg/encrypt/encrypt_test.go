package encrypt

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// 測試 hash 後可以比對成功, 錯誤的 code 比對失敗
func TestHashAndCompareAccessCode(t *testing.T) {
	hash, err := HashAccessCode("s3cret-code")
	assert.NoError(t, err)
	assert.NotEqual(t, "s3cret-code", hash)

	assert.NoError(t, CompareAccessCode(hash, "s3cret-code"))
	assert.ErrorIs(t, CompareAccessCode(hash, "wrong"), ErrCodeMismatch)
}

// 測試空 code 直接拒絕
func TestHashAccessCode_Empty(t *testing.T) {
	_, err := HashAccessCode("")
	assert.ErrorIs(t, err, ErrEmptyCode)
}
