package app

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

// 測試 SweepOnce 的 cutoff 落在保留天數前後
func TestSweeper_SweepOnce_Cutoff(t *testing.T) {
	repo := new(MockNotificationRepository)

	var gotCutoff int64
	repo.On("DeleteOlderThan", mock.Anything, mock.MatchedBy(func(cutoff int64) bool {
		gotCutoff = cutoff
		return true
	})).Return(int64(7), nil)

	s := NewSweeper(repo, 30)
	s.SweepOnce(context.Background())

	expected := time.Now().AddDate(0, 0, -30).Unix()
	assert.InDelta(t, expected, gotCutoff, 5)
	repo.AssertExpectations(t)
}

// 測試 retentionDays 非法時退回預設 30 天
func TestSweeper_DefaultRetention(t *testing.T) {
	repo := new(MockNotificationRepository)
	s := NewSweeper(repo, 0)
	assert.Equal(t, DefaultRetentionDays, s.retentionDays)

	s = NewSweeper(repo, -3)
	assert.Equal(t, DefaultRetentionDays, s.retentionDays)
}

// 測試 Start 立刻掃第一次, 不等 24 小時
func TestSweeper_Start_ImmediateSweep(t *testing.T) {
	repo := new(MockNotificationRepository)
	repo.On("DeleteOlderThan", mock.Anything, mock.Anything).Return(int64(0), nil)

	s := NewSweeper(repo, 30)
	assert.NoError(t, s.Start(context.Background()))
	defer s.Stop()

	repo.AssertCalled(t, "DeleteOlderThan", mock.Anything, mock.Anything)
}
