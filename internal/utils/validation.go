package utils

import (
	"errors"
	"time"
)

// ValidateDeadline 检查分配的截止时间是否可用
func ValidateDeadline(deadline time.Time) error {
	if deadline.IsZero() {
		return errors.New("截止时间不能为空")
	}

	if deadline.Before(time.Now()) {
		return errors.New("截止时间不能早于当前时间")
	}

	return nil
}

// ValidateAssignees 检查分配请求中的用户 ID 列表是否可用
func ValidateAssignees(userIDs []int64) error {
	if len(userIDs) == 0 {
		return errors.New("被分配的用户列表不能为空")
	}

	for _, id := range userIDs {
		if id <= 0 {
			return errors.New("被分配的用户 ID 无效")
		}
	}

	return nil
}
