package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateDeadline(t *testing.T) {
	assert.Error(t, ValidateDeadline(time.Time{}))
	assert.Error(t, ValidateDeadline(time.Now().Add(-time.Minute)))
	assert.NoError(t, ValidateDeadline(time.Now().Add(time.Hour)))
}

func TestValidateAssignees(t *testing.T) {
	assert.Error(t, ValidateAssignees(nil))
	assert.Error(t, ValidateAssignees([]int64{}))
	assert.Error(t, ValidateAssignees([]int64{1, 0}))
	assert.Error(t, ValidateAssignees([]int64{-3}))
	assert.NoError(t, ValidateAssignees([]int64{1, 2, 3}))
}
