package worker

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRetryPolicy_NextDelay(t *testing.T) {
	policy := RetryPolicy{
		InitialDelay:  time.Second,
		MaxDelay:      10 * time.Second,
		BackoffFactor: 2,
	}

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))
	assert.Equal(t, 4*time.Second, policy.NextDelay(3))

	// Ограничение сверху
	assert.Equal(t, 10*time.Second, policy.NextDelay(10))
}

func TestRetryPolicy_Defaults(t *testing.T) {
	var policy RetryPolicy

	assert.Equal(t, time.Second, policy.NextDelay(1))
	assert.Equal(t, 2*time.Second, policy.NextDelay(2))

	// Некорректный номер попытки не ломает расчет
	assert.Equal(t, time.Second, policy.NextDelay(0))
	assert.Equal(t, time.Second, policy.NextDelay(-3))
}
