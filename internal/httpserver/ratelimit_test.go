package httpserver

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIPLimiter(t *testing.T) {
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	l := newIPLimiter(1, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("1.1.1.1"))
	assert.False(t, l.allow("1.1.1.1"))
	assert.True(t, l.allow("2.2.2.2"), "buckets are per ip")

	now = now.Add(time.Second)
	assert.True(t, l.allow("1.1.1.1"), "token refilled")

	now = now.Add(10 * time.Minute)
	l.allow("3.3.3.3")
	assert.NotContains(t, l.buckets, "2.2.2.2", "idle bucket evicted")
}
