package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNow(t *testing.T) {
	c := New()
	before := time.Now()
	got := c.Now()
	assert.False(t, got.Before(before))
}

func TestAfter(t *testing.T) {
	c := New()
	select {
	case <-c.After(time.Millisecond):
	case <-time.After(time.Second):
		t.Fatal("After never fired")
	}
}

func TestSleep(t *testing.T) {
	c := New()
	start := time.Now()
	c.Sleep(10 * time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 10*time.Millisecond)
}
