package notify

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

type captureSink struct {
	events []string
}

func (c *captureSink) Notify(level Level, message string) {
	c.events = append(c.events, level.String()+": "+message)
}

func TestMultiFiltersByLevel(t *testing.T) {
	capture := &captureSink{}
	m := NewMulti("warnings", capture)

	m.Notify(LevelInfo, "filled")
	m.Notify(LevelWarning, "expired")
	m.Notify(LevelError, "assignment risk")

	assert.Equal(t, []string{"warning: expired", "error: assignment risk"}, capture.events)
}

func TestMultiFansOut(t *testing.T) {
	a, b := &captureSink{}, &captureSink{}
	m := NewMulti("all", a, b)

	m.Notify(LevelInfo, "submitted")

	assert.Len(t, a.events, 1)
	assert.Len(t, b.events, 1)
}

func TestMultiErrorsOnly(t *testing.T) {
	capture := &captureSink{}
	m := NewMulti("errors", capture)

	m.Notify(LevelWarning, "expired")
	assert.Empty(t, capture.events)

	m.Notify(LevelError, "assignment risk")
	assert.Len(t, capture.events, 1)
}
