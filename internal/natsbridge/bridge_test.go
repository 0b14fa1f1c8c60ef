package natsbridge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSubjectFor(t *testing.T) {
	assert.Equal(t, "foliobuilder.builds.abc123.task_completed",
		subjectFor("foliobuilder.builds", "abc123", "task_completed"))
}

func TestNewRequiresURL(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)
}
