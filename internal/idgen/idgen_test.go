package idgen

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSessionID(t *testing.T) {
	id := NewSessionID()
	assert.True(t, IsValidSessionID(id))
	assert.NotEqual(t, id, NewSessionID())
}

func TestNewPlanID(t *testing.T) {
	now := time.Unix(1700000000, 5)
	assert.Equal(t, "test_1700000000000000005", NewPlanID(now))
}

func TestResultIDs(t *testing.T) {
	assert.Equal(t, "error_abc", ErrorResultID("abc"))
	assert.Equal(t, "error_unknown", ErrorResultID(""))

	id := NewResultID("abc")
	assert.True(t, strings.HasPrefix(id, "result_abc_"))
	assert.Len(t, strings.TrimPrefix(id, "result_abc_"), 8)
}

func TestIsValidSessionID(t *testing.T) {
	assert.False(t, IsValidSessionID("not-a-uuid"))
	assert.False(t, IsValidSessionID(""))
}
