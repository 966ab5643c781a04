package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr(v float64) *float64 { return &v }

func TestGradeAverage(t *testing.T) {
	g := &Grade{}
	assert.Nil(t, g.Average(), "no marks means no average")

	g.ExamMark = ptr(12)
	avg := g.Average()
	require.NotNil(t, avg)
	assert.InDelta(t, 12, *avg, 0.0001, "a single mark is its own average")

	g.TDMark = ptr(10)
	g.TPMark = ptr(14)
	avg = g.Average()
	require.NotNil(t, avg)
	assert.InDelta(t, 12, *avg, 0.0001)
}

func TestGradeAverageIgnoresMissingMarks(t *testing.T) {
	g := &Grade{TDMark: ptr(8), ExamMark: ptr(16)}
	avg := g.Average()
	require.NotNil(t, avg)
	assert.InDelta(t, 12, *avg, 0.0001, "only present marks count")
}

func TestMarkInRange(t *testing.T) {
	assert.True(t, MarkInRange(0))
	assert.True(t, MarkInRange(20))
	assert.True(t, MarkInRange(10.25))
	assert.False(t, MarkInRange(-0.01))
	assert.False(t, MarkInRange(20.01))
}
