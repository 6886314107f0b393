package frame_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ap-survey/apdb/internal/frame"
)

func TestFrameConcatMergesColumns(t *testing.T) {
	a, err := frame.NewFrame([]frame.TypedColumn{
		{Name: "diaObjectId", Values: []frame.Value{int64(1)}},
		{Name: "ra", Values: []frame.Value{10.5}},
	})
	assert.NoError(t, err)

	b, err := frame.NewFrame([]frame.TypedColumn{
		{Name: "diaObjectId", Values: []frame.Value{int64(2)}},
		{Name: "ra", Values: []frame.Value{20.5}},
	})
	assert.NoError(t, err)

	assert.NoError(t, a.Concat(b))
	assert.Equal(t, 2, a.NumRows())
	assert.Equal(t, int64(2), a.At(1, "diaObjectId"))
}

func TestNewFrameRejectsMismatchedColumnLengths(t *testing.T) {
	_, err := frame.NewFrame([]frame.TypedColumn{
		{Name: "diaObjectId", Values: []frame.Value{int64(1), int64(2)}},
		{Name: "ra", Values: []frame.Value{10.5}},
	})
	assert.Error(t, err)
}
