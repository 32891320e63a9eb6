package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCount_Ptr(t *testing.T) {
	t.Parallel()

	assert.Nil(t, Count{Status: CountAbsent}.Ptr())

	tests := []struct {
		name  string
		count Count
		want  int64
	}{
		{"present", Count{Value: 12, Status: CountPresent}, 12},
		{"blank defaults to zero", Count{Status: CountBlank}, 0},
		{"unparsable defaults to zero", Count{Status: CountUnparsable}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			p := tt.count.Ptr()
			if assert.NotNil(t, p) {
				assert.Equal(t, tt.want, *p)
			}
		})
	}
}

func TestCountStatus_String(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "absent", CountAbsent.String())
	assert.Equal(t, "present", CountPresent.String())
	assert.Equal(t, "blank", CountBlank.String())
	assert.Equal(t, "unparsable", CountUnparsable.String())
	assert.Equal(t, "unknown", CountStatus(42).String())
}

func TestRecord_Key(t *testing.T) {
	t.Parallel()

	_, ok := Record{ConsultantID: 7}.Key()
	assert.False(t, ok)

	d := day(2025, 9, 10)
	k, ok := Record{ConsultantID: 7, Date: &d}.Key()
	assert.True(t, ok)
	assert.Equal(t, Key{ConsultantID: 7, Date: d}, k)
}
