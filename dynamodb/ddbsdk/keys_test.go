package ddbsdk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJoinKey(t *testing.T) {
	assert.Equal(t, "ACCOUNT#a1#b2", JoinKey("ACCOUNT", "a1", "b2"))
	assert.Equal(t, "a1#b2", JoinKey("", "a1", "b2"))
	assert.Equal(t, "ACCOUNT#b2", JoinKey("ACCOUNT", "", "b2"))
	assert.Equal(t, "ACCOUNT##b2", JoinKeyPadded("ACCOUNT", "", "b2"))
	assert.Equal(t, "ACCOUNT", JoinKey("ACCOUNT"))
}

func TestFormatEpochMillis(t *testing.T) {
	ts := time.Date(2024, 1, 2, 3, 4, 5, 6_000_000, time.UTC)
	assert.Equal(t, "1704164645006", FormatEpochMillis(ts))
	assert.Equal(t, "1.5", FormatFloat(1.5))
	assert.Equal(t, "3", FormatFloat(3))
}

func TestSegmentHelpers(t *testing.T) {
	n := 7
	assert.Equal(t, "", SegmentOf[string](nil, Identity))
	assert.Equal(t, "7", SegmentOf(&n, func(v int) string { return FormatFloat(float64(v)) }))
	assert.Equal(t, 0, Deref[int](nil))
	assert.Equal(t, 7, Deref(&n))
	assert.Nil(t, Bound[string](nil, Identity))
	assert.Equal(t, "x", *Bound(ptr("x"), Identity))
}

func TestNewSortKeyCondition(t *testing.T) {
	a, b := ptr("a"), ptr("b")
	tests := []struct {
		name     string
		prefix   string
		op       Operator
		pad      bool
		segments []*string
		want     *SortKeyCondition
		wantErr  bool
	}{
		{name: "nothing bound with prefix", prefix: "ORDER", segments: []*string{nil, nil},
			want: &SortKeyCondition{Op: OpBeginsWith, Value: "ORDER#"}},
		{name: "nothing bound without prefix", segments: []*string{nil, nil}, want: nil},
		{name: "range op with nothing bound", op: OpLess, segments: []*string{nil, nil}, wantErr: true},
		{name: "partial binding", prefix: "ORDER", segments: []*string{a, nil},
			want: &SortKeyCondition{Op: OpBeginsWith, Value: "ORDER#a#"}},
		{name: "full binding", prefix: "ORDER", segments: []*string{a, b},
			want: &SortKeyCondition{Op: OpEqual, Value: "ORDER#a#b"}},
		{name: "explicit equality needs every field", op: OpEqual, segments: []*string{a, nil}, wantErr: true},
		{name: "explicit begins_with", op: OpBeginsWith, prefix: "ORDER", segments: []*string{a, nil},
			want: &SortKeyCondition{Op: OpBeginsWith, Value: "ORDER#a"}},
		{name: "range op on partial binding", op: OpGreaterOrEqual, prefix: "ORDER", segments: []*string{a, nil},
			want: &SortKeyCondition{Op: OpGreaterOrEqual, Value: "ORDER#a"}},
		{name: "gap in binding", segments: []*string{nil, b}, wantErr: true},
		{name: "padded empty segment", pad: true, prefix: "ORDER", segments: []*string{ptr(""), b},
			want: &SortKeyCondition{Op: OpEqual, Value: "ORDER##b"}},
		{name: "unknown operator", op: Operator("~"), segments: []*string{a, b}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := NewSortKeyCondition(tt.prefix, len(tt.segments), tt.op, tt.pad, tt.segments...)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
