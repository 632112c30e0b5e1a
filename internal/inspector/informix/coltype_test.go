package informix

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeColType(t *testing.T) {
	tests := []struct {
		name      string
		coltype   int64
		collength int64
		ext       string
		want      string
		nullable  bool
		autoInc   bool
		maxLen    int64
	}{
		{name: "char", coltype: 0, collength: 10, want: "char", nullable: true, maxLen: 10},
		{name: "not null char", coltype: 256, collength: 10, want: "char", maxLen: 10},
		{name: "serial", coltype: 262, collength: 4, want: "serial", autoInc: true},
		{name: "serial8", coltype: 18, collength: 8, want: "serial8", nullable: true, autoInc: true},
		{name: "bigserial", coltype: 309, collength: 8, want: "bigserial", autoInc: true},
		{name: "varchar", coltype: 13, collength: 5*256 + 64, want: "varchar", nullable: true, maxLen: 64},
		{name: "nvarchar", coltype: 272, collength: 255, want: "nvarchar", maxLen: 255},
		{name: "lvarchar", coltype: 43, collength: 2048, want: "lvarchar", nullable: true, maxLen: 2048},
		{name: "date", coltype: 263, collength: 4, want: "date"},
		{name: "boolean", coltype: 45, collength: 1, want: "boolean", nullable: true},
		{name: "opaque blob", coltype: 41, collength: 72, ext: "blob", want: "blob", nullable: true},
		{name: "opaque json", coltype: 296, collength: 4096, ext: "JSON", want: "json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ct, ok := decodeColType(tt.coltype, tt.collength, tt.ext)
			require.True(t, ok)
			assert.Equal(t, tt.want, ct.dataType)
			assert.Equal(t, tt.nullable, ct.nullable)
			assert.Equal(t, tt.autoInc, ct.autoIncrement)
			if tt.maxLen > 0 {
				require.NotNil(t, ct.maxLength)
				assert.Equal(t, tt.maxLen, *ct.maxLength)
			}
		})
	}
}

func TestDecodeColType_Decimal(t *testing.T) {
	ct, ok := decodeColType(5, 16*256+4, "")
	require.True(t, ok)
	assert.Equal(t, int64(16), *ct.precision)
	assert.Equal(t, int64(4), *ct.scale)

	// floating decimal has no fixed scale
	ct, ok = decodeColType(5, 16*256+255, "")
	require.True(t, ok)
	assert.Equal(t, int64(16), *ct.precision)
	assert.Nil(t, ct.scale)
}

func TestDecodeColType_Unknown(t *testing.T) {
	_, ok := decodeColType(99, 0, "")
	assert.False(t, ok)

	_, ok = decodeColType(41, 0, "")
	assert.False(t, ok, "opaque type without an extended name")
}

func TestDecodeDefault(t *testing.T) {
	str := func(s string) *string { return &s }

	tests := []struct {
		name      string
		kind      *string
		value     *string
		character bool
		want      *string
	}{
		{name: "no default", want: nil},
		{name: "char literal", kind: str("L"), value: str("pending   "), character: true, want: str("pending")},
		{name: "char literal with spaces", kind: str("L"), value: str("a b"), character: true, want: str("a b")},
		{name: "numeric literal", kind: str("L"), value: str("2 42"), want: str("42")},
		{name: "current", kind: str("C"), want: str("CURRENT_TIMESTAMP")},
		{name: "today", kind: str("T"), want: str("TODAY")},
		{name: "user", kind: str("U"), want: str("USER")},
		{name: "server", kind: str("S"), want: str("DBSERVERNAME")},
		{name: "null", kind: str("N"), want: str("NULL")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := decodeDefault(tt.kind, tt.value, tt.character)
			assert.Equal(t, tt.want, got)
		})
	}
}
