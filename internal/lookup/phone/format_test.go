package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		raw   string
		want  string
		shape Shape
	}{
		{"4521", "4521", ShapeExtension},
		{" 4521 ", "4521", ShapeExtension},
		{"9185551234", "+1 918-555-1234", ShapeNumber},
		{"918-555-1234", "+1 918-555-1234", ShapeNumber},
		{"(918) 555.1234", "+1 918-555-1234", ShapeNumber},
		{"19185551234", "+1 918-555-1234", ShapeNumber},
		{"+1 918-555-1234", "+1 918-555-1234", ShapeNumber},
		{"29185551234", "29185551234", ShapeOther},
		{"45-21", "45-21", ShapeOther},
		{"ext. 4521", "ext. 4521", ShapeOther},
		{"555-1234", "555-1234", ShapeOther},
		{"", "", ShapeOther},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, shape := Format(tt.raw)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.shape, shape)
		})
	}
}

func TestFormatRoundTrip(t *testing.T) {
	for _, raw := range []string{"9185551234", "2125550000", "8005551212", "19185551234", "4521", "bogus"} {
		once, shape := Format(raw)
		twice, shapeAgain := Format(once)
		assert.Equal(t, once, twice, raw)
		assert.Equal(t, shape, shapeAgain, raw)
	}
}

func TestSame(t *testing.T) {
	assert.True(t, Same("918-749-8828", "19187498828"))
	assert.True(t, Same("+1 918-749-8828", "9187498828"))
	assert.False(t, Same("9187498828", "9187498829"))
	assert.False(t, Same("", ""))
	assert.Equal(t, "9187498828", Normalize("(918) 749-8828"))
}
