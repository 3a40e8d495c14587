package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidEmail(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected bool
	}{
		{name: "Valid", input: "student@umbc.edu", expected: true},
		{name: "Missing at", input: "student.umbc.edu", expected: false},
		{name: "Missing domain dot", input: "student@umbc", expected: false},
		{name: "Whitespace", input: "stu dent@umbc.edu", expected: false},
		{name: "Empty", input: "", expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, IsValidEmail(tt.input))
		})
	}
}

func TestNormalizeEmail(t *testing.T) {
	assert.Equal(t, "student@umbc.edu", NormalizeEmail("  Student@UMBC.edu "))
}

func TestFields(t *testing.T) {
	assert.Equal(t, []string{"add", "r1", "f2"}, Fields("  add   r1\tf2 "))
	assert.Nil(t, Fields("   "))
}

func TestMaskCard(t *testing.T) {
	assert.Equal(t, "************4242", MaskCard("4242 4242 4242 4242"))
	assert.Equal(t, "42", MaskCard("42"))
}

func TestPtrHelpers(t *testing.T) {
	t.Run("StrPtr", func(t *testing.T) {
		ptr := StrPtr("test string")
		assert.NotNil(t, ptr)
		assert.Equal(t, "test string", *ptr)
	})

	t.Run("PtrString", func(t *testing.T) {
		str := "test"
		assert.Equal(t, "test", PtrString(&str))
		assert.Equal(t, "", PtrString(nil))
	})
}
