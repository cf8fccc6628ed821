package router

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsCommand(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"ls -la", true},
		{"git status", true},
		{"  cd /tmp  ", true},
		{"!what is the weather", true},
		{"!", true},
		{"!anything goes here", true},
		{"what is the weather", false},
		{"tell me a joke", false},
		{"", false},
		{"   ", false},
		{"how do I list files | really", true},
		{"save it > file", true},
		{"make && make install", true},
		{"a; b", true},
		{"listing is not a verb", false},
		{"Git status", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsCommand(tt.input))
		})
	}
}

func TestIsCommandBangAlwaysWins(t *testing.T) {
	for _, s := range []string{"!", "!!", "!tell me a joke", "!   ", "!日本語"} {
		assert.True(t, IsCommand(s), s)
	}
}

func TestIsSystemQuery(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"how are you", true},
		{"How Are You today?", true},
		{"tell me a joke", false},
		{"restart the systemd unit", true},
		{"my wayland session crashes", true},
		{"what's the weather", false},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, IsSystemQuery(tt.input))
		})
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		input string
		want  Category
	}{
		{"fix this rust function", Coding},
		{"sudo fix this rust function", System},
		{"please explain the architecture of a modern city layout", Complex},
		{"explain", Quick},
		{"what is a monad", Quick},
		{"hi", Quick},
		{"tell me something interesting about the moon and its orbit", Coding},
		{longText(210), Complex},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.input))
		})
	}
}

func TestClassifyIsDeterministic(t *testing.T) {
	inputs := []string{"fix this rust function", "how are you", "", longText(500), "what is love"}
	for _, in := range inputs {
		assert.Equal(t, Classify(in), Classify(in))
	}
}

func longText(n int) string {
	b := make([]byte, n)
	for i := range b {
		b[i] = 'z'
	}
	return string(b)
}
