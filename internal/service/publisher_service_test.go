package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizePublisherName(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"lowercase passthrough", "acme", "acme"},
		{"spaces become underscores", "Acme Publishing", "acme_publishing"},
		{"punctuation stripped", "O'Reilly & Co.", "o_reilly___co"},
		{"surrounding underscores trimmed", "  _Acme_  ", "acme"},
		{"digits and dashes kept", "Pub-42", "pub-42"},
		{"nothing left", "!!!", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizePublisherName(tt.in))
		})
	}
}
