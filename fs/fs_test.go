package fs_test

import (
	"testing"

	"github.com/fwojciec/harvest/fs"
	"github.com/stretchr/testify/assert"
)

func TestSafeName(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want string
	}{
		{in: "2024-01-01_refund", want: "2024-01-01_refund"},
		{in: "a/b\\c", want: "a_b_c"},
		{in: "what?", want: "what_"},
		{in: "  padded  ", want: "padded"},
		{in: "", want: "_"},
		{in: "..", want: "_"},
		{in: "tab\there", want: "tab_here"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, fs.SafeName(tt.in))
		})
	}
}
