package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrice(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "100", want: 100},
		{in: " 7 ", want: 7},
		{in: "0", wantErr: true},
		{in: "-5", wantErr: true},
		{in: "abc", wantErr: true},
		{in: "1.5", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParsePrice(tt.in)
			if tt.wantErr {
				require.Error(t, err)
				assert.ErrorIs(t, err, ErrInvalidArgument)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("lookup: %w", NotFoundf("product %q not found", "p1"))
	assert.True(t, errors.Is(err, ErrNotFound))
	assert.False(t, errors.Is(err, ErrInvalidArgument))
	assert.True(t, HasCode(err, CodeNotFound))

	var coder interface{ ErrorCode() string }
	require.True(t, errors.As(err, &coder))
	assert.Equal(t, "NOT_FOUND", coder.ErrorCode())
}

func TestProductValidate(t *testing.T) {
	base := Product{Name: "Guide", Price: 10, Material: Material{Kind: MaterialText, Content: "x"}}
	require.NoError(t, base.Validate())

	zero := base
	zero.Price = 0
	assert.ErrorIs(t, zero.Validate(), ErrInvalidArgument)

	badKind := base
	badKind.Material.Kind = "audio"
	assert.ErrorIs(t, badKind.Validate(), ErrInvalidArgument)
}

func TestWelcomeValidate(t *testing.T) {
	require.NoError(t, DefaultWelcome().Validate())
	w := Welcome{Text: "hi", Media: &WelcomeMedia{Kind: "document", Ref: "f"}}
	assert.ErrorIs(t, w.Validate(), ErrInvalidArgument)
	w.Media.Kind = WelcomeAnimation
	assert.NoError(t, w.Validate())
}
