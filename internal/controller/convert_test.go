package controller

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestComposeEmbeddingText(t *testing.T) {
	cases := []struct {
		name      string
		segment   string
		recording string
		tags      []string
		want      string
	}{
		{"segment and recording", "Metallic Hit", "Factory Field Session", nil, "metallic hit factory field session"},
		{"identical descriptions collapse", "drone", "drone", nil, "drone"},
		{"tags appended", "drone", "", []string{"Dark", "Slow"}, "drone dark slow"},
		{"recording only", "", "ambient walk", nil, "ambient walk"},
		{"empty everything", "", "", nil, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, composeEmbeddingText(tc.segment, tc.recording, tc.tags))
		})
	}
}

func TestComposeEmbeddingTextIsStable(t *testing.T) {
	first := composeEmbeddingText("granular texture", "street recording", []string{"noisy"})
	second := composeEmbeddingText("granular texture", "street recording", []string{"noisy"})
	assert.Equal(t, first, second)
}
