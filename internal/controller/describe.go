package controller

import (
	"context"
	"fmt"

	"hibikido/internal/describer"
	"hibikido/internal/store"
)

// describerFallback adapts a possibly-nil *describer.Describer so
// generate_description always has something to call: the collaborator
// is optional and may be absent.
type describerFallback struct {
	d *describer.Describer
}

func (f *describerFallback) Describe(ctx context.Context, path, existingDescription, summaryHints string) (string, error) {
	if f.d == nil {
		if summaryHints == "" {
			return fmt.Sprintf("audio segment from %s", path), nil
		}
		return fmt.Sprintf("audio segment from %s (%s)", path, summaryHints), nil
	}
	return f.d.Describe(ctx, path, existingDescription, summaryHints)
}

// summaryHints builds a short human-readable digest of a feature record
// for the describer collaborator's prompt.
func summaryHints(f store.FeatureRecord) string {
	brightness := "dark"
	if f.Centroid > 2000 {
		brightness = "bright"
	}
	texture := "tonal"
	if f.HarmonicRatio < 0.4 {
		texture = "percussive"
	}
	return fmt.Sprintf("%s, %s, %.1f onsets/s, %.1fs", brightness, texture, f.OnsetRate, f.Duration)
}
