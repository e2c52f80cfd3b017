package tui

import (
	"errors"
	"testing"

	"github.com/1broseidon/starry/internal/config"
)

func TestSetupApplyConvertsFields(t *testing.T) {
	base := config.DefaultConfig()
	f := newSetupForm(base)
	f.fBackend = config.BackendX11
	f.fWidth = " 800 "
	f.fHeight = "600"
	f.fBackground = "#102030"
	f.fGapSize = "0"
	f.fDefaultLayout = "columns"
	f.fLogLevel = "debug"

	got, err := f.apply()
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	if got.Device.Backend != config.BackendX11 || got.Device.Width != 800 || got.Device.Height != 600 {
		t.Fatalf("device = %+v", got.Device)
	}
	if got.Background != "#102030" || got.Tiling.GapSize != 0 || got.Tiling.DefaultLayout != "columns" || got.LogLevel != "debug" {
		t.Fatalf("config not applied: background=%q gap=%d layout=%q level=%q",
			got.Background, got.Tiling.GapSize, got.Tiling.DefaultLayout, got.LogLevel)
	}
	if base.Device.Backend != config.BackendFbdev {
		t.Fatalf("apply modified the source config")
	}
}

func TestSetupApplyRejectsInvalidValues(t *testing.T) {
	tests := []struct {
		name string
		edit func(*setupForm)
	}{
		{"width", func(f *setupForm) { f.fWidth = "wide" }},
		{"gap", func(f *setupForm) { f.fGapSize = "-" }},
		{"background", func(f *setupForm) { f.fBackground = "blue-ish" }},
		{"fbdev path", func(f *setupForm) { f.fPath = "  " }},
	}
	for _, tt := range tests {
		f := newSetupForm(config.DefaultConfig())
		tt.edit(f)
		if _, err := f.apply(); err == nil {
			t.Fatalf("%s: invalid value accepted", tt.name)
		}
	}

	f := newSetupForm(config.DefaultConfig())
	f.fBackground = "nope"
	_, err := f.apply()
	var verr *config.ValidationError
	if !errors.As(err, &verr) || verr.Path != "background" {
		t.Fatalf("got %v, want a background validation error", err)
	}
}

func TestSetupValidators(t *testing.T) {
	if positiveInt("0") == nil || positiveInt("x") == nil || positiveInt("3") != nil {
		t.Fatalf("positiveInt misclassifies input")
	}
	if nonNegativeInt("-1") == nil || nonNegativeInt("0") != nil {
		t.Fatalf("nonNegativeInt misclassifies input")
	}
	if hexColor("#ffffff") != nil || hexColor("white") == nil {
		t.Fatalf("hexColor misclassifies input")
	}
}
