package app

import (
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/raptor"
)

func TestRequestHasInvalidAPIKey(t *testing.T) {
	application := &Application{Config: appconf.Config{ApiKeys: []string{"alpha", "beta"}}}

	tests := []struct {
		name    string
		target  string
		header  string
		invalid bool
	}{
		{"query key", "/api/stops?key=alpha", "", false},
		{"header key", "/api/stops", "beta", false},
		{"header wins", "/api/stops?key=wrong", "alpha", false},
		{"unknown key", "/api/stops?key=gamma", "", true},
		{"missing key", "/api/stops", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := httptest.NewRequest("GET", tt.target, nil)
			if tt.header != "" {
				r.Header.Set("X-API-Key", tt.header)
			}
			assert.Equal(t, tt.invalid, application.RequestHasInvalidAPIKey(r))
		})
	}
}

func TestRequestHasInvalidAPIKey_NoKeysConfigured(t *testing.T) {
	application := &Application{}
	assert.False(t, application.RequestHasInvalidAPIKey(httptest.NewRequest("GET", "/api/stops", nil)))
	assert.True(t, application.IsInvalidAPIKey("anything"))
}

func TestSettingsFromFile(t *testing.T) {
	unlock := 0
	s, err := SettingsFromFile(appconf.SettingsData{
		WalkingPace:       15,
		BikeUnlockTime:    &unlock,
		UseSharedBikes:    true,
		ComfortBalance:    "least-transfers",
		WalkingPreference: " High ",
	})
	require.NoError(t, err)

	def := raptor.DefaultSettings()
	assert.Equal(t, 15, s.WalkingPace)
	assert.Equal(t, def.CyclingPace, s.CyclingPace)
	assert.Equal(t, 0, s.BikeUnlockTime)
	assert.Equal(t, def.BikeLockTime, s.BikeLockTime)
	assert.True(t, s.UseSharedBikes)
	assert.Equal(t, raptor.ComfortLeastTransfers, s.ComfortBalance)
	assert.Equal(t, raptor.WalkingHigh, s.WalkingPreference)
	assert.Equal(t, def.TransferBuffer, s.TransferBuffer)
}

func TestSettingsFromFile_Errors(t *testing.T) {
	_, err := SettingsFromFile(appconf.SettingsData{BikeTripBuffer: "huge"})
	assert.ErrorContains(t, err, "bike-trip-buffer")

	_, err = SettingsFromFile(appconf.SettingsData{WalkingPace: 1})
	assert.Error(t, err)
}
