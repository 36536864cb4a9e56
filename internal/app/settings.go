package app

import (
	"fmt"
	"strings"

	"raptor.transitrouter.org/internal/appconf"
	"raptor.transitrouter.org/internal/raptor"
)

// SettingsFromFile applies the defaults block of the config file on top of
// raptor.DefaultSettings. Enum values are given by name, e.g. "balanced".
func SettingsFromFile(data appconf.SettingsData) (raptor.Settings, error) {
	s := raptor.DefaultSettings()
	if data.WalkingPace != 0 {
		s.WalkingPace = data.WalkingPace
	}
	if data.CyclingPace != 0 {
		s.CyclingPace = data.CyclingPace
	}
	if data.BikeUnlockTime != nil {
		s.BikeUnlockTime = *data.BikeUnlockTime
	}
	if data.BikeLockTime != nil {
		s.BikeLockTime = *data.BikeLockTime
	}
	s.UseSharedBikes = data.UseSharedBikes

	var err error
	if s.TransferBuffer, err = parseEnum("transfer-buffer", data.TransferBuffer, s.TransferBuffer, 4); err != nil {
		return s, err
	}
	if s.ComfortBalance, err = parseEnum("comfort-balance", data.ComfortBalance, s.ComfortBalance, 4); err != nil {
		return s, err
	}
	if s.WalkingPreference, err = parseEnum("walking-preference", data.WalkingPreference, s.WalkingPreference, 3); err != nil {
		return s, err
	}
	if s.BikeTripBuffer, err = parseEnum("bike-trip-buffer", data.BikeTripBuffer, s.BikeTripBuffer, 4); err != nil {
		return s, err
	}

	if err := s.Validate(); err != nil {
		return s, err
	}
	return s, nil
}

// parseEnum matches name against the String() of the first count values of
// T. An empty name keeps def.
func parseEnum[T interface {
	~int
	fmt.Stringer
}](field, name string, def T, count int) (T, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return def, nil
	}
	for i := 0; i < count; i++ {
		if v := T(i); v.String() == name {
			return v, nil
		}
	}
	return def, fmt.Errorf("%s: unknown value %q", field, name)
}
