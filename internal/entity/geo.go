package entity

import (
	"fmt"
	"strings"
)

const (
	DefaultCountry     = "United States"
	DefaultCountryCode = "US"
	UnknownValue       = "Unknown"
	DefaultTimezone    = "UTC"

	flagBaseURL = "https://flagcdn.com/w40"
)

// GeoInfo is the location snapshot resolved from the caller's address.
type GeoInfo struct {
	IP          string `json:"ip"`
	Country     string `json:"country"`
	CountryCode string `json:"countryCode"`
	Region      string `json:"region"`
	City        string `json:"city"`
	Timezone    string `json:"timezone"`
	Flag        string `json:"flag"`
}

func FlagURL(countryCode string) string {
	return fmt.Sprintf("%s/%s.png", flagBaseURL, strings.ToLower(countryCode))
}

// FallbackGeoInfo is returned whenever the lookup cannot be completed.
func FallbackGeoInfo() GeoInfo {
	return GeoInfo{
		IP:          UnknownValue,
		Country:     DefaultCountry,
		CountryCode: DefaultCountryCode,
		Region:      UnknownValue,
		City:        UnknownValue,
		Timezone:    DefaultTimezone,
		Flag:        FlagURL(DefaultCountryCode),
	}
}
