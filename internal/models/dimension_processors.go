package models

import "strings"

// CountryExtractor handles country-based targeting
type CountryExtractor struct{}

func NewCountryExtractor() AttributeExtractor {
	return &CountryExtractor{}
}

func (ce *CountryExtractor) Name() string {
	return RuleTypeCountry
}

func (ce *CountryExtractor) Value(req BidRequest) (string, bool) {
	return present(req.CountryCode)
}

// DeviceTypeExtractor handles device type targeting (mobile, tablet, desktop)
type DeviceTypeExtractor struct{}

func NewDeviceTypeExtractor() AttributeExtractor {
	return &DeviceTypeExtractor{}
}

func (de *DeviceTypeExtractor) Name() string {
	return RuleTypeDeviceType
}

func (de *DeviceTypeExtractor) Value(req BidRequest) (string, bool) {
	return present(req.DeviceType)
}

func present(v string) (string, bool) {
	v = strings.TrimSpace(v)
	return v, v != ""
}
