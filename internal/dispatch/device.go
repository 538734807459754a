package dispatch

import (
	"github.com/mileusna/useragent"

	"github.com/madarat/beacon/internal/model"
)

// parseDevice derives coarse device info from the User-Agent header.
// Best effort: an empty or unparseable header yields an empty struct.
func parseDevice(uaString string) model.DeviceInfo {
	if uaString == "" {
		return model.DeviceInfo{}
	}

	ua := useragent.Parse(uaString)

	deviceType := "desktop"
	switch {
	case ua.Bot:
		deviceType = "bot"
	case ua.Tablet:
		deviceType = "tablet"
	case ua.Mobile:
		deviceType = "mobile"
	}

	return model.DeviceInfo{
		Type:    deviceType,
		OS:      ua.OS,
		Browser: ua.Name,
	}
}
