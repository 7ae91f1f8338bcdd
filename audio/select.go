package audio

import (
	"fmt"

	"scribe/errs"
)

// SelectInput resolves the device to record from. A named device wins when
// present; otherwise the system default, then the first device exposing an
// input channel.
func SelectInput(ctx Context, preferred string) (*DeviceInfo, error) {
	devices, err := ctx.Devices()
	if err != nil {
		return nil, fmt.Errorf("enumerating devices: %w", err)
	}
	return pickInput(devices, preferred)
}

func pickInput(devices []DeviceInfo, preferred string) (*DeviceInfo, error) {
	if preferred != "" {
		for i := range devices {
			if devices[i].Name == preferred && devices[i].InputChannels > 0 {
				return &devices[i], nil
			}
		}
	}
	for i := range devices {
		if devices[i].IsDefault && devices[i].InputChannels > 0 {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if devices[i].InputChannels > 0 {
			return &devices[i], nil
		}
	}
	return nil, errs.E("select input", errs.ErrNoInputDevice)
}
