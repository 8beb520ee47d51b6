package midi

import (
	"errors"
	"strings"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// ErrNoController is returned when none of the listed devices matches a known controller.
var ErrNoController = errors.New("no matching MIDI controller")

// DefaultControllerPrefixes are the keyboards the organ has been played from.
var DefaultControllerPrefixes = []string{
	"USB Uno MIDI Interface MIDI 1",
	"Akai LPK25 Wireless:Akai LPK25 Wireless Bluetooth",
	"Akai LPK25 Wireless:Akai LPK25 Wireless MIDI 1",
	"rtpmidi:rtpmidi",
}

// FindController lists the client's input devices and returns the first one
// whose name starts with any of prefixes. Devices are scanned in the order
// the client reports them; for each device the prefixes are tried in order.
//
// A client that reports no devices, or no device matching, yields
// ErrNoController. Listing errors are returned wrapped.
func FindController(client contracts.ClientMIDI, prefixes []string) (contracts.DeviceInfo, error) {
	devices, err := client.ListDevices()
	if err != nil && len(devices) == 0 {
		return contracts.DeviceInfo{}, errors.Join(ErrNoController, err)
	}
	for _, dev := range devices {
		for _, prefix := range prefixes {
			if prefix != "" && strings.HasPrefix(dev.Name, prefix) {
				return dev, nil
			}
		}
	}
	return contracts.DeviceInfo{}, ErrNoController
}

// DeviceNames returns the names of the devices for status output.
func DeviceNames(devices []contracts.DeviceInfo) []string {
	names := make([]string, len(devices))
	for i, d := range devices {
		names[i] = d.Name
	}
	return names
}
