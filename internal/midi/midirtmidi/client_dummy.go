//go:build darwin || windows
// +build darwin windows

package midirtmidi

import (
	"errors"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// ErrUnavailable is returned by every dummy operation.
var ErrUnavailable = errors.New("rtmidi client is not used on this platform")

type dummyMIDIClient struct {
	logger contracts.Logger
}

// NewMIDIClient returns a client whose operations all fail; the native
// client of the platform is used instead.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	options.Logger.Debug("Using dummy rtmidi client")
	return &dummyMIDIClient{logger: options.Logger}, nil
}

func (m *dummyMIDIClient) ListDevices() ([]contracts.DeviceInfo, error) {
	return nil, ErrUnavailable
}

func (m *dummyMIDIClient) SelectDevice(deviceID int) error {
	return ErrUnavailable
}

func (m *dummyMIDIClient) StartCapture(eventChannel chan contracts.MIDI) {
	m.logger.Warn("StartCapture called on dummy MIDI client")
}

func (m *dummyMIDIClient) Stop() error {
	return nil
}
