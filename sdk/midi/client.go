package midi

import (
	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// NewMIDIClient creates the platform MIDI client for runtime.GOOS with the
// given options applied over the defaults.
func NewMIDIClient(opts ...contracts.Option) (contracts.ClientMIDI, error) {
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	return NewClient(&options)
}

// OpenController creates a client that only captures note messages, finds
// the first input matching prefixes and starts capturing from it. When no
// input matches the client is stopped and the error wraps ErrNoController.
// Closing the returned source stops the client.
func OpenController(prefixes []string, opts ...contracts.Option) (*CaptureSource, error) {
	opts = append(opts, contracts.WithMIDIEventFilter(contracts.NoteFilter()))
	options, err := applyDefaultOptions(opts...)
	if err != nil {
		return nil, err
	}
	client, err := NewClient(&options)
	if err != nil {
		return nil, err
	}
	return openController(client, prefixes, options.Logger)
}

func openController(client contracts.ClientMIDI, prefixes []string, log contracts.Logger) (*CaptureSource, error) {
	if len(prefixes) == 0 {
		prefixes = DefaultControllerPrefixes
	}

	dev, err := FindController(client, prefixes)
	if err != nil {
		if devices, lerr := client.ListDevices(); lerr == nil {
			log.Info("MIDI ports available", log.Field().Strings("ports", DeviceNames(devices)))
		}
		log.Info("Looked for", log.Field().Strings("controllers", prefixes))
		_ = client.Stop()
		return nil, err
	}
	log.Info("Matched MIDI port", log.Field().String("port", dev.Name))

	src, err := NewCaptureSource(client, dev, DefaultCaptureBuffer)
	if err != nil {
		_ = client.Stop()
		return nil, err
	}
	return src, nil
}
