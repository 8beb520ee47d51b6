package midi

import (
	"github.com/leandrodaf/relayorgan/internal/logger"
	"github.com/leandrodaf/relayorgan/sdk/contracts"
)

// DefaultClientName is the name the client registers under with the OS MIDI service.
const DefaultClientName = "relayorgan"

// applyDefaultOptions sets default values for ClientOptions if not explicitly provided.
//
// opts ...contracts.Option: A variadic list of option functions that can modify ClientOptions.
//
// Returns:
//   - contracts.ClientOptions: A structure containing the finalized client options with defaults applied.
//   - error: An error if there was an issue applying the options.
func applyDefaultOptions(opts ...contracts.Option) (contracts.ClientOptions, error) {
	options := &contracts.ClientOptions{}
	for _, opt := range opts {
		opt(options)
	}

	if options.Logger == nil {
		options.Logger = logger.NewZapLogger()
	}
	if options.LogFilePath != "" {
		options.Logger.SetDestination(contracts.FileLog, options.LogFilePath)
	}
	if options.CoreMIDIConfig == nil {
		options.CoreMIDIConfig = &contracts.CoreMIDIConfig{ClientName: DefaultClientName}
	}

	// InfoLevel is the zero value, so an unset level keeps Info.
	options.Logger.SetLevel(options.LogLevel)
	return *options, nil
}
