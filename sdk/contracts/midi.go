package contracts

// MIDI represents a raw channel message captured from a controller.
type MIDI struct {
	Timestamp uint64 // Timestamp indicates the time the event occurred.
	Command   byte   // Command is the status byte, channel nibble included.
	Note      byte   // Note represents the MIDI note number (0-127).
	Velocity  byte   // Velocity indicates the strength of the note being played (0-127).
}

// Kind returns the status byte with the channel nibble masked off.
func (m MIDI) Kind() MIDICommand {
	return MIDICommand(m.Command & 0xF0)
}

// Channel returns the zero-based MIDI channel.
func (m MIDI) Channel() uint8 {
	return m.Command & 0x0F
}

// ClientMIDI defines an interface for MIDI client operations.
type ClientMIDI interface {
	Stop() error                         // Stops the MIDI client and releases resources.
	ListDevices() ([]DeviceInfo, error)  // Lists all available MIDI devices.
	SelectDevice(deviceID int) error     // Selects a MIDI device by its ID for communication.
	StartCapture(eventChannel chan MIDI) // Starts capturing MIDI events and sends them to the specified channel.
}
