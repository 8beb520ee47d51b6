//go:build !darwin && !windows
// +build !darwin,!windows

package midirtmidi

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/leandrodaf/relayorgan/sdk/contracts"
	"gitlab.com/gomidi/midi/v2"
	"gitlab.com/gomidi/midi/v2/drivers"
	"gitlab.com/gomidi/midi/v2/drivers/rtmididrv"
)

var (
	ErrNoMIDIDevices     = errors.New("no MIDI devices found")
	ErrInvalidMIDIDevice = errors.New("invalid MIDI device")
	ErrNotSelected       = errors.New("no MIDI device selected")
)

// ClientMid captures note messages from an ALSA (or JACK) input through rtmidi.
type ClientMid struct {
	logger          contracts.Logger
	drv             *rtmididrv.Driver
	midiEventFilter *contracts.MIDIEventFilter
	eventChannel    atomic.Value // chan contracts.MIDI

	mu       sync.Mutex
	in       drivers.In
	stopFn   func()
	stopOnce sync.Once
}

// NewMIDIClient opens the rtmidi driver.
func NewMIDIClient(options *contracts.ClientOptions) (contracts.ClientMIDI, error) {
	drv, err := rtmididrv.New()
	if err != nil {
		return nil, fmt.Errorf("rtmididrv: %w", err)
	}
	options.Logger.Info("MIDI client successfully created", options.Logger.Field().String("driver", drv.String()))
	return &ClientMid{
		logger:          options.Logger,
		drv:             drv,
		midiEventFilter: options.MIDIEventFilter,
	}, nil
}

// ListDevices returns the input ports in driver order; the ID is the port number.
func (m *ClientMid) ListDevices() ([]contracts.DeviceInfo, error) {
	ins, err := m.drv.Ins()
	if err != nil {
		return nil, fmt.Errorf("error listing MIDI inputs: %w", err)
	}
	if len(ins) == 0 {
		m.logger.Warn(ErrNoMIDIDevices.Error())
		return nil, ErrNoMIDIDevices
	}

	devices := make([]contracts.DeviceInfo, len(ins))
	for i, in := range ins {
		devices[i] = contracts.DeviceInfo{
			ID:           in.Number(),
			Name:         in.String(),
			EntityName:   in.String(),
			Manufacturer: m.drv.String(),
		}
	}
	return devices, nil
}

// SelectDevice remembers the input port with the given number. The port is
// opened when capture starts.
func (m *ClientMid) SelectDevice(deviceID int) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	ins, err := m.drv.Ins()
	if err != nil {
		return fmt.Errorf("error retrieving MIDI inputs: %w", err)
	}
	var found drivers.In
	for _, in := range ins {
		if in.Number() == deviceID {
			found = in
			break
		}
	}
	if found == nil {
		m.logger.Error(ErrInvalidMIDIDevice.Error(), m.logger.Field().Int("deviceID", deviceID))
		return ErrInvalidMIDIDevice
	}

	m.closeLocked()
	m.in = found
	m.logger.Info("Opening MIDI input",
		m.logger.Field().Int("deviceID", deviceID),
		m.logger.Field().String("deviceName", found.String()))
	return nil
}

// StartCapture listens on the selected port and forwards raw channel
// messages to eventChannel without blocking.
func (m *ClientMid) StartCapture(eventChannel chan contracts.MIDI) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if eventChannel == nil {
		m.logger.Error("StartCapture called with nil eventChannel")
		return
	}
	if m.in == nil {
		m.logger.Error(ErrNotSelected.Error())
		return
	}
	m.eventChannel.Store(eventChannel)
	if m.stopFn != nil {
		m.logger.Warn("Capture already started; switching channel")
		return
	}

	stop, err := midi.ListenTo(m.in, m.handleMessage)
	if err != nil {
		m.logger.Error("Failed to start MIDI capture", m.logger.Field().Error("error", err))
		return
	}
	m.stopFn = stop
	m.logger.Info("Starting MIDI event capture")
}

func (m *ClientMid) handleMessage(msg midi.Message, _ int32) {
	b := msg.Bytes()
	if len(b) < 3 || !m.midiEventFilter.Allows(b[0]) {
		return
	}
	ch, _ := m.eventChannel.Load().(chan contracts.MIDI)
	if ch == nil {
		return
	}
	event := contracts.MIDI{
		Timestamp: uint64(time.Now().UTC().UnixNano()),
		Command:   b[0],
		Note:      b[1],
		Velocity:  b[2],
	}
	select {
	case ch <- event:
	default:
		m.logger.Warn("Event buffer full; dropping MIDI event")
	}
}

// Stop closes the port and the driver. It is safe to call more than once.
func (m *ClientMid) Stop() error {
	var err error
	m.stopOnce.Do(func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.closeLocked()
		err = m.drv.Close()
		m.logger.Info("MIDI capture stopped")
	})
	return err
}

func (m *ClientMid) closeLocked() {
	if m.stopFn != nil {
		m.stopFn()
		m.stopFn = nil
	}
	if m.in != nil && m.in.IsOpen() {
		if err := m.in.Close(); err != nil {
			m.logger.Warn("Failed to close MIDI input", m.logger.Field().Error("error", err))
		}
	}
	m.in = nil
}
