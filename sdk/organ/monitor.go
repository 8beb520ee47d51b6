package organ

import "github.com/leandrodaf/relayorgan/sdk/contracts"

// MonitorSink only logs what it receives. It is the print-only variant of
// the sink shape and never touches a bus.
type MonitorSink struct {
	logger contracts.Logger
	count  int
}

// NewMonitorSink creates a monitor sink.
func NewMonitorSink(opts ...Option) *MonitorSink {
	o := applyDefaultOptions(opts...)
	return &MonitorSink{logger: o.Logger}
}

func (m *MonitorSink) Reset() error {
	m.logger.Info("Echoing MIDI messages to monitor")
	return nil
}

func (m *MonitorSink) Apply(ev contracts.NoteEvent) error {
	m.count++
	m.logger.Info(ev.String(), m.logger.Field().Int("seq", m.count))
	return nil
}

func (m *MonitorSink) Release() error {
	m.logger.Info("Monitor closed", m.logger.Field().Int("events", m.count))
	return nil
}

// Count returns how many events were applied.
func (m *MonitorSink) Count() int {
	return m.count
}
