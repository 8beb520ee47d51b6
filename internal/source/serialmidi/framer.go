package serialmidi

// Framer reassembles MIDI messages from a raw DIN/serial byte stream.
// It understands running status, drops realtime bytes wherever they
// appear, and skips SysEx and system common messages.
type Framer struct {
	status byte // current status; 0 when none
	need   int  // data bytes the status takes
	data   [2]byte
	n      int
	sysex  bool
}

// Feed consumes one byte and returns a complete channel message when b
// finishes one. The returned slice is only valid until the next call.
func (f *Framer) Feed(b byte) ([]byte, bool) {
	switch {
	case b >= 0xF8:
		// Realtime: clock, start, stop, active sensing. Transparent.
		return nil, false
	case b == 0xF0:
		f.sysex = true
		f.reset(0, 0)
		return nil, false
	case b == 0xF7:
		f.sysex = false
		f.reset(0, 0)
		return nil, false
	case b >= 0xF0:
		// System common ends SysEx and cancels running status. Its data
		// bytes are consumed and dropped.
		f.sysex = false
		f.reset(b, systemCommonLength(b))
		return nil, false
	case b >= 0x80:
		f.sysex = false
		f.reset(b, channelLength(b))
		return nil, false
	}

	if f.sysex || f.status == 0 {
		return nil, false
	}
	f.data[f.n] = b
	f.n++
	if f.n < f.need {
		return nil, false
	}

	f.n = 0
	if f.status >= 0xF0 {
		f.status = 0
		return nil, false
	}
	msg := make([]byte, 0, 3)
	msg = append(msg, f.status)
	msg = append(msg, f.data[:f.need]...)
	return msg, true
}

func (f *Framer) reset(status byte, need int) {
	f.status = status
	f.need = need
	f.n = 0
	if status >= 0xF0 && need == 0 {
		f.status = 0
	}
}

func channelLength(status byte) int {
	switch status & 0xF0 {
	case 0xC0, 0xD0:
		return 1
	}
	return 2
}

func systemCommonLength(status byte) int {
	switch status {
	case 0xF1, 0xF3:
		return 1
	case 0xF2:
		return 2
	}
	return 0
}
