package cmis

import (
	"errors"
	"fmt"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// LoopbackCapability is the advertised loopback support byte, decoded into
// its seven independent capability bits.
type LoopbackCapability struct {
	SimultaneousHostMedia bool
	PerLaneMedia          bool
	PerLaneHost           bool
	HostInput             bool
	HostOutput            bool
	MediaInput            bool
	MediaOutput           bool
}

// LoopbackCapabilities reads the loopback capability advertisement.
func (d *Driver) LoopbackCapabilities() (LoopbackCapability, error) {
	if d.IsFlatMemory() {
		return LoopbackCapability{}, fmt.Errorf("%w: loopback", ErrNotSupported)
	}
	raw, err := d.bus.Uint(eeprom.LoopbackCapability)
	if err != nil {
		return LoopbackCapability{}, err
	}
	return LoopbackCapability{
		SimultaneousHostMedia: raw&(1<<6) != 0,
		PerLaneMedia:          raw&(1<<5) != 0,
		PerLaneHost:           raw&(1<<4) != 0,
		HostInput:             raw&(1<<3) != 0,
		HostOutput:            raw&(1<<2) != 0,
		MediaInput:            raw&(1<<1) != 0,
		MediaOutput:           raw&(1<<0) != 0,
	}, nil
}

// HostInputLoopback returns the host-side input loopback enable per lane.
func (d *Driver) HostInputLoopback() ([]bool, error) {
	return d.loopbackLanes(eeprom.HostInputLoopback)
}

// HostOutputLoopback returns the host-side output loopback enable per lane.
func (d *Driver) HostOutputLoopback() ([]bool, error) {
	return d.loopbackLanes(eeprom.HostOutputLoopback)
}

// MediaInputLoopback reports whether any media-side input loopback is on.
func (d *Driver) MediaInputLoopback() (bool, error) {
	v, err := d.bus.Uint(eeprom.MediaInputLoopback)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// MediaOutputLoopback reports whether any media-side output loopback is on.
func (d *Driver) MediaOutputLoopback() (bool, error) {
	v, err := d.bus.Uint(eeprom.MediaOutputLoopback)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (d *Driver) loopbackLanes(f eeprom.Field) ([]bool, error) {
	raw, err := d.bus.Uint(f)
	if err != nil {
		return nil, err
	}
	lanes := make([]bool, NumLanes)
	for lane := 0; lane < NumLanes; lane++ {
		lanes[lane] = raw&(1<<lane) != 0
	}
	return lanes, nil
}

// loopbackSide describes one of the four loopback directions so the setters
// share a single gate-then-write path.
type loopbackSide struct {
	name      string
	field     eeprom.Field
	supported func(LoopbackCapability) bool
	perLane   func(LoopbackCapability) bool
	// opposite are the other side's enable registers, checked when
	// simultaneous host+media loopback is not supported.
	opposite [2]eeprom.Field
}

var (
	hostInputSide = loopbackSide{
		name:      "host input",
		field:     eeprom.HostInputLoopback,
		supported: func(c LoopbackCapability) bool { return c.HostInput },
		perLane:   func(c LoopbackCapability) bool { return c.PerLaneHost },
		opposite:  [2]eeprom.Field{eeprom.MediaInputLoopback, eeprom.MediaOutputLoopback},
	}
	hostOutputSide = loopbackSide{
		name:      "host output",
		field:     eeprom.HostOutputLoopback,
		supported: func(c LoopbackCapability) bool { return c.HostOutput },
		perLane:   func(c LoopbackCapability) bool { return c.PerLaneHost },
		opposite:  [2]eeprom.Field{eeprom.MediaInputLoopback, eeprom.MediaOutputLoopback},
	}
	mediaInputSide = loopbackSide{
		name:      "media input",
		field:     eeprom.MediaInputLoopback,
		supported: func(c LoopbackCapability) bool { return c.MediaInput },
		perLane:   func(c LoopbackCapability) bool { return c.PerLaneMedia },
		opposite:  [2]eeprom.Field{eeprom.HostInputLoopback, eeprom.HostOutputLoopback},
	}
	mediaOutputSide = loopbackSide{
		name:      "media output",
		field:     eeprom.MediaOutputLoopback,
		supported: func(c LoopbackCapability) bool { return c.MediaOutput },
		perLane:   func(c LoopbackCapability) bool { return c.PerLaneMedia },
		opposite:  [2]eeprom.Field{eeprom.HostInputLoopback, eeprom.HostOutputLoopback},
	}
)

// setLoopback gates a loopback change on the capability advertisement and
// fails closed, issuing no write, when any gate rejects the request.
func (d *Driver) setLoopback(side loopbackSide, laneMask uint64, enable bool) error {
	capability, err := d.LoopbackCapabilities()
	if err != nil {
		return fmt.Errorf("cmis: loopback capability: %w", err)
	}
	if !side.supported(capability) {
		return fmt.Errorf("cmis: %s loopback not supported", side.name)
	}
	if !side.perLane(capability) && laneMask != AllLanesMask {
		return fmt.Errorf("cmis: per-lane %s loopback not supported, mask %#x", side.name, laneMask)
	}
	if !capability.SimultaneousHostMedia {
		first, err := d.bus.Uint(side.opposite[0])
		if err != nil {
			return fmt.Errorf("cmis: read %s: %w", side.opposite[0].Name(), err)
		}
		second, err := d.bus.Uint(side.opposite[1])
		if err != nil {
			return fmt.Errorf("cmis: read %s: %w", side.opposite[1].Name(), err)
		}
		if first != 0 || second != 0 {
			return fmt.Errorf("cmis: simultaneous host and media loopback not supported (%#x, %#x)", first, second)
		}
	}
	current, err := d.bus.Uint(side.field)
	if err != nil {
		return fmt.Errorf("cmis: read %s: %w", side.field.Name(), err)
	}
	if enable {
		current |= laneMask
	} else {
		current &^= laneMask
	}
	return d.bus.Write(side.field, current)
}

// SetHostInputLoopback enables or disables host-side input loopback on the
// masked lanes.
func (d *Driver) SetHostInputLoopback(laneMask uint64, enable bool) error {
	return d.setLoopback(hostInputSide, laneMask, enable)
}

// SetHostOutputLoopback enables or disables host-side output loopback on
// the masked lanes.
func (d *Driver) SetHostOutputLoopback(laneMask uint64, enable bool) error {
	return d.setLoopback(hostOutputSide, laneMask, enable)
}

// SetMediaInputLoopback enables or disables media-side input loopback on
// the masked lanes.
func (d *Driver) SetMediaInputLoopback(laneMask uint64, enable bool) error {
	return d.setLoopback(mediaInputSide, laneMask, enable)
}

// SetMediaOutputLoopback enables or disables media-side output loopback on
// the masked lanes.
func (d *Driver) SetMediaOutputLoopback(laneMask uint64, enable bool) error {
	return d.setLoopback(mediaOutputSide, laneMask, enable)
}

// SetLoopbackMode applies one named loopback mode. Mode "none" clears all
// four directions and reports the combined outcome, so a direction that
// failed to clear is still visible after the others succeeded.
func (d *Driver) SetLoopbackMode(mode string, laneMask uint64, enable bool) error {
	switch mode {
	case "none":
		return errors.Join(
			d.SetHostInputLoopback(AllLanesMask, false),
			d.SetHostOutputLoopback(AllLanesMask, false),
			d.SetMediaInputLoopback(AllLanesMask, false),
			d.SetMediaOutputLoopback(AllLanesMask, false),
		)
	case "host-side-input":
		return d.SetHostInputLoopback(laneMask, enable)
	case "host-side-output":
		return d.SetHostOutputLoopback(laneMask, enable)
	case "media-side-input":
		return d.SetMediaInputLoopback(laneMask, enable)
	case "media-side-output":
		return d.SetMediaOutputLoopback(laneMask, enable)
	default:
		return fmt.Errorf("cmis: invalid loopback mode %q", mode)
	}
}

// TransceiverLoopback returns the loopback aggregate: the seven capability
// bits plus the current enables of every supported direction; unsupported
// directions carry the sentinel.
func (d *Driver) TransceiverLoopback() map[string]any {
	out := make(map[string]any)
	capability, err := d.LoopbackCapabilities()
	if err != nil {
		for _, key := range []string{
			"simultaneous_host_media_loopback_supported",
			"per_lane_media_loopback_supported",
			"per_lane_host_loopback_supported",
			"host_side_input_loopback_supported",
			"host_side_output_loopback_supported",
			"media_side_input_loopback_supported",
			"media_side_output_loopback_supported",
			"media_output_loopback",
			"media_input_loopback",
		} {
			out[key] = NotAvailable
		}
		for lane := 1; lane <= NumLanes; lane++ {
			out[fmt.Sprintf("host_output_loopback_lane%d", lane)] = NotAvailable
			out[fmt.Sprintf("host_input_loopback_lane%d", lane)] = NotAvailable
		}
		return out
	}

	out["simultaneous_host_media_loopback_supported"] = capability.SimultaneousHostMedia
	out["per_lane_media_loopback_supported"] = capability.PerLaneMedia
	out["per_lane_host_loopback_supported"] = capability.PerLaneHost
	out["host_side_input_loopback_supported"] = capability.HostInput
	out["host_side_output_loopback_supported"] = capability.HostOutput
	out["media_side_input_loopback_supported"] = capability.MediaInput
	out["media_side_output_loopback_supported"] = capability.MediaOutput

	out["media_output_loopback"] = NotAvailable
	if capability.MediaOutput {
		if v, err := d.MediaOutputLoopback(); err == nil {
			out["media_output_loopback"] = v
		}
	}
	out["media_input_loopback"] = NotAvailable
	if capability.MediaInput {
		if v, err := d.MediaInputLoopback(); err == nil {
			out["media_input_loopback"] = v
		}
	}

	for lane := 1; lane <= NumLanes; lane++ {
		out[fmt.Sprintf("host_output_loopback_lane%d", lane)] = NotAvailable
		out[fmt.Sprintf("host_input_loopback_lane%d", lane)] = NotAvailable
	}
	if capability.HostOutput {
		if lanes, err := d.HostOutputLoopback(); err == nil {
			for lane := 1; lane <= NumLanes; lane++ {
				out[fmt.Sprintf("host_output_loopback_lane%d", lane)] = lanes[lane-1]
			}
		}
	}
	if capability.HostInput {
		if lanes, err := d.HostInputLoopback(); err == nil {
			for lane := 1; lane <= NumLanes; lane++ {
				out[fmt.Sprintf("host_input_loopback_lane%d", lane)] = lanes[lane-1]
			}
		}
	}
	return out
}
