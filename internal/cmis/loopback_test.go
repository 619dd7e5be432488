package cmis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ashwnsri/sonic-platform-common/internal/testutil/testlog"
)

func newLoopbackBus(capability uint64) *fakeBus {
	bus := newPagedBus()
	bus.uints["LoopbackCapability"] = capability
	bus.uints["HostInputLoopbackEnable"] = 0
	bus.uints["HostOutputLoopbackEnable"] = 0
	bus.uints["MediaInputLoopbackEnable"] = 0
	bus.uints["MediaOutputLoopbackEnable"] = 0
	return bus
}

func TestLoopbackCapabilitiesDecode(t *testing.T) {
	testlog.Start(t)
	bus := newLoopbackBus(0b01011010)
	d := New(bus)

	capability, err := d.LoopbackCapabilities()
	if err != nil {
		t.Fatalf("capabilities failed: %v", err)
	}
	want := LoopbackCapability{
		SimultaneousHostMedia: true,
		PerLaneHost:           true,
		HostInput:             true,
		MediaInput:            true,
	}
	if capability != want {
		t.Fatalf("capability = %+v, want %+v", capability, want)
	}
}

func TestSetLoopbackFailsClosedOnPartialMask(t *testing.T) {
	testlog.Start(t)
	// Host input supported, per-lane host control not.
	bus := newLoopbackBus(1<<6 | 1<<3)
	d := New(bus)

	err := d.SetHostInputLoopback(0x3, true)
	if err == nil || !strings.Contains(err.Error(), "per-lane") {
		t.Fatalf("expected per-lane rejection, got %v", err)
	}
	if len(bus.writes) != 0 {
		t.Fatalf("rejected request must not write, got %v", bus.writes)
	}
}

func TestSetLoopbackRejectsUnsupportedDirection(t *testing.T) {
	testlog.Start(t)
	bus := newLoopbackBus(1 << 6)
	d := New(bus)

	if err := d.SetMediaOutputLoopback(AllLanesMask, true); err == nil {
		t.Fatalf("expected unsupported-direction rejection")
	}
	if len(bus.writes) != 0 {
		t.Fatalf("rejected request must not write, got %v", bus.writes)
	}
}

func TestSetLoopbackSimultaneousGate(t *testing.T) {
	testlog.Start(t)
	// Host input supported, simultaneous host+media not; media side active.
	bus := newLoopbackBus(1<<3 | 1<<4)
	bus.uints["MediaInputLoopbackEnable"] = 0xFF
	d := New(bus)

	err := d.SetHostInputLoopback(0x1, true)
	if err == nil || !strings.Contains(err.Error(), "simultaneous") {
		t.Fatalf("expected simultaneous rejection, got %v", err)
	}
	if len(bus.writes) != 0 {
		t.Fatalf("rejected request must not write, got %v", bus.writes)
	}
}

func TestSetLoopbackReadModifyWrite(t *testing.T) {
	testlog.Start(t)
	bus := newLoopbackBus(1<<6 | 1<<4 | 1<<3)
	bus.uints["HostInputLoopbackEnable"] = 0b10000000
	d := New(bus)

	if err := d.SetHostInputLoopback(0x3, true); err != nil {
		t.Fatalf("enable failed: %v", err)
	}
	if w := bus.lastWrite(t); w.field != "HostInputLoopbackEnable" || w.value != 0b10000011 {
		t.Fatalf("wrote %+v, want existing bits preserved", w)
	}

	if err := d.SetHostInputLoopback(0b10000001, false); err != nil {
		t.Fatalf("disable failed: %v", err)
	}
	if w := bus.lastWrite(t); w.value != 0b00000010 {
		t.Fatalf("wrote %#x, want 0x02", w.value)
	}
}

func TestSetLoopbackModeNoneClearsAllDirections(t *testing.T) {
	testlog.Start(t)
	bus := newLoopbackBus(0b01111111)
	bus.uints["HostInputLoopbackEnable"] = 0xFF
	bus.uints["MediaOutputLoopbackEnable"] = 0x0F
	d := New(bus)

	if err := d.SetLoopbackMode("none", 0, false); err != nil {
		t.Fatalf("clear all failed: %v", err)
	}
	for _, field := range []string{
		"HostInputLoopbackEnable", "HostOutputLoopbackEnable",
		"MediaInputLoopbackEnable", "MediaOutputLoopbackEnable",
	} {
		if bus.uints[field] != 0 {
			t.Fatalf("%s = %#x after clear", field, bus.uints[field])
		}
	}
}

func TestSetLoopbackModeUnknown(t *testing.T) {
	testlog.Start(t)
	d := New(newLoopbackBus(0b01111111))
	if err := d.SetLoopbackMode("sideways", AllLanesMask, true); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}

func TestTransceiverLoopbackAggregate(t *testing.T) {
	testlog.Start(t)
	bus := newLoopbackBus(1<<6 | 1<<4 | 1<<3 | 1<<0)
	bus.uints["HostInputLoopbackEnable"] = 0b00000101
	bus.uints["MediaOutputLoopbackEnable"] = 1
	d := New(bus)

	out := d.TransceiverLoopback()
	if out["host_side_input_loopback_supported"] != true {
		t.Fatalf("host input support = %v", out["host_side_input_loopback_supported"])
	}
	if out["media_output_loopback"] != true {
		t.Fatalf("media output = %v", out["media_output_loopback"])
	}
	// Unsupported direction reports the sentinel, not a value.
	if out["media_input_loopback"] != NotAvailable {
		t.Fatalf("media input = %v, want %q", out["media_input_loopback"], NotAvailable)
	}
	if out["host_input_loopback_lane1"] != true || out["host_input_loopback_lane2"] != false {
		t.Fatalf("host input lanes = %v / %v",
			out["host_input_loopback_lane1"], out["host_input_loopback_lane2"])
	}
	for lane := 1; lane <= NumLanes; lane++ {
		key := fmt.Sprintf("host_output_loopback_lane%d", lane)
		if out[key] != NotAvailable {
			t.Fatalf("%s = %v, want %q", key, out[key], NotAvailable)
		}
	}
}

func TestTransceiverLoopbackUnreadableCapability(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.fail["LoopbackCapability"] = errBusIO
	d := New(bus)

	out := d.TransceiverLoopback()
	if out["simultaneous_host_media_loopback_supported"] != NotAvailable {
		t.Fatalf("capability keys should degrade to %q, got %v",
			NotAvailable, out["simultaneous_host_media_loopback_supported"])
	}
	if out["host_input_loopback_lane8"] != NotAvailable {
		t.Fatalf("lane keys should degrade to %q", NotAvailable)
	}
}
