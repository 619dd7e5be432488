package cmis

import (
	"errors"
	"testing"
	"time"

	"github.com/ashwnsri/sonic-platform-common/internal/testutil/testlog"
)

// fakeClock drives the poll loops deterministically: sleeping advances the
// reported time and fires the per-sleep hook.
type fakeClock struct {
	t       time.Time
	sleeps  []time.Duration
	onSleep func(n int)
}

func (c *fakeClock) now() time.Time { return c.t }

func (c *fakeClock) sleep(d time.Duration) {
	c.t = c.t.Add(d)
	c.sleeps = append(c.sleeps, d)
	if c.onSleep != nil {
		c.onSleep(len(c.sleeps))
	}
}

func newLPModeBus() *fakeBus {
	bus := newPagedBus()
	bus.strs["PowerClass"] = "Power Class 8"
	bus.uints["ModuleLevelControl"] = 0
	bus.floats["ModulePowerDownDuration"] = 1000
	bus.floats["ModulePowerUpDuration"] = 1000
	bus.strs["ModuleState"] = StateModuleReady
	return bus
}

func TestLPModeSupported(t *testing.T) {
	testlog.Start(t)
	d := New(newLPModeBus())
	if !d.LPModeSupported() {
		t.Fatalf("class 8 module should support lpmode")
	}

	bus := newPagedBus()
	bus.strs["PowerClass"] = "Power Class 1"
	if d := New(bus); d.LPModeSupported() {
		t.Fatalf("class 1 module must not support lpmode")
	}

	// Unreadable power class is treated as unsupported.
	bus = newPagedBus()
	bus.fail["PowerClass"] = errBusIO
	if d := New(bus); d.LPModeSupported() {
		t.Fatalf("unreadable power class must not support lpmode")
	}
}

func TestSetLPModeWaitsThroughPolls(t *testing.T) {
	testlog.Start(t)
	bus := newLPModeBus()
	clk := &fakeClock{}
	clk.onSleep = func(n int) {
		if n == 3 {
			bus.strs["ModuleState"] = StateModuleLowPwr
		}
	}
	d := New(bus, WithClock(clk.now, clk.sleep))

	if err := d.SetLPMode(true, true); err != nil {
		t.Fatalf("set lpmode failed: %v", err)
	}
	if w := bus.lastWrite(t); w.field != "ModuleLevelControl" || w.value != 1<<lowPwrRequestSWBit {
		t.Fatalf("wrote %+v, want request bit set", w)
	}
	if len(clk.sleeps) != 3 {
		t.Fatalf("sleeps = %d, want 3 polls before the state landed", len(clk.sleeps))
	}
	for _, s := range clk.sleeps {
		if s != pollInterval {
			t.Fatalf("sleep = %v, want %v", s, pollInterval)
		}
	}
}

func TestSetLPModeTimesOut(t *testing.T) {
	testlog.Start(t)
	bus := newLPModeBus()
	clk := &fakeClock{}
	d := New(bus, WithClock(clk.now, clk.sleep))

	err := d.SetLPMode(true, true)
	if err == nil {
		t.Fatalf("expected timeout error")
	}
	// 1000ms window at 100ms per poll.
	if len(clk.sleeps) != 10 {
		t.Fatalf("sleeps = %d, want 10", len(clk.sleeps))
	}
}

func TestSetLPModeOffClearsBothBits(t *testing.T) {
	testlog.Start(t)
	bus := newLPModeBus()
	bus.uints["ModuleLevelControl"] = 1<<lowPwrRequestSWBit | 1<<lowPwrAllowRequestHWBit
	d := New(bus)

	if err := d.SetLPMode(false, false); err != nil {
		t.Fatalf("set lpmode off failed: %v", err)
	}
	if w := bus.lastWrite(t); w.value != 0 {
		t.Fatalf("wrote %#x, want both low-power bits cleared", w.value)
	}
}

func TestSetLPModeUnsupported(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.strs["PowerClass"] = "Power Class 1"
	d := New(bus)
	if err := d.SetLPMode(true, false); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("expected ErrNotSupported, got %v", err)
	}

	flat := New(newFlatBus())
	if err := flat.SetLPMode(true, false); !errors.Is(err, ErrNotSupported) {
		t.Fatalf("flat: expected ErrNotSupported, got %v", err)
	}
}

func TestLPModeFollowsModuleState(t *testing.T) {
	testlog.Start(t)
	bus := newLPModeBus()
	bus.strs["ModuleState"] = StateModuleLowPwr
	d := New(bus)
	if !d.LPMode() {
		t.Fatalf("module in %s should report lpmode", StateModuleLowPwr)
	}

	bus.strs["ModuleState"] = StateModuleReady
	if d.LPMode() {
		t.Fatalf("ready module should not report lpmode")
	}
}

func TestReset(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.strs["ModuleState"] = StateModuleReady
	clk := &fakeClock{}
	d := New(bus, WithClock(clk.now, clk.sleep))

	if err := d.Reset(); err != nil {
		t.Fatalf("reset failed: %v", err)
	}
	if w := bus.writes[0]; w.field != "ModuleLevelControl" || w.value != 1<<moduleResetBit {
		t.Fatalf("wrote %+v, want reset bit", w)
	}
	if len(clk.sleeps) != 1 || clk.sleeps[0] != 2*time.Second {
		t.Fatalf("sleeps = %v, want one 2s settle", clk.sleeps)
	}
}

func TestResetGivesUpAfterPolls(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.strs["ModuleState"] = "ModuleFault"
	clk := &fakeClock{}
	d := New(bus, WithClock(clk.now, clk.sleep))

	if err := d.Reset(); err == nil {
		t.Fatalf("expected reset failure")
	}
	// One settle sleep plus five poll sleeps.
	if len(clk.sleeps) != 6 {
		t.Fatalf("sleeps = %d, want 6", len(clk.sleeps))
	}
}
