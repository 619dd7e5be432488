package cmis

import (
	"fmt"
	"strings"
	"time"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// Module-level control bit positions.
const (
	lowPwrRequestSWBit     = 4
	lowPwrAllowRequestHWBit = 6
	moduleResetBit          = 3
)

// pollInterval paces the bounded waits on power transitions.
const pollInterval = 100 * time.Millisecond

// LPModeSupported reports whether software low-power control is usable.
// Power class 1 modules are never eligible; an unreadable power class is
// treated as ineligible.
func (d *Driver) LPModeSupported() bool {
	supported, err := cached(d, "lpmode_support", func() (bool, error) {
		class, err := d.bus.String(eeprom.PowerClass)
		if err != nil {
			return false, err
		}
		return !strings.Contains(class, "Power Class 1"), nil
	})
	if err != nil {
		return false
	}
	return supported
}

// LPMode reports whether the module currently sits in the low-power state.
func (d *Driver) LPMode() bool {
	if d.IsFlatMemory() || !d.LPModeSupported() {
		return false
	}
	state, err := d.ModuleState()
	if err != nil {
		return false
	}
	return state == StateModuleLowPwr
}

// waitCondition polls cond at the fixed interval until it holds or the
// bounded duration elapses, then checks once more so a transition landing
// on the deadline is not missed.
func (d *Driver) waitCondition(cond func() bool, durationMs float64) bool {
	deadline := d.now().Add(time.Duration(durationMs) * time.Millisecond)
	for d.now().Before(deadline) {
		if cond() {
			return true
		}
		d.sleep(pollInterval)
	}
	return cond()
}

// SetLPMode requests a transition to low power (on=true) or high power
// (on=false). With wait set, the call blocks polling module state for up to
// the advertised power-down or power-up duration and fails if the target
// state was not observed.
func (d *Driver) SetLPMode(on, wait bool) error {
	if d.IsFlatMemory() || !d.LPModeSupported() {
		return fmt.Errorf("%w: low-power control", ErrNotSupported)
	}
	control, err := d.bus.Uint(eeprom.ModuleLevelControl)
	if err != nil {
		return fmt.Errorf("cmis: read module control: %w", err)
	}
	if on {
		control |= 1 << lowPwrRequestSWBit
	} else {
		control &^= 1 << lowPwrRequestSWBit
		control &^= 1 << lowPwrAllowRequestHWBit
	}
	if err := d.bus.Write(eeprom.ModuleLevelControl, control); err != nil {
		return fmt.Errorf("cmis: write module control: %w", err)
	}
	if !wait {
		return nil
	}
	if on {
		if !d.waitCondition(d.LPMode, d.ModulePowerDownDuration()) {
			return fmt.Errorf("cmis: module did not reach %s", StateModuleLowPwr)
		}
		return nil
	}
	ready := func() bool {
		state, err := d.ModuleState()
		return err == nil && state == StateModuleReady
	}
	if !d.waitCondition(ready, d.ModulePowerUpDuration()) {
		return fmt.Errorf("cmis: module did not reach %s", StateModuleReady)
	}
	return nil
}

// Reset resets the module and returns all user settings to their defaults.
// After the reset write the management interface needs a settle period
// before it answers again; the state is then polled until the module
// reports ready or low power.
func (d *Driver) Reset() error {
	if err := d.bus.Write(eeprom.ModuleLevelControl, 1<<moduleResetBit); err != nil {
		return fmt.Errorf("cmis: reset write: %w", err)
	}
	d.sleep(2 * time.Second)
	for attempt := 0; attempt < 5; attempt++ {
		state, err := d.ModuleState()
		if err == nil && (state == StateModuleReady || state == StateModuleLowPwr) {
			return nil
		}
		d.sleep(time.Second)
	}
	return fmt.Errorf("cmis: module did not come back after reset")
}
