package cmis

import (
	"fmt"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// Module and datapath state labels the driver branches on.
const (
	StateModuleReady         = "ModuleReady"
	StateModuleLowPwr        = "ModuleLowPwr"
	StateDataPathActivated   = "DataPathActivated"
	StateDataPathDeactivated = "DataPathDeactivated"
	ConfigStatusSuccess      = "ConfigSuccess"
)

// ModuleState returns the current module state label.
func (d *Driver) ModuleState() (string, error) {
	return d.bus.String(eeprom.ModuleState)
}

// ModuleFaultCause returns the module fault cause label.
func (d *Driver) ModuleFaultCause() (string, error) {
	return d.bus.String(eeprom.ModuleFaultCause)
}

// TransceiverStatus returns the non-latched status aggregate: module state
// and fault cause, plus the per-lane datapath, output, disable and config
// statuses on paged modules. The module state is required; the per-lane
// blocks are best-effort and omitted when unreadable.
func (d *Driver) TransceiverStatus() (map[string]any, error) {
	state, err := d.ModuleState()
	if err != nil {
		return nil, err
	}
	faultCause, err := d.ModuleFaultCause()
	if err != nil {
		return nil, err
	}
	status := map[string]any{
		"module_state":       state,
		"module_fault_cause": faultCause,
	}
	if d.IsFlatMemory() {
		return status, nil
	}

	if dpState, err := d.DatapathState(); err == nil {
		for lane := 1; lane <= NumLanes; lane++ {
			status[fmt.Sprintf("DP%dState", lane)] = dpState[lane-1]
		}
	}
	if txOut, err := d.TxOutputStatus(); err == nil {
		for lane := 1; lane <= NumLanes; lane++ {
			status[fmt.Sprintf("tx%dOutputStatus", lane)] = txOut[lane-1]
		}
	}
	if rxOut, err := d.RxOutputStatus(); err == nil {
		for lane := 1; lane <= NumLanes; lane++ {
			status[fmt.Sprintf("rx%dOutputStatusHostlane", lane)] = rxOut[lane-1]
		}
	}
	if channel, err := d.TxDisableChannel(); err == nil {
		status["tx_disabled_channel"] = channel
	}
	if disable, err := d.TxDisable(); err == nil {
		for lane := 1; lane <= NumLanes; lane++ {
			status[fmt.Sprintf("tx%ddisable", lane)] = disable[lane-1]
		}
	}
	if cfg, err := d.ConfigDatapathHostlaneStatus(); err == nil {
		for lane := 1; lane <= NumLanes; lane++ {
			status[fmt.Sprintf("config_state_hostlane%d", lane)] = cfg[lane-1]
		}
	}
	if deinit, err := d.DatapathDeinitBits(); err == nil {
		for lane := 1; lane <= NumLanes; lane++ {
			status[fmt.Sprintf("dpdeinit_hostlane%d", lane)] = deinit[lane-1]
		}
	}
	if pending, err := d.DPInitPending(); err == nil {
		for lane := 1; lane <= NumLanes; lane++ {
			status[fmt.Sprintf("dpinit_pending_hostlane%d", lane)] = pending[lane-1]
		}
	}
	return status, nil
}

// TransceiverStatusFlags returns the latched status flag aggregate. Every
// per-lane group resolves its keys to the sentinel when the group cannot
// be read or is not supported.
func (d *Driver) TransceiverStatusFlags() map[string]any {
	flags := make(map[string]any)
	if dpFwFault, moduleFwFault, stateChanged, err := d.ModuleFirmwareFaultStateChanged(); err == nil {
		flags["datapath_firmware_fault"] = dpFwFault
		flags["module_firmware_fault"] = moduleFwFault
		flags["module_state_changed"] = stateChanged
	}
	if d.IsFlatMemory() {
		return flags
	}

	groups := []struct {
		keyFormat string
		read      func() ([]bool, error)
	}{
		{"tx%dfault", d.TxFault},
		{"rx%dlos", d.RxLos},
		{"tx%dlos_hostlane", d.TxLos},
		{"tx%dcdrlol_hostlane", d.TxCdrLol},
		{"tx%d_eq_fault", d.TxAdaptiveEqFailFlag},
		{"rx%dcdrlol", d.RxCdrLol},
	}
	for _, g := range groups {
		values, err := g.read()
		for lane := 1; lane <= NumLanes; lane++ {
			key := fmt.Sprintf(g.keyFormat, lane)
			if err != nil {
				flags[key] = NotAvailable
			} else {
				flags[key] = values[lane-1]
			}
		}
	}
	return flags
}

// ErrorDescription summarizes the first abnormal condition found: a stuck
// datapath or config status on any commissioned lane, then an abnormal
// module state. A healthy module reports "OK".
func (d *Driver) ErrorDescription() (string, error) {
	if !d.IsFlatMemory() {
		dpState, err := d.DatapathState()
		if err != nil {
			return "", err
		}
		configState, err := d.ConfigDatapathHostlaneStatus()
		if err != nil {
			return "", err
		}
		for lane := 0; lane < NumLanes; lane++ {
			appl, err := d.bus.Uint(eeprom.StagedApSel(0, lane+1))
			if err != nil || appl>>4 == 0 {
				continue
			}
			if dpState[lane] != StateDataPathActivated {
				return dpState[lane], nil
			}
			if configState[lane] != ConfigStatusSuccess {
				return configState[lane], nil
			}
		}
	}
	state, err := d.ModuleState()
	if err != nil {
		return "", err
	}
	if state != StateModuleReady {
		return state, nil
	}
	return "OK", nil
}
