package cmis

import (
	"fmt"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
	"github.com/ashwnsri/sonic-platform-common/internal/vdm"
)

// VDM statistics freeze control values.
const (
	vdmFreeze   = 128
	vdmUnfreeze = 0
)

// vdmObservable binds a page-reader observable name to the output key
// prefix it publishes under.
type vdmObservable struct {
	observable string
	prefix     string
}

// vdmObservables is the fixed observable catalog. Both columns are part of
// the compatibility surface and must match the page reader and the state
// storage exactly.
var vdmObservables = []vdmObservable{
	{"Laser Temperature [C]", "laser_temperature_media"},
	{"eSNR Media Input [dB]", "esnr_media_input"},
	{"PAM4 Level Transition Parameter Media Input [dB]", "pam4_level_transition_media_input"},
	{"Pre-FEC BER Minimum Media Input", "prefec_ber_min_media_input"},
	{"Pre-FEC BER Maximum Media Input", "prefec_ber_max_media_input"},
	{"Pre-FEC BER Average Media Input", "prefec_ber_avg_media_input"},
	{"Pre-FEC BER Current Value Media Input", "prefec_ber_curr_media_input"},
	{"Errored Frames Minimum Media Input", "errored_frames_min_media_input"},
	{"Errored Frames Maximum Media Input", "errored_frames_max_media_input"},
	{"Errored Frames Average Media Input", "errored_frames_avg_media_input"},
	{"Errored Frames Current Value Media Input", "errored_frames_curr_media_input"},
	{"eSNR Host Input [dB]", "esnr_host_input"},
	{"PAM4 Level Transition Parameter Host Input [dB]", "pam4_level_transition_host_input"},
	{"Pre-FEC BER Minimum Host Input", "prefec_ber_min_host_input"},
	{"Pre-FEC BER Maximum Host Input", "prefec_ber_max_host_input"},
	{"Pre-FEC BER Average Host Input", "prefec_ber_avg_host_input"},
	{"Pre-FEC BER Current Value Host Input", "prefec_ber_curr_host_input"},
	{"Errored Frames Minimum Host Input", "errored_frames_min_host_input"},
	{"Errored Frames Maximum Host Input", "errored_frames_max_host_input"},
	{"Errored Frames Average Host Input", "errored_frames_avg_host_input"},
	{"Errored Frames Current Value Host Input", "errored_frames_curr_host_input"},
}

// VdmSupported reports whether the module advertises VDM and a page reader
// is attached.
func (d *Driver) VdmSupported() (bool, error) {
	if d.vdm == nil {
		return false, nil
	}
	return d.supportBit(eeprom.VdmSupported)
}

// vdmSnapshot reads the requested sample groups, degrading to an empty
// snapshot when no page reader is attached.
func (d *Driver) vdmSnapshot(opt vdm.FieldOption) vdm.Snapshot {
	if d.vdm == nil {
		return vdm.Snapshot{}
	}
	snap, err := d.vdm.ReadAllPages(opt)
	if err != nil {
		d.log.Debug().Err(err).Msg("vdm page read failed")
		return vdm.Snapshot{}
	}
	return snap
}

// putVdmSample resolves one (observable, lane, subtype) sample into the
// output map, substituting the sentinel for anything absent. A missing
// sample never fails the aggregate.
func (d *Driver) putVdmSample(out map[string]any, key string, snap vdm.Snapshot, observable string, sub vdm.Subtype, lane int) {
	sample, ok := snap.Sample(observable, lane, sub)
	if !ok {
		out[key] = NotAvailable
		d.log.Debug().Str("key", key).Msg("sample not present in vdm snapshot")
		return
	}
	out[key] = sample
}

// VdmRealValues returns the flat real-time telemetry map, one key per
// observable and lane.
func (d *Driver) VdmRealValues() map[string]any {
	snap := d.vdmSnapshot(vdm.OptionRealValue)
	out := make(map[string]any)
	for _, obs := range vdmObservables {
		for lane := 1; lane <= NumLanes; lane++ {
			key := fmt.Sprintf("%s%d", obs.prefix, lane)
			d.putVdmSample(out, key, snap, obs.observable, vdm.SubtypeRealValue, lane)
		}
	}
	return out
}

// VdmThresholds returns the flat threshold map, four bound suffixes per
// observable and lane.
func (d *Driver) VdmThresholds() map[string]any {
	snap := d.vdmSnapshot(vdm.OptionThreshold)
	out := make(map[string]any)
	for _, obs := range vdmObservables {
		for lane := 1; lane <= NumLanes; lane++ {
			for sub := vdm.SubtypeHighAlarmThreshold; sub <= vdm.SubtypeLowWarnThreshold; sub++ {
				key := fmt.Sprintf("%s_%s%d", obs.prefix, sub.Suffix(), lane)
				d.putVdmSample(out, key, snap, obs.observable, sub, lane)
			}
		}
	}
	return out
}

// VdmFlags returns the flat latched flag map, four bound suffixes per
// observable and lane.
func (d *Driver) VdmFlags() map[string]any {
	snap := d.vdmSnapshot(vdm.OptionFlag)
	out := make(map[string]any)
	for _, obs := range vdmObservables {
		for lane := 1; lane <= NumLanes; lane++ {
			for sub := vdm.SubtypeHighAlarmFlag; sub <= vdm.SubtypeLowWarnFlag; sub++ {
				key := fmt.Sprintf("%s_%s%d", obs.prefix, sub.Suffix(), lane)
				d.putVdmSample(out, key, snap, obs.observable, sub, lane)
			}
		}
	}
	return out
}

// FreezeVdmStats asks the module to freeze and hold the reported min, max
// and average statistics registers.
func (d *Driver) FreezeVdmStats() error {
	return d.bus.Write(eeprom.VdmControl, vdmFreeze)
}

// UnfreezeVdmStats releases a statistics freeze so reported values update
// again.
func (d *Driver) UnfreezeVdmStats() error {
	return d.bus.Write(eeprom.VdmControl, vdmUnfreeze)
}

// VdmFreezeDone reports whether a requested freeze has taken effect.
func (d *Driver) VdmFreezeDone() (bool, error) {
	return d.readBool(eeprom.VdmFreezeDone)
}

// VdmUnfreezeDone reports whether a requested unfreeze has taken effect.
func (d *Driver) VdmUnfreezeDone() (bool, error) {
	return d.readBool(eeprom.VdmUnfreezeDone)
}
