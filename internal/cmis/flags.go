package cmis

import (
	"fmt"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// FlagGroup is one set of latched out-of-range flags.
type FlagGroup struct {
	HighAlarm bool
	LowAlarm  bool
	HighWarn  bool
	LowWarn   bool
}

// ModuleFlags are the module-level latched flags, decoded from the three
// flag bytes in lower memory.
type ModuleFlags struct {
	CaseTemp  FlagGroup
	Voltage   FlagGroup
	Aux1      FlagGroup
	Aux2      FlagGroup
	Aux3      FlagGroup
	CustomMon FlagGroup
}

func flagGroupAt(raw uint64, shift uint) FlagGroup {
	return FlagGroup{
		HighAlarm: raw&(1<<(shift+0)) != 0,
		LowAlarm:  raw&(1<<(shift+1)) != 0,
		HighWarn:  raw&(1<<(shift+2)) != 0,
		LowWarn:   raw&(1<<(shift+3)) != 0,
	}
}

// ModuleLevelFlags reads and decodes the module-level latched flags.
func (d *Driver) ModuleLevelFlags() (*ModuleFlags, error) {
	byte1, err := d.bus.Uint(eeprom.ModuleFlagByte1)
	if err != nil {
		return nil, err
	}
	byte2, err := d.bus.Uint(eeprom.ModuleFlagByte2)
	if err != nil {
		return nil, err
	}
	byte3, err := d.bus.Uint(eeprom.ModuleFlagByte3)
	if err != nil {
		return nil, err
	}
	return &ModuleFlags{
		CaseTemp:  flagGroupAt(byte1, 0),
		Voltage:   flagGroupAt(byte1, 4),
		Aux1:      flagGroupAt(byte2, 0),
		Aux2:      flagGroupAt(byte2, 4),
		Aux3:      flagGroupAt(byte3, 0),
		CustomMon: flagGroupAt(byte3, 4),
	}, nil
}

// ModuleFirmwareFaultStateChanged returns the datapath firmware fault,
// module firmware fault and module-state-changed indications.
func (d *Driver) ModuleFirmwareFaultStateChanged() (dpFwFault, moduleFwFault, stateChanged bool, err error) {
	raw, err := d.bus.Uint(eeprom.ModuleFirmwareFaultInfo)
	if err != nil {
		return false, false, false, err
	}
	return raw&(1<<2) != 0, raw&(1<<1) != 0, raw&1 != 0, nil
}

// laneFlagGroups reads the four latched flag registers of one monitored
// quantity on every lane.
func (d *Driver) laneFlagGroups(field func(eeprom.FlagKind, int) eeprom.Field) (map[eeprom.FlagKind][]bool, error) {
	out := make(map[eeprom.FlagKind][]bool, 4)
	for _, kind := range []eeprom.FlagKind{
		eeprom.FlagHighAlarm, eeprom.FlagLowAlarm, eeprom.FlagHighWarn, eeprom.FlagLowWarn,
	} {
		lanes := make([]bool, NumLanes)
		for lane := 1; lane <= NumLanes; lane++ {
			v, err := d.bus.Uint(field(kind, lane))
			if err != nil {
				return nil, err
			}
			lanes[lane-1] = v != 0
		}
		out[kind] = lanes
	}
	return out, nil
}

// TxPowerFlags returns the latched TX power out-of-range flags per lane.
func (d *Driver) TxPowerFlags() (map[eeprom.FlagKind][]bool, error) {
	return d.laneFlagGroups(eeprom.TxPowerFlag)
}

// RxPowerFlags returns the latched RX power out-of-range flags per lane.
func (d *Driver) RxPowerFlags() (map[eeprom.FlagKind][]bool, error) {
	return d.laneFlagGroups(eeprom.RxPowerFlag)
}

// TxBiasFlags returns the latched TX bias out-of-range flags per lane.
func (d *Driver) TxBiasFlags() (map[eeprom.FlagKind][]bool, error) {
	return d.laneFlagGroups(eeprom.TxBiasFlag)
}

func putLaneFlagGroup(out map[string]any, prefix string, groups map[eeprom.FlagKind][]bool) {
	suffix := map[eeprom.FlagKind]string{
		eeprom.FlagHighAlarm: "HAlarm",
		eeprom.FlagLowAlarm:  "LAlarm",
		eeprom.FlagHighWarn:  "HWarn",
		eeprom.FlagLowWarn:   "LWarn",
	}
	for kind, lanes := range groups {
		for lane := 1; lane <= NumLanes; lane++ {
			out[fmt.Sprintf("%s%d%s%s", "tx", lane, prefix, suffix[kind])] = lanes[lane-1]
		}
	}
}

// TransceiverDomFlags returns the latched DOM flag aggregate: module-level
// temperature and voltage flags, laser temperature flags routed through the
// auxiliary slot assignment, and per-lane power and bias flags. Each group
// is best-effort; an unreadable group is simply omitted.
func (d *Driver) TransceiverDomFlags() map[string]any {
	out := make(map[string]any)

	moduleFlags, err := d.ModuleLevelFlags()
	if err != nil {
		d.log.Debug().Err(err).Msg("module-level flags unavailable")
	} else {
		out["tempHAlarm"] = moduleFlags.CaseTemp.HighAlarm
		out["tempLAlarm"] = moduleFlags.CaseTemp.LowAlarm
		out["tempHWarn"] = moduleFlags.CaseTemp.HighWarn
		out["tempLWarn"] = moduleFlags.CaseTemp.LowWarn
		out["vccHAlarm"] = moduleFlags.Voltage.HighAlarm
		out["vccLAlarm"] = moduleFlags.Voltage.LowAlarm
		out["vccHWarn"] = moduleFlags.Voltage.HighWarn
		out["vccLWarn"] = moduleFlags.Voltage.LowWarn

		if _, aux2, aux3, auxErr := d.AuxMonType(); auxErr == nil {
			var laser *FlagGroup
			switch {
			case aux2 == 0:
				laser = &moduleFlags.Aux2
			case aux2 == 1 && aux3 == 0:
				laser = &moduleFlags.Aux3
			}
			if laser != nil {
				out["lasertempHAlarm"] = laser.HighAlarm
				out["lasertempLAlarm"] = laser.LowAlarm
				out["lasertempHWarn"] = laser.HighWarn
				out["lasertempLWarn"] = laser.LowWarn
			}
		}
	}

	if d.IsFlatMemory() {
		return out
	}
	if groups, err := d.TxPowerFlags(); err == nil {
		putLaneFlagGroup(out, "power", groups)
	}
	if groups, err := d.RxPowerFlags(); err == nil {
		suffix := map[eeprom.FlagKind]string{
			eeprom.FlagHighAlarm: "HAlarm",
			eeprom.FlagLowAlarm:  "LAlarm",
			eeprom.FlagHighWarn:  "HWarn",
			eeprom.FlagLowWarn:   "LWarn",
		}
		for kind, lanes := range groups {
			for lane := 1; lane <= NumLanes; lane++ {
				out[fmt.Sprintf("rx%dpower%s", lane, suffix[kind])] = lanes[lane-1]
			}
		}
	}
	if groups, err := d.TxBiasFlags(); err == nil {
		putLaneFlagGroup(out, "bias", groups)
	}
	return out
}
