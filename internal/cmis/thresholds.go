package cmis

import (
	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// ThresholdsSupported reports whether the module carries the monitor
// threshold page.
func (d *Driver) ThresholdsSupported() bool { return !d.IsFlatMemory() }

var thresholdKeys = []string{
	"temphighalarm", "temphighwarning",
	"templowalarm", "templowwarning",
	"vcchighalarm", "vcchighwarning",
	"vcclowalarm", "vcclowwarning",
	"rxpowerhighalarm", "rxpowerhighwarning",
	"rxpowerlowalarm", "rxpowerlowwarning",
	"txpowerhighalarm", "txpowerhighwarning",
	"txpowerlowalarm", "txpowerlowwarning",
	"txbiashighalarm", "txbiashighwarning",
	"txbiaslowalarm", "txbiaslowwarning",
}

// TransceiverThresholdInfo returns the DOM threshold aggregate. On a module
// without the threshold page every key carries the sentinel; a fault on any
// threshold read withholds the whole map. Bias thresholds degrade to the
// sentinel when the bias scale itself cannot be read; laser temperature
// thresholds are appended best-effort.
func (d *Driver) TransceiverThresholdInfo() (map[string]any, error) {
	out := make(map[string]any, len(thresholdKeys))
	if !d.ThresholdsSupported() {
		for _, key := range thresholdKeys {
			out[key] = NotAvailable
		}
		return out, nil
	}

	direct := map[string]eeprom.Field{
		"temphighalarm":   eeprom.TempHighAlarm,
		"templowalarm":    eeprom.TempLowAlarm,
		"temphighwarning": eeprom.TempHighWarning,
		"templowwarning":  eeprom.TempLowWarning,
		"vcchighalarm":    eeprom.VoltageHighAlarm,
		"vcclowalarm":     eeprom.VoltageLowAlarm,
		"vcchighwarning":  eeprom.VoltageHighWarning,
		"vcclowwarning":   eeprom.VoltageLowWarning,
	}
	for key, f := range direct {
		v, err := d.bus.Float(f)
		if err != nil {
			return nil, err
		}
		out[key] = round3(v)
	}

	power := map[string]eeprom.Field{
		"rxpowerhighalarm":   eeprom.RxPowerHighAlarm,
		"rxpowerlowalarm":    eeprom.RxPowerLowAlarm,
		"rxpowerhighwarning": eeprom.RxPowerHighWarning,
		"rxpowerlowwarning":  eeprom.RxPowerLowWarning,
		"txpowerhighalarm":   eeprom.TxPowerHighAlarm,
		"txpowerlowalarm":    eeprom.TxPowerLowAlarm,
		"txpowerhighwarning": eeprom.TxPowerHighWarning,
		"txpowerlowwarning":  eeprom.TxPowerLowWarning,
	}
	for key, f := range power {
		v, err := d.bus.Float(f)
		if err != nil {
			return nil, err
		}
		out[key] = round3(mwToDBm(v))
	}

	bias := map[string]eeprom.Field{
		"txbiashighalarm":   eeprom.TxBiasHighAlarm,
		"txbiaslowalarm":    eeprom.TxBiasLowAlarm,
		"txbiashighwarning": eeprom.TxBiasHighWarning,
		"txbiaslowwarning":  eeprom.TxBiasLowWarning,
	}
	scale, scaleErr := d.txBiasScale()
	for key, f := range bias {
		if scaleErr != nil {
			out[key] = NotAvailable
			continue
		}
		v, err := d.bus.Float(f)
		if err != nil {
			return nil, err
		}
		out[key] = round3(v * scale)
	}

	laser := d.LaserTemperature()
	out["lasertemphighalarm"] = laser.HighAlarm
	out["lasertemplowalarm"] = laser.LowAlarm
	out["lasertemphighwarning"] = laser.HighWarn
	out["lasertemplowwarning"] = laser.LowWarn
	return out, nil
}
