package cmis

import (
	"errors"
	"fmt"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// Auxiliary monitor scaling, per the register definitions.
const (
	laserTempScale       = 256.0
	laserTECCurrentScale = 32767.0
)

// TemperatureSupported reports whether the case temperature monitor exists.
func (d *Driver) TemperatureSupported() bool { return !d.IsFlatMemory() }

// VoltageSupported reports whether the supply voltage monitor exists.
func (d *Driver) VoltageSupported() bool { return !d.IsFlatMemory() }

// Temperature returns the module case temperature in degrees Celsius.
func (d *Driver) Temperature() (float64, error) {
	if !d.TemperatureSupported() {
		return 0, fmt.Errorf("%w: temperature monitor", ErrNotSupported)
	}
	v, err := d.bus.Float(eeprom.Temperature)
	if err != nil {
		return 0, err
	}
	return round3(v), nil
}

// Voltage returns the monitored 3.3V supply voltage in volts.
func (d *Driver) Voltage() (float64, error) {
	if !d.VoltageSupported() {
		return 0, fmt.Errorf("%w: voltage monitor", ErrNotSupported)
	}
	v, err := d.bus.Float(eeprom.Voltage)
	if err != nil {
		return 0, err
	}
	return round3(v), nil
}

func (d *Driver) RxLosSupported() (bool, error)   { return d.supportBit(eeprom.RxLosSupport) }
func (d *Driver) TxLosSupported() (bool, error)   { return d.supportBit(eeprom.TxLosSupport) }
func (d *Driver) TxFaultSupported() (bool, error) { return d.supportBit(eeprom.TxFaultSupport) }
func (d *Driver) TxCdrLolSupported() (bool, error) {
	return d.supportBit(eeprom.TxCdrLolSupport)
}
func (d *Driver) RxCdrLolSupported() (bool, error) {
	return d.supportBit(eeprom.RxCdrLolSupport)
}
func (d *Driver) TxBiasSupported() (bool, error)  { return d.supportBit(eeprom.TxBiasSupport) }
func (d *Driver) TxPowerSupported() (bool, error) { return d.supportBit(eeprom.TxPowerSupport) }
func (d *Driver) RxPowerSupported() (bool, error) { return d.supportBit(eeprom.RxPowerSupport) }
func (d *Driver) TxAdaptiveEqFailFlagSupported() (bool, error) {
	return d.supportBit(eeprom.TxAdaptiveEqFailFlagSupp)
}

// laneFlags reads one latched flag per lane behind a support gate.
func (d *Driver) laneFlags(name string, supported func() (bool, error), field func(int) eeprom.Field) ([]bool, error) {
	ok, err := supported()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, name)
	}
	flags := make([]bool, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		v, err := d.bus.Uint(field(lane))
		if err != nil {
			return nil, err
		}
		flags[lane-1] = v != 0
	}
	return flags, nil
}

// RxLos returns the RX loss-of-signal flag per media lane.
func (d *Driver) RxLos() ([]bool, error) {
	return d.laneFlags("rx los", d.RxLosSupported, eeprom.RxLosFlag)
}

// TxLos returns the TX loss-of-signal flag per host lane.
func (d *Driver) TxLos() ([]bool, error) {
	return d.laneFlags("tx los", d.TxLosSupported, eeprom.TxLosFlag)
}

// TxFault returns the TX fault flag per media lane.
func (d *Driver) TxFault() ([]bool, error) {
	return d.laneFlags("tx fault", d.TxFaultSupported, eeprom.TxFaultFlag)
}

// TxCdrLol returns the TX CDR loss-of-lock flag per host lane.
func (d *Driver) TxCdrLol() ([]bool, error) {
	return d.laneFlags("tx cdr lol", d.TxCdrLolSupported, eeprom.TxCdrLolFlag)
}

// RxCdrLol returns the RX CDR loss-of-lock flag per media lane.
func (d *Driver) RxCdrLol() ([]bool, error) {
	return d.laneFlags("rx cdr lol", d.RxCdrLolSupported, eeprom.RxCdrLolFlag)
}

// TxAdaptiveEqFailFlag returns the TX adaptive input EQ fail flag per lane.
func (d *Driver) TxAdaptiveEqFailFlag() ([]bool, error) {
	return d.laneFlags("tx adaptive eq fail", d.TxAdaptiveEqFailFlagSupported, eeprom.TxAdaptiveEqFailFlag)
}

// txBiasScale reads the bias scale exponent and returns the effective
// multiplier: 2^s for s below 3, unity for the reserved exponent 3.
func (d *Driver) txBiasScale() (float64, error) {
	raw, err := d.bus.Uint(eeprom.TxBiasScale)
	if err != nil {
		return 0, err
	}
	if raw < 3 {
		return float64(uint64(1) << raw), nil
	}
	return 1, nil
}

// TxBias returns the TX bias current per media lane in mA, scaled by the
// advertised bias scale.
func (d *Driver) TxBias() ([]float64, error) {
	ok, err := d.TxBiasSupported()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: tx bias monitor", ErrNotSupported)
	}
	scale, err := d.txBiasScale()
	if err != nil {
		return nil, err
	}
	bias := make([]float64, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		v, err := d.bus.Float(eeprom.LaserBiasTx(lane))
		if err != nil {
			return nil, err
		}
		bias[lane-1] = v * scale
	}
	return bias, nil
}

// lanePowers reads one optical power monitor per lane, in mW.
func (d *Driver) lanePowers(name string, supported func() (bool, error), field func(int) eeprom.Field) ([]float64, error) {
	ok, err := supported()
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotSupported, name)
	}
	power := make([]float64, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		v, err := d.bus.Float(field(lane))
		if err != nil {
			return nil, err
		}
		power[lane-1] = v
	}
	return power, nil
}

// TxPower returns the TX output power per media lane in mW.
func (d *Driver) TxPower() ([]float64, error) {
	return d.lanePowers("tx power monitor", d.TxPowerSupported, eeprom.OpticalPowerTx)
}

// RxPower returns the RX input power per media lane in mW.
func (d *Driver) RxPower() ([]float64, error) {
	return d.lanePowers("rx power monitor", d.RxPowerSupported, eeprom.OpticalPowerRx)
}

// TxOutputStatus reports, per media lane, whether the TX output signal is
// valid.
func (d *Driver) TxOutputStatus() ([]bool, error) {
	status := make([]bool, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		v, err := d.bus.Uint(eeprom.TxOutputStatusLane(lane))
		if err != nil {
			return nil, err
		}
		status[lane-1] = v != 0
	}
	return status, nil
}

// RxOutputStatus reports, per host lane, whether the RX output signal is
// valid.
func (d *Driver) RxOutputStatus() ([]bool, error) {
	status := make([]bool, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		v, err := d.bus.Uint(eeprom.RxOutputStatusLane(lane))
		if err != nil {
			return nil, err
		}
		status[lane-1] = v != 0
	}
	return status, nil
}

// TxDisableSupported reports whether TX disable control exists.
func (d *Driver) TxDisableSupported() (bool, error) {
	return cached(d, "tx_disable_support", func() (bool, error) {
		return d.supportBit(eeprom.TxDisableSupport)
	})
}

// RxDisableSupported reports whether RX disable control exists.
func (d *Driver) RxDisableSupported() (bool, error) {
	return d.supportBit(eeprom.RxDisableSupport)
}

func (d *Driver) disableChannel(supported func() (bool, error), f eeprom.Field) (uint64, error) {
	ok, err := supported()
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("%w: %s", ErrNotSupported, f.Name())
	}
	return d.bus.Uint(f)
}

func (d *Driver) disableLanes(supported func() (bool, error), f eeprom.Field) ([]bool, error) {
	mask, err := d.disableChannel(supported, f)
	if err != nil {
		return nil, err
	}
	lanes := make([]bool, NumLanes)
	for lane := 0; lane < NumLanes; lane++ {
		lanes[lane] = mask&(1<<lane) != 0
	}
	return lanes, nil
}

func (d *Driver) setDisableChannel(supported func() (bool, error), f eeprom.Field, channel uint64, disable bool) error {
	state, err := d.disableChannel(supported, f)
	if err != nil {
		return err
	}
	for lane := 0; lane < NumLanes; lane++ {
		mask := uint64(1) << lane
		if channel&mask == 0 {
			continue
		}
		if disable {
			state |= mask
		} else {
			state &^= mask
		}
	}
	return d.bus.Write(f, state)
}

// TxDisable returns the TX disable state per lane.
func (d *Driver) TxDisable() ([]bool, error) {
	return d.disableLanes(d.TxDisableSupported, eeprom.TxDisable)
}

// TxDisableChannel returns the raw TX disable bitmask.
func (d *Driver) TxDisableChannel() (uint64, error) {
	return d.disableChannel(d.TxDisableSupported, eeprom.TxDisable)
}

// SetTxDisable disables or enables TX on all lanes.
func (d *Driver) SetTxDisable(disable bool) error {
	var val uint64
	if disable {
		val = AllLanesMask
	}
	return d.bus.Write(eeprom.TxDisable, val)
}

// SetTxDisableChannel disables or enables TX on the masked lanes.
func (d *Driver) SetTxDisableChannel(channel uint64, disable bool) error {
	return d.setDisableChannel(d.TxDisableSupported, eeprom.TxDisable, channel, disable)
}

// RxDisable returns the RX disable state per lane.
func (d *Driver) RxDisable() ([]bool, error) {
	return d.disableLanes(d.RxDisableSupported, eeprom.RxDisable)
}

// RxDisableChannel returns the raw RX disable bitmask.
func (d *Driver) RxDisableChannel() (uint64, error) {
	return d.disableChannel(d.RxDisableSupported, eeprom.RxDisable)
}

// SetRxDisable disables or enables RX on all lanes.
func (d *Driver) SetRxDisable(disable bool) error {
	var val uint64
	if disable {
		val = AllLanesMask
	}
	return d.bus.Write(eeprom.RxDisable, val)
}

// SetRxDisableChannel disables or enables RX on the masked lanes.
func (d *Driver) SetRxDisableChannel(channel uint64, disable bool) error {
	return d.setDisableChannel(d.RxDisableSupported, eeprom.RxDisable, channel, disable)
}

// AuxMonType returns which signal each of the three auxiliary monitor slots
// carries, decoded from the shared advertisement byte.
func (d *Driver) AuxMonType() (aux1, aux2, aux3 uint8, err error) {
	if d.IsFlatMemory() {
		return 0, 0, 0, fmt.Errorf("%w: aux monitors", ErrNotSupported)
	}
	raw, err := d.bus.Uint(eeprom.AuxMonType)
	if err != nil {
		return 0, 0, 0, err
	}
	return uint8(raw & 0x1), uint8((raw >> 1) & 0x1), uint8((raw >> 2) & 0x1), nil
}

// LaserMonitor carries one laser-related auxiliary monitor value with its
// four thresholds. Entries are float64 when readable, NotAvailable strings
// otherwise.
type LaserMonitor struct {
	Value     any
	HighAlarm any
	LowAlarm  any
	HighWarn  any
	LowWarn   any
}

func laserMonitorNA() LaserMonitor {
	return LaserMonitor{
		Value:     NotAvailable,
		HighAlarm: NotAvailable,
		LowAlarm:  NotAvailable,
		HighWarn:  NotAvailable,
		LowWarn:   NotAvailable,
	}
}

func (d *Driver) scaledAux(f eeprom.Field, scale float64) any {
	v, err := d.bus.Float(f)
	if err != nil {
		return NotAvailable
	}
	return v / scale
}

// LaserTemperature returns the laser temperature monitor, selected from
// whichever auxiliary slot the module assigned it to. Best-effort: each
// entry degrades to NotAvailable independently.
func (d *Driver) LaserTemperature() LaserMonitor {
	if d.IsFlatMemory() {
		return laserMonitorNA()
	}
	_, aux2, aux3, err := d.AuxMonType()
	if err != nil {
		return laserMonitorNA()
	}
	var slot int
	switch {
	case aux2 == 0:
		slot = 2
	case aux2 == 1 && aux3 == 0:
		slot = 3
	default:
		return laserMonitorNA()
	}
	return LaserMonitor{
		Value:     d.scaledAux(eeprom.AuxMonitor(slot), laserTempScale),
		HighAlarm: d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxHighAlarm), laserTempScale),
		LowAlarm:  d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxLowAlarm), laserTempScale),
		HighWarn:  d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxHighWarn), laserTempScale),
		LowWarn:   d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxLowWarn), laserTempScale),
	}
}

// LaserTECCurrent returns the laser TEC current monitor, selected from
// whichever auxiliary slot the module assigned it to.
func (d *Driver) LaserTECCurrent() (LaserMonitor, error) {
	aux1, aux2, _, err := d.AuxMonType()
	if err != nil {
		return LaserMonitor{}, err
	}
	var slot int
	switch {
	case aux1 == 1:
		slot = 1
	case aux1 == 0 && aux2 == 1:
		slot = 2
	default:
		return LaserMonitor{}, fmt.Errorf("%w: laser TEC current monitor", ErrNotSupported)
	}
	return LaserMonitor{
		Value:     d.scaledAux(eeprom.AuxMonitor(slot), laserTECCurrentScale),
		HighAlarm: d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxHighAlarm), laserTECCurrentScale),
		LowAlarm:  d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxLowAlarm), laserTECCurrentScale),
		HighWarn:  d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxHighWarn), laserTECCurrentScale),
		LowWarn:   d.scaledAux(eeprom.AuxThreshold(slot, eeprom.AuxLowWarn), laserTECCurrentScale),
	}, nil
}

// laserTuningConditions maps tuning status bits to their labels, highest
// bit first.
var laserTuningConditions = []string{
	"TargetOutputPowerOOR",
	"FineTuningOutOfRange",
	"TuningNotAccepted",
	"InvalidChannel",
	"WavelengthUnlocked",
	"TuningComplete",
}

// LaserTuningSummary decodes the laser tuning status byte into the list of
// active conditions.
func (d *Driver) LaserTuningSummary() ([]string, error) {
	raw, err := d.bus.Uint(eeprom.LaserTuningDetail)
	if err != nil {
		return nil, err
	}
	var summary []string
	for i, label := range laserTuningConditions {
		bit := uint(len(laserTuningConditions) - 1 - i)
		if raw&(1<<bit) != 0 {
			summary = append(summary, label)
		}
	}
	return summary, nil
}

// SupportedPowerConfig returns the programmable TX output power range in dBm.
func (d *Driver) SupportedPowerConfig() (minPower, maxPower float64, err error) {
	minPower, err = d.bus.Float(eeprom.MinProgOutputPower)
	if err != nil {
		return 0, 0, err
	}
	maxPower, err = d.bus.Float(eeprom.MaxProgOutputPower)
	if err != nil {
		return 0, 0, err
	}
	return minPower, maxPower, nil
}

// TransceiverDomRealValues returns the DOM sensor aggregate. Temperature,
// voltage, bias and power reads are all-or-nothing: a fault in any of them
// withholds the whole map. The laser temperature entry is best-effort.
func (d *Driver) TransceiverDomRealValues() (map[string]any, error) {
	temp, tempErr := d.Temperature()
	if tempErr != nil && !errors.Is(tempErr, ErrNotSupported) {
		return nil, tempErr
	}
	voltage, voltErr := d.Voltage()
	if voltErr != nil && !errors.Is(voltErr, ErrNotSupported) {
		return nil, voltErr
	}
	txBias, biasErr := d.TxBias()
	if biasErr != nil && !errors.Is(biasErr, ErrNotSupported) {
		return nil, biasErr
	}
	rxPower, rxErr := d.RxPower()
	if rxErr != nil && !errors.Is(rxErr, ErrNotSupported) {
		return nil, rxErr
	}
	txPower, txErr := d.TxPower()
	if txErr != nil && !errors.Is(txErr, ErrNotSupported) {
		return nil, txErr
	}

	bulk := make(map[string]any)
	if tempErr == nil {
		bulk["temperature"] = temp
	} else {
		bulk["temperature"] = NotAvailable
	}
	if voltErr == nil {
		bulk["voltage"] = voltage
	} else {
		bulk["voltage"] = NotAvailable
	}
	for lane := 1; lane <= NumLanes; lane++ {
		if biasErr == nil {
			bulk[fmt.Sprintf("tx%dbias", lane)] = round3(txBias[lane-1])
		} else {
			bulk[fmt.Sprintf("tx%dbias", lane)] = NotAvailable
		}
		if rxErr == nil {
			bulk[fmt.Sprintf("rx%dpower", lane)] = round3(mwToDBm(rxPower[lane-1]))
		} else {
			bulk[fmt.Sprintf("rx%dpower", lane)] = NotAvailable
		}
		if txErr == nil {
			bulk[fmt.Sprintf("tx%dpower", lane)] = round3(mwToDBm(txPower[lane-1]))
		} else {
			bulk[fmt.Sprintf("tx%dpower", lane)] = NotAvailable
		}
	}
	bulk["laser_temperature"] = d.LaserTemperature().Value
	return bulk, nil
}
