// Package sim provides an in-memory CMIS module that stands in for real
// hardware behind the register, CDB and VDM collaborator boundaries. The
// cmd tools run against it; tests can use it as a live-ish fixture.
package sim

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/ashwnsri/sonic-platform-common/internal/cdb"
	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
	"github.com/ashwnsri/sonic-platform-common/internal/vdm"
)

const numLanes = 8

// Module is a simulated paged CMIS 5.0 transceiver. It implements
// eeprom.Bus, cdb.API and vdm.API against one shared register image, with
// the module-state side effects a real module shows on control writes.
type Module struct {
	mu  sync.Mutex
	log zerolog.Logger

	uints  map[string]uint64
	floats map[string]float64
	strs   map[string]string

	snapshot vdm.Snapshot

	bankA       fwBank
	bankB       fwBank
	downloading bool
	downloaded  int
}

type fwBank struct {
	version   [4]byte
	running   bool
	committed bool
	valid     bool
}

// Option configures the simulated module.
type Option func(*Module)

func WithLogger(log zerolog.Logger) Option {
	return func(m *Module) { m.log = log }
}

// FlatMemory turns the module into a flat-memory part: only the base page
// answers.
func FlatMemory() Option {
	return func(m *Module) { m.uints["FlatMem"] = 1 }
}

// WithUint overrides one register value.
func WithUint(f eeprom.Field, v uint64) Option {
	return func(m *Module) { m.uints[f.Name()] = v }
}

// WithFloat overrides one decoded analog value.
func WithFloat(f eeprom.Field, v float64) Option {
	return func(m *Module) { m.floats[f.Name()] = v }
}

// WithString overrides one decoded text value.
func WithString(f eeprom.Field, v string) Option {
	return func(m *Module) { m.strs[f.Name()] = v }
}

// WithVdmSnapshot replaces the served VDM snapshot.
func WithVdmSnapshot(snap vdm.Snapshot) Option {
	return func(m *Module) { m.snapshot = snap }
}

// NewModule builds a healthy 400G-DR4 module with both firmware banks
// valid and bank A running.
func NewModule(opts ...Option) *Module {
	m := &Module{
		log:    zerolog.Nop(),
		uints:  make(map[string]uint64),
		floats: make(map[string]float64),
		strs:   make(map[string]string),
		bankA:  fwBank{version: [4]byte{1, 2, 0, 7}, running: true, committed: true, valid: true},
		bankB:  fwBank{version: [4]byte{1, 1, 0, 4}, valid: true},
	}
	m.seedDefaults()
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Module) seedDefaults() {
	m.uints["FlatMem"] = 0
	m.uints["CmisMajorRevision"] = 5
	m.uints["CmisMinorRevision"] = 0

	m.strs["Identifier"] = "QSFP-DD Double Density 8X Pluggable Transceiver"
	m.strs["IdentifierAbbreviation"] = "QSFP-DD"
	m.strs["VendorName"] = "SIMCO OPTICS"
	m.strs["VendorPN"] = "SIM-400G-DR4"
	m.strs["VendorSN"] = "SIM0000001"
	m.strs["VendorRev"] = "A0"
	m.strs["VendorDate"] = "2024-02-20"
	m.strs["VendorOUI"] = "00-00-5e"
	m.strs["ConnectorType"] = "MPO 1x12"
	m.strs["PowerClass"] = "Power Class 6"
	m.floats["MaxPower"] = 12
	m.floats["LengthAssembly"] = 0
	m.strs["MediaType"] = "sm_media_interface"
	m.strs["MediaInterfaceSM"] = "400GBASE-DR4 (Cl 124)"
	m.strs["MediaInterfaceTechnology"] = "1310 nm EML"
	m.uints["HostLaneCount"] = 8
	m.uints["HwMajorRevision"] = 1
	m.uints["HwMinorRevision"] = 0
	m.uints["ActiveFirmwareMajor"] = uint64(m.bankA.version[0])
	m.uints["ActiveFirmwareMinor"] = uint64(m.bankA.version[1])
	m.uints["InactiveFirmwareMajor"] = uint64(m.bankB.version[0])
	m.uints["InactiveFirmwareMinor"] = uint64(m.bankB.version[1])

	m.strs["HostElectricalInterfaceIDApp1"] = "400GAUI-8 C2M (Annex 120E)"
	m.strs["MediaInterfaceSMApp1"] = "400GBASE-DR4 (Cl 124)"
	m.uints["MediaLaneCountApp1"] = 4
	m.uints["HostLaneCountApp1"] = 8
	m.uints["HostLaneAssignmentOptionsApp1"] = 0x01
	m.uints["MediaLaneAssignmentOptionsApp1"] = 0x01

	m.strs["ModuleState"] = "ModuleReady"
	m.strs["ModuleFaultCause"] = "No Fault detected"
	m.uints["ModuleLevelControl"] = 0
	m.uints["ModuleFirmwareFaultInfo"] = 0
	m.uints["ModuleFlagByte1"] = 0
	m.uints["ModuleFlagByte2"] = 0
	m.uints["ModuleFlagByte3"] = 0
	m.floats["TempMonValue"] = 41.375
	m.floats["VoltageMonValue"] = 3.282

	m.uints["AuxMonType"] = 0b000
	m.floats["Aux2MonValue"] = 46.5 * 256
	m.floats["Aux2HighAlarm"] = 80 * 256
	m.floats["Aux2LowAlarm"] = -10 * 256
	m.floats["Aux2HighWarn"] = 75 * 256
	m.floats["Aux2LowWarn"] = -5 * 256

	m.uints["TxBiasScale"] = 1
	m.uints["VdmSupported"] = 1
	m.uints["AutoPagingSupport"] = 1
	m.uints["CdbSeqWriteLengthExt"] = 15
	m.floats["DataPathInitDuration"] = 500
	m.floats["DataPathDeinitDuration"] = 500
	m.floats["ModulePowerUpDuration"] = 1000
	m.floats["ModulePowerDownDuration"] = 1000

	for _, name := range []string{
		"RxLosSupport", "TxFaultSupport", "TxCdrLolSupport", "RxCdrLolSupport",
		"TxBiasMonSupport", "TxPowerMonSupport", "RxPowerMonSupport",
		"TxDisableSupport", "RxDisableSupport",
	} {
		m.uints[name] = 1
	}
	m.uints["TxLosSupport"] = 0
	m.uints["TxAdaptiveInputEqFailFlagSupport"] = 0

	m.uints["TxDisable"] = 0
	m.uints["RxDisable"] = 0
	m.uints["DataPathDeinit"] = 0
	m.uints["StagedSet0ApplyDPInit"] = 0
	m.uints["LoopbackCapability"] = 0b01011111
	m.uints["HostInputLoopbackEnable"] = 0
	m.uints["HostOutputLoopbackEnable"] = 0
	m.uints["MediaInputLoopbackEnable"] = 0
	m.uints["MediaOutputLoopbackEnable"] = 0
	m.uints["VdmControl"] = 0
	m.uints["VdmFreezeDone"] = 0
	m.uints["VdmUnfreezeDone"] = 1

	m.floats["TempHighAlarm"] = 80
	m.floats["TempLowAlarm"] = -5
	m.floats["TempHighWarning"] = 75
	m.floats["TempLowWarning"] = 0
	m.floats["VoltageHighAlarm"] = 3.63
	m.floats["VoltageLowAlarm"] = 2.97
	m.floats["VoltageHighWarning"] = 3.465
	m.floats["VoltageLowWarning"] = 3.135
	m.floats["RxPowerHighAlarm"] = 2.1878
	m.floats["RxPowerLowAlarm"] = 0.0631
	m.floats["RxPowerHighWarning"] = 1.7378
	m.floats["RxPowerLowWarning"] = 0.0794
	m.floats["TxPowerHighAlarm"] = 2.1878
	m.floats["TxPowerLowAlarm"] = 0.0724
	m.floats["TxPowerHighWarning"] = 1.7378
	m.floats["TxPowerLowWarning"] = 0.0912
	m.floats["TxBiasHighAlarm"] = 65
	m.floats["TxBiasLowAlarm"] = 2
	m.floats["TxBiasHighWarning"] = 60
	m.floats["TxBiasLowWarning"] = 4

	for lane := 1; lane <= numLanes; lane++ {
		m.uints[fmt.Sprintf("StagedSet0ApSelLane%d", lane)] = 1 << 4
		m.uints[fmt.Sprintf("ActiveApSelHostLane%d", lane)] = 1
		m.strs[fmt.Sprintf("DP%dState", lane)] = "DataPathActivated"
		m.strs[fmt.Sprintf("ConfigStatusLane%d", lane)] = "ConfigSuccess"
		m.uints[fmt.Sprintf("TxOutputStatus%d", lane)] = 1
		m.uints[fmt.Sprintf("RxOutputStatus%d", lane)] = 1
		m.uints[fmt.Sprintf("DPInitPending%d", lane)] = 0
		m.floats[fmt.Sprintf("LaserBiasTx%d", lane)] = 27.5
		m.floats[fmt.Sprintf("OpticalPowerTx%d", lane)] = 1.122
		m.floats[fmt.Sprintf("OpticalPowerRx%d", lane)] = 0.891
		for _, prefix := range []string{"TxPower", "RxPower", "TxBias"} {
			for _, kind := range []string{"HighAlarmFlag", "LowAlarmFlag", "HighWarnFlag", "LowWarnFlag"} {
				m.uints[prefix+kind+fmt.Sprint(lane)] = 0
			}
		}
		for _, flag := range []string{"TxFaultFlag", "RxLosFlag", "TxCdrLolFlag", "RxCdrLolFlag"} {
			m.uints[flag+fmt.Sprint(lane)] = 0
		}
	}

	m.snapshot = defaultSnapshot()
}

func defaultSnapshot() vdm.Snapshot {
	snap := make(vdm.Snapshot)
	row := func(value float64) []any {
		r := make([]any, vdm.NumSubtypes)
		r[vdm.SubtypeRealValue] = value
		r[vdm.SubtypeHighAlarmThreshold] = value * 1.5
		r[vdm.SubtypeLowAlarmThreshold] = value * 0.5
		r[vdm.SubtypeHighWarnThreshold] = value * 1.25
		r[vdm.SubtypeLowWarnThreshold] = value * 0.75
		r[vdm.SubtypeHighAlarmFlag] = false
		r[vdm.SubtypeLowAlarmFlag] = false
		r[vdm.SubtypeHighWarnFlag] = false
		r[vdm.SubtypeLowWarnFlag] = false
		return r
	}
	laser := make(map[int][]any)
	esnr := make(map[int][]any)
	ber := make(map[int][]any)
	for lane := 1; lane <= 4; lane++ {
		laser[lane] = row(46.5)
		esnr[lane] = row(21.1)
		ber[lane] = row(1.3e-6)
	}
	snap["Laser Temperature [C]"] = laser
	snap["eSNR Media Input [dB]"] = esnr
	snap["Pre-FEC BER Current Value Media Input"] = ber
	return snap
}

// eeprom.Bus

func (m *Module) Uint(f eeprom.Field) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.pageCheck(f); err != nil {
		return 0, err
	}
	v, ok := m.uints[f.Name()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", eeprom.ErrNotSupported, f.Name())
	}
	return v, nil
}

func (m *Module) Float(f eeprom.Field) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.pageCheck(f); err != nil {
		return 0, err
	}
	v, ok := m.floats[f.Name()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", eeprom.ErrNotSupported, f.Name())
	}
	return v, nil
}

func (m *Module) String(f eeprom.Field) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.pageCheck(f); err != nil {
		return "", err
	}
	v, ok := m.strs[f.Name()]
	if !ok {
		return "", fmt.Errorf("%w: %s", eeprom.ErrNotSupported, f.Name())
	}
	return v, nil
}

func (m *Module) Write(f eeprom.Field, value uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.pageCheck(f); err != nil {
		return err
	}
	m.uints[f.Name()] = value
	m.reactToWrite(f, value)
	return nil
}

func (m *Module) pageCheck(f eeprom.Field) error {
	if f.Page() != eeprom.PageLower && m.uints["FlatMem"] != 0 {
		return fmt.Errorf("%w: %s", eeprom.ErrNotSupported, f.Name())
	}
	return nil
}

// reactToWrite mirrors the module-state side effects a real part shows.
// Called with the lock held.
func (m *Module) reactToWrite(f eeprom.Field, value uint64) {
	switch f.Name() {
	case "ModuleLevelControl":
		switch {
		case value&(1<<3) != 0:
			m.strs["ModuleState"] = "ModuleReady"
			m.uints["ModuleLevelControl"] = 0
			m.log.Debug().Msg("sim: module reset")
		case value&(1<<4) != 0:
			m.strs["ModuleState"] = "ModuleLowPwr"
		default:
			m.strs["ModuleState"] = "ModuleReady"
		}
	case "StagedSet0ApplyDPInit":
		for lane := 1; lane <= numLanes; lane++ {
			if value&(1<<(lane-1)) == 0 {
				continue
			}
			apsel := m.uints[fmt.Sprintf("StagedSet0ApSelLane%d", lane)]
			state := "DataPathActivated"
			if apsel>>4 == 0 {
				state = "DataPathDeactivated"
			}
			m.strs[fmt.Sprintf("DP%dState", lane)] = state
			m.strs[fmt.Sprintf("ConfigStatusLane%d", lane)] = "ConfigSuccess"
			m.uints[fmt.Sprintf("ActiveApSelHostLane%d", lane)] = apsel >> 4
		}
	case "VdmControl":
		if value == 128 {
			m.uints["VdmFreezeDone"] = 1
			m.uints["VdmUnfreezeDone"] = 0
		} else {
			m.uints["VdmFreezeDone"] = 0
			m.uints["VdmUnfreezeDone"] = 1
		}
	}
}

// vdm.API

func (m *Module) ReadAllPages(opt vdm.FieldOption) (vdm.Snapshot, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.snapshot, nil
}

// cdb.API

func (m *Module) Checksum(payload []byte) uint16 {
	var sum uint16
	for _, b := range payload {
		sum += uint16(b)
	}
	return sum
}

func (m *Module) reply(payload []byte) cdb.Result {
	return cdb.Result{
		Status: cdb.StatusSuccess,
		Reply: &cdb.Reply{
			Length:  len(payload),
			Chkcode: m.Checksum(payload),
			Payload: payload,
		},
	}
}

func (m *Module) FwManagementFeatures() (cdb.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := make([]byte, 6)
	payload[2] = 116
	payload[4] = 255 // (255+1)*8 byte blocks
	payload[5] = 0
	return m.reply(payload), nil
}

func bankStatusBits(b fwBank, shift uint) uint8 {
	var bits uint8
	if b.running {
		bits |= 1 << shift
	}
	if b.committed {
		bits |= 1 << (shift + 1)
	}
	if !b.valid {
		bits |= 1 << (shift + 2)
	}
	return bits
}

func (m *Module) FwInfo() (cdb.Result, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	payload := make([]byte, 78)
	payload[0] = bankStatusBits(m.bankA, 0) | bankStatusBits(m.bankB, 4)
	copy(payload[2:6], m.bankA.version[:])
	copy(payload[38:42], m.bankB.version[:])
	copy(payload[74:78], []byte{1, 0, 0, 0})
	return m.reply(payload), nil
}

func (m *Module) StartFwDownload(startSize int, header []byte, imageSize int) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloading = true
	m.downloaded = len(header)
	m.log.Debug().Int("image_size", imageSize).Msg("sim: fw download started")
	return cdb.StatusSuccess, nil
}

func (m *Module) BlockWriteLPL(address int, data []byte) (uint8, error) {
	return m.blockWrite(address, data)
}

func (m *Module) BlockWriteEPL(address int, data []byte, autoPaging bool, writeLength int) (uint8, error) {
	return m.blockWrite(address, data)
}

func (m *Module) blockWrite(address int, data []byte) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.downloading {
		return 0x42, nil
	}
	m.downloaded += len(data)
	return cdb.StatusSuccess, nil
}

func (m *Module) ValidateFwImage() (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.downloading || m.downloaded == 0 {
		return 0x42, nil
	}
	m.downloading = false
	// A completed download lands in the inactive bank with a bumped build.
	inactive := &m.bankB
	if m.bankB.running {
		inactive = &m.bankA
	}
	inactive.valid = true
	inactive.version[3]++
	return cdb.StatusSuccess, nil
}

func (m *Module) AbortFwDownload() (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.downloading = false
	m.downloaded = 0
	return cdb.StatusSuccess, nil
}

func (m *Module) RunFwImage(mode uint8) (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.bankA.valid || !m.bankB.valid {
		return 0x46, nil
	}
	m.bankA.running, m.bankB.running = m.bankB.running, m.bankA.running
	return cdb.StatusSuccess, nil
}

func (m *Module) CommitFwImage() (uint8, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bankA.committed = m.bankA.running
	m.bankB.committed = m.bankB.running
	return cdb.StatusSuccess, nil
}

func (m *Module) EnterPassword(password uint32) (uint8, error) {
	return cdb.StatusSuccess, nil
}
