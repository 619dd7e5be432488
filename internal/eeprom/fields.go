package eeprom

import "fmt"

// Field identifies a management register symbolically. Parameterized fields
// (per lane, per application) are built through constructor functions rather
// than by formatting register names at call sites.
//
// The page tag records which memory page backs the field. Flat-memory
// modules expose only page 00h, so the driver refuses to touch any field
// with a non-zero page on such modules before a read is ever issued.
type Field struct {
	name string
	page uint8
}

// Name returns the symbolic register name.
func (f Field) Name() string { return f.name }

// Page returns the memory page backing the field.
func (f Field) Page() uint8 { return f.page }

func (f Field) String() string {
	return fmt.Sprintf("%s(page %02Xh)", f.name, f.page)
}

// CMIS memory pages referenced by the driver.
const (
	PageLower     uint8 = 0x00
	PageCapability uint8 = 0x01
	PageThreshold uint8 = 0x02
	PageControl   uint8 = 0x10
	PageLaneInfo  uint8 = 0x11
	PageDiag      uint8 = 0x13
	PageVdmCtrl   uint8 = 0x2F
)

func lower(name string) Field     { return Field{name: name, page: PageLower} }
func capAdvt(name string) Field   { return Field{name: name, page: PageCapability} }
func threshold(name string) Field { return Field{name: name, page: PageThreshold} }
func control(name string) Field   { return Field{name: name, page: PageControl} }
func laneInfo(name string) Field  { return Field{name: name, page: PageLaneInfo} }
func diag(name string) Field      { return Field{name: name, page: PageDiag} }

// Module identity and administrative data (page 00h).
var (
	FlatMem           = lower("FlatMem")
	CmisMajorRevision = lower("CmisMajorRevision")
	CmisMinorRevision = lower("CmisMinorRevision")
	ModuleType        = lower("Identifier")
	ModuleTypeAbbrev  = lower("IdentifierAbbreviation")
	Connector         = lower("ConnectorType")
	VendorName        = lower("VendorName")
	VendorPartNo      = lower("VendorPN")
	VendorSerialNo    = lower("VendorSN")
	VendorRev         = lower("VendorRev")
	VendorDate        = lower("VendorDate")
	VendorOUI         = lower("VendorOUI")
	LengthAssembly    = lower("LengthAssembly")
	PowerClass        = lower("PowerClass")
	MaxPower          = lower("MaxPower")
	MediaType         = lower("MediaType")
	MediaInterfaceTec = lower("MediaInterfaceTechnology")
	HostLaneCount     = lower("HostLaneCount")
)

// Module state, control and flags (page 00h).
var (
	ModuleState             = lower("ModuleState")
	ModuleFaultCause        = lower("ModuleFaultCause")
	ModuleLevelControl      = lower("ModuleLevelControl")
	ModuleFirmwareFaultInfo = lower("ModuleFirmwareFaultInfo")
	ModuleFlagByte1         = lower("ModuleFlagByte1")
	ModuleFlagByte2         = lower("ModuleFlagByte2")
	ModuleFlagByte3         = lower("ModuleFlagByte3")
	Temperature             = lower("TempMonValue")
	Voltage                 = lower("VoltageMonValue")
	Aux1Mon                 = lower("Aux1MonValue")
	Aux2Mon                 = lower("Aux2MonValue")
	Aux3Mon                 = lower("Aux3MonValue")
)

// Capability advertisements and durations (page 01h).
var (
	HWMajorRev            = capAdvt("HwMajorRevision")
	HWMinorRev            = capAdvt("HwMinorRevision")
	ActiveFWMajor         = capAdvt("ActiveFirmwareMajor")
	ActiveFWMinor         = capAdvt("ActiveFirmwareMinor")
	InactiveFWMajor       = capAdvt("InactiveFirmwareMajor")
	InactiveFWMinor       = capAdvt("InactiveFirmwareMinor")
	AuxMonType            = capAdvt("AuxMonType")
	TxBiasScale           = capAdvt("TxBiasScale")
	VdmSupported          = capAdvt("VdmSupported")
	AutoPagingSupport     = capAdvt("AutoPagingSupport")
	CdbSeqWriteLengthExt  = capAdvt("CdbSeqWriteLengthExt")
	MinProgOutputPower    = capAdvt("MinProgOutputPowerTx")
	MaxProgOutputPower    = capAdvt("MaxProgOutputPowerTx")
	DataPathInitDuration  = capAdvt("DataPathInitDuration")
	DPDeinitDuration      = capAdvt("DataPathDeinitDuration")
	DPTxTurnOnDuration    = capAdvt("DataPathTxTurnOnDuration")
	DPTxTurnOffDuration   = capAdvt("DataPathTxTurnOffDuration")
	ModulePwrUpDuration   = capAdvt("ModulePowerUpDuration")
	ModulePwrDownDuration = capAdvt("ModulePowerDownDuration")
)

// Per-feature support advertisements (page 01h).
var (
	RxLosSupport              = capAdvt("RxLosSupport")
	TxCdrLolSupport           = capAdvt("TxCdrLolSupport")
	RxCdrLolSupport           = capAdvt("RxCdrLolSupport")
	TxFaultSupport            = capAdvt("TxFaultSupport")
	TxLosSupport              = capAdvt("TxLosSupport")
	TxBiasSupport             = capAdvt("TxBiasMonSupport")
	TxPowerSupport            = capAdvt("TxPowerMonSupport")
	RxPowerSupport            = capAdvt("RxPowerMonSupport")
	TxDisableSupport          = capAdvt("TxDisableSupport")
	RxDisableSupport          = capAdvt("RxDisableSupport")
	TxAdaptiveEqFailFlagSupp = capAdvt("TxAdaptiveInputEqFailFlagSupport")
)

// Lane controls (page 10h) and diagnostic controls (pages 13h, 2Fh).
var (
	TxDisable           = control("TxDisable")
	RxDisable           = control("RxDisable")
	DataPathDeinit      = control("DataPathDeinit")
	LaserTuningDetail   = laneInfo("LaserTuningDetail")
	LoopbackCapability  = diag("LoopbackCapability")
	HostInputLoopback   = diag("HostInputLoopbackEnable")
	HostOutputLoopback  = diag("HostOutputLoopbackEnable")
	MediaInputLoopback  = diag("MediaInputLoopbackEnable")
	MediaOutputLoopback = diag("MediaOutputLoopbackEnable")
	VdmControl          = Field{name: "VdmControl", page: PageVdmCtrl}
	VdmFreezeDone       = Field{name: "VdmFreezeDone", page: PageVdmCtrl}
	VdmUnfreezeDone     = Field{name: "VdmUnfreezeDone", page: PageVdmCtrl}
)

// Monitor thresholds (page 02h).
var (
	TempHighAlarm      = threshold("TempHighAlarm")
	TempLowAlarm       = threshold("TempLowAlarm")
	TempHighWarning    = threshold("TempHighWarning")
	TempLowWarning     = threshold("TempLowWarning")
	VoltageHighAlarm   = threshold("VoltageHighAlarm")
	VoltageLowAlarm    = threshold("VoltageLowAlarm")
	VoltageHighWarning = threshold("VoltageHighWarning")
	VoltageLowWarning  = threshold("VoltageLowWarning")
	RxPowerHighAlarm   = threshold("RxPowerHighAlarm")
	RxPowerLowAlarm    = threshold("RxPowerLowAlarm")
	RxPowerHighWarning = threshold("RxPowerHighWarning")
	RxPowerLowWarning  = threshold("RxPowerLowWarning")
	TxPowerHighAlarm   = threshold("TxPowerHighAlarm")
	TxPowerLowAlarm    = threshold("TxPowerLowAlarm")
	TxPowerHighWarning = threshold("TxPowerHighWarning")
	TxPowerLowWarning  = threshold("TxPowerLowWarning")
	TxBiasHighAlarm    = threshold("TxBiasHighAlarm")
	TxBiasLowAlarm     = threshold("TxBiasLowAlarm")
	TxBiasHighWarning  = threshold("TxBiasHighWarning")
	TxBiasLowWarning   = threshold("TxBiasLowWarning")
)

// AuxThresholdKind selects one of the four threshold registers carried per
// auxiliary monitor slot.
type AuxThresholdKind uint8

const (
	AuxHighAlarm AuxThresholdKind = iota
	AuxLowAlarm
	AuxHighWarn
	AuxLowWarn
)

var auxThresholdNames = map[AuxThresholdKind]string{
	AuxHighAlarm: "HighAlarm",
	AuxLowAlarm:  "LowAlarm",
	AuxHighWarn:  "HighWarn",
	AuxLowWarn:   "LowWarn",
}

// AuxThreshold returns the threshold field for auxiliary monitor slot 1..3.
func AuxThreshold(slot int, kind AuxThresholdKind) Field {
	return threshold(fmt.Sprintf("Aux%d%s", slot, auxThresholdNames[kind]))
}

// AuxMonitor returns the monitor-value field for auxiliary slot 1..3.
func AuxMonitor(slot int) Field {
	return lower(fmt.Sprintf("Aux%dMonValue", slot))
}

// FlagKind selects one of the four latched out-of-range flags carried per
// monitored lane quantity.
type FlagKind uint8

const (
	FlagHighAlarm FlagKind = iota
	FlagLowAlarm
	FlagHighWarn
	FlagLowWarn
)

var flagKindNames = map[FlagKind]string{
	FlagHighAlarm: "HighAlarmFlag",
	FlagLowAlarm:  "LowAlarmFlag",
	FlagHighWarn:  "HighWarnFlag",
	FlagLowWarn:   "LowWarnFlag",
}

// Per-lane monitors and latched flags (page 11h). Lanes are 1-based.

func LaserBiasTx(lane int) Field {
	return laneInfo(fmt.Sprintf("LaserBiasTx%d", lane))
}

func OpticalPowerTx(lane int) Field {
	return laneInfo(fmt.Sprintf("OpticalPowerTx%d", lane))
}

func OpticalPowerRx(lane int) Field {
	return laneInfo(fmt.Sprintf("OpticalPowerRx%d", lane))
}

func TxPowerFlag(kind FlagKind, lane int) Field {
	return laneInfo(fmt.Sprintf("TxPower%s%d", flagKindNames[kind], lane))
}

func RxPowerFlag(kind FlagKind, lane int) Field {
	return laneInfo(fmt.Sprintf("RxPower%s%d", flagKindNames[kind], lane))
}

func TxBiasFlag(kind FlagKind, lane int) Field {
	return laneInfo(fmt.Sprintf("TxBias%s%d", flagKindNames[kind], lane))
}

func TxFaultFlag(lane int) Field   { return laneInfo(fmt.Sprintf("TxFaultFlag%d", lane)) }
func TxLosFlag(lane int) Field     { return laneInfo(fmt.Sprintf("TxLosFlag%d", lane)) }
func RxLosFlag(lane int) Field     { return laneInfo(fmt.Sprintf("RxLosFlag%d", lane)) }
func TxCdrLolFlag(lane int) Field  { return laneInfo(fmt.Sprintf("TxCdrLolFlag%d", lane)) }
func RxCdrLolFlag(lane int) Field  { return laneInfo(fmt.Sprintf("RxCdrLolFlag%d", lane)) }
func TxAdaptiveEqFailFlag(lane int) Field {
	return laneInfo(fmt.Sprintf("TxAdaptiveInputEqFailFlag%d", lane))
}

// Datapath and lane status (page 11h).

func DPStateLane(lane int) Field {
	return laneInfo(fmt.Sprintf("DP%dState", lane))
}

func ConfigStatusLane(lane int) Field {
	return laneInfo(fmt.Sprintf("ConfigStatusLane%d", lane))
}

func ActiveApselHostLane(lane int) Field {
	return laneInfo(fmt.Sprintf("ActiveApSelHostLane%d", lane))
}

func DPInitPendingLane(lane int) Field {
	return laneInfo(fmt.Sprintf("DPInitPending%d", lane))
}

func TxOutputStatusLane(lane int) Field {
	return laneInfo(fmt.Sprintf("TxOutputStatus%d", lane))
}

func RxOutputStatusLane(lane int) Field {
	return laneInfo(fmt.Sprintf("RxOutputStatus%d", lane))
}

// Staged control set 0/1 (page 10h).

func StagedApSel(set, lane int) Field {
	return control(fmt.Sprintf("StagedSet%dApSelLane%d", set, lane))
}

func StagedApplyDPInit(set int) Field {
	return control(fmt.Sprintf("StagedSet%dApplyDPInit", set))
}

// MediaKind distinguishes the five media-interface advertisement encodings;
// which one applies is itself advertised through the MediaType field.
type MediaKind uint8

const (
	MediaKindMMF MediaKind = iota
	MediaKindSMF
	MediaKindPassiveCopper
	MediaKindActiveCable
	MediaKindBaseT
)

var mediaKindNames = map[MediaKind]string{
	MediaKindMMF:           "MediaInterface850nm",
	MediaKindSMF:           "MediaInterfaceSM",
	MediaKindPassiveCopper: "MediaInterfacePassiveCopper",
	MediaKindActiveCable:   "MediaInterfaceActiveCable",
	MediaKindBaseT:         "MediaInterfaceBaseT",
}

// MediaInterfaceCode returns the media interface field decoded with the
// given encoding, without an application qualifier.
func MediaInterfaceCode(kind MediaKind) Field {
	return lower(mediaKindNames[kind])
}

// Application advertisement fields. Applications 1..8 live in lower memory,
// 9..15 on page 01h.

func appField(prefix string, app int) Field {
	name := fmt.Sprintf("%sApp%d", prefix, app)
	if app > 8 {
		return capAdvt(name)
	}
	return lower(name)
}

func HostInterfaceID(app int) Field { return appField("HostElectricalInterfaceID", app) }

func MediaInterfaceID(kind MediaKind, app int) Field {
	return appField(mediaKindNames[kind], app)
}

func MediaLaneCountApp(app int) Field  { return appField("MediaLaneCount", app) }
func HostLaneCountApp(app int) Field   { return appField("HostLaneCount", app) }
func HostLaneAssignment(app int) Field { return appField("HostLaneAssignmentOptions", app) }
func MediaLaneAssignment(app int) Field {
	return appField("MediaLaneAssignmentOptions", app)
}
