package cmis

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// Datapath-init duration is dual-encoded in the field; small raw values are
// in the wrong unit and get promoted.
const (
	dpInitDurationMultiplier        = 10
	dpInitDurationOverrideThreshold = 1000
)

// ApplicationDescriptor is one advertised application: a rate, modulation
// and lane-mapping combination selectable per host lane.
type ApplicationDescriptor struct {
	HostInterfaceID  string
	MediaInterfaceID string
	MediaLaneCount   uint64
	HostLaneCount    uint64

	HostLaneAssignmentOptions  uint64
	MediaLaneAssignmentOptions uint64
	// MediaLaneAssignmentKnown distinguishes an absent media lane
	// assignment advertisement from an advertised zero.
	MediaLaneAssignmentKnown bool
}

// ApplicationAdvertisement scans application slots 1..15 (1..8 on flat
// memory) and returns the populated ones. A slot missing any required
// constituent, or advertising an unknown interface code, is skipped; the
// scan itself is best-effort and never fails.
func (d *Driver) ApplicationAdvertisement() (map[int]ApplicationDescriptor, error) {
	return cached(d, "application_advertisement", func() (map[int]ApplicationDescriptor, error) {
		apps := make(map[int]ApplicationDescriptor)

		mediaType, err := d.ModuleMediaType()
		if err != nil {
			return apps, nil
		}
		kind, ok := mediaKindByType[mediaType]
		if !ok {
			return apps, nil
		}

		maxApp := 15
		if d.IsFlatMemory() {
			maxApp = 8
		}
		for app := 1; app <= maxApp; app++ {
			hostIntf, err := d.bus.String(eeprom.HostInterfaceID(app))
			if err != nil || hostIntf == "Unknown" || hostIntf == "Undefined" {
				continue
			}
			mediaIntf, err := d.bus.String(eeprom.MediaInterfaceID(kind, app))
			if err != nil || mediaIntf == "Unknown" {
				continue
			}
			mediaLanes, err := d.bus.Uint(eeprom.MediaLaneCountApp(app))
			if err != nil {
				continue
			}
			hostLanes, err := d.bus.Uint(eeprom.HostLaneCountApp(app))
			if err != nil {
				continue
			}
			hostAssign, err := d.bus.Uint(eeprom.HostLaneAssignment(app))
			if err != nil {
				continue
			}
			desc := ApplicationDescriptor{
				HostInterfaceID:           hostIntf,
				MediaInterfaceID:          mediaIntf,
				MediaLaneCount:            mediaLanes,
				HostLaneCount:             hostLanes,
				HostLaneAssignmentOptions: hostAssign,
			}
			if mediaAssign, err := d.bus.Uint(eeprom.MediaLaneAssignment(app)); err == nil {
				desc.MediaLaneAssignmentOptions = mediaAssign
				desc.MediaLaneAssignmentKnown = true
			}
			apps[app] = desc
		}
		return apps, nil
	})
}

func formatAdvertisement(apps map[int]ApplicationDescriptor) string {
	idx := make([]int, 0, len(apps))
	for app := range apps {
		idx = append(idx, app)
	}
	sort.Ints(idx)
	parts := make([]string, 0, len(idx))
	for _, app := range idx {
		a := apps[app]
		parts = append(parts, fmt.Sprintf("%d: %s | %s | host %d | media %d",
			app, a.HostInterfaceID, a.MediaInterfaceID, a.HostLaneCount, a.MediaLaneCount))
	}
	return strings.Join(parts, "; ")
}

// MediaLaneCount returns the media lane count of the given application,
// zero when the application is not advertised.
func (d *Driver) MediaLaneCount(appl int) (uint64, error) {
	if d.IsFlatMemory() || appl <= 0 {
		return 0, nil
	}
	advert, err := d.ApplicationAdvertisement()
	if err != nil {
		return 0, err
	}
	return advert[appl].MediaLaneCount, nil
}

// HostLaneAssignmentOption returns the host lane assignment bitmap of the
// given application, zero when the application is not advertised.
func (d *Driver) HostLaneAssignmentOption(appl int) (uint64, error) {
	if appl <= 0 {
		return 0, nil
	}
	advert, err := d.ApplicationAdvertisement()
	if err != nil {
		return 0, err
	}
	desc, ok := advert[appl]
	if !ok {
		d.log.Debug().Int("appl", appl).Msg("application not advertised")
		return 0, nil
	}
	return desc.HostLaneAssignmentOptions, nil
}

// MediaLaneAssignmentOption returns the media lane assignment bitmap of the
// given application.
func (d *Driver) MediaLaneAssignmentOption(appl int) (uint64, error) {
	if d.IsFlatMemory() {
		return 0, fmt.Errorf("%w: media lane assignment", ErrNotSupported)
	}
	if appl <= 0 {
		return 0, nil
	}
	advert, err := d.ApplicationAdvertisement()
	if err != nil {
		return 0, err
	}
	return advert[appl].MediaLaneAssignmentOptions, nil
}

// ActiveApselHostLanes returns the active application select code per host
// lane. Flat memory, or a failed read, yields a full sentinel row so the
// identity aggregate stays publishable.
func (d *Driver) ActiveApselHostLanes() ([]any, error) {
	if d.IsFlatMemory() {
		return laneSentinels(), nil
	}
	row := make([]any, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		code, err := d.bus.Uint(eeprom.ActiveApselHostLane(lane))
		if err != nil {
			return laneSentinels(), nil
		}
		row[lane-1] = code
	}
	return row, nil
}

// Application returns the staged application select code of a zero-based
// host lane, zero when unknown.
func (d *Driver) Application(lane int) int {
	if lane < 0 || lane >= NumLanes || d.IsFlatMemory() {
		return 0
	}
	v, err := d.bus.Uint(eeprom.StagedApSel(0, lane+1))
	if err != nil {
		return 0
	}
	return int(v>>4) & 0xF
}

// SetApplication stages the application select code on every lane in the
// channel mask. The register packs the code with the lowest selected lane
// and the explicit-control bit. Writes are fire-and-forget; there is no
// readback verification.
func (d *Driver) SetApplication(channel uint8, applCode uint8, ec uint8) error {
	laneFirst := -1
	for lane := 0; lane < NumLanes; lane++ {
		if (1<<lane)&channel == 0 {
			continue
		}
		if laneFirst < 0 {
			laneFirst = lane
		}
		data := uint64(applCode)<<4 | uint64(laneFirst)<<1 | uint64(ec)
		if err := d.bus.Write(eeprom.StagedApSel(0, lane+1), data); err != nil {
			return fmt.Errorf("cmis: stage apsel lane %d: %w", lane+1, err)
		}
	}
	return nil
}

// setDatapathDeinitBits flips the shared per-lane deinit bits for the masked
// lanes. The bit polarity inverted at CMIS major revision 4: on v4+ a set
// bit means deinit, on v3 a set bit means init.
func (d *Driver) setDatapathDeinitBits(channel uint8, deinit bool) error {
	major, err := d.cmisMajor()
	if err != nil {
		return fmt.Errorf("cmis: read revision: %w", err)
	}
	data, err := d.bus.Uint(eeprom.DataPathDeinit)
	if err != nil {
		return fmt.Errorf("cmis: read datapath deinit: %w", err)
	}
	set := deinit
	if major < 4 {
		set = !deinit
	}
	for lane := 0; lane < NumLanes; lane++ {
		if (1<<lane)&channel == 0 {
			continue
		}
		if set {
			data |= 1 << lane
		} else {
			data &^= 1 << lane
		}
	}
	if err := d.bus.Write(eeprom.DataPathDeinit, data); err != nil {
		return fmt.Errorf("cmis: write datapath deinit: %w", err)
	}
	return nil
}

// SetDatapathInit requests datapath initialization on the masked host lanes.
func (d *Driver) SetDatapathInit(channel uint8) error {
	return d.setDatapathDeinitBits(channel, false)
}

// SetDatapathDeinit requests datapath de-initialization on the masked host
// lanes.
func (d *Driver) SetDatapathDeinit(channel uint8) error {
	return d.setDatapathDeinitBits(channel, true)
}

// DatapathDeinitBits returns the raw deinit control bit per lane.
func (d *Driver) DatapathDeinitBits() ([]bool, error) {
	data, err := d.bus.Uint(eeprom.DataPathDeinit)
	if err != nil {
		return nil, err
	}
	bits := make([]bool, NumLanes)
	for lane := 0; lane < NumLanes; lane++ {
		bits[lane] = data&(1<<lane) != 0
	}
	return bits, nil
}

// ApplyDatapathInit triggers the staged control set for the masked lanes.
func (d *Driver) ApplyDatapathInit(channel uint8) error {
	return d.bus.Write(eeprom.StagedApplyDPInit(0), uint64(channel))
}

// DatapathState returns the datapath state label per lane.
func (d *Driver) DatapathState() ([]string, error) {
	states := make([]string, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		s, err := d.bus.String(eeprom.DPStateLane(lane))
		if err != nil {
			return nil, err
		}
		states[lane-1] = s
	}
	return states, nil
}

// ConfigDatapathHostlaneStatus returns the configuration command result
// label per host lane.
func (d *Driver) ConfigDatapathHostlaneStatus() ([]string, error) {
	states := make([]string, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		s, err := d.bus.String(eeprom.ConfigStatusLane(lane))
		if err != nil {
			return nil, err
		}
		states[lane-1] = s
	}
	return states, nil
}

// DPInitPending reports, per lane, whether a successfully applied control
// set has not yet executed, so active control content may deviate from the
// hardware configuration.
func (d *Driver) DPInitPending() ([]bool, error) {
	pending := make([]bool, NumLanes)
	for lane := 1; lane <= NumLanes; lane++ {
		v, err := d.bus.Uint(eeprom.DPInitPendingLane(lane))
		if err != nil {
			return nil, err
		}
		pending[lane-1] = v != 0
	}
	return pending, nil
}

// DecommissionAllDatapaths deinits every lane, resets application selection
// to code 0, reapplies init to undo any default selection, then verifies
// every lane reports deactivated with a successful config. There is no
// partial-success outcome.
func (d *Driver) DecommissionAllDatapaths() error {
	if err := d.SetDatapathDeinit(AllLanesMask); err != nil {
		return err
	}
	if err := d.SetApplication(AllLanesMask, 0, 0); err != nil {
		return err
	}
	if err := d.ApplyDatapathInit(AllLanesMask); err != nil {
		return fmt.Errorf("cmis: apply datapath init: %w", err)
	}

	dpState, err := d.DatapathState()
	if err != nil {
		return fmt.Errorf("cmis: read datapath state: %w", err)
	}
	configState, err := d.ConfigDatapathHostlaneStatus()
	if err != nil {
		return fmt.Errorf("cmis: read config status: %w", err)
	}
	for lane := 0; lane < NumLanes; lane++ {
		if dpState[lane] != StateDataPathDeactivated {
			return fmt.Errorf("cmis: decommission: lane %d datapath state %s", lane+1, dpState[lane])
		}
		if configState[lane] != ConfigStatusSuccess {
			return fmt.Errorf("cmis: decommission: lane %d config status %s", lane+1, configState[lane])
		}
	}
	return nil
}

// Advertised hardware durations, in milliseconds. A flat-memory module, or
// a module that does not advertise a duration, reports zero.

func (d *Driver) advertisedDuration(key string, f eeprom.Field) float64 {
	v, err := cached(d, key, func() (float64, error) {
		if d.IsFlatMemory() {
			return 0, nil
		}
		raw, err := d.bus.Float(f)
		if err != nil {
			if errors.Is(err, ErrNotSupported) {
				return 0, nil
			}
			return 0, err
		}
		return raw, nil
	})
	if err != nil {
		return 0
	}
	return v
}

// DatapathInitDuration returns the advertised datapath init duration. Raw
// values at or below the override threshold are encoded in the wrong unit
// and are multiplied by ten.
func (d *Driver) DatapathInitDuration() float64 {
	v, err := cached(d, "dp_init_duration", func() (float64, error) {
		if d.IsFlatMemory() {
			return 0, nil
		}
		raw, err := d.bus.Float(eeprom.DataPathInitDuration)
		if err != nil {
			return 0, nil
		}
		if raw <= dpInitDurationOverrideThreshold {
			return raw * dpInitDurationMultiplier, nil
		}
		return raw, nil
	})
	if err != nil {
		return 0
	}
	return v
}

func (d *Driver) DatapathDeinitDuration() float64 {
	return d.advertisedDuration("dp_deinit_duration", eeprom.DPDeinitDuration)
}

func (d *Driver) DatapathTxTurnOnDuration() float64 {
	return d.advertisedDuration("dp_tx_turnon_duration", eeprom.DPTxTurnOnDuration)
}

func (d *Driver) DatapathTxTurnOffDuration() float64 {
	return d.advertisedDuration("dp_tx_turnoff_duration", eeprom.DPTxTurnOffDuration)
}

func (d *Driver) ModulePowerUpDuration() float64 {
	return d.advertisedDuration("module_pwr_up_duration", eeprom.ModulePwrUpDuration)
}

func (d *Driver) ModulePowerDownDuration() float64 {
	return d.advertisedDuration("module_pwr_down_duration", eeprom.ModulePwrDownDuration)
}
