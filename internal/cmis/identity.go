package cmis

import (
	"errors"
	"fmt"
	"strings"

	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// CableLengthType labels the cable length unit carried in the identity map.
const CableLengthType = "Length Cable Assembly(m)"

// collector accumulates identity map entries while remembering the first
// transport fault. Unsupported fields collapse to NotAvailable; a fault
// poisons the whole aggregate.
type collector struct {
	err error
}

func (c *collector) str(v string, err error) any {
	if errors.Is(err, ErrNotSupported) {
		return NotAvailable
	}
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return nil
	}
	return strings.TrimRight(v, " ")
}

func (c *collector) float(v float64, err error) any {
	if errors.Is(err, ErrNotSupported) {
		return NotAvailable
	}
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return nil
	}
	return v
}

func (c *collector) uint(v uint64, err error) any {
	if errors.Is(err, ErrNotSupported) {
		return NotAvailable
	}
	if err != nil {
		if c.err == nil {
			c.err = err
		}
		return nil
	}
	return v
}

// Manufacturer returns the vendor name, trailing-space stripped.
func (d *Driver) Manufacturer() (string, error) {
	return cached(d, "manufacturer", func() (string, error) {
		v, err := d.bus.String(eeprom.VendorName)
		return strings.TrimRight(v, " "), err
	})
}

// Model returns the vendor part number.
func (d *Driver) Model() (string, error) {
	return cached(d, "model", func() (string, error) {
		v, err := d.bus.String(eeprom.VendorPartNo)
		return strings.TrimRight(v, " "), err
	})
}

// Serial returns the vendor serial number.
func (d *Driver) Serial() (string, error) {
	return cached(d, "serial", func() (string, error) {
		v, err := d.bus.String(eeprom.VendorSerialNo)
		return strings.TrimRight(v, " "), err
	})
}

// VendorRev returns the vendor revision level.
func (d *Driver) VendorRev() (string, error) {
	return cached(d, "vendor_rev", func() (string, error) {
		v, err := d.bus.String(eeprom.VendorRev)
		return strings.TrimRight(v, " "), err
	})
}

// VendorDate returns the vendor manufacture date code.
func (d *Driver) VendorDate() (string, error) {
	v, err := d.bus.String(eeprom.VendorDate)
	return strings.TrimRight(v, " "), err
}

// VendorOUI returns the vendor IEEE company identifier.
func (d *Driver) VendorOUI() (string, error) {
	return d.bus.String(eeprom.VendorOUI)
}

// CableLength returns the cable assembly length in meters.
func (d *Driver) CableLength() (float64, error) {
	return cached(d, "cable_length", func() (float64, error) {
		return d.bus.Float(eeprom.LengthAssembly)
	})
}

// ModuleType returns the SFF-8024 identifier label (module form factor).
func (d *Driver) ModuleType() (string, error) {
	return cached(d, "module_type", func() (string, error) {
		return d.bus.String(eeprom.ModuleType)
	})
}

// ModuleTypeAbbreviation returns the short form of the SFF-8024 identifier.
func (d *Driver) ModuleTypeAbbreviation() (string, error) {
	return cached(d, "module_type_abbrev", func() (string, error) {
		return d.bus.String(eeprom.ModuleTypeAbbrev)
	})
}

// ConnectorType returns the SFF-8024 connector label.
func (d *Driver) ConnectorType() (string, error) {
	return cached(d, "connector", func() (string, error) {
		return d.bus.String(eeprom.Connector)
	})
}

// HardwareRevision returns "major.minor"; flat-memory modules report "0.0".
func (d *Driver) HardwareRevision() (string, error) {
	return cached(d, "hardware_rev", func() (string, error) {
		if d.IsFlatMemory() {
			return "0.0", nil
		}
		major, err := d.bus.Uint(eeprom.HWMajorRev)
		if err != nil {
			return "", err
		}
		minor, err := d.bus.Uint(eeprom.HWMinorRev)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d.%d", major, minor), nil
	})
}

// CmisRevision returns the CMIS revision the module complies to, "major.minor".
func (d *Driver) CmisRevision() (string, error) {
	return cached(d, "cmis_rev", func() (string, error) {
		major, err := d.bus.Uint(eeprom.CmisMajorRevision)
		if err != nil {
			return "", err
		}
		minor, err := d.bus.Uint(eeprom.CmisMinorRevision)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%d.%d", major, minor), nil
	})
}

func (d *Driver) cmisMajor() (uint64, error) {
	return d.bus.Uint(eeprom.CmisMajorRevision)
}

// ModuleMediaType returns the media type class label: MMF, SMF, passive
// copper, active cable or Base-T.
func (d *Driver) ModuleMediaType() (string, error) {
	return d.bus.String(eeprom.MediaType)
}

// mediaKindByType maps the advertised media type label to the encoding used
// by the per-application media interface fields.
var mediaKindByType = map[string]eeprom.MediaKind{
	"nm_850_media_interface":         eeprom.MediaKindMMF,
	"sm_media_interface":             eeprom.MediaKindSMF,
	"passive_copper_media_interface": eeprom.MediaKindPassiveCopper,
	"active_cable_media_interface":   eeprom.MediaKindActiveCable,
	"base_t_media_interface":         eeprom.MediaKindBaseT,
}

// HostElectricalInterface returns the SFF-8024 host interface label of the
// default application.
func (d *Driver) HostElectricalInterface() (string, error) {
	if d.IsFlatMemory() {
		return "", fmt.Errorf("%w: host electrical interface", ErrNotSupported)
	}
	return d.bus.String(eeprom.HostInterfaceID(1))
}

// ModuleMediaInterface returns the media interface label of the default
// application, decoded with the encoding the media type selects.
func (d *Driver) ModuleMediaInterface() (string, error) {
	mediaType, err := d.ModuleMediaType()
	if err != nil {
		return "", err
	}
	kind, ok := mediaKindByType[mediaType]
	if !ok {
		return "Unknown media interface", nil
	}
	return d.bus.String(eeprom.MediaInterfaceCode(kind))
}

// IsCoherentModule reports whether the module follows the C-CMIS coherent
// spec, recognized by a ZR media interface.
func (d *Driver) IsCoherentModule() (bool, error) {
	return cached(d, "coherent", func() (bool, error) {
		mintf, err := d.ModuleMediaInterface()
		if err != nil {
			return false, err
		}
		return strings.Contains(mintf, "ZR"), nil
	})
}

// IsCopper reports whether the module media is passive copper.
func (d *Driver) IsCopper() (bool, error) {
	mediaType, err := d.ModuleMediaType()
	if err != nil {
		return false, err
	}
	return mediaType == "passive_copper_media_interface", nil
}

// MediaInterfaceTechnology returns the media lane technology label.
func (d *Driver) MediaInterfaceTechnology() (string, error) {
	return d.bus.String(eeprom.MediaInterfaceTec)
}

// PowerClassSummary renders the extended identifier as the power class label
// plus the maximum power draw.
func (d *Driver) PowerClassSummary() (string, error) {
	class, err := d.bus.String(eeprom.PowerClass)
	if err != nil {
		return "", err
	}
	maxPower, err := d.bus.Float(eeprom.MaxPower)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%gW Max)", class, maxPower), nil
}

// ActiveFirmware returns the running firmware version advertised in EEPROM,
// "major.minor".
func (d *Driver) ActiveFirmware() (string, error) {
	major, err := d.bus.Uint(eeprom.ActiveFWMajor)
	if err != nil {
		return "", err
	}
	minor, err := d.bus.Uint(eeprom.ActiveFWMinor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", major, minor), nil
}

// InactiveFirmware returns the standby firmware version advertised in EEPROM.
func (d *Driver) InactiveFirmware() (string, error) {
	if d.IsFlatMemory() {
		return NotAvailable, nil
	}
	major, err := d.bus.Uint(eeprom.InactiveFWMajor)
	if err != nil {
		return "", err
	}
	minor, err := d.bus.Uint(eeprom.InactiveFWMinor)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%d.%d", major, minor), nil
}

// FirmwareVersions returns the active and inactive firmware versions as
// reported over CDB. Either entry degrades to NotAvailable when the query
// cannot complete.
func (d *Driver) FirmwareVersions() map[string]any {
	out := map[string]any{
		"active_firmware":   NotAvailable,
		"inactive_firmware": NotAvailable,
	}
	info, err := d.FirmwareInfo()
	if err != nil {
		d.log.Debug().Err(err).Msg("firmware version query failed")
		return out
	}
	out["active_firmware"] = info.Active
	out["inactive_firmware"] = info.Inactive
	return out
}

// TransceiverInfo returns the identity aggregate. The whole map is withheld
// when any constituent read faults, so a caller never stores a half-read
// identity; unsupported constituents render as NotAvailable.
func (d *Driver) TransceiverInfo() (map[string]any, error) {
	c := &collector{}
	info := map[string]any{
		"type":                       c.str(d.ModuleType()),
		"type_abbrv_name":            c.str(d.ModuleTypeAbbreviation()),
		"hardware_rev":               c.str(d.HardwareRevision()),
		"serial":                     c.str(d.Serial()),
		"manufacturer":               c.str(d.Manufacturer()),
		"model":                      c.str(d.Model()),
		"connector":                  c.str(d.ConnectorType()),
		"encoding":                   NotAvailable,
		"ext_identifier":             c.str(d.PowerClassSummary()),
		"ext_rateselect_compliance":  NotAvailable,
		"cable_length":               c.float(d.CableLength()),
		"nominal_bit_rate":           NotAvailable,
		"vendor_date":                c.str(d.VendorDate()),
		"vendor_oui":                 c.str(d.VendorOUI()),
		"host_electrical_interface":  c.str(d.HostElectricalInterface()),
		"media_interface_code":       c.str(d.ModuleMediaInterface()),
		"host_lane_count":            c.uint(d.bus.Uint(eeprom.HostLaneCount)),
		"media_lane_count":           c.uint(d.MediaLaneCount(1)),
		"host_lane_assignment_option": c.uint(d.HostLaneAssignmentOption(1)),
		"media_lane_assignment_option": c.uint(d.MediaLaneAssignmentOption(1)),
		"cable_type":                 CableLengthType,
		"media_interface_technology": c.str(d.MediaInterfaceTechnology()),
		"vendor_rev":                 c.str(d.VendorRev()),
		"cmis_rev":                   c.str(d.CmisRevision()),
		"specification_compliance":   c.str(d.ModuleMediaType()),
	}

	advert, err := d.ApplicationAdvertisement()
	if err != nil {
		return nil, err
	}
	if len(advert) > 0 {
		info["application_advertisement"] = formatAdvertisement(advert)
	} else {
		info["application_advertisement"] = NotAvailable
	}

	vdmSupported, err := d.VdmSupported()
	if err != nil {
		return nil, err
	}
	info["vdm_supported"] = vdmSupported

	apsel, err := d.ActiveApselHostLanes()
	if err != nil {
		return nil, err
	}
	for lane := 1; lane <= NumLanes; lane++ {
		info[fmt.Sprintf("active_apsel_hostlane%d", lane)] = apsel[lane-1]
	}

	if c.err != nil {
		return nil, c.err
	}
	return info, nil
}
