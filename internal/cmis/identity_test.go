package cmis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ashwnsri/sonic-platform-common/internal/testutil/testlog"
)

// newIdentityBus populates everything the identity aggregate reads for a
// paged SMF module with one advertised application.
func newIdentityBus() *fakeBus {
	b := newPagedBus()
	b.strs["Identifier"] = "QSFP-DD Double Density 8X Pluggable Transceiver"
	b.strs["IdentifierAbbreviation"] = "QSFP-DD"
	b.strs["VendorName"] = "ACME CORP        "
	b.strs["VendorPN"] = "AC-400G-DR4     "
	b.strs["VendorSN"] = "SN0123456789    "
	b.strs["VendorRev"] = "A1"
	b.strs["VendorDate"] = "2023-05-01  "
	b.strs["VendorOUI"] = "00-17-6a"
	b.strs["ConnectorType"] = "LC"
	b.strs["PowerClass"] = "Power Class 8"
	b.strs["MediaType"] = "sm_media_interface"
	b.strs["MediaInterfaceSM"] = "400GBASE-DR4 (Cl 124)"
	b.strs["MediaInterfaceTechnology"] = "1550 nm DFB"
	b.strs["HostElectricalInterfaceIDApp1"] = "400GAUI-8 C2M (Annex 120E)"
	b.strs["MediaInterfaceSMApp1"] = "400GBASE-DR4 (Cl 124)"

	b.floats["MaxPower"] = 14.0
	b.floats["LengthAssembly"] = 10

	b.uints["HwMajorRevision"] = 1
	b.uints["HwMinorRevision"] = 2
	b.uints["HostLaneCount"] = 8
	b.uints["MediaLaneCountApp1"] = 4
	b.uints["HostLaneCountApp1"] = 8
	b.uints["HostLaneAssignmentOptionsApp1"] = 0x01
	b.uints["MediaLaneAssignmentOptionsApp1"] = 0x02
	for lane := 1; lane <= NumLanes; lane++ {
		b.uints[fmt.Sprintf("ActiveApSelHostLane%d", lane)] = 1
	}
	return b
}

func TestTransceiverInfo(t *testing.T) {
	testlog.Start(t)
	d := New(newIdentityBus())

	info, err := d.TransceiverInfo()
	if err != nil {
		t.Fatalf("transceiver info failed: %v", err)
	}

	want := map[string]any{
		"type":                         "QSFP-DD Double Density 8X Pluggable Transceiver",
		"type_abbrv_name":              "QSFP-DD",
		"manufacturer":                 "ACME CORP",
		"model":                        "AC-400G-DR4",
		"serial":                       "SN0123456789",
		"vendor_rev":                   "A1",
		"vendor_date":                  "2023-05-01",
		"vendor_oui":                   "00-17-6a",
		"connector":                    "LC",
		"hardware_rev":                 "1.2",
		"cmis_rev":                     "5.0",
		"ext_identifier":               "Power Class 8 (14W Max)",
		"cable_length":                 10.0,
		"cable_type":                   CableLengthType,
		"specification_compliance":     "sm_media_interface",
		"media_interface_code":         "400GBASE-DR4 (Cl 124)",
		"host_electrical_interface":    "400GAUI-8 C2M (Annex 120E)",
		"media_interface_technology":   "1550 nm DFB",
		"host_lane_count":              uint64(8),
		"media_lane_count":             uint64(4),
		"host_lane_assignment_option":  uint64(0x01),
		"media_lane_assignment_option": uint64(0x02),
		"encoding":                     NotAvailable,
		"ext_rateselect_compliance":    NotAvailable,
		"nominal_bit_rate":             NotAvailable,
		"application_advertisement":    "1: 400GAUI-8 C2M (Annex 120E) | 400GBASE-DR4 (Cl 124) | host 8 | media 4",
		"vdm_supported":                false,
	}
	for key, val := range want {
		if info[key] != val {
			t.Fatalf("info[%q] = %v, want %v", key, info[key], val)
		}
	}
	for lane := 1; lane <= NumLanes; lane++ {
		key := fmt.Sprintf("active_apsel_hostlane%d", lane)
		if info[key] != uint64(1) {
			t.Fatalf("info[%q] = %v, want 1", key, info[key])
		}
	}
}

func TestTransceiverInfoAllOrNothing(t *testing.T) {
	testlog.Start(t)
	bus := newIdentityBus()
	bus.fail["VendorOUI"] = errBusIO
	d := New(bus)

	info, err := d.TransceiverInfo()
	if !errors.Is(err, errBusIO) {
		t.Fatalf("expected the bus fault back, got %v", err)
	}
	if info != nil {
		t.Fatalf("partial identity returned alongside error")
	}
}

func TestTransceiverInfoUnsupportedFieldsDegrade(t *testing.T) {
	testlog.Start(t)
	bus := newIdentityBus()
	delete(bus.floats, "LengthAssembly")
	delete(bus.strs, "MediaInterfaceTechnology")
	d := New(bus)

	info, err := d.TransceiverInfo()
	if err != nil {
		t.Fatalf("transceiver info failed: %v", err)
	}
	if info["cable_length"] != NotAvailable {
		t.Fatalf("cable_length = %v, want %q", info["cable_length"], NotAvailable)
	}
	if info["media_interface_technology"] != NotAvailable {
		t.Fatalf("media_interface_technology = %v, want %q", info["media_interface_technology"], NotAvailable)
	}
}

func TestTransceiverInfoFlatMemory(t *testing.T) {
	testlog.Start(t)
	bus := newFlatBus()
	bus.strs["Identifier"] = "QSFP28 or later"
	bus.strs["IdentifierAbbreviation"] = "QSFP28"
	bus.strs["VendorName"] = "ACME CORP"
	bus.strs["VendorPN"] = "AC-100G"
	bus.strs["VendorSN"] = "SN42"
	bus.strs["VendorRev"] = "B0"
	bus.strs["VendorDate"] = "2022-01-15"
	bus.strs["VendorOUI"] = "00-17-6a"
	bus.strs["ConnectorType"] = "No separable connector"
	bus.strs["PowerClass"] = "Power Class 1"
	bus.strs["MediaType"] = "passive_copper_media_interface"
	bus.strs["MediaInterfacePassiveCopper"] = "Copper cable"
	bus.strs["MediaInterfaceTechnology"] = "Copper cable unequalized"
	bus.floats["MaxPower"] = 1.5
	bus.floats["LengthAssembly"] = 2
	bus.uints["CmisMajorRevision"] = 5
	bus.uints["CmisMinorRevision"] = 0
	bus.uints["HostLaneCount"] = 4
	d := New(bus)

	info, err := d.TransceiverInfo()
	if err != nil {
		t.Fatalf("transceiver info failed: %v", err)
	}
	if info["hardware_rev"] != "0.0" {
		t.Fatalf("hardware_rev = %v, want 0.0", info["hardware_rev"])
	}
	if info["host_electrical_interface"] != NotAvailable {
		t.Fatalf("host_electrical_interface = %v, want %q", info["host_electrical_interface"], NotAvailable)
	}
	if info["media_lane_assignment_option"] != NotAvailable {
		t.Fatalf("media_lane_assignment_option = %v, want %q", info["media_lane_assignment_option"], NotAvailable)
	}
	for lane := 1; lane <= NumLanes; lane++ {
		key := fmt.Sprintf("active_apsel_hostlane%d", lane)
		if info[key] != NotAvailable {
			t.Fatalf("info[%q] = %v, want %q", key, info[key], NotAvailable)
		}
	}
}

func TestHardwareRevisionPaged(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.uints["HwMajorRevision"] = 2
	bus.uints["HwMinorRevision"] = 7
	d := New(bus)

	rev, err := d.HardwareRevision()
	if err != nil || rev != "2.7" {
		t.Fatalf("hardware revision = %q, %v", rev, err)
	}
}

func TestIsCoherentModule(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.strs["MediaType"] = "sm_media_interface"
	bus.strs["MediaInterfaceSM"] = "400ZR, DWDM, amplified"
	d := New(bus)

	coherent, err := d.IsCoherentModule()
	if err != nil || !coherent {
		t.Fatalf("coherent = %v, %v", coherent, err)
	}
}

func TestModuleMediaInterfaceUnknownType(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.strs["MediaType"] = "something_else"
	d := New(bus)

	mintf, err := d.ModuleMediaInterface()
	if err != nil || mintf != "Unknown media interface" {
		t.Fatalf("media interface = %q, %v", mintf, err)
	}
}
