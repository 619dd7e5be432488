package cmis

import (
	"fmt"
	"strings"
	"testing"

	"github.com/ashwnsri/sonic-platform-common/internal/testutil/testlog"
)

func TestSetApplicationPacksSelectRegister(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	d := New(bus)

	// Lanes 3 and 4, application 2, explicit control off. Every lane in the
	// mask carries the code packed with the lowest selected lane.
	if err := d.SetApplication(0b00001100, 2, 0); err != nil {
		t.Fatalf("set application failed: %v", err)
	}
	want := uint64(2)<<4 | uint64(2)<<1
	if len(bus.writes) != 2 {
		t.Fatalf("writes = %d, want 2", len(bus.writes))
	}
	for i, lane := range []int{3, 4} {
		w := bus.writes[i]
		if w.field != fmt.Sprintf("StagedSet0ApSelLane%d", lane) || w.value != want {
			t.Fatalf("write %d = %+v, want lane %d value %#x", i, w, lane, want)
		}
	}
}

func TestSetDatapathInitPolarity(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		name    string
		major   uint64
		initial uint64
		deinit  bool
		want    uint64
	}{
		{"v4 init clears bits", 4, 0xFF, false, 0xFA},
		{"v4 deinit sets bits", 4, 0x00, true, 0x05},
		{"v3 init sets bits", 3, 0x00, false, 0x05},
		{"v3 deinit clears bits", 3, 0xFF, true, 0xFA},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			bus := newPagedBus()
			bus.uints["CmisMajorRevision"] = tc.major
			bus.uints["DataPathDeinit"] = tc.initial
			d := New(bus)

			var err error
			if tc.deinit {
				err = d.SetDatapathDeinit(0b101)
			} else {
				err = d.SetDatapathInit(0b101)
			}
			if err != nil {
				t.Fatalf("datapath control failed: %v", err)
			}
			w := bus.lastWrite(t)
			if w.field != "DataPathDeinit" || w.value != tc.want {
				t.Fatalf("wrote %+v, want DataPathDeinit=%#x", w, tc.want)
			}
		})
	}
}

func TestApplicationAdvertisementSkipsEmptySlots(t *testing.T) {
	testlog.Start(t)
	bus := newIdentityBus()
	bus.strs["HostElectricalInterfaceIDApp2"] = "Undefined"
	bus.strs["HostElectricalInterfaceIDApp3"] = "CAUI-4 C2M (Annex 83E)"
	bus.strs["MediaInterfaceSMApp3"] = "100GBASE-DR (Cl 140)"
	bus.uints["MediaLaneCountApp3"] = 1
	bus.uints["HostLaneCountApp3"] = 4
	bus.uints["HostLaneAssignmentOptionsApp3"] = 0x11
	d := New(bus)

	apps, err := d.ApplicationAdvertisement()
	if err != nil {
		t.Fatalf("advertisement failed: %v", err)
	}
	if len(apps) != 2 {
		t.Fatalf("apps = %d, want slots 1 and 3 only: %+v", len(apps), apps)
	}
	if _, ok := apps[2]; ok {
		t.Fatalf("undefined slot 2 must be skipped")
	}
	app3 := apps[3]
	if app3.HostLaneCount != 4 || app3.MediaLaneCount != 1 || app3.HostLaneAssignmentOptions != 0x11 {
		t.Fatalf("slot 3 = %+v", app3)
	}
	if app3.MediaLaneAssignmentKnown {
		t.Fatalf("slot 3 media assignment should be unknown")
	}
}

func TestApplicationFromStagedControl(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.uints["StagedSet0ApSelLane1"] = 2<<4 | 0<<1
	d := New(bus)

	if appl := d.Application(0); appl != 2 {
		t.Fatalf("application = %d, want 2", appl)
	}
	// Unknown lane and unreadable registers report zero.
	if appl := d.Application(5); appl != 0 {
		t.Fatalf("application on empty lane = %d, want 0", appl)
	}
	if appl := d.Application(-1); appl != 0 {
		t.Fatalf("application on bad lane = %d, want 0", appl)
	}
}

func TestDatapathInitDurationOverride(t *testing.T) {
	testlog.Start(t)
	cases := []struct {
		raw  float64
		want float64
	}{
		{500, 5000},
		{1000, 10000},
		{5000, 5000},
	}
	for _, tc := range cases {
		bus := newPagedBus()
		bus.floats["DataPathInitDuration"] = tc.raw
		d := New(bus)
		if got := d.DatapathInitDuration(); got != tc.want {
			t.Fatalf("duration(%v) = %v, want %v", tc.raw, got, tc.want)
		}
	}
}

func TestAdvertisedDurationDefaultsToZero(t *testing.T) {
	testlog.Start(t)
	d := New(newPagedBus())
	if got := d.ModulePowerUpDuration(); got != 0 {
		t.Fatalf("unadvertised duration = %v, want 0", got)
	}
	flat := New(newFlatBus())
	if got := flat.DatapathDeinitDuration(); got != 0 {
		t.Fatalf("flat duration = %v, want 0", got)
	}
}

func newDecommissionBus() *fakeBus {
	bus := newPagedBus()
	bus.uints["DataPathDeinit"] = 0x00
	for lane := 1; lane <= NumLanes; lane++ {
		bus.uints[fmt.Sprintf("StagedSet0ApSelLane%d", lane)] = 1 << 4
		bus.strs[fmt.Sprintf("DP%dState", lane)] = StateDataPathDeactivated
		bus.strs[fmt.Sprintf("ConfigStatusLane%d", lane)] = ConfigStatusSuccess
	}
	return bus
}

func TestDecommissionAllDatapaths(t *testing.T) {
	testlog.Start(t)
	bus := newDecommissionBus()
	d := New(bus)

	if err := d.DecommissionAllDatapaths(); err != nil {
		t.Fatalf("decommission failed: %v", err)
	}

	// Deinit all lanes, zero every apsel register, then trigger the staged set.
	if bus.uints["DataPathDeinit"] != 0xFF {
		t.Fatalf("deinit bits = %#x, want 0xFF", bus.uints["DataPathDeinit"])
	}
	for lane := 1; lane <= NumLanes; lane++ {
		field := fmt.Sprintf("StagedSet0ApSelLane%d", lane)
		if bus.uints[field] != 0 {
			t.Fatalf("%s = %#x, want 0", field, bus.uints[field])
		}
	}
	if bus.uints["StagedSet0ApplyDPInit"] != 0xFF {
		t.Fatalf("apply trigger = %#x, want 0xFF", bus.uints["StagedSet0ApplyDPInit"])
	}

	// A second run against the already-decommissioned state succeeds and
	// leaves the same register image behind.
	firstWrites := len(bus.writes)
	if err := d.DecommissionAllDatapaths(); err != nil {
		t.Fatalf("repeat decommission failed: %v", err)
	}
	if bus.uints["DataPathDeinit"] != 0xFF {
		t.Fatalf("deinit bits after repeat = %#x, want 0xFF", bus.uints["DataPathDeinit"])
	}
	for lane := 1; lane <= NumLanes; lane++ {
		field := fmt.Sprintf("StagedSet0ApSelLane%d", lane)
		if bus.uints[field] != 0 {
			t.Fatalf("%s after repeat = %#x, want 0", field, bus.uints[field])
		}
	}
	if bus.uints["StagedSet0ApplyDPInit"] != 0xFF {
		t.Fatalf("apply trigger after repeat = %#x, want 0xFF", bus.uints["StagedSet0ApplyDPInit"])
	}
	if got := len(bus.writes) - firstWrites; got != firstWrites {
		t.Fatalf("repeat run issued %d writes, first run issued %d", got, firstWrites)
	}
}

func TestDecommissionReportsStuckLane(t *testing.T) {
	testlog.Start(t)
	bus := newDecommissionBus()
	bus.strs["DP3State"] = "DataPathInitialized"
	d := New(bus)

	err := d.DecommissionAllDatapaths()
	if err == nil || !strings.Contains(err.Error(), "lane 3") {
		t.Fatalf("expected lane 3 diagnostic, got %v", err)
	}
}
