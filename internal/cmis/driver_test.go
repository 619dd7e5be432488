package cmis

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ashwnsri/sonic-platform-common/internal/cdb"
	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
	"github.com/ashwnsri/sonic-platform-common/internal/testutil/testlog"
	"github.com/ashwnsri/sonic-platform-common/internal/vdm"
)

var errBusIO = errors.New("bus io fault")

type busWrite struct {
	field string
	value uint64
}

// fakeBus backs the driver with in-memory registers keyed by field name.
// A field absent from every value map reads back as unimplemented.
type fakeBus struct {
	uints  map[string]uint64
	floats map[string]float64
	strs   map[string]string

	// fail forces a transport fault on any access to the named field.
	fail   map[string]error
	writes []busWrite
}

func newFakeBus() *fakeBus {
	return &fakeBus{
		uints:  make(map[string]uint64),
		floats: make(map[string]float64),
		strs:   make(map[string]string),
		fail:   make(map[string]error),
	}
}

func (b *fakeBus) Uint(f eeprom.Field) (uint64, error) {
	if err, ok := b.fail[f.Name()]; ok {
		return 0, err
	}
	v, ok := b.uints[f.Name()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", eeprom.ErrNotSupported, f.Name())
	}
	return v, nil
}

func (b *fakeBus) Float(f eeprom.Field) (float64, error) {
	if err, ok := b.fail[f.Name()]; ok {
		return 0, err
	}
	v, ok := b.floats[f.Name()]
	if !ok {
		return 0, fmt.Errorf("%w: %s", eeprom.ErrNotSupported, f.Name())
	}
	return v, nil
}

func (b *fakeBus) String(f eeprom.Field) (string, error) {
	if err, ok := b.fail[f.Name()]; ok {
		return "", err
	}
	v, ok := b.strs[f.Name()]
	if !ok {
		return "", fmt.Errorf("%w: %s", eeprom.ErrNotSupported, f.Name())
	}
	return v, nil
}

func (b *fakeBus) Write(f eeprom.Field, value uint64) error {
	if err, ok := b.fail[f.Name()]; ok {
		return err
	}
	b.writes = append(b.writes, busWrite{field: f.Name(), value: value})
	b.uints[f.Name()] = value
	return nil
}

func (b *fakeBus) lastWrite(t *testing.T) busWrite {
	t.Helper()
	if len(b.writes) == 0 {
		t.Fatalf("no writes recorded")
	}
	return b.writes[len(b.writes)-1]
}

// newPagedBus returns a bus for a paged CMIS 5.0 module.
func newPagedBus() *fakeBus {
	b := newFakeBus()
	b.uints["FlatMem"] = 0
	b.uints["CmisMajorRevision"] = 5
	b.uints["CmisMinorRevision"] = 0
	return b
}

func newFlatBus() *fakeBus {
	b := newFakeBus()
	b.uints["FlatMem"] = 1
	return b
}

type blockCall struct {
	address int
	count   int
}

// fakeCDB scripts the CDB command collaborator. Every command defaults to
// success; tests override per-command behavior through the function fields.
type fakeCDB struct {
	featuresFn func() (cdb.Result, error)
	fwInfoFn   func() (cdb.Result, error)

	blockStatus func(address int) uint8
	// runStatuses is consumed one status per RunFwImage call; exhausted
	// means success.
	runStatuses []uint8

	startCalls []blockCall
	lplCalls   []blockCall
	eplCalls   []blockCall
	runs       []uint8
	commits    int
	validates  int
	aborts     int
	passwords  []uint32
}

func okResult(payload []byte, chk uint16) cdb.Result {
	return cdb.Result{
		Status: cdb.StatusSuccess,
		Reply:  &cdb.Reply{Length: len(payload), Chkcode: chk, Payload: payload},
	}
}

func (c *fakeCDB) FwManagementFeatures() (cdb.Result, error) {
	if c.featuresFn != nil {
		return c.featuresFn()
	}
	return okResult(make([]byte, 6), 0), nil
}

func (c *fakeCDB) FwInfo() (cdb.Result, error) {
	if c.fwInfoFn != nil {
		return c.fwInfoFn()
	}
	return okResult(make([]byte, 78), 0), nil
}

func (c *fakeCDB) StartFwDownload(startSize int, header []byte, imageSize int) (uint8, error) {
	c.startCalls = append(c.startCalls, blockCall{address: 0, count: startSize})
	return cdb.StatusSuccess, nil
}

func (c *fakeCDB) BlockWriteLPL(address int, data []byte) (uint8, error) {
	c.lplCalls = append(c.lplCalls, blockCall{address: address, count: len(data)})
	if c.blockStatus != nil {
		return c.blockStatus(address), nil
	}
	return cdb.StatusSuccess, nil
}

func (c *fakeCDB) BlockWriteEPL(address int, data []byte, autoPaging bool, writeLength int) (uint8, error) {
	c.eplCalls = append(c.eplCalls, blockCall{address: address, count: len(data)})
	if c.blockStatus != nil {
		return c.blockStatus(address), nil
	}
	return cdb.StatusSuccess, nil
}

func (c *fakeCDB) ValidateFwImage() (uint8, error) {
	c.validates++
	return cdb.StatusSuccess, nil
}

func (c *fakeCDB) RunFwImage(mode uint8) (uint8, error) {
	c.runs = append(c.runs, mode)
	if len(c.runStatuses) > 0 {
		status := c.runStatuses[0]
		c.runStatuses = c.runStatuses[1:]
		return status, nil
	}
	return cdb.StatusSuccess, nil
}

func (c *fakeCDB) CommitFwImage() (uint8, error) {
	c.commits++
	return cdb.StatusSuccess, nil
}

func (c *fakeCDB) AbortFwDownload() (uint8, error) {
	c.aborts++
	return cdb.StatusSuccess, nil
}

func (c *fakeCDB) EnterPassword(password uint32) (uint8, error) {
	c.passwords = append(c.passwords, password)
	return cdb.StatusSuccess, nil
}

// Checksum returns zero so fixtures with a zero check code verify; tests
// exercising a mismatch put a non-zero code in the reply.
func (c *fakeCDB) Checksum(payload []byte) uint16 { return 0 }

// fakeVDM serves a fixed snapshot.
type fakeVDM struct {
	snap vdm.Snapshot
	err  error
}

func (v *fakeVDM) ReadAllPages(opt vdm.FieldOption) (vdm.Snapshot, error) {
	if v.err != nil {
		return nil, v.err
	}
	return v.snap, nil
}

// pageFaultBus fails every page-backed access with a transport error and
// records the fields reached, modeling a flat module whose upper pages do
// not exist on the wire.
type pageFaultBus struct {
	*fakeBus
	paged []string
}

func (b *pageFaultBus) gate(f eeprom.Field) error {
	if f.Page() != eeprom.PageLower {
		b.paged = append(b.paged, f.Name())
		return errBusIO
	}
	return nil
}

func (b *pageFaultBus) Uint(f eeprom.Field) (uint64, error) {
	if err := b.gate(f); err != nil {
		return 0, err
	}
	return b.fakeBus.Uint(f)
}

func (b *pageFaultBus) Float(f eeprom.Field) (float64, error) {
	if err := b.gate(f); err != nil {
		return 0, err
	}
	return b.fakeBus.Float(f)
}

func (b *pageFaultBus) String(f eeprom.Field) (string, error) {
	if err := b.gate(f); err != nil {
		return "", err
	}
	return b.fakeBus.String(f)
}

func (b *pageFaultBus) Write(f eeprom.Field, value uint64) error {
	if err := b.gate(f); err != nil {
		return err
	}
	return b.fakeBus.Write(f, value)
}

func TestFlatMemoryShortCircuitsPagedAccess(t *testing.T) {
	testlog.Start(t)
	bus := &pageFaultBus{fakeBus: newFlatBus()}
	d := New(bus)

	checks := []struct {
		name string
		call func() error
	}{
		{"DatapathState", func() error { _, err := d.DatapathState(); return err }},
		{"ConfigDatapathHostlaneStatus", func() error { _, err := d.ConfigDatapathHostlaneStatus(); return err }},
		{"HostInputLoopback", func() error { _, err := d.HostInputLoopback(); return err }},
		{"MediaOutputLoopback", func() error { _, err := d.MediaOutputLoopback(); return err }},
		{"ActiveFirmware", func() error { _, err := d.ActiveFirmware(); return err }},
		{"TxOutputStatus", func() error { _, err := d.TxOutputStatus(); return err }},
		{"LaserTuningSummary", func() error { _, err := d.LaserTuningSummary(); return err }},
		{"SupportedPowerConfig", func() error { _, _, err := d.SupportedPowerConfig(); return err }},
		{"FreezeVdmStats", func() error { return d.FreezeVdmStats() }},
		{"VdmFreezeDone", func() error { _, err := d.VdmFreezeDone(); return err }},
	}
	for _, check := range checks {
		if err := check.call(); !errors.Is(err, ErrNotSupported) {
			t.Fatalf("%s on flat module: error = %v, want ErrNotSupported", check.name, err)
		}
	}
	if len(bus.paged) != 0 {
		t.Fatalf("page-backed accesses issued on a flat module: %v", bus.paged)
	}
}

func TestIsFlatMemory(t *testing.T) {
	testlog.Start(t)

	if d := New(newFlatBus()); !d.IsFlatMemory() {
		t.Fatalf("flat module not reported flat")
	}
	if d := New(newPagedBus()); d.IsFlatMemory() {
		t.Fatalf("paged module reported flat")
	}

	// Unreadable advertisement falls back to flat, the conservative answer.
	bus := newFakeBus()
	bus.fail["FlatMem"] = errBusIO
	if d := New(bus); !d.IsFlatMemory() {
		t.Fatalf("unreadable module not treated as flat")
	}
}

func TestIdentityCacheRetainsFirstSuccess(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.strs["VendorSN"] = "SN001"
	d := New(bus)

	serial, err := d.Serial()
	if err != nil || serial != "SN001" {
		t.Fatalf("serial = %q, %v", serial, err)
	}

	bus.strs["VendorSN"] = "SN002"
	serial, err = d.Serial()
	if err != nil || serial != "SN001" {
		t.Fatalf("cached serial = %q, %v; want first value retained", serial, err)
	}
}

func TestIdentityCacheSkipsFailures(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.fail["VendorSN"] = errBusIO
	d := New(bus)

	if _, err := d.Serial(); !errors.Is(err, errBusIO) {
		t.Fatalf("expected bus fault, got %v", err)
	}

	delete(bus.fail, "VendorSN")
	bus.strs["VendorSN"] = "SN001"
	serial, err := d.Serial()
	if err != nil || serial != "SN001" {
		t.Fatalf("serial after recovery = %q, %v; failure must not be cached", serial, err)
	}
}

func TestWithoutIdentityCache(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.strs["VendorSN"] = "SN001"
	d := New(bus, WithoutIdentityCache())

	if _, err := d.Serial(); err != nil {
		t.Fatalf("serial failed: %v", err)
	}
	bus.strs["VendorSN"] = "SN002"
	serial, err := d.Serial()
	if err != nil || serial != "SN002" {
		t.Fatalf("serial = %q, %v; cache should be off", serial, err)
	}
}

func TestSupportBit(t *testing.T) {
	testlog.Start(t)
	bus := newPagedBus()
	bus.uints["RxLosSupport"] = 1
	d := New(bus)

	ok, err := d.RxLosSupported()
	if err != nil || !ok {
		t.Fatalf("rx los supported = %v, %v", ok, err)
	}

	// Unimplemented advertisement means unsupported, not an error.
	ok, err = d.TxLosSupported()
	if err != nil || ok {
		t.Fatalf("tx los supported = %v, %v; want false, nil", ok, err)
	}

	bus.fail["TxFaultSupport"] = errBusIO
	if _, err := d.TxFaultSupported(); !errors.Is(err, errBusIO) {
		t.Fatalf("expected bus fault, got %v", err)
	}

	// Flat memory short-circuits before any page 01h access.
	flat := New(newFlatBus())
	ok, err = flat.RxLosSupported()
	if err != nil || ok {
		t.Fatalf("flat rx los supported = %v, %v; want false, nil", ok, err)
	}
}
