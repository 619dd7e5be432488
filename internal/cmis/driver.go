// Package cmis implements the management-plane driver for optical
// transceiver modules that follow the CMIS register model. It decodes
// registers into typed identity, telemetry, status and control values,
// and drives the multi-step hardware protocols: datapath bring-up and
// teardown, low-power transitions, loopback configuration and in-field
// firmware upgrade over CDB.
//
// A Driver owns one physical port. Operations are synchronous and
// blocking; callers needing concurrency run one driver per port.
package cmis

import (
	"errors"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/ashwnsri/sonic-platform-common/internal/cdb"
	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
	"github.com/ashwnsri/sonic-platform-common/internal/vdm"
)

const (
	// NumLanes is the fixed lane width of the CMIS register model.
	NumLanes = 8
	// AllLanesMask selects every lane.
	AllLanesMask = 0xFF

	// NotAvailable is the sentinel rendered into aggregate outputs for
	// fields the module does not support. It is part of the output
	// compatibility surface and must not change.
	NotAvailable = "N/A"
)

// ErrNotSupported reports that the module does not advertise the requested
// feature. It is never a transport fault and never worth retrying.
var ErrNotSupported = eeprom.ErrNotSupported

// ErrCdbNotSupported reports that the module carries no CDB command
// interface, so no firmware-management operation can run.
var ErrCdbNotSupported = errors.New("cmis: cdb not supported on this module")

// Driver drives a single CMIS transceiver module.
type Driver struct {
	bus eeprom.Bus
	cdb cdb.API
	vdm vdm.API
	log zerolog.Logger

	cacheOff bool
	sleep    func(time.Duration)
	now      func() time.Time

	// identityMu guards the write-once identity cache. Entries are only
	// added, never replaced; reconstructing the driver is the only
	// invalidation (module replacement).
	identityMu sync.Mutex
	identity   map[string]any
}

// Option configures a Driver at construction.
type Option func(*Driver)

// WithCDB attaches the CDB command collaborator. Without it every
// firmware-management operation fails with ErrCdbNotSupported.
func WithCDB(api cdb.API) Option {
	return func(d *Driver) { d.cdb = api }
}

// WithVDM attaches the VDM page-reader collaborator. Without it VDM
// aggregates resolve every key to NotAvailable.
func WithVDM(api vdm.API) Option {
	return func(d *Driver) { d.vdm = api }
}

// WithLogger sets the driver logger. The default discards everything.
func WithLogger(log zerolog.Logger) Option {
	return func(d *Driver) { d.log = log }
}

// WithoutIdentityCache disables the write-once caching of identity
// fields; every query re-reads hardware.
func WithoutIdentityCache() Option {
	return func(d *Driver) { d.cacheOff = true }
}

// WithClock replaces the wall clock and sleep used by bounded waits.
// Tests use this to step through poll loops deterministically.
func WithClock(now func() time.Time, sleep func(time.Duration)) Option {
	return func(d *Driver) {
		d.now = now
		d.sleep = sleep
	}
}

// New builds a driver over the given register-access bus. The bus is
// wrapped so page-backed accesses on flat-memory modules short-circuit to
// ErrNotSupported before any read or write is issued.
func New(bus eeprom.Bus, opts ...Option) *Driver {
	d := &Driver{
		log:      zerolog.Nop(),
		sleep:    time.Sleep,
		now:      time.Now,
		identity: make(map[string]any),
	}
	d.bus = gatedBus{d: d, inner: bus}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// gatedBus fronts the raw bus with the flat-memory page gate, so no getter
// can reach a page-backed register on a flat module.
type gatedBus struct {
	d     *Driver
	inner eeprom.Bus
}

func (g gatedBus) Uint(f eeprom.Field) (uint64, error) {
	if err := g.d.pageGate(f); err != nil {
		return 0, err
	}
	return g.inner.Uint(f)
}

func (g gatedBus) Float(f eeprom.Field) (float64, error) {
	if err := g.d.pageGate(f); err != nil {
		return 0, err
	}
	return g.inner.Float(f)
}

func (g gatedBus) String(f eeprom.Field) (string, error) {
	if err := g.d.pageGate(f); err != nil {
		return "", err
	}
	return g.inner.String(f)
}

func (g gatedBus) Write(f eeprom.Field, value uint64) error {
	if err := g.d.pageGate(f); err != nil {
		return err
	}
	return g.inner.Write(f, value)
}

// cached memoizes the first successful result of fn under key. Failures
// are never cached, so a transient read fault does not poison identity.
func cached[T any](d *Driver, key string, fn func() (T, error)) (T, error) {
	if d.cacheOff {
		return fn()
	}
	d.identityMu.Lock()
	if v, ok := d.identity[key]; ok {
		d.identityMu.Unlock()
		return v.(T), nil
	}
	d.identityMu.Unlock()
	v, err := fn()
	if err != nil {
		return v, err
	}
	d.identityMu.Lock()
	d.identity[key] = v
	d.identityMu.Unlock()
	return v, nil
}

// IsFlatMemory reports whether the module exposes only the base page.
// A failed read is treated as flat: the conservative answer locks out
// page-dependent features instead of issuing reads that cannot succeed.
func (d *Driver) IsFlatMemory() bool {
	flat, err := cached(d, "flat_memory", func() (bool, error) {
		v, err := d.bus.Uint(eeprom.FlatMem)
		if err != nil {
			return true, err
		}
		return v != 0, nil
	})
	if err != nil {
		return true
	}
	return flat
}

// supportBit evaluates a feature advertisement bit. Flat memory and an
// unimplemented field both mean "unsupported"; only transport faults
// surface as errors.
func (d *Driver) supportBit(f eeprom.Field) (bool, error) {
	if d.IsFlatMemory() {
		return false, nil
	}
	v, err := d.bus.Uint(f)
	if errors.Is(err, eeprom.ErrNotSupported) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// readBool reads a single-bit register as bool.
func (d *Driver) readBool(f eeprom.Field) (bool, error) {
	v, err := d.bus.Uint(f)
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

// pageGate short-circuits page-backed reads and writes on flat-memory
// modules before any bus access happens.
func (d *Driver) pageGate(f eeprom.Field) error {
	if f.Page() != eeprom.PageLower && d.IsFlatMemory() {
		return fmt.Errorf("%w: %s", ErrNotSupported, f.Name())
	}
	return nil
}

// laneSentinels returns the 8-wide per-lane sentinel row used when a
// per-lane feature is not supported.
func laneSentinels() []any {
	row := make([]any, NumLanes)
	for i := range row {
		row[i] = NotAvailable
	}
	return row
}

// round3 truncates an analog value to the 3-decimal precision the output
// surface carries.
func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}

// mwToDBm converts optical power from milliwatts to dBm.
func mwToDBm(mw float64) float64 {
	return 10 * math.Log10(mw)
}
