package cmis

import (
	"fmt"
	"os"
	"time"

	"github.com/ashwnsri/sonic-platform-common/internal/cdb"
	"github.com/ashwnsri/sonic-platform-common/internal/eeprom"
)

// Firmware transfer constants. The LPL-only block size is fixed by the
// local payload page; the bank-switch settle time is how long a module may
// take to complete a run/commit image switch.
const (
	lplOnlyBlockSize       = 116
	bankSwitchSettleTime   = 60 * time.Second
	downloadSettleTime     = 2 * time.Second
	runModeHitlessInactive = 0x01
)

// FirmwareBank is the decoded state of one firmware image bank.
type FirmwareBank struct {
	Version   string
	Running   bool
	Committed bool
	Valid     bool
}

// FirmwareInfo is the decoded firmware-info reply: both banks plus the
// derived active/inactive selection.
type FirmwareInfo struct {
	BankA FirmwareBank
	BankB FirmwareBank
	// Factory is the factory image version, present only on modules whose
	// reply carries the extended area.
	Factory string

	RunningImage   string
	CommittedImage string
	Active         string
	Inactive       string
}

// FirmwareManagementFeatures is the negotiated transfer configuration: the
// EEPROM-advertised write parameters plus the CDB features reply.
type FirmwareManagementFeatures struct {
	StartLPLSize int
	MaxBlockSize int
	LPLOnly      bool
	AutoPaging   bool
	WriteLength  int
}

func (d *Driver) cdbGate() error {
	if d.cdb == nil || d.IsFlatMemory() {
		return ErrCdbNotSupported
	}
	return nil
}

// cdbWithPasswordRetry runs one CDB command, retrying exactly once behind a
// password entry when the module demands one.
func (d *Driver) cdbWithPasswordRetry(name string, fn func() (uint8, error)) error {
	status, err := fn()
	if err != nil {
		return fmt.Errorf("cmis: %s: %w", name, err)
	}
	if status == cdb.StatusPasswordRequired {
		d.log.Info().Str("step", name).Msg("module requires password entry")
		if _, err := d.cdb.EnterPassword(0); err != nil {
			return fmt.Errorf("cmis: %s: enter password: %w", name, err)
		}
		status, err = fn()
		if err != nil {
			return fmt.Errorf("cmis: %s: %w", name, err)
		}
	}
	if status != cdb.StatusSuccess {
		return fmt.Errorf("cmis: %s failed, cdb status %#x", name, status)
	}
	return nil
}

// bankVersion renders "major.minor.build" from the reply payload at the
// given offset: two single bytes and a big-endian build word.
func bankVersion(payload []byte, offset int) string {
	if len(payload) < offset+4 {
		return NotAvailable
	}
	build := uint16(payload[offset+2])<<8 | uint16(payload[offset+3])
	return fmt.Sprintf("%d.%d.%d", payload[offset], payload[offset+1], build)
}

// FirmwareInfo queries and decodes the module firmware-info reply. A
// password demand is retried once with the reset password.
func (d *Driver) FirmwareInfo() (*FirmwareInfo, error) {
	if err := d.cdbGate(); err != nil {
		return nil, err
	}
	res, err := d.cdb.FwInfo()
	if err != nil {
		return nil, fmt.Errorf("cmis: fw info: %w", err)
	}
	if res.Reply == nil {
		return nil, fmt.Errorf("cmis: fw info: cdb interface fail, status %#x", res.Status)
	}
	if res.Status == cdb.StatusPasswordRequired {
		d.log.Info().Msg("fw info requires password entry")
		if _, err := d.cdb.EnterPassword(0); err != nil {
			return nil, fmt.Errorf("cmis: fw info: enter password: %w", err)
		}
		res, err = d.cdb.FwInfo()
		if err != nil {
			return nil, fmt.Errorf("cmis: fw info: %w", err)
		}
		if res.Reply == nil {
			return nil, fmt.Errorf("cmis: fw info: cdb interface fail, status %#x", res.Status)
		}
	}
	if res.Status != cdb.StatusSuccess {
		return nil, fmt.Errorf("cmis: fw info failed, cdb status %#x", res.Status)
	}
	payload := res.Reply.Payload
	if d.cdb.Checksum(payload) != res.Reply.Chkcode {
		return nil, fmt.Errorf("cmis: fw info: reply check code mismatch")
	}
	if len(payload) == 0 {
		return nil, fmt.Errorf("cmis: fw info: empty reply")
	}

	// Validity bit semantics are inverted: 0 means valid.
	fwStatus := payload[0]
	info := &FirmwareInfo{
		BankA: FirmwareBank{
			Running:   fwStatus&0x01 != 0,
			Committed: fwStatus&0x02 != 0,
			Valid:     fwStatus&0x04 == 0,
		},
		BankB: FirmwareBank{
			Running:   fwStatus&0x10 != 0,
			Committed: fwStatus&0x20 != 0,
			Valid:     fwStatus&0x40 == 0,
		},
		RunningImage:   NotAvailable,
		CommittedImage: NotAvailable,
		Active:         NotAvailable,
		Inactive:       NotAvailable,
	}

	info.BankA.Version = NotAvailable
	if info.BankA.Valid {
		info.BankA.Version = bankVersion(payload, 2)
	}
	info.BankB.Version = NotAvailable
	if info.BankB.Valid {
		info.BankB.Version = bankVersion(payload, 38)
	}
	if res.Reply.Length > 77 {
		info.Factory = bankVersion(payload, 74)
	}

	switch {
	case info.BankA.Running:
		info.RunningImage = "A"
		info.Active = info.BankA.Version
		if info.BankB.Valid {
			info.Inactive = info.BankB.Version
		} else if v, err := d.InactiveFirmware(); err == nil {
			// Single-bank module: the standby version only exists in EEPROM.
			info.Inactive = v + ".0"
		}
	case info.BankB.Running:
		info.RunningImage = "B"
		info.Active = info.BankB.Version
		if info.BankA.Valid {
			info.Inactive = info.BankA.Version
		} else if v, err := d.InactiveFirmware(); err == nil {
			info.Inactive = v + ".0"
		}
	}
	switch {
	case info.BankA.Committed:
		info.CommittedImage = "A"
	case info.BankB.Committed:
		info.CommittedImage = "B"
	}
	return info, nil
}

// FirmwareManagementFeatures negotiates the transfer parameters for a
// firmware download: the EEPROM write-length advertisement plus the CDB
// firmware-features reply.
func (d *Driver) FirmwareManagementFeatures() (*FirmwareManagementFeatures, error) {
	if err := d.cdbGate(); err != nil {
		return nil, err
	}
	autoPaging, err := d.supportBit(eeprom.AutoPagingSupport)
	if err != nil {
		return nil, fmt.Errorf("cmis: auto paging advertisement: %w", err)
	}
	writeLenRaw, err := d.bus.Uint(eeprom.CdbSeqWriteLengthExt)
	if err != nil {
		return nil, fmt.Errorf("cmis: write length advertisement: %w", err)
	}
	writeLength := (int(writeLenRaw) + 1) * 8

	res, err := d.cdb.FwManagementFeatures()
	if err != nil {
		return nil, fmt.Errorf("cmis: fw management features: %w", err)
	}
	if res.Reply == nil || res.Status != cdb.StatusSuccess {
		return nil, fmt.Errorf("cmis: fw management features failed, cdb status %#x", res.Status)
	}
	payload := res.Reply.Payload
	if d.cdb.Checksum(payload) != res.Reply.Chkcode {
		return nil, fmt.Errorf("cmis: fw management features: reply check code mismatch")
	}
	if len(payload) < 6 {
		return nil, fmt.Errorf("cmis: fw management features: short reply (%d bytes)", len(payload))
	}
	feat := &FirmwareManagementFeatures{
		StartLPLSize: int(payload[2]),
		MaxBlockSize: (int(payload[4]) + 1) * 8,
		LPLOnly:      payload[5] == 0x01,
		AutoPaging:   autoPaging,
		WriteLength:  writeLength,
	}
	d.log.Info().
		Int("start_lpl_size", feat.StartLPLSize).
		Int("max_block_size", feat.MaxBlockSize).
		Bool("lpl_only", feat.LPLOnly).
		Bool("auto_paging", feat.AutoPaging).
		Int("write_length", feat.WriteLength).
		Msg("firmware management features")
	return feat, nil
}

// DownloadFirmware transfers a firmware image to the module: the start
// command carries the first StartLPLSize bytes plus the total size, the
// remainder moves in blocks through the local or extended payload, and a
// validate command completes the download. Any block failure issues an
// explicit abort so the module is left in a known state; there is no
// automatic resumption.
func (d *Driver) DownloadFirmware(feat *FirmwareManagementFeatures, image []byte) error {
	if err := d.cdbGate(); err != nil {
		return err
	}
	imageSize := len(image)
	startSize := feat.StartLPLSize
	if startSize > imageSize {
		startSize = imageSize
	}
	d.log.Info().Int("image_size", imageSize).Int("start_size", startSize).Msg("starting firmware download")
	err := d.cdbWithPasswordRetry("start fw download", func() (uint8, error) {
		return d.cdb.StartFwDownload(startSize, image[:startSize], imageSize)
	})
	if err != nil {
		if _, abortErr := d.cdb.AbortFwDownload(); abortErr != nil {
			d.log.Debug().Err(abortErr).Msg("abort after failed start")
		}
		return err
	}

	blockSize := feat.MaxBlockSize
	if feat.LPLOnly {
		blockSize = lplOnlyBlockSize
	}
	address := 0
	remaining := imageSize - startSize
	for remaining > 0 {
		count := blockSize
		if remaining < blockSize {
			count = remaining
		}
		data := image[startSize+address : startSize+address+count]
		var status uint8
		if feat.LPLOnly {
			status, err = d.cdb.BlockWriteLPL(address, data)
		} else {
			status, err = d.cdb.BlockWriteEPL(address, data, feat.AutoPaging, feat.WriteLength)
		}
		if err != nil || status != cdb.StatusSuccess {
			if _, abortErr := d.cdb.AbortFwDownload(); abortErr != nil {
				d.log.Debug().Err(abortErr).Msg("abort after failed block write")
			}
			if err != nil {
				return fmt.Errorf("cmis: block write at %#x (%d bytes): %w", address, count, err)
			}
			return fmt.Errorf("cmis: block write at %#x (%d bytes) failed, cdb status %#x", address, count, status)
		}
		address += count
		remaining -= count
		d.log.Debug().
			Int("address", address).
			Int("count", count).
			Int("remaining", remaining).
			Msg("firmware block written")
	}

	d.sleep(downloadSettleTime)
	status, err := d.cdb.ValidateFwImage()
	if err != nil {
		return fmt.Errorf("cmis: validate fw image: %w", err)
	}
	if status != cdb.StatusSuccess {
		return fmt.Errorf("cmis: validate fw image failed, cdb status %#x", status)
	}
	d.log.Info().Msg("firmware download complete")
	return nil
}

// RunFirmware transfers control to an image. Mode 0x00 is a traffic
// affecting reset to the inactive image, 0x01 attempts a hitless reset to
// the inactive image, 0x02 and 0x03 the same against the running image.
func (d *Driver) RunFirmware(mode uint8) error {
	if err := d.cdbGate(); err != nil {
		return err
	}
	return d.cdbWithPasswordRetry("run fw image", func() (uint8, error) {
		return d.cdb.RunFwImage(mode)
	})
}

// CommitFirmware commits the running image so the module boots from it.
func (d *Driver) CommitFirmware() error {
	if err := d.cdbGate(); err != nil {
		return err
	}
	return d.cdbWithPasswordRetry("commit fw image", func() (uint8, error) {
		return d.cdb.CommitFwImage()
	})
}

// SwitchFirmware swaps the active and inactive firmware banks: run the
// inactive image, wait out the switch, commit, then verify against the
// captured starting state that the previously running bank stopped
// running. Both banks must be valid at the outset.
func (d *Driver) SwitchFirmware() error {
	before, err := d.FirmwareInfo()
	if err != nil {
		return err
	}
	if !before.BankA.Valid || !before.BankB.Valid {
		return fmt.Errorf("cmis: fw switch: not both banks are valid (A=%t B=%t)",
			before.BankA.Valid, before.BankB.Valid)
	}
	if err := d.RunFirmware(runModeHitlessInactive); err != nil {
		return err
	}
	d.sleep(bankSwitchSettleTime)
	if err := d.CommitFirmware(); err != nil {
		return err
	}
	after, err := d.FirmwareInfo()
	if err != nil {
		return err
	}
	d.log.Info().
		Str("before_a", fmt.Sprintf("%s run=%t commit=%t valid=%t", before.BankA.Version, before.BankA.Running, before.BankA.Committed, before.BankA.Valid)).
		Str("before_b", fmt.Sprintf("%s run=%t commit=%t valid=%t", before.BankB.Version, before.BankB.Running, before.BankB.Committed, before.BankB.Valid)).
		Str("after_a", fmt.Sprintf("%s run=%t commit=%t valid=%t", after.BankA.Version, after.BankA.Running, after.BankA.Committed, after.BankA.Valid)).
		Str("after_b", fmt.Sprintf("%s run=%t commit=%t valid=%t", after.BankB.Version, after.BankB.Running, after.BankB.Committed, after.BankB.Valid)).
		Msg("firmware bank switch")
	if (before.BankA.Running && after.BankA.Running) || (before.BankB.Running && after.BankB.Running) {
		return fmt.Errorf("cmis: fw switch did not happen, bank %s still running", before.RunningImage)
	}
	return nil
}

// UpgradeFirmware performs the full upgrade sequence against a flat binary
// image file: query firmware info and transfer features, download the
// image, then switch banks.
func (d *Driver) UpgradeFirmware(imagePath string) error {
	if _, err := d.FirmwareInfo(); err != nil {
		return err
	}
	feat, err := d.FirmwareManagementFeatures()
	if err != nil {
		return err
	}
	image, err := os.ReadFile(imagePath)
	if err != nil {
		return fmt.Errorf("cmis: read firmware image: %w", err)
	}
	if err := d.DownloadFirmware(feat, image); err != nil {
		return err
	}
	return d.SwitchFirmware()
}
