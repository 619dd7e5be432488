package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"

	"github.com/rs/zerolog/log"

	"github.com/ashwnsri/sonic-platform-common/internal/cmis"
	"github.com/ashwnsri/sonic-platform-common/internal/sim"
)

func newDriver(cfg runConfig) *cmis.Driver {
	opts := []sim.Option{sim.WithLogger(log.Logger)}
	if cfg.FlatMemory {
		opts = append(opts, sim.FlatMemory())
	}
	m := sim.NewModule(opts...)
	return cmis.New(m,
		cmis.WithCDB(m),
		cmis.WithVDM(m),
		cmis.WithLogger(log.With().Str("port", cfg.Port).Logger()),
	)
}

func run(cfg runConfig, command string, args []string) error {
	d := newDriver(cfg)

	switch command {
	case "info":
		return emitErr(d.TransceiverInfo())
	case "dom":
		return emitErr(d.TransceiverDomRealValues())
	case "dom-flags":
		return emit(d.TransceiverDomFlags())
	case "thresholds":
		return emitErr(d.TransceiverThresholdInfo())
	case "status":
		return emitErr(d.TransceiverStatus())
	case "status-flags":
		return emit(d.TransceiverStatusFlags())
	case "error-description":
		desc, err := d.ErrorDescription()
		if err != nil {
			return err
		}
		fmt.Println(desc)
		return nil
	case "loopback":
		return emit(d.TransceiverLoopback())
	case "loopback-set":
		return runLoopbackSet(d, args)
	case "vdm":
		return runVdm(d, args)
	case "lpmode":
		return runLPMode(cfg, d, args)
	case "datapath":
		return runDatapath(d, args)
	case "decommission":
		return d.DecommissionAllDatapaths()
	case "fw-info":
		return emitErr(d.FirmwareInfo())
	case "fw-features":
		return emitErr(d.FirmwareManagementFeatures())
	case "fw-upgrade":
		if len(args) != 1 {
			return fmt.Errorf("fw-upgrade needs an image path")
		}
		return d.UpgradeFirmware(args[0])
	case "reset":
		return d.Reset()
	default:
		return fmt.Errorf("unknown command %q", command)
	}
}

func runLoopbackSet(d *cmis.Driver, args []string) error {
	if len(args) != 3 {
		return fmt.Errorf("loopback-set needs <mode> <mask> on|off")
	}
	mask, err := parseMask(args[1])
	if err != nil {
		return err
	}
	enable, err := parseOnOff(args[2])
	if err != nil {
		return err
	}
	return d.SetLoopbackMode(args[0], mask, enable)
}

func runVdm(d *cmis.Driver, args []string) error {
	if len(args) != 1 {
		return fmt.Errorf("vdm needs values|thresholds|flags|freeze|unfreeze")
	}
	switch args[0] {
	case "values":
		return emit(d.VdmRealValues())
	case "thresholds":
		return emit(d.VdmThresholds())
	case "flags":
		return emit(d.VdmFlags())
	case "freeze":
		return d.FreezeVdmStats()
	case "unfreeze":
		return d.UnfreezeVdmStats()
	default:
		return fmt.Errorf("unknown vdm group %q", args[0])
	}
}

func runLPMode(cfg runConfig, d *cmis.Driver, args []string) error {
	if len(args) == 0 {
		return emit(map[string]any{
			"supported": d.LPModeSupported(),
			"lpmode":    d.LPMode(),
		})
	}
	on, err := parseOnOff(args[0])
	if err != nil {
		return err
	}
	return d.SetLPMode(on, cfg.LPModeWait)
}

func runDatapath(d *cmis.Driver, args []string) error {
	if len(args) != 2 {
		return fmt.Errorf("datapath needs init|deinit|apply <mask>")
	}
	mask, err := parseMask(args[1])
	if err != nil {
		return err
	}
	channel := uint8(mask)
	switch args[0] {
	case "init":
		return d.SetDatapathInit(channel)
	case "deinit":
		return d.SetDatapathDeinit(channel)
	case "apply":
		return d.ApplyDatapathInit(channel)
	default:
		return fmt.Errorf("unknown datapath action %q", args[0])
	}
}

func parseMask(raw string) (uint64, error) {
	mask, err := strconv.ParseUint(raw, 0, 8)
	if err != nil {
		return 0, fmt.Errorf("parse lane mask %q: %w", raw, err)
	}
	return mask, nil
}

func parseOnOff(raw string) (bool, error) {
	switch raw {
	case "on":
		return true, nil
	case "off":
		return false, nil
	default:
		return false, fmt.Errorf("expected on or off, got %q", raw)
	}
}

func emit(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func emitErr[T any](v T, err error) error {
	if err != nil {
		return err
	}
	return emit(v)
}
