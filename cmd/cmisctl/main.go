package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/ashwnsri/sonic-platform-common/internal/logging"
)

func main() {
	configPath := flag.String("config", "", "path to a TOML config file")
	port := flag.String("port", "", "port label override")
	flag.Usage = usage
	flag.Parse()

	logging.ConfigureRuntime()

	cfg := defaultRunConfig()
	if *configPath != "" {
		var err error
		cfg, err = loadRunConfig(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "cmisctl: %v\n", err)
			os.Exit(1)
		}
	}
	if *port != "" {
		cfg.Port = *port
	}

	args := flag.Args()
	if len(args) == 0 {
		usage()
		os.Exit(2)
	}

	if err := run(cfg, args[0], args[1:]); err != nil {
		fmt.Fprintf(os.Stderr, "cmisctl: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: cmisctl [flags] <command> [args]

commands:
  info                         transceiver identity
  dom                          real-time monitor values
  dom-flags                    latched monitor flags
  thresholds                   monitor threshold table
  status                       module and datapath status
  status-flags                 fault and status change flags
  error-description            one-line health summary
  loopback                     loopback capability and state
  loopback-set <mode> <mask> on|off
                               set a loopback direction
  vdm values|thresholds|flags  versioned diagnostic monitors
  vdm freeze|unfreeze          control statistics capture
  lpmode [on|off]              read or set low-power mode
  datapath init|deinit <mask>  stage a datapath transition
  datapath apply <mask>        apply staged datapath control
  decommission                 tear down every datapath
  fw-info                      firmware bank inventory
  fw-features                  firmware download parameters
  fw-upgrade <image>           download and switch firmware
  reset                        reset the module

flags:
`)
	flag.PrintDefaults()
}
