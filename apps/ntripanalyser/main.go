// ntripanalyser connects to an NTRIP caster, receives a stream of RTCM3
// messages from a mountpoint and reports on it:  the messages, their types
// and rates, CRC failures and malformed messages, and the state of the
// connection, which is retried with exponential backoff if it fails.
//
// It can also list a caster's source table and decode RTCM3 data captured
// earlier, read from the standard input or taken from a serial port.
//
// Usage:
//
//	ntripanalyser stream --host caster.example.com --mountpoint MOUNT1 --user u --password p
//	ntripanalyser stream -c ntripanalyser.yaml
//	ntripanalyser sourcetable --host caster.example.com
//	ntripanalyser decode data.20250102.rtcm3
//	ntripanalyser decode --serial /dev/ttyUSB0 --baud 115200 --format json
//
// The configuration file is YAML or JSON.  Any setting can also be given
// in the environment, for example NTRIP_CONNECTION_HOST.
package main

import (
	"fmt"
	"os"

	"github.com/goblimey/go-ntrip-analyser/apps/ntripanalyser/cmd"
)

func main() {
	if err := cmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
