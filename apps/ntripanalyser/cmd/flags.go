package cmd

import (
	"github.com/spf13/cobra"

	"github.com/goblimey/go-ntrip-analyser/config"
)

// addConnectionFlags adds the flags that describe the caster connection.
// They override the config file.
func addConnectionFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("host", "", "caster host name")
	f.Int("port", config.DefaultPort, "caster port")
	f.StringP("user", "u", "", "user name")
	f.StringP("password", "p", "", "password")
	f.StringP("mountpoint", "m", "", "mountpoint")
	f.Bool("tls", false, "connect using TLS")
	f.String("protocol", "", "NTRIP protocol version, rev1 or rev2")
}

// applyConnectionFlags copies the flags that were given into the
// connection.
func applyConnectionFlags(cmd *cobra.Command, conn *config.Connection) error {
	f := cmd.Flags()
	var err error

	if f.Changed("host") {
		if conn.Host, err = f.GetString("host"); err != nil {
			return err
		}
	}
	if f.Changed("port") {
		if conn.Port, err = f.GetInt("port"); err != nil {
			return err
		}
	}
	if f.Changed("user") {
		if conn.Username, err = f.GetString("user"); err != nil {
			return err
		}
	}
	if f.Changed("password") {
		if conn.Password, err = f.GetString("password"); err != nil {
			return err
		}
	}
	if f.Changed("mountpoint") {
		if conn.Mountpoint, err = f.GetString("mountpoint"); err != nil {
			return err
		}
	}
	if f.Changed("tls") {
		if conn.UseTLS, err = f.GetBool("tls"); err != nil {
			return err
		}
	}
	if f.Changed("protocol") {
		name, err := f.GetString("protocol")
		if err != nil {
			return err
		}
		if conn.Protocol, err = config.ParseProtocol(name); err != nil {
			return err
		}
	}

	return nil
}
