package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
	"go.bug.st/serial"

	"github.com/goblimey/go-ntrip-analyser/logging"
	"github.com/goblimey/go-ntrip-analyser/rtcm/handler"
	"github.com/goblimey/go-ntrip-analyser/stream"
)

// DefaultBaudRate is the speed of the serial port if none is given.
const DefaultBaudRate = 9600

func newDecodeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "decode [file|-]",
		Short: "Decode RTCM3 data from a file, the standard input or a serial port",
		Long: `Decode reads RTCM3 data, finds the message frames and displays each
message.  The data comes from the named file, from the standard input if
the name is "-" or missing, or from a serial port given by --serial.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runDecode,
	}

	f := cmd.Flags()
	f.StringP("format", "f", formatText, "output format: summary, text, json, yaml or raw")
	f.IntSlice("types", nil, "only show these message types, eg 1005,1077")
	f.String("serial", "", "read from this serial device, eg /dev/ttyUSB0")
	f.Int("baud", DefaultBaudRate, "baud rate of the serial device")
	f.Bool("list-serial", false, "list the serial ports and exit")

	return cmd
}

func runDecode(cmd *cobra.Command, args []string) error {
	f := cmd.Flags()

	listPorts, err := f.GetBool("list-serial")
	if err != nil {
		return err
	}
	if listPorts {
		return listSerialPorts(cmd.OutOrStdout())
	}

	format, err := f.GetString("format")
	if err != nil {
		return err
	}
	types, err := f.GetIntSlice("types")
	if err != nil {
		return err
	}
	device, err := f.GetString("serial")
	if err != nil {
		return err
	}
	baud, err := f.GetInt("baud")
	if err != nil {
		return err
	}

	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logs, err := logging.NewWithWriter(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer logs.Close()

	var input io.ReadCloser
	switch {
	case device != "":
		if len(args) > 0 {
			return errors.New("give a file or a serial device, not both")
		}
		input, err = openSerial(cmd.Context(), device, baud)
	case len(args) == 0 || args[0] == "-":
		input = io.NopCloser(cmd.InOrStdin())
	default:
		input, err = os.Open(args[0])
	}
	if err != nil {
		return err
	}
	defer input.Close()

	p, err := newPrinter(cmd.OutOrStdout(), format, types)
	if err != nil {
		return err
	}

	n, err := decodeStream(input, p, logs.Logger("decode"))
	logs.Logger("decode").Debug("finished", "messages", n)
	// A serial port closed by an interrupt gives an error, not EOF.
	if err != nil && cmd.Context().Err() == nil {
		return err
	}
	return p.close()
}

// openSerial opens a serial device.  It's closed when the context is
// cancelled, which ends the decode.
func openSerial(ctx context.Context, device string, baud int) (io.ReadCloser, error) {
	port, err := serial.Open(device, &serial.Mode{BaudRate: baud})
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", device, err)
	}
	if ctx != nil {
		context.AfterFunc(ctx, func() { port.Close() })
	}
	return port, nil
}

func listSerialPorts(w io.Writer) error {
	ports, err := serial.GetPortsList()
	if err != nil {
		return err
	}
	if len(ports) == 0 {
		fmt.Fprintln(w, "no serial ports found")
		return nil
	}
	for _, port := range ports {
		fmt.Fprintln(w, port)
	}
	return nil
}

// decodeStream reads r until end of file, decodes the messages in it and
// prints them.  It returns the number of messages.
func decodeStream(r io.Reader, p *printer, logger *slog.Logger) (int, error) {
	chIn := make(chan []byte, 16)
	chOut := make(chan handler.Message, 16)

	h := handler.New(logger)
	go h.HandleChunks(chIn, chOut)

	readErr := make(chan error, 1)
	go func() { readErr <- readChunks(r, chIn) }()

	// Keep draining after a print error so that the goroutines finish.
	n := 0
	var printErr error
	for message := range chOut {
		n++
		if printErr == nil {
			printErr = p.print(&message)
		}
	}

	if err := <-readErr; err != nil {
		return n, err
	}
	return n, printErr
}

// readChunks copies r to ch in chunks and closes ch at the end.
func readChunks(r io.Reader, ch chan<- []byte) error {
	defer close(ch)
	buffer := make([]byte, stream.ReadBufferSize)
	for {
		n, err := r.Read(buffer)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buffer[:n])
			ch <- chunk
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}
