// Command gdbstub serves the example ARMv4T emulator to a GDB client over
// TCP, a unix domain socket, or a pty. It doubles as the reference event
// loop for driving a stub.Session.
package main

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/mattn/go-colorable"
	"github.com/mattn/go-isatty"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	sys "golang.org/x/sys/unix"

	"github.com/gdbstub-go/gdbstub/pkg/config"
	"github.com/gdbstub-go/gdbstub/pkg/conn"
	"github.com/gdbstub-go/gdbstub/pkg/emu/armv4t"
	"github.com/gdbstub-go/gdbstub/pkg/logflags"
	"github.com/gdbstub-go/gdbstub/pkg/proto"
	"github.com/gdbstub-go/gdbstub/pkg/stub"
	"github.com/gdbstub-go/gdbstub/pkg/target"
)

const version = "0.9.0"

var (
	listenAddr string
	mode       string
	hostFS     string
	noRLE      bool
	log        bool
	logOutput  string
	logDest    string
)

func main() {
	conf := config.LoadConfig()

	rootCommand := &cobra.Command{
		Use:   "gdbstub",
		Short: "gdbstub serves an example ARMv4T machine over the GDB Remote Serial Protocol.",
		Run: func(cmd *cobra.Command, args []string) {
			os.Exit(serve(conf, cmd.Flags()))
		},
	}
	rootCommand.Flags().StringVarP(&listenAddr, "listen", "l", "localhost:3333", "Listen address (tcp mode) or socket path (unix mode).")
	rootCommand.Flags().StringVar(&mode, "mode", "tcp", "Transport to serve over: tcp, unix or pty.")
	rootCommand.Flags().StringVar(&hostFS, "host-fs", "", "Directory served to the client over vFile host I/O (empty: disabled).")
	rootCommand.Flags().BoolVar(&noRLE, "no-rle", false, "Disable run-length compression of responses.")
	rootCommand.Flags().BoolVar(&log, "log", false, "Enable logging.")
	rootCommand.Flags().StringVar(&logOutput, "log-output", "", "Comma separated list of components that should produce debug output (gdbwire, stub, emu).")
	rootCommand.Flags().StringVar(&logDest, "log-dest", "", "Write logs to the specified file.")

	versionCommand := &cobra.Command{
		Use:   "version",
		Short: "Prints version.",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("gdbstub version %s\n", version)
		},
	}
	rootCommand.AddCommand(versionCommand)

	rootCommand.Execute()
}

func serve(conf *config.Config, fs *pflag.FlagSet) int {
	applyConfig(conf, fs)

	if err := logflags.Setup(log, logOutput, logDest); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	defer logflags.Close()
	if isatty.IsTerminal(os.Stderr.Fd()) {
		logrus.SetOutput(colorable.NewColorableStderr())
	}

	// exit cleanly on ^C to the server itself
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, sys.SIGINT, sys.SIGTERM)
	go func() {
		<-ch
		fmt.Fprintln(os.Stderr, "interrupted")
		os.Exit(1)
	}()

	var raw conn.Conn
	switch mode {
	case "tcp":
		fmt.Printf("API server listening at: %s\n", listenAddr)
		c, err := conn.Listen(listenAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "listen: %v\n", err)
			return 1
		}
		defer c.Close()
		raw = c
	case "unix":
		fmt.Printf("API server listening at: %s\n", listenAddr)
		c, err := conn.ListenUnix(listenAddr)
		if err != nil {
			fmt.Fprintf(os.Stderr, "listen: %v\n", err)
			return 1
		}
		defer c.Close()
		defer os.Remove(listenAddr)
		raw = c
	case "pty":
		c, name, err := conn.OpenPty()
		if err != nil {
			fmt.Fprintf(os.Stderr, "pty: %v\n", err)
			return 1
		}
		fmt.Printf("serving on %s\n", name)
		defer c.Close()
		raw = c
	default:
		fmt.Fprintf(os.Stderr, "unknown mode %q\n", mode)
		return 1
	}

	emu := armv4t.New(hostFS)
	emu.LoadDemo()

	sess := stub.NewWithBuffer(make([]byte, packetSize(conf)))
	sess.SetNoRLE(noRLE)

	reason, err := runSession(sess, newAsyncConn(raw), emu)
	if err != nil {
		fmt.Fprintf(os.Stderr, "session error: %v\n", err)
		return 1
	}
	fmt.Printf("session ended: %v\n", reason)
	return 0
}

// applyConfig fills in config-file values for every flag the user did not
// set explicitly on the command line.
func applyConfig(conf *config.Config, fs *pflag.FlagSet) {
	if conf.Listen != "" && !fs.Changed("listen") {
		listenAddr = conf.Listen
	}
	if conf.Mode != "" && !fs.Changed("mode") {
		mode = conf.Mode
	}
	if conf.HostFS != "" && !fs.Changed("host-fs") {
		hostFS = conf.HostFS
	}
	if conf.DisableRLE && !fs.Changed("no-rle") {
		noRLE = true
	}
	if conf.Log && !fs.Changed("log") {
		log = true
	}
	if conf.LogOutput != "" && !fs.Changed("log-output") {
		logOutput = conf.LogOutput
	}
	if conf.LogDest != "" && !fs.Changed("log-dest") {
		logDest = conf.LogDest
	}
}

func packetSize(conf *config.Config) int {
	if conf.PacketSize >= 1024 {
		return conf.PacketSize
	}
	return proto.DefaultPacketSize
}

// runSession is the canonical blocking event loop around the non-blocking
// session core.
func runSession(sess *stub.Session, c *asyncConn, emu *armv4t.Emulator) (stub.DisconnectReason, error) {
	for {
		ev, err := sess.Pump(c, emu)
		if err != nil {
			return sess.Reason(), err
		}
		switch ev {
		case stub.EventContinue, stub.EventNeedsData:
			// ReadByte blocks on this transport, so pumping again is
			// always safe
		case stub.EventDisconnected:
			return sess.Reason(), nil
		case stub.EventDeferredStopReason:
			stopReason := driveTarget(sess, c, emu)
			if _, err := sess.ReportStop(c, emu, stopReason); err != nil {
				return sess.Reason(), err
			}
		}
	}
}

// driveTarget executes the emulator until it reports a stop, watching the
// transport for the 0x03 interrupt byte in between instruction bursts.
func driveTarget(sess *stub.Session, c *asyncConn, emu *armv4t.Emulator) target.StopReason {
	for {
		for b, ok := c.TryReadByte(); ok; b, ok = c.TryReadByte() {
			sess.PeekInterrupt(b)
		}
		if sess.InterruptPending() {
			return emu.InterruptStop()
		}
		// a burst of instructions between interrupt polls
		for i := 0; i < 1024; i++ {
			if stop := emu.StepInstruction(); stop != nil {
				return *stop
			}
		}
	}
}
