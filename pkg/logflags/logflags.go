// Package logflags configures logging for the various layers of the stub.
package logflags

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
)

var gdbWire = false
var stub = false
var emu = false

var logOut io.WriteCloser

func makeLogger(level logrus.Level, fields Fields) Logger {
	if lf := loggerFactory; lf != nil {
		return lf(level, fields, logOut)
	}
	logger := logrus.New()
	logger.Formatter = textFormatterInstance
	if logOut != nil {
		logger.Out = logOut
	}
	logger.Level = level
	return &logrusLogger{logger.WithFields(logrus.Fields(fields))}
}

func makeFlaggableLogger(flag bool, fields Fields) Logger {
	if flag {
		return makeLogger(logrus.DebugLevel, fields)
	}
	return makeLogger(logrus.ErrorLevel, fields)
}

// GdbWire returns true if the wire layer should log every packet exchanged
// with the client.
func GdbWire() bool {
	return gdbWire
}

// GdbWireLogger returns a configured logger for the wire protocol.
func GdbWireLogger() Logger {
	return makeFlaggableLogger(gdbWire, Fields{"layer": "gdbwire"})
}

// Stub returns true if the session state machine should log.
func Stub() bool {
	return stub
}

// StubLogger returns a logger for the session state machine.
func StubLogger() Logger {
	return makeFlaggableLogger(stub, Fields{"layer": "stub"})
}

// Emu returns true if the example emulator target should log.
func Emu() bool {
	return emu
}

// EmuLogger returns a logger for the example emulator target.
func EmuLogger() Logger {
	return makeFlaggableLogger(emu, Fields{"layer": "emu"})
}

var errLogstrWithoutLog = errors.New("--log-output specified without --log")

// Setup sets the component log flags based on the contents of logstr.
// logDest, when non-empty, redirects all logging to the named file.
func Setup(logFlag bool, logstr, logDest string) error {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)
	if logDest != "" {
		f, err := os.Create(logDest)
		if err != nil {
			return err
		}
		logOut = f
	}
	if !logFlag {
		log.SetOutput(ioutil.Discard)
		if logstr != "" {
			return errLogstrWithoutLog
		}
		return nil
	}
	if logstr == "" {
		logstr = "stub"
	}
	for _, logcmd := range strings.Split(logstr, ",") {
		switch logcmd {
		case "gdbwire":
			gdbWire = true
		case "stub":
			stub = true
		case "emu":
			emu = true
		default:
			return fmt.Errorf("invalid log component %q", logcmd)
		}
	}
	return nil
}

// Close releases the log destination file, if one was opened by Setup.
func Close() {
	if logOut != nil {
		logOut.Close()
	}
}

var textFormatterInstance logrus.Formatter = &textFormatter{}

// textFormatter is a single-line formatter so wire logs stay greppable.
type textFormatter struct {
}

func (f *textFormatter) Format(entry *logrus.Entry) ([]byte, error) {
	var b *bytes.Buffer
	if entry.Buffer != nil {
		b = entry.Buffer
	} else {
		b = &bytes.Buffer{}
	}
	b.WriteString(entry.Time.Format("2006-01-02T15:04:05-07:00"))
	fmt.Fprintf(b, " %s ", entry.Level.String())
	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(b, "%s=%v ", k, entry.Data[k])
	}
	b.WriteString(entry.Message)
	b.WriteByte('\n')
	return b.Bytes(), nil
}
