package log

import (
	"errors"
	"runtime"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestFormatPlain(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Time:    time.Date(2019, 3, 4, 5, 6, 7, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "segment handle went away",
		Data: logrus.Fields{
			"segment": 2,
			"error":   errors.New("closed"),
		},
	}

	fmtr := &FancyLogFormatter{UseColors: false}
	out, err := fmtr.Format(entry)
	require.Nil(t, err)

	line := string(out)
	require.Contains(t, line, "04.03.2019/05:06:07 ⚠")
	require.Contains(t, line, "segment handle went away")
	require.Contains(t, line, "[error=closed segment=2]")
	require.Equal(t, byte('\n'), out[len(out)-1])
}

func TestParseLevel(t *testing.T) {
	lvl, err := ParseLevel("warn")
	require.Nil(t, err)
	require.Equal(t, logrus.WarnLevel, lvl)

	lvl, err = ParseLevel("DEBUG")
	require.Nil(t, err)
	require.Equal(t, logrus.DebugLevel, lvl)

	_, err = ParseLevel("chatty")
	require.NotNil(t, err)
}

func TestLog(t *testing.T) {
	// This test is only for messing with the log output.
	// It has no real (unit) testing value.
	t.Skip("This test is only to debug log formatting")

	logrus.SetLevel(logrus.DebugLevel)
	logrus.SetFormatter(&FancyLogFormatter{UseColors: true})

	logrus.WithFields(logrus.Fields{
		"segment": 0,
		"length":  8,
	}).Debug("measured segment")

	logrus.WithField("handle", "catio://1").Info("opened composite stream")
	logrus.WithError(errors.New("bad fd")).Warn("read degraded to empty result")
	logrus.Error("Stuff!")
}

func TestFormatCaller(t *testing.T) {
	entry := &logrus.Entry{
		Logger:  logrus.New(),
		Level:   logrus.InfoLevel,
		Message: "hello",
		Caller: &runtime.Frame{
			File: "/home/user/go/src/github.com/sahib/catio/mio/composite/composite.go",
			Line: 42,
		},
	}

	out, err := (&FancyLogFormatter{}).Format(entry)
	require.Nil(t, err)
	require.Contains(t, string(out), " mio/composite/composite.go:42: hello")

	entry.Caller.File = "/usr/lib/go/src/io/io.go"
	out, err = (&FancyLogFormatter{}).Format(entry)
	require.Nil(t, err)
	require.Contains(t, string(out), " io.go:42: hello")
}
