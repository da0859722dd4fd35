package cmdline

import (
	"io"
	"os"

	isatty "github.com/mattn/go-isatty"
	colorlog "github.com/sahib/catio/util/log"
	"github.com/sahib/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

func init() {
	log.SetOutput(os.Stderr)
	log.SetLevel(log.WarnLevel)
	log.SetFormatter(&colorlog.FancyLogFormatter{})
}

func openLogOutput(path string) (io.Writer, bool, error) {
	switch path {
	case "stdout":
		return os.Stdout, isatty.IsTerminal(os.Stdout.Fd()), nil
	case "stderr", "":
		return os.Stderr, isatty.IsTerminal(os.Stderr.Fd()), nil
	default:
		fd, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
		if err != nil {
			return nil, false, err
		}

		return fd, false, nil
	}
}

// setupLogging configures the global logger from the config
// and the global command line flags, which take precedence.
func setupLogging(ctx *cli.Context, cfg *config.Config) error {
	out, isTerminal, err := openLogOutput(ctx.GlobalString("log-path"))
	if err != nil {
		return err
	}

	levelName := cfg.String("log.level")
	if ctx.GlobalIsSet("log-level") {
		levelName = ctx.GlobalString("log-level")
	}

	level, err := colorlog.ParseLevel(levelName)
	if err != nil {
		return err
	}

	log.SetOutput(out)
	log.SetLevel(level)
	log.SetReportCaller(level == log.DebugLevel)
	log.SetFormatter(&colorlog.FancyLogFormatter{
		UseColors: isTerminal && cfg.Bool("log.colors"),
	})

	return nil
}
