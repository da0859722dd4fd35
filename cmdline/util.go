package cmdline

import (
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/sahib/catio/defaults"
	"github.com/sahib/catio/mio/composite"
	"github.com/sahib/catio/wrapper"
	"github.com/sahib/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
	"go.uber.org/multierr"
)

// rawPrefix marks a source argument as literal data instead of a path.
const rawPrefix = "str:"

// ExitCode is an error that maps the error interface to a specific error
// message and a unix exit code
type ExitCode struct {
	Code    int
	Message string
}

func (err ExitCode) Error() string {
	return err.Message
}

func yesify(val bool) string {
	if val {
		return color.GreenString("yes")
	}

	return color.RedString("no")
}

type checkFunc func(ctx *cli.Context) int

func withArgCheck(checker checkFunc, handler cli.ActionFunc) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		if checker(ctx) != Success {
			return ExitCode{BadArgs, ""}
		}

		return handler(ctx)
	}
}

func needAtLeast(min int) checkFunc {
	return func(ctx *cli.Context) int {
		if ctx.NArg() < min {
			if min == 1 {
				log.Warningf("Need at least %d argument.", min)
			} else {
				log.Warningf("Need at least %d arguments.", min)
			}

			if err := cli.ShowCommandHelp(ctx, ctx.Command.Name); err != nil {
				log.Warningf("Failed to display --help: %v", err)
			}

			return BadArgs
		}

		return Success
	}
}

func configFromContext(ctx *cli.Context) *config.Config {
	cfg, ok := ctx.App.Metadata["config"].(*config.Config)
	if !ok {
		// Before() always sets it; only reachable from tests.
		panic("bug: no config loaded")
	}

	return cfg
}

// sourceSet is the list of sources given on the command line
// plus the files we opened for them.
type sourceSet struct {
	sources []composite.Source
	files   []*os.File
}

func (ss *sourceSet) Close() error {
	var err error
	for _, fd := range ss.files {
		err = multierr.Append(err, fd.Close())
	}

	return err
}

// openSources turns command line arguments into sources.
// Arguments prefixed with "str:" are raw data, everything else is a path.
func openSources(args []string, writable bool) (*sourceSet, error) {
	flags := os.O_RDONLY
	if writable {
		flags = os.O_RDWR
	}

	ss := &sourceSet{}
	for _, arg := range args {
		if strings.HasPrefix(arg, rawPrefix) {
			ss.sources = append(ss.sources, composite.FromString(arg[len(rawPrefix):]))
			continue
		}

		fd, err := os.OpenFile(arg, flags, 0)
		if err != nil {
			if closeErr := ss.Close(); closeErr != nil {
				log.WithError(closeErr).Warnf("failed to close sources")
			}

			return nil, err
		}

		ss.files = append(ss.files, fd)
		ss.sources = append(ss.sources, composite.FromStream(fd))
	}

	return ss, nil
}

type cmdHandlerWithStream func(ctx *cli.Context, reg *wrapper.Registry, h wrapper.Handle) error

// withStream opens all arguments as one composite stream
// and closes it again after `handler` is done.
func withStream(writable bool, handler cmdHandlerWithStream) cli.ActionFunc {
	return func(ctx *cli.Context) error {
		cfg := configFromContext(ctx)
		opts, err := defaults.StreamOptions(cfg)
		if err != nil {
			return ExitCode{BadArgs, fmt.Sprintf("config: %v", err)}
		}

		ss, err := openSources(ctx.Args(), writable)
		if err != nil {
			return ExitCode{BadArgs, fmt.Sprintf("open: %v", err)}
		}

		defer func() {
			if err := ss.Close(); err != nil {
				log.WithError(err).Warnf("failed to close sources")
			}
		}()

		reg := wrapper.NewRegistry(cfg.String("wrapper.scheme"), opts)
		h, err := reg.Open(ss.sources...)
		if err != nil {
			return ExitCode{UnknownError, fmt.Sprintf("open: %v", err)}
		}

		// Must happen before the files are closed:
		defer reg.CloseAll()

		log.WithField("handle", h).Debugf("opened %d sources", len(ss.sources))
		return handler(ctx, reg, h)
	}
}
