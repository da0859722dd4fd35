package cmdline

import (
	"fmt"
	"io"
	"os"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	"github.com/sahib/catio/defaults"
	"github.com/sahib/catio/version"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const defaultConfigPath = "~/.config/catio.yml"

func formatGroup(category string) string {
	return strings.ToUpper(category) + " COMMANDS"
}

func configPathFromContext(ctx *cli.Context) string {
	path, ok := ctx.App.Metadata["config-path"].(string)
	if !ok {
		return ""
	}

	return path
}

func loadConfig(ctx *cli.Context) error {
	path, err := homedir.Expand(ctx.GlobalString("config"))
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config path: %v", err)}
	}

	cfg, err := defaults.OpenMigratedConfig(path)
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config: %v", err)}
	}

	ctx.App.Metadata["config"] = cfg
	ctx.App.Metadata["config-path"] = path

	if err := setupLogging(ctx, cfg); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("log: %v", err)}
	}

	return nil
}

func newApp(out io.Writer) *cli.App {
	app := cli.NewApp()
	app.Name = "catio"
	app.Usage = "Read, write and seek a list of files and strings as one stream"
	app.Version = version.String()
	app.Writer = out
	app.Metadata = make(map[string]interface{})
	app.CommandNotFound = commandNotFound

	streamGroup := formatGroup("stream")
	miscGroup := formatGroup("misc")

	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:   "config,c",
			Usage:  "Path of the config file",
			Value:  defaultConfigPath,
			EnvVar: "CATIO_CONFIG",
		},
		cli.StringFlag{
			Name:   "log-level,L",
			Usage:  "One of debug, info, warning, error (overrides log.level)",
			Value:  "warning",
			EnvVar: "CATIO_LOG_LEVEL",
		},
		cli.StringFlag{
			Name:   "log-path,l",
			Usage:  "Where to output the log. May be 'stderr' (default), 'stdout' or a file",
			Value:  "stderr",
			EnvVar: "CATIO_LOG",
		},
	}

	app.Commands = []cli.Command{
		{
			Name:      "cat",
			Category:  streamGroup,
			Usage:     "Print the concatenation of all sources",
			ArgsUsage: "<source> [<source>...]",
			Description: `Each source is either a path to a file or »str:<text>«,
   which uses <text> itself as data.`,
			Action: withArgCheck(needAtLeast(1), withStream(false, handleCat)),
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:  "offset,o",
					Usage: "Start at this byte offset",
				},
				cli.Int64Flag{
					Name:  "length,n",
					Usage: "Print at most this many bytes; negative means everything",
					Value: -1,
				},
			},
		}, {
			Name:        "stat",
			Category:    streamGroup,
			Usage:       "Show the size and the segments of the combined sources",
			ArgsUsage:   "<source> [<source>...]",
			Description: "Sources are given like for »cat«.",
			Action:      withArgCheck(needAtLeast(1), withStream(false, handleStat)),
		}, {
			Name:      "patch",
			Category:  streamGroup,
			Usage:     "Write data at an offset of the combined sources",
			ArgsUsage: "<source> [<source>...]",
			Description: `Files are opened for writing and modified in place.
   The data goes into the source at --offset only: if it is longer than the
   rest of that source, the source grows instead of overwriting the next one.`,
			Action: withArgCheck(needAtLeast(1), withStream(true, handlePatch)),
			Flags: []cli.Flag{
				cli.Int64Flag{
					Name:  "offset,o",
					Usage: "Byte offset to write at",
				},
				cli.StringFlag{
					Name:  "data,d",
					Usage: "Data to write",
				},
				cli.BoolFlag{
					Name:  "print,p",
					Usage: "Print the whole stream after patching",
				},
			},
		}, {
			Name:     "config",
			Category: miscGroup,
			Usage:    "Show or modify the configuration",
			Subcommands: []cli.Command{
				{
					Name:   "dump",
					Usage:  "Print the effective config as YAML",
					Action: handleConfigDump,
				}, {
					Name:   "list",
					Usage:  "Show all keys with their values and docs",
					Action: handleConfigList,
				}, {
					Name:      "get",
					Usage:     "Print the value of a key",
					ArgsUsage: "<key>",
					Action:    withArgCheck(needAtLeast(1), handleConfigGet),
				}, {
					Name:      "set",
					Usage:     "Set a key and save the config",
					ArgsUsage: "<key> <value>",
					Action:    withArgCheck(needAtLeast(2), handleConfigSet),
				}, {
					Name:      "doc",
					Usage:     "Show the documentation of a key",
					ArgsUsage: "<key>",
					Action:    withArgCheck(needAtLeast(1), handleConfigDoc),
				},
			},
		},
	}

	app.Before = loadConfig
	return app
}

func exitCodeFromError(err error) int {
	if err == nil {
		return Success
	}

	if exitErr, ok := err.(ExitCode); ok {
		if exitErr.Message != "" {
			log.Error(exitErr.Message)
		}

		return exitErr.Code
	}

	log.Error(err)
	return UnknownError
}

// RunCmdline starts a catio commandline tool and returns its exit code.
func RunCmdline(args []string) int {
	return exitCodeFromError(newApp(os.Stdout).Run(args))
}
