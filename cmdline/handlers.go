package cmdline

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"text/tabwriter"

	humanize "github.com/dustin/go-humanize"
	"github.com/fatih/color"
	"github.com/sahib/catio/mio"
	"github.com/sahib/catio/wrapper"
	"github.com/sahib/config"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

const readBufSize = 32 * 1024

// dumpStream writes everything from the current position of `h` to `w`,
// using the degraded read interface of the registry.
func dumpStream(w io.Writer, reg *wrapper.Registry, h wrapper.Handle) (int64, error) {
	written := int64(0)
	for {
		data, err := reg.Read(h, readBufSize)
		if err != nil {
			return written, err
		}

		if len(data) == 0 {
			eof, err := reg.EOF(h)
			if err != nil {
				return written, err
			}

			if eof {
				return written, nil
			}

			return written, fmt.Errorf("failed to read at offset %d", written)
		}

		n, err := w.Write(data)
		written += int64(n)
		if err != nil {
			return written, err
		}
	}
}

// seekTo moves `h` to the absolute `offset`. Offsets after the end are
// clamped to the end; seeking to where the stream already is succeeds.
func seekTo(reg *wrapper.Registry, h wrapper.Handle, offset int64) error {
	if offset < 0 {
		return fmt.Errorf("cannot seek to negative offset %d", offset)
	}

	if _, err := reg.Seek(h, offset, io.SeekStart); err != nil {
		return err
	}

	pos, err := reg.Tell(h)
	if err != nil {
		return err
	}

	if pos != offset {
		log.Debugf("offset %d clamped to %d", offset, pos)
	}

	return nil
}

func handleCat(ctx *cli.Context, reg *wrapper.Registry, h wrapper.Handle) error {
	offset, length := ctx.Int64("offset"), ctx.Int64("length")
	if err := seekTo(reg, h, offset); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("cat: %v", err)}
	}

	stream, err := reg.Stream(h)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("cat: %v", err)}
	}

	if length >= 0 {
		stream = mio.LimitStream(stream, offset+length)
	}

	if _, err := io.Copy(ctx.App.Writer, stream); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("cat: %v", err)}
	}

	return nil
}

func handleStat(ctx *cli.Context, reg *wrapper.Registry, h wrapper.Handle) error {
	info, err := reg.Stat(h)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("stat: %v", err)}
	}

	segments, err := reg.Segments(h)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("stat: %v", err)}
	}

	w := ctx.App.Writer
	fmt.Fprintf(
		w,
		"%s %s (%d bytes) in %d segments\n\n",
		color.GreenString("Size:"),
		humanize.Bytes(uint64(info.Size)),
		info.Size,
		len(segments),
	)

	tabW := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tabW, "IDX\tOFFSET\tLENGTH\tOWNED\tWRITABLE\tSPILLED\tSOURCE\t")

	args := ctx.Args()
	for _, seg := range segments {
		fmt.Fprintf(
			tabW,
			"%d\t%d\t%s\t%s\t%s\t%s\t%s\t\n",
			seg.Index,
			seg.Offset,
			humanize.Bytes(uint64(seg.Length)),
			yesify(seg.Owned),
			yesify(seg.Writable),
			yesify(seg.Spilled),
			args.Get(seg.Index),
		)
	}

	return tabW.Flush()
}

func handlePatch(ctx *cli.Context, reg *wrapper.Registry, h wrapper.Handle) error {
	data := []byte(ctx.String("data"))
	if len(data) == 0 {
		return ExitCode{BadArgs, "patch: --data may not be empty"}
	}

	if err := seekTo(reg, h, ctx.Int64("offset")); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("patch: %v", err)}
	}

	n, err := reg.Write(h, data)
	if err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("patch: %v", err)}
	}

	if n != len(data) {
		return ExitCode{
			UnknownError,
			fmt.Sprintf("patch: write rejected (%d of %d bytes written)", n, len(data)),
		}
	}

	log.Infof("patched %d bytes at offset %d", n, ctx.Int64("offset"))

	if !ctx.Bool("print") {
		return nil
	}

	if err := seekTo(reg, h, 0); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("patch: failed to rewind: %v", err)}
	}

	if _, err := dumpStream(ctx.App.Writer, reg, h); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("patch: %v", err)}
	}

	return nil
}

func printConfigDocEntry(w io.Writer, cfg *config.Config, key string) {
	entry := cfg.GetDefault(key)

	val := cfg.Uncast(key)
	if val == "" {
		val = color.YellowString("(empty)")
	}

	defaultMarker := ""
	if cfg.IsDefault(key) {
		defaultMarker = color.CyanString("(default)")
	}

	fmt.Fprintf(w, "%s: %v %s\n", color.GreenString(key), val, defaultMarker)

	defaultVal := fmt.Sprintf("%v", entry.Default)
	if defaultVal == "" {
		defaultVal = color.YellowString("(empty)")
	}

	fmt.Fprintf(w, "  Default:       %v\n", defaultVal)
	fmt.Fprintf(w, "  Documentation: %v\n", entry.Docs)
	fmt.Fprintf(w, "  Needs restart: %v\n", yesify(entry.NeedsRestart))
}

func checkConfigKey(cfg *config.Config, key string) error {
	if !cfg.IsValidKey(key) {
		return ExitCode{BadArgs, fmt.Sprintf("config: no such key: %s", key)}
	}

	return nil
}

func handleConfigList(ctx *cli.Context) error {
	cfg := configFromContext(ctx)
	for _, key := range cfg.Keys() {
		printConfigDocEntry(ctx.App.Writer, cfg, key)
	}

	return nil
}

func handleConfigDump(ctx *cli.Context) error {
	cfg := configFromContext(ctx)
	if err := cfg.Save(config.NewYamlEncoder(ctx.App.Writer)); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("config dump: %v", err)}
	}

	return nil
}

func handleConfigGet(ctx *cli.Context) error {
	cfg := configFromContext(ctx)
	key := ctx.Args().Get(0)
	if err := checkConfigKey(cfg, key); err != nil {
		return err
	}

	fmt.Fprintln(ctx.App.Writer, cfg.Uncast(key))
	return nil
}

func handleConfigDoc(ctx *cli.Context) error {
	cfg := configFromContext(ctx)
	key := ctx.Args().Get(0)
	if err := checkConfigKey(cfg, key); err != nil {
		return err
	}

	printConfigDocEntry(ctx.App.Writer, cfg, key)
	return nil
}

func handleConfigSet(ctx *cli.Context) error {
	cfg := configFromContext(ctx)
	key, rawVal := ctx.Args().Get(0), ctx.Args().Get(1)
	if err := checkConfigKey(cfg, key); err != nil {
		return err
	}

	val, err := cfg.Cast(key, rawVal)
	if err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	if err := cfg.Set(key, val); err != nil {
		return ExitCode{BadArgs, fmt.Sprintf("config set: %v", err)}
	}

	if err := saveConfig(cfg, configPathFromContext(ctx)); err != nil {
		return ExitCode{UnknownError, fmt.Sprintf("config set: %v", err)}
	}

	if cfg.GetDefault(key).NeedsRestart {
		fmt.Fprintln(ctx.App.Writer, "NOTE: This option only affects newly opened streams.")
	}

	return nil
}

func saveConfig(cfg *config.Config, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}

	fd, err := os.OpenFile(path, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}

	if err := cfg.Save(config.NewYamlEncoder(fd)); err != nil {
		fd.Close()
		return err
	}

	return fd.Close()
}
