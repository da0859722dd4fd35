package defaults

import (
	"os"

	humanize "github.com/dustin/go-humanize"
	e "github.com/pkg/errors"
	"github.com/sahib/catio/mio/composite"
	"github.com/sahib/config"
)

// CurrentVersion is the current version of catio's config
const CurrentVersion = 0

// Defaults is the default validation for catio
var Defaults = DefaultsV0

// OpenMigratedConfig takes the config.yml at path and loads it.
// If required, it also migrates the config structure to the newest
// version - catio can always rely on the latest config keys to be present.
// If there is no file at `path`, the defaults are used.
func OpenMigratedConfig(path string) (*config.Config, error) {
	mgr := config.NewMigrater(CurrentVersion, config.StrictnessPanic)
	mgr.Add(0, nil, DefaultsV0)

	if path == "" {
		return mgr.Migrate(nil)
	}

	fd, err := os.Open(path)
	if os.IsNotExist(err) {
		return mgr.Migrate(nil)
	}

	if err != nil {
		return nil, e.Wrap(err, "failed to open config")
	}

	defer fd.Close()

	cfg, err := mgr.Migrate(config.NewYamlDecoder(fd))
	if err != nil {
		return nil, e.Wrap(err, "failed to migrate")
	}

	return cfg, nil
}

// StreamOptions reads the options for composite streams out of `cfg`.
func StreamOptions(cfg *config.Config) (composite.Options, error) {
	threshold, err := humanize.ParseBytes(cfg.String("stream.spill_threshold"))
	if err != nil {
		return composite.Options{}, e.Wrap(err, "stream.spill_threshold")
	}

	return composite.Options{
		SpillThreshold:  int64(threshold),
		TempDir:         cfg.String("stream.temp_dir"),
		OverlayReadOnly: cfg.Bool("stream.overlay_readonly"),
	}, nil
}
