package defaults

import (
	"fmt"

	humanize "github.com/dustin/go-humanize"
	"github.com/sahib/config"
)

func sizeValidator(val interface{}) error {
	s, ok := val.(string)
	if !ok {
		return fmt.Errorf("size is not a string: %v", val)
	}

	if _, err := humanize.ParseBytes(s); err != nil {
		return fmt.Errorf("not a valid size: %v", err)
	}

	return nil
}

// DefaultsV0 is the default config validation for catio
var DefaultsV0 = config.DefaultMapping{
	"stream": config.DefaultMapping{
		"spill_threshold": config.DefaultEntry{
			Default:      "0",
			NeedsRestart: false,
			Validator:    sizeValidator,
			Docs: `Raw byte sources bigger than this are stored in a temporary file.

  The value may use units like »4MB« or »1GiB«.
  A value of »0« keeps all sources in memory.
`,
		},
		"temp_dir": config.DefaultEntry{
			Default:      "",
			NeedsRestart: false,
			Docs:         "Where spilled sources are stored. Empty means the system's temp dir.",
		},
		"overlay_readonly": config.DefaultEntry{
			Default:      false,
			NeedsRestart: false,
			Docs:         "Allow writes to read-only files by keeping the changes in memory.",
		},
	},
	"wrapper": config.DefaultMapping{
		"scheme": config.DefaultEntry{
			Default:      "catio",
			NeedsRestart: true,
			Docs:         "Scheme used when printing stream handles (»scheme://id«).",
		},
	},
	"log": config.DefaultMapping{
		"level": config.DefaultEntry{
			Default:      "warning",
			NeedsRestart: false,
			Docs:         "Minimum level of log messages that are printed.",
			Validator: config.EnumValidator(
				"debug", "info", "warning", "error", "fatal",
			),
		},
		"colors": config.DefaultEntry{
			Default:      true,
			NeedsRestart: false,
			Docs:         "Color log output if the output is a terminal.",
		},
	},
}
