package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/blacktop/go-termlogo/pkg/codec/builtin"
	"github.com/blacktop/go-termlogo/pkg/codec/magick"
	"github.com/blacktop/go-termlogo/pkg/compress"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

const appName = "termlogo"

// Fallback modes used when no codec backend or protocol is available
const (
	FallbackNone   = "none"
	FallbackBlocks = "blocks"
)

// Config is the on-disk configuration, $XDG_CONFIG_HOME/termlogo/config.toml
type Config struct {
	Source       string        `koanf:"source"`
	Width        uint32        `koanf:"width"`
	Padding      PaddingConfig `koanf:"padding"`
	Protocol     string        `koanf:"protocol"`   // "auto", "kitty" or "sixel"
	Codecs       []string      `koanf:"codecs"`     // tried in order
	Compress     *bool         `koanf:"compress"`   // default: true
	Compressor   string        `koanf:"compressor"` // "libz" or "zlib"
	QueryTimeout time.Duration `koanf:"query_timeout"`
	Fallback     string        `koanf:"fallback"` // "none" or "blocks"

	// Shared objects tried before the default names
	LibZ           string `koanf:"lib_z"`
	LibImageMagick string `koanf:"lib_imagemagick"`
}

// PaddingConfig is the number of blank cells around the image
type PaddingConfig struct {
	Left  uint32 `koanf:"left"`
	Right uint32 `koanf:"right"`
}

// DefaultCodecs is the backend order when none is configured
var DefaultCodecs = []string{magick.Name7, magick.Name6, builtin.Name}

// LoadConfig reads the config file at path. An empty path looks the file up in
// the XDG config directories; a missing file there is not an error.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	if path == "" {
		found, err := xdg.SearchConfigFile(filepath.Join(appName, "config.toml"))
		if err == nil {
			path = found
		}
	} else if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("config file %s does not exist", path)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), toml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config %s: %w", path, err)
		}
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Width == 0 {
		c.Width = 40
	}
	if c.Protocol == "" {
		c.Protocol = "auto"
	}
	if len(c.Codecs) == 0 {
		c.Codecs = slices.Clone(DefaultCodecs)
	}
	if c.Compress == nil {
		enabled := true
		c.Compress = &enabled
	}
	if c.Compressor == "" {
		c.Compressor = "libz"
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = 100 * time.Millisecond
	}
	if c.Fallback == "" {
		c.Fallback = FallbackBlocks
	}
	c.Source = expandPath(c.Source)
	c.LibZ = expandPath(c.LibZ)
	c.LibImageMagick = expandPath(c.LibImageMagick)
}

// Validate checks the enumerated settings
func (c *Config) Validate() error {
	if _, err := c.Loaders(); err != nil {
		return err
	}
	switch c.Fallback {
	case FallbackNone, FallbackBlocks:
	default:
		return fmt.Errorf("unknown fallback %q (want %s or %s)", c.Fallback, FallbackNone, FallbackBlocks)
	}
	switch c.Compressor {
	case "libz", "zlib":
	default:
		return fmt.Errorf("unknown compressor %q (want libz or zlib)", c.Compressor)
	}
	return nil
}

// Compression returns the compression capability the config asks for
func (c *Config) Compression() compress.Capability {
	if c.Compress != nil && !*c.Compress {
		return compress.Absent()
	}
	if c.Compressor == "zlib" {
		return compress.Zlib()
	}
	return compress.LoadLibZ(optional(c.LibZ)...)
}

// Loaders returns the configured codec backends in order
func (c *Config) Loaders() ([]codec.Loader, error) {
	return Loaders(c.Codecs, optional(c.LibImageMagick)...)
}

// Loaders maps backend names to codec loaders, keeping their order.
// magickPaths are tried before the default MagickWand library names.
func Loaders(names []string, magickPaths ...string) ([]codec.Loader, error) {
	loaders := make([]codec.Loader, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case magick.Name7:
			loaders = append(loaders, magick.NewMagick7(magickPaths...))
		case magick.Name6:
			loaders = append(loaders, magick.NewMagick6(magickPaths...))
		case builtin.Name:
			loaders = append(loaders, builtin.Loader)
		default:
			return nil, fmt.Errorf("unknown codec %q (want %s)", name, strings.Join(DefaultCodecs, ", "))
		}
	}
	if len(loaders) == 0 {
		return nil, errors.New("no codecs configured")
	}
	return loaders, nil
}

func optional(path string) []string {
	if path == "" {
		return nil
	}
	return []string{path}
}

func expandPath(path string) string {
	if path != "" && path[0] == '~' {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[1:])
		}
	}
	return path
}
