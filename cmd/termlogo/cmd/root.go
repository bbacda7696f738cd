/*
Copyright © 2025 blacktop

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/
package cmd

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/apex/log"
	clihander "github.com/apex/log/handlers/cli"
	"github.com/blacktop/go-termlogo"
	"github.com/blacktop/go-termlogo/pkg/codec"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

type flags struct {
	config       string
	verbose      bool
	detect       bool
	width        uint32
	paddingLeft  uint32
	paddingRight uint32
	protocol     string
	codecs       []string
	noCompress   bool
	fallback     string
}

func init() {
	log.SetHandler(clihander.Default)
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	f := &flags{}

	cmd := &cobra.Command{
		Use:   "termlogo [image]",
		Short: "Draw a logo inline in your terminal",
		Args:  cobra.MaximumNArgs(1),
		// Execute logs the error itself
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if f.verbose {
				log.SetLevel(log.DebugLevel)
			}

			cfg, err := LoadConfig(f.config)
			if err != nil {
				return err
			}
			f.apply(cmd.Flags(), cfg)
			if len(args) > 0 {
				cfg.Source = args[0]
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			r := termlogo.NewRenderer()
			r.QueryTimeout = cfg.QueryTimeout
			r.Compression = cfg.Compression()

			if f.detect {
				return detect(cmd.OutOrStdout(), r)
			}
			if cfg.Source == "" {
				return errors.New("no image given: pass a path or set source in the config file")
			}
			return run(cmd.OutOrStdout(), r, cfg)
		},
	}

	cmd.Flags().StringVar(&f.config, "config", "", "Config file (default $XDG_CONFIG_HOME/termlogo/config.toml)")
	cmd.Flags().BoolVarP(&f.verbose, "verbose", "V", false, "Enable verbose logging")
	cmd.Flags().BoolVar(&f.detect, "detect", false, "Print the detected protocol and terminal geometry")
	cmd.Flags().Uint32VarP(&f.width, "width", "w", 40, "Image width in terminal columns")
	cmd.Flags().Uint32Var(&f.paddingLeft, "padding-left", 0, "Blank columns left of the image")
	cmd.Flags().Uint32Var(&f.paddingRight, "padding-right", 0, "Blank columns right of the image")
	cmd.Flags().StringVarP(&f.protocol, "protocol", "p", "auto", "Graphics protocol: auto, kitty or sixel")
	cmd.Flags().StringSliceVar(&f.codecs, "codec", nil, "Codec backends to try in order: magick7, magick6, builtin")
	cmd.Flags().BoolVar(&f.noCompress, "no-compress", false, "Send uncompressed pixel data")
	cmd.Flags().StringVar(&f.fallback, "fallback", "", "What to draw when no backend works: none or blocks")

	return cmd
}

// apply overrides cfg with every flag set on the command line
func (f *flags) apply(fs *pflag.FlagSet, cfg *Config) {
	if fs.Changed("width") {
		cfg.Width = f.width
	}
	if fs.Changed("padding-left") {
		cfg.Padding.Left = f.paddingLeft
	}
	if fs.Changed("padding-right") {
		cfg.Padding.Right = f.paddingRight
	}
	if fs.Changed("protocol") {
		cfg.Protocol = f.protocol
	}
	if fs.Changed("codec") {
		cfg.Codecs = f.codecs
	}
	if fs.Changed("no-compress") {
		enabled := !f.noCompress
		cfg.Compress = &enabled
	}
	if fs.Changed("fallback") {
		cfg.Fallback = f.fallback
	}
}

func run(w io.Writer, r *termlogo.Renderer, cfg *Config) error {
	protocol, err := termlogo.ParseProtocol(cfg.Protocol)
	if err != nil {
		return err
	}
	loaders, err := cfg.Loaders()
	if err != nil {
		return err
	}
	return render(w, r, cfg, protocol, loaders)
}

// render draws cfg.Source with the first available loader. When no backend
// or protocol is usable it falls back to half blocks if configured to.
func render(w io.Writer, r *termlogo.Renderer, cfg *Config, protocol termlogo.Protocol, loaders []codec.Loader) error {
	r.Out = w
	opts := termlogo.Options{
		Source:   cfg.Source,
		Width:    cfg.Width,
		Padding:  termlogo.Padding{Left: cfg.Padding.Left, Right: cfg.Padding.Right},
		Protocol: protocol,
	}

	layout, err := r.RenderWithFallback(opts, loaders...)
	switch termlogo.ResultOf(err) {
	case termlogo.Success:
		return printInfo(w, cfg.Source, protocol, layout)
	case termlogo.InitError:
		if cfg.Fallback != FallbackBlocks {
			return err
		}
		log.WithError(err).Debug("no graphics backend, drawing half blocks")
		blocks, berr := termlogo.RenderBlocks(cfg.Source, int(cfg.Width))
		if berr != nil {
			return errors.Join(err, berr)
		}
		_, err = fmt.Fprintln(w, blocks)
		return err
	default:
		return err
	}
}

// printInfo writes a few lines about the image to the right of it and leaves
// the cursor below the image.
func printInfo(w io.Writer, source string, protocol termlogo.Protocol, layout *termlogo.Layout) error {
	lines := infoLines(source, protocol, layout)

	var sb strings.Builder
	for _, line := range lines {
		if layout.Columns > 0 {
			fmt.Fprintf(&sb, "\x1b[%dC", layout.Columns)
		}
		sb.WriteString(line)
		sb.WriteString("\n")
	}
	// the last image row is only partly covered by Rows
	for i := len(lines); i <= int(layout.Rows); i++ {
		sb.WriteString("\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func infoLines(source string, protocol termlogo.Protocol, layout *termlogo.Layout) []string {
	lines := []string{
		filepath.Base(source),
		fmt.Sprintf("%dx%d px, %d rows", layout.PixelWidth, layout.PixelHeight, layout.Rows),
	}
	if fi, err := os.Stat(source); err == nil {
		lines = append(lines, humanize.Bytes(uint64(fi.Size())))
	}
	transport := protocol.String()
	if layout.Compressed {
		transport += " (zlib)"
	}
	return append(lines, transport, "codec: "+layout.Codec)
}

func detect(w io.Writer, r *termlogo.Renderer) error {
	fmt.Fprintf(w, "protocol: %s\n", termlogo.DetectProtocol())
	fmt.Fprintf(w, "kitty:    %t\n", termlogo.KittySupported())
	fmt.Fprintf(w, "sixel:    %t\n", termlogo.SixelSupported())

	geo, err := termlogo.ProbeGeometry(r.Terminal, r.QueryTimeout)
	if err != nil {
		return err
	}
	cellW, cellH := geo.CellSize()
	fmt.Fprintf(w, "geometry: %s\n", geo)
	fmt.Fprintf(w, "cell:     %.1fx%.1f px\n", cellW, cellH)
	return nil
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Error(err.Error())
		os.Exit(1)
	}
}
