/*
Package termlogo draws an image inline in a terminal emulator, scaled to an
exact number of character columns while keeping its aspect ratio.

Two graphics protocols are supported: the Kitty graphics protocol, which
carries raw RGBA pixels as base64 in chunked escape sequences (optionally zlib
compressed), and Sixel, which the image codec writes straight to the terminal.

The terminal size in cells and pixels is read from the operating system
(TIOCGWINSZ); fields the terminal leaves empty are queried with CSI 18 t and
CSI 14 t. The image codec is resolved at render time: a system ImageMagick
(MagickWand 7 or 6) loaded without cgo, or a pure Go fallback.

Basic Usage:

	r := termlogo.NewRenderer()
	layout, err := r.RenderWithFallback(termlogo.Options{
	    Source:   "logo.png",
	    Width:    40,
	    Padding:  termlogo.Padding{Left: 2, Right: 2},
	    Protocol: termlogo.DetectProtocol(),
	}, magick.Magick7, magick.Magick6, builtin.Loader)
	if err != nil {
	    log.Fatal(err)
	}

After a successful render the cursor is back at the start of the line the
image started on. Layout.Columns and Layout.Rows tell the caller where text
can be placed beside the image.

Errors wrap either ErrInit (the codec backend is unavailable, try another one)
or ErrRun (this render failed). ResultOf maps an error to a Result.
*/
package termlogo
