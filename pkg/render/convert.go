package render

import (
	"bytes"
	"context"
	"os/exec"
	"strconv"
	"strings"

	"github.com/matzehuels/stackresolve/pkg/errors"
)

// DefaultBinary is the librsvg command-line converter.
const DefaultBinary = "rsvg-convert"

const installHint = "install librsvg (macOS: brew install librsvg, Debian/Ubuntu: apt install librsvg2-bin)"

// Converter converts SVG documents by piping them through rsvg-convert.
// The zero value uses [DefaultBinary] from PATH.
type Converter struct {
	Binary string
}

// Available reports whether the converter binary can be found.
func (c Converter) Available() bool {
	_, err := exec.LookPath(c.binary())
	return err == nil
}

// PDF converts svg to a PDF document.
func (c Converter) PDF(ctx context.Context, svg []byte) ([]byte, error) {
	return c.run(ctx, svg, "pdf")
}

// PNG converts svg to a PNG image enlarged by scale (2 for high-DPI screens).
func (c Converter) PNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	if scale <= 0 {
		scale = 1
	}
	return c.run(ctx, svg, "png", "--zoom", strconv.FormatFloat(scale, 'f', 2, 64))
}

func (c Converter) binary() string {
	if c.Binary != "" {
		return c.Binary
	}
	return DefaultBinary
}

func (c Converter) run(ctx context.Context, svg []byte, format string, args ...string) ([]byte, error) {
	bin, err := exec.LookPath(c.binary())
	if err != nil {
		return nil, errors.New(errors.ErrCodeUnsupported, "%s output needs %s: %s", format, c.binary(), installHint)
	}

	cmd := exec.CommandContext(ctx, bin, append([]string{"--format", format}, args...)...)
	cmd.Stdin = bytes.NewReader(svg)
	var stdout, stderr bytes.Buffer
	cmd.Stdout, cmd.Stderr = &stdout, &stderr

	if err := cmd.Run(); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errors.Wrap(errors.ErrCodeInternal, err, "%s: %s", c.binary(), strings.TrimSpace(stderr.String()))
	}
	return stdout.Bytes(), nil
}

// ToPDF converts svg with the default converter.
func ToPDF(ctx context.Context, svg []byte) ([]byte, error) {
	return Converter{}.PDF(ctx, svg)
}

// ToPNG converts svg with the default converter.
func ToPNG(ctx context.Context, svg []byte, scale float64) ([]byte, error) {
	return Converter{}.PNG(ctx, svg, scale)
}
