package chromium_test

import (
	"bytes"
	"context"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/neomorfeo/reportcycle/internal/adapter/chromium"
)

// newRasterizer starts a browser or skips when none is installed.
func newRasterizer(t *testing.T) *chromium.Rasterizer {
	t.Helper()

	execPath := os.Getenv("CHROMIUM_PATH")
	if execPath == "" {
		for _, name := range []string{"chromium", "chromium-browser", "google-chrome", "headless-shell"} {
			if p, err := exec.LookPath(name); err == nil {
				execPath = p
				break
			}
		}
	}
	if execPath == "" {
		t.Skip("no Chrome or Chromium installed")
	}

	r, err := chromium.New(chromium.Options{ExecPath: execPath, NoSandbox: os.Geteuid() == 0})
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func TestRasterize_ProducesPDF(t *testing.T) {
	r := newRasterizer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pdf, err := r.Rasterize(ctx, []byte(`<!DOCTYPE html><html><body style="background:#1d2733"><h1>Zeitnachweis</h1></body></html>`))
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(pdf, []byte("%PDF-")), "output is not a PDF")
}

var mediaBox = regexp.MustCompile(`/MediaBox\s*\[\s*0 0 ([0-9.]+) ([0-9.]+)\s*\]`)

func TestRasterize_IgnoresTemplatePageSize(t *testing.T) {
	r := newRasterizer(t)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pdf, err := r.Rasterize(ctx, []byte(`<!DOCTYPE html><html><head><style>@page { size: A3 landscape; }</style></head><body><p>statement</p></body></html>`))
	require.NoError(t, err)

	m := mediaBox.FindSubmatch(pdf)
	require.NotNil(t, m, "no MediaBox in output")
	width, err := strconv.ParseFloat(string(m[1]), 64)
	require.NoError(t, err)
	height, err := strconv.ParseFloat(string(m[2]), 64)
	require.NoError(t, err)

	// A4 in points.
	assert.InDelta(t, 595.4, width, 2)
	assert.InDelta(t, 841.7, height, 2)
}

func TestRasterize_ReusesBrowser(t *testing.T) {
	r := newRasterizer(t)

	for range 2 {
		pdf, err := r.Rasterize(context.Background(), []byte(`<p>statement</p>`))
		require.NoError(t, err)
		assert.NotEmpty(t, pdf)
	}
}

func TestRasterize_CancelledContext(t *testing.T) {
	r := newRasterizer(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.Rasterize(ctx, []byte(`<p>never printed</p>`))
	assert.ErrorIs(t, err, context.Canceled)
}
