package download

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/apkfetch/types"
)

func TestProgressBar(t *testing.T) {
	require.Equal(t, "[..........]   0.0%", progressBar(0, 10))
	require.Equal(t, "[#####.....]  50.0%", progressBar(0.5, 10))
	require.Equal(t, "[##########] 100.0%", progressBar(1, 10))
	require.Equal(t, "[##########] 100.0%", progressBar(3, 10))
	require.Equal(t, "[..........]   0.0%", progressBar(-1, 10))
}

func TestRendererPlainOutput(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	r.show(types.Idle())
	r.show(types.Downloading(0.01))
	r.show(types.Downloading(0.05))
	r.show(types.Downloading(0.12))
	r.show(types.Succeeded("/tmp/app.apk"))

	require.Equal(t, "downloading   1.0%\ndownloading  12.0%\nsucceeded: /tmp/app.apk\n", buf.String())
}

func TestRendererQuiet(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, true)
	r.show(types.Downloading(0.5))
	r.show(types.Failed("boom"))
	require.Empty(t, buf.String())
}

func TestRendererLoopShowsFinal(t *testing.T) {
	var buf bytes.Buffer
	r := newRenderer(&buf, false)
	statuses := make(chan types.Status, 1)
	done := make(chan struct{})
	statuses <- types.Paused()
	close(statuses)
	close(done)

	r.loop(statuses, done, func() types.Status { return types.Failed("boom") })
	require.Contains(t, buf.String(), "failed: boom\n")
}
