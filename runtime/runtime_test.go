package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iree-org/fusilli-go/dtype"
)

func TestBackendLookupTables(t *testing.T) {
	driver, err := CPU.HALDriver()
	require.NoError(t, err)
	assert.Equal(t, "local-task", driver)

	flags, err := GFX942.CompileFlags()
	require.NoError(t, err)
	assert.Contains(t, flags, "--iree-hip-target=gfx942")

	_, err = Backend(99).HALDriver()
	assert.Error(t, err)
}

func TestElementTypeTrait(t *testing.T) {
	tr, err := ElementTypeTrait(dtype.Float)
	require.NoError(t, err)
	assert.NotEqual(t, HALElementType(0), tr)

	_, err = ElementTypeTrait(dtype.NotSet)
	assert.Error(t, err)
}

func TestHandleLifecycleSharesInstance(t *testing.T) {
	h1, err := CreateHandle(CPU)
	require.NoError(t, err)
	h2, err := CreateHandle(CPU)
	require.NoError(t, err)

	assert.Same(t, h1.instance, h2.instance)
	assert.Equal(t, 2, h1.instance.refs)

	require.NoError(t, h1.Release())
	assert.Equal(t, 1, h2.instance.refs)
	require.NoError(t, h2.Release())
	assert.Equal(t, 0, h2.instance.refs)
}

func TestHandleDoubleReleaseIsNoop(t *testing.T) {
	h, err := CreateHandle(CPU)
	require.NoError(t, err)
	require.NoError(t, h.Release())
	require.NoError(t, h.Release())
}

func TestBufferAllocateAndTransferToHost(t *testing.T) {
	h, err := CreateHandle(CPU)
	require.NoError(t, err)
	defer h.Release()

	payload := []byte{1, 2, 3, 4}
	buf, err := h.AllocateBuffer([]int64{1, 4}, dtype.Float, payload)
	require.NoError(t, err)

	got, err := buf.ToHost()
	require.NoError(t, err)
	assert.Equal(t, payload, got)
	require.NoError(t, buf.Release())
}

func TestSessionExecutePushInvokePop(t *testing.T) {
	h, err := CreateHandle(CPU)
	require.NoError(t, err)
	defer h.Release()

	sess, err := CreateSession(h, []byte("fake-module-bytes"), "main")
	require.NoError(t, err)
	defer sess.Release()

	in, err := h.AllocateBuffer([]int64{2}, dtype.Float, []byte{9, 9})
	require.NoError(t, err)

	pack := VariantPack{"x": in}
	require.NoError(t, sess.Execute(pack, []string{"x"}, []string{"y"}))

	out, ok := pack["y"]
	require.True(t, ok)
	data, err := out.ToHost()
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, data)
}

func TestSessionExecuteMissingInputErrors(t *testing.T) {
	h, err := CreateHandle(CPU)
	require.NoError(t, err)
	defer h.Release()

	sess, err := CreateSession(h, []byte("module"), "main")
	require.NoError(t, err)
	defer sess.Release()

	err = sess.Execute(VariantPack{}, []string{"missing"}, []string{"y"})
	assert.Error(t, err)
}
