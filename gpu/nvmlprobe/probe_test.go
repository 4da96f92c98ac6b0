package nvmlprobe

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/gpu/gpufake"
)

type fakeLibrary struct {
	count int
	err   error
}

func (f fakeLibrary) deviceCount() (int, error) { return f.count, f.err }

func TestAvailable(t *testing.T) {
	ok, err := (&Probe{lib: fakeLibrary{count: 2}}).Available()
	assert.True(t, ok)
	assert.NoError(t, err)

	ok, err = (&Probe{lib: fakeLibrary{count: 0}}).Available()
	assert.False(t, ok)
	assert.NoError(t, err)

	ok, err = (&Probe{lib: fakeLibrary{err: errors.New("no driver")}}).Available()
	assert.False(t, ok)
	assert.Error(t, err)
}

func TestFailedProbeMakesCapabilityProbeFalse(t *testing.T) {
	host := gpufake.NewWorkingHost(nil)
	assert.True(t, gpu.ProbeCapability(host, &Probe{lib: fakeLibrary{count: 1}}))
	assert.False(t, gpu.ProbeCapability(host, &Probe{lib: fakeLibrary{count: 0}}))
	assert.Equal(t, 0, len(host.AdapterRequests()))
}
