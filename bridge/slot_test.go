package bridge

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/launchdarkly/go-sdk-common/v3/ldvalue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/labfont/gpu-test-harness/gpu"
	"github.com/labfont/gpu-test-harness/gpu/gpufake"
)

func TestEmptySlot(t *testing.T) {
	s := NewSlot()
	d, ok := s.Device()
	assert.False(t, ok)
	assert.Nil(t, d)

	_, ok = s.Acquirers()
	assert.False(t, ok)
}

func TestSetDeviceReplacesValue(t *testing.T) {
	s := NewSlot()
	first, second := &gpufake.Device{Name: "first"}, &gpufake.Device{Name: "second"}

	s.SetDevice(first)
	d, ok := s.Device()
	require.True(t, ok)
	assert.Same(t, first, d)

	s.SetDevice(second)
	d, _ = s.Device()
	assert.Same(t, second, d)

	s.SetDevice(nil)
	_, ok = s.Device()
	assert.False(t, ok)
}

func TestConcurrentReadersSeeWholeValues(t *testing.T) {
	s := NewSlot()
	devices := []*gpufake.Device{{Name: "a"}, {Name: "b"}}
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				s.SetDevice(devices[(i+j)%2])
			}
		}(i)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if d, ok := s.Device(); ok {
					assert.Contains(t, []string{"a", "b"}, d.Label())
				}
			}
		}()
	}
	wg.Wait()
}

func TestPublishedAcquirersPopulateSlot(t *testing.T) {
	log := &gpufake.CallLog{}
	host := gpufake.NewWorkingHost(log)
	s := NewSlot()
	s.PublishAcquirers(host, gpu.AcquireOptions{PowerPreference: gpu.PowerPreferenceLowPower})

	a, ok := s.Acquirers()
	require.True(t, ok)

	adapter, err := a.AcquireAdapter(context.Background())
	require.NoError(t, err)
	_, populated := s.Device()
	assert.False(t, populated)

	device, err := a.AcquireDevice(context.Background(), adapter)
	require.NoError(t, err)
	stored, ok := s.Device()
	require.True(t, ok)
	assert.Same(t, device, stored)

	assert.Equal(t, []string{"RequestAdapter", "RequestDevice"}, log.Calls())
	assert.Equal(t, gpu.PowerPreferenceLowPower, host.AdapterRequests()[0].PowerPreference)
}

func TestPublishedAcquirersFailureLeavesSlotEmpty(t *testing.T) {
	host := gpufake.NewWorkingHost(nil)
	host.Adapter.DeviceErr = errors.New("lost")
	s := NewSlot()
	s.PublishAcquirers(host, gpu.AcquireOptions{})
	a, _ := s.Acquirers()

	adapter, err := a.AcquireAdapter(context.Background())
	require.NoError(t, err)
	_, err = a.AcquireDevice(context.Background(), adapter)
	assert.ErrorIs(t, err, gpu.ErrDeviceUnavailable)
	_, ok := s.Device()
	assert.False(t, ok)

	_, err = a.AcquireDevice(context.Background(), nil)
	assert.ErrorIs(t, err, gpu.ErrAdapterUnavailable)
}

type recordingReporter struct {
	lines []string
}

func (r *recordingReporter) ReportProgress(passed, total int, message ldvalue.OptionalString) {
	r.lines = append(r.lines, message.OrElse(""))
}

func (r *recordingReporter) LogMessage(text string, isError bool) {
	r.lines = append(r.lines, text)
}

func TestReporterDefaultsToNull(t *testing.T) {
	s := NewSlot()
	assert.NotPanics(t, func() {
		s.Reporter().LogMessage("dropped", false)
		s.Reporter().ReportProgress(1, 2, ldvalue.NewOptionalString("x"))
	})

	r := &recordingReporter{}
	s.SetReporter(r)
	s.Reporter().LogMessage("kept", false)
	assert.Equal(t, []string{"kept"}, r.lines)
}
