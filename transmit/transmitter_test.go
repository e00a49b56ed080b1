package transmit

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/gr-butler/joystick/joystick"
	"github.com/gr-butler/joystick/link"
	"github.com/gr-butler/joystick/metrics"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var peer = link.Addr{0x7C, 0xDF, 0xA1, 0x12, 0x34, 0x56}

type fakeSampler struct {
	mu     sync.Mutex
	values map[int][]int
	err    error
	reads  int
}

func (f *fakeSampler) Read(channel int) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reads++
	if f.err != nil {
		return 0, f.err
	}
	vs := f.values[channel]
	v := vs[0]
	if len(vs) > 1 {
		f.values[channel] = vs[1:]
	}
	return v, nil
}

func steady(x, y int) *fakeSampler {
	return &fakeSampler{values: map[int][]int{0: {x}, 1: {y}}}
}

type fakeButton struct {
	v   int
	err error
}

func (f *fakeButton) Read() (int, error) { return f.v, f.err }

type fakeLink struct {
	mu          sync.Mutex
	registers   int
	registerErr error
	sendErr     error
	sent        [][]byte
}

func (f *fakeLink) RegisterPeer(addr link.Addr) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.registers++
	return f.registerErr
}

func (f *fakeLink) Send(addr link.Addr, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.sendErr != nil {
		return f.sendErr
	}
	f.sent = append(f.sent, payload)
	return nil
}

func (f *fakeLink) Poll() (link.Packet, bool, error) { return link.Packet{}, false, nil }

func (f *fakeLink) counts() (registers, sent int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.registers, len(f.sent)
}

type countingIndicator struct{ n int }

func (c *countingIndicator) Blink() { c.n++ }

func testConfig() Config {
	return Config{
		Peer:     peer,
		RateHz:   50,
		Alpha:    0.25,
		XChannel: 0,
		YChannel: 1,
		CalX:     joystick.DefaultCalibration,
		CalY:     joystick.DefaultCalibration,
	}
}

func TestTickSendsCenteredFrame(t *testing.T) {
	l := &fakeLink{}
	tx := New(testConfig(), steady(2000, 2000), nil, l, clockwork.NewFakeClock())

	require.NoError(t, tx.Tick())
	require.Len(t, l.sent, 1)
	assert.Equal(t, []byte{128, 128, 1}, l.sent[0])
}

func TestTickButtonAndExtremes(t *testing.T) {
	l := &fakeLink{}
	tx := New(testConfig(), steady(300, 3800), &fakeButton{v: 0}, l, clockwork.NewFakeClock())

	require.NoError(t, tx.Tick())
	assert.Equal(t, []byte{0, 255, 0}, l.sent[0])
}

func TestTickSmoothsTowardsInput(t *testing.T) {
	l := &fakeLink{}
	s := &fakeSampler{values: map[int][]int{0: {2000, 3800}, 1: {2000}}}
	tx := New(testConfig(), s, nil, l, clockwork.NewFakeClock())

	// first read seeds at 2000, the tick itself reads 3800
	require.NoError(t, tx.Tick())
	want := joystick.MapToByte(joystick.Smooth(2000, 3800, 0.25), joystick.DefaultCalibration)
	assert.Equal(t, byte(want), l.sent[0][0])
	assert.Greater(t, l.sent[0][0], byte(128))
	assert.Less(t, l.sent[0][0], byte(255))

	for i := 0; i < 60; i++ {
		require.NoError(t, tx.Tick())
	}
	// rounding can park the EMA one count short of the input
	assert.InDelta(t, 255, int(l.sent[len(l.sent)-1][0]), 1)
}

func TestTickSendFailureRegistersOnce(t *testing.T) {
	l := &fakeLink{sendErr: &link.Error{Op: "send", Peer: peer, Err: link.ErrPeerNotRegistered}}
	ind := &countingIndicator{}
	tx := New(testConfig(), steady(2000, 2000), nil, l, clockwork.NewFakeClock())
	tx.Indicator = ind
	failures := testutil.ToFloat64(metrics.Prom_sendFailures)

	require.NoError(t, tx.Tick())
	registers, _ := l.counts()
	assert.Equal(t, 1, registers)
	assert.Equal(t, 1, ind.n)
	assert.NotEqual(t, StateHalted, tx.State())
	assert.Equal(t, failures+1, testutil.ToFloat64(metrics.Prom_sendFailures))

	l.registerErr = errors.New("still no")
	require.NoError(t, tx.Tick())
	registers, _ = l.counts()
	assert.Equal(t, 2, registers)

	l.sendErr = nil
	require.NoError(t, tx.Tick())
	registers, sent := l.counts()
	assert.Equal(t, 2, registers)
	assert.Equal(t, 1, sent)
}

func TestTickHardwareFaultHalts(t *testing.T) {
	boom := errors.New("adc gone")
	tests := []struct {
		name    string
		sampler *fakeSampler
		button  DigitalInput
		source  string
	}{
		{"axis", &fakeSampler{err: boom}, nil, "x axis"},
		{"button", steady(2000, 2000), &fakeButton{err: boom}, "button"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := &fakeLink{}
			tx := New(testConfig(), tt.sampler, tt.button, l, clockwork.NewFakeClock())

			err := tx.Tick()
			var hwErr *HardwareError
			require.ErrorAs(t, err, &hwErr)
			assert.Equal(t, tt.source, hwErr.Source)
			require.ErrorIs(t, err, boom)
			assert.Equal(t, StateHalted, tx.State())
			assert.Empty(t, l.sent)

			require.ErrorIs(t, tx.Tick(), ErrHalted)
			assert.Empty(t, l.sent)
		})
	}
}

func TestRunTicksUntilCancelled(t *testing.T) {
	clk := clockwork.NewFakeClock()
	l := &fakeLink{registerErr: errors.New("already exists")}
	tx := New(testConfig(), steady(2000, 2000), nil, l, clk)
	assert.Equal(t, StateInit, tx.State())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- tx.Run(ctx) }()

	for i := 1; i <= 3; i++ {
		clk.BlockUntil(1)
		_, sent := l.counts()
		assert.Equal(t, i, sent)
		assert.Equal(t, StateRunning, tx.State())
		clk.Advance(20 * time.Millisecond)
	}
	clk.BlockUntil(1)
	cancel()

	select {
	case err := <-done:
		require.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	registers, _ := l.counts()
	assert.Equal(t, 1, registers)
}

func TestRunSendFailureKeepsCadence(t *testing.T) {
	clk := clockwork.NewFakeClock()
	l := &fakeLink{sendErr: fmt.Errorf("radio: %w", link.ErrSendRejected)}
	tx := New(testConfig(), steady(2000, 2000), nil, l, clk)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- tx.Run(ctx) }()

	// startup registration plus one per failed tick
	clk.BlockUntil(1)
	registers, _ := l.counts()
	assert.Equal(t, 2, registers)
	clk.Advance(20 * time.Millisecond)
	clk.BlockUntil(1)
	registers, _ = l.counts()
	assert.Equal(t, 3, registers)
	assert.Equal(t, StateRunning, tx.State())

	cancel()
	require.ErrorIs(t, <-done, context.Canceled)
}

func TestRunHaltsOnSeedFailure(t *testing.T) {
	l := &fakeLink{}
	tx := New(testConfig(), &fakeSampler{err: errors.New("adc gone")}, nil, l, clockwork.NewFakeClock())

	err := tx.Run(context.Background())
	var hwErr *HardwareError
	require.ErrorAs(t, err, &hwErr)
	assert.Equal(t, StateHalted, tx.State())
	assert.Empty(t, l.sent)
}

func TestCalibrate(t *testing.T) {
	clk := clockwork.NewFakeClock()
	s := &fakeSampler{values: map[int][]int{
		0: {100, 3900, 2000, 2000},
		1: {1000, 3000, 2000, 2000},
	}}
	tx := New(testConfig(), s, nil, &fakeLink{}, clk)

	done := make(chan error, 1)
	go func() { done <- tx.Calibrate(context.Background(), 20*time.Millisecond) }()
	for i := 0; i < 4; i++ {
		clk.BlockUntil(1)
		clk.Advance(5 * time.Millisecond)
	}
	require.NoError(t, <-done)

	x, y := tx.Calibration()
	assert.Equal(t, joystick.Calibration{Min: 100, Mid: 2000, Max: 3900}, x)
	assert.Equal(t, joystick.Calibration{Min: 1000, Mid: 2000, Max: 3000}, y)
}

func TestCalibrateEmptySweepKeepsCalibration(t *testing.T) {
	tx := New(testConfig(), steady(2000, 2000), nil, &fakeLink{}, clockwork.NewFakeClock())

	err := tx.Calibrate(context.Background(), 0)
	require.ErrorIs(t, err, ErrEmptySweep)
	x, y := tx.Calibration()
	assert.Equal(t, joystick.DefaultCalibration, x)
	assert.Equal(t, joystick.DefaultCalibration, y)
	assert.Equal(t, StateInit, tx.State())
}

func TestCalibrateHardwareFault(t *testing.T) {
	tx := New(testConfig(), &fakeSampler{err: errors.New("adc gone")}, nil, &fakeLink{}, clockwork.NewFakeClock())

	err := tx.Calibrate(context.Background(), time.Second)
	var hwErr *HardwareError
	require.ErrorAs(t, err, &hwErr)
	assert.Equal(t, StateHalted, tx.State())
}

func TestRunRefusesAfterHalt(t *testing.T) {
	s := &fakeSampler{err: errors.New("adc gone")}
	l := &fakeLink{}
	tx := New(testConfig(), s, nil, l, clockwork.NewFakeClock())
	require.Error(t, tx.Calibrate(context.Background(), time.Second))
	require.Equal(t, StateHalted, tx.State())

	// the stick comes back, the transmitter stays down
	s.mu.Lock()
	s.err = nil
	s.values = map[int][]int{0: {2000}, 1: {2000}}
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.ErrorIs(t, tx.Run(ctx), ErrHalted)
	assert.Equal(t, StateHalted, tx.State())
	registers, sent := l.counts()
	assert.Equal(t, 0, registers)
	assert.Equal(t, 0, sent)
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "INIT", StateInit.String())
	assert.Equal(t, "RUNNING", StateRunning.String())
	assert.Equal(t, "HALTED", StateHalted.String())
}
