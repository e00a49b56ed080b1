package sensors

import (
	"math"
	"time"

	"github.com/gr-butler/joystick/joystick"
)

// MockStick pretends to be a joystick being circled slowly, with the button
// pressed for one second in every five. Used in test mode without hardware.
type MockStick struct {
	start time.Time
	now   func() time.Time
}

func NewMockStick() *MockStick {
	return &MockStick{start: time.Now(), now: time.Now}
}

func (m *MockStick) Read(channel int) (int, error) {
	elapsed := m.now().Sub(m.start).Seconds()
	mid := float64(joystick.RawMax) / 2
	var v float64
	if channel%2 == 0 {
		v = mid + 1700*math.Sin(elapsed)
	} else {
		v = mid + 1700*math.Cos(elapsed*0.7)
	}
	return int(v), nil
}

// Button makes the mock usable as a DigitalInput.
func (m *MockStick) Button() *MockButton {
	return &MockButton{m: m}
}

type MockButton struct {
	m *MockStick
}

func (b *MockButton) Read() (int, error) {
	if int(b.m.now().Sub(b.m.start).Seconds())%5 == 4 {
		return 0, nil
	}
	return 1, nil
}
