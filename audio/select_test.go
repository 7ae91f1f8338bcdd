package audio

import (
	"errors"
	"testing"

	"scribe/errs"
)

func TestPickInput(t *testing.T) {
	devices := []DeviceInfo{
		{ID: "0", Name: "HDMI Output Monitor", InputChannels: 0},
		{ID: "1", Name: "USB Mic", InputChannels: 1},
		{ID: "2", Name: "Built-in", InputChannels: 2, IsDefault: true},
	}

	tests := []struct {
		name      string
		devices   []DeviceInfo
		preferred string
		wantID    string
	}{
		{"default wins", devices, "", "2"},
		{"preferred wins", devices, "USB Mic", "1"},
		{"unknown preferred falls back", devices, "Nope", "2"},
		{"preferred without inputs ignored", devices, "HDMI Output Monitor", "2"},
		{"first with inputs", devices[:2], "", "1"},
		{"default without inputs skipped", []DeviceInfo{
			{ID: "a", Name: "out", IsDefault: true},
			{ID: "b", Name: "in", InputChannels: 1},
		}, "", "b"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickInput(tt.devices, tt.preferred)
			if err != nil {
				t.Fatal(err)
			}
			if got.ID != tt.wantID {
				t.Errorf("picked %q, want %q", got.ID, tt.wantID)
			}
		})
	}
}

func TestPickInputNone(t *testing.T) {
	_, err := pickInput([]DeviceInfo{{ID: "0", Name: "speakers"}}, "")
	if !errors.Is(err, errs.ErrNoInputDevice) {
		t.Fatalf("err = %v, want ErrNoInputDevice", err)
	}
	if errs.KindOf(err) != errs.KindInput {
		t.Errorf("kind = %v", errs.KindOf(err))
	}
}

func TestSelectInputFake(t *testing.T) {
	ctx := NewFakeContext(nil, false)
	dev, err := SelectInput(ctx, "")
	if err != nil {
		t.Fatal(err)
	}
	if dev.Name != "fake" {
		t.Errorf("name = %q", dev.Name)
	}
}

func TestIsBluetooth(t *testing.T) {
	if !IsBluetooth("AirPods Pro") {
		t.Error("AirPods should be bluetooth")
	}
	if IsBluetooth("Built-in Microphone") {
		t.Error("built-in should not be bluetooth")
	}
}
