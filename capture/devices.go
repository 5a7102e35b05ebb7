package capture

import (
	"errors"
	"fmt"

	"github.com/gordonklaus/portaudio"
)

// DeviceInfo describes one host audio device.
type DeviceInfo struct {
	Index             int
	Name              string
	HostAPI           string
	MaxInputChannels  int
	MaxOutputChannels int
	DefaultSampleRate float64
}

// Devices enumerates the host's audio devices. It owns its own
// portaudio init/terminate pair, so it must not be called while a
// Microphone acquisition is active.
func Devices() ([]DeviceInfo, error) {
	if err := portaudio.Initialize(); err != nil {
		return nil, err
	}
	defer func() {
		_ = portaudio.Terminate()
	}()

	devs, err := portaudio.Devices()
	if err != nil {
		return nil, err
	}

	infos := make([]DeviceInfo, 0, len(devs))
	for i, d := range devs {
		info := DeviceInfo{
			Index:             i,
			Name:              d.Name,
			MaxInputChannels:  d.MaxInputChannels,
			MaxOutputChannels: d.MaxOutputChannels,
			DefaultSampleRate: d.DefaultSampleRate,
		}
		if d.HostApi != nil {
			info.HostAPI = d.HostApi.Name
		}
		infos = append(infos, info)
	}
	return infos, nil
}

// Device returns info about the device at index.
func Device(index int) (DeviceInfo, error) {
	infos, err := Devices()
	if err != nil {
		return DeviceInfo{}, err
	}
	if index < 0 || index >= len(infos) {
		return DeviceInfo{}, errors.New("device index out of range")
	}
	return infos[index], nil
}

// String renders the device for CLI output.
func (d DeviceInfo) String() string {
	return fmt.Sprintf("%d: %s (%s) in=%d out=%d rate=%.0f",
		d.Index, d.Name, d.HostAPI, d.MaxInputChannels, d.MaxOutputChannels, d.DefaultSampleRate)
}
