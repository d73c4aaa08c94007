package malgo

import (
	"encoding/hex"
	"runtime"
	"strings"
	"time"

	"github.com/gen2brain/malgo"
	"github.com/patrickmn/go-cache"

	"github.com/tphakala/audioviz/internal/audiocore"
	"github.com/tphakala/audioviz/internal/errors"
	"github.com/tphakala/audioviz/internal/logger"
)

// DeviceInfo describes one capture device
type DeviceInfo struct {
	Index     int
	Name      string
	ID        string // decoded backend identifier, e.g. ":1,0" on ALSA
	IsDefault bool
}

const (
	deviceCacheTTL = 30 * time.Second
	deviceCacheKey = "capture_devices"
)

// deviceCache avoids re-initializing a backend context for every listing
var deviceCache = cache.New(deviceCacheTTL, 2*deviceCacheTTL)

// getBackendForPlatform returns the malgo backend for the current platform
func getBackendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.New(audiocore.ErrDeviceUnavailable).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("os", runtime.GOOS).
			Context("reason", "unsupported operating system").
			Build()
	}
}

// initContext creates a backend context; callers release it with releaseContext
func initContext() (*malgo.AllocatedContext, error) {
	backend, err := getBackendForPlatform()
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "init_context").
			Context("backend", runtime.GOOS).
			Build()
	}
	return ctx, nil
}

func releaseContext(ctx *malgo.AllocatedContext) {
	if ctx == nil {
		return
	}
	_ = ctx.Uninit()
	ctx.Free()
}

// EnumerateDevices returns the capture devices, served from a 30 second cache.
func EnumerateDevices() ([]DeviceInfo, error) {
	if cached, ok := deviceCache.Get(deviceCacheKey); ok {
		if devices, ok := cached.([]DeviceInfo); ok {
			return cloneDevices(devices), nil
		}
	}

	devices, err := enumerateDevices()
	if err != nil {
		return nil, err
	}
	deviceCache.Set(deviceCacheKey, devices, cache.DefaultExpiration)
	return cloneDevices(devices), nil
}

// RefreshDevices drops the cached device list.
func RefreshDevices() {
	deviceCache.Delete(deviceCacheKey)
}

func enumerateDevices() ([]DeviceInfo, error) {
	ctx, err := initContext()
	if err != nil {
		return nil, err
	}
	defer releaseContext(ctx)

	infos, err := ctx.Devices(malgo.Capture)
	if err != nil {
		return nil, errors.New(errors.Join(audiocore.ErrDeviceUnavailable, err)).
			Component(componentMalgo).
			Category(errors.CategoryAudioDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	return toDeviceInfos(infos), nil
}

func toDeviceInfos(infos []malgo.DeviceInfo) []DeviceInfo {
	devices := make([]DeviceInfo, 0, len(infos))
	for i := range infos {
		name := infos[i].Name()
		// Skip the null backend sink
		if strings.Contains(name, "Discard all samples") {
			continue
		}
		devices = append(devices, DeviceInfo{
			Index:     i,
			Name:      name,
			ID:        decodeDeviceID(infos[i].ID.String()),
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return devices
}

func cloneDevices(devices []DeviceInfo) []DeviceInfo {
	out := make([]DeviceInfo, len(devices))
	copy(out, devices)
	return out
}

// selectDevice returns the Index of the device matching want. Matching order:
// default alias, exact name, decoded ID, partial name.
func selectDevice(devices []DeviceInfo, want string) (int, error) {
	if want == "" || want == "default" || want == "sysdefault" {
		for _, d := range devices {
			if d.IsDefault {
				return d.Index, nil
			}
		}
		if len(devices) > 0 {
			return devices[0].Index, nil
		}
	}

	for _, d := range devices {
		if d.Name == want {
			return d.Index, nil
		}
	}
	for _, d := range devices {
		if d.ID == want {
			return d.Index, nil
		}
	}
	for _, d := range devices {
		if strings.Contains(d.Name, want) {
			return d.Index, nil
		}
	}

	return -1, errors.New(audiocore.ErrDeviceUnavailable).
		Component(componentMalgo).
		Category(errors.CategoryAudioDevice).
		Context("device_name", want).
		Context("available_devices", len(devices)).
		Context("reason", "no matching capture device").
		Build()
}

// ProbePermission reports whether at least one capture device can be
// enumerated. Backends that deny microphone access enumerate nothing.
func ProbePermission() bool {
	devices, err := EnumerateDevices()
	if err != nil {
		log.Debug("capture permission probe failed", logger.Error(err))
		return false
	}
	return len(devices) > 0
}

// decodeDeviceID turns the hex form of a backend ID into text, falling back
// to the raw string when it is not valid hex.
func decodeDeviceID(hexStr string) string {
	b, err := hex.DecodeString(hexStr)
	if err != nil {
		return hexStr
	}
	return strings.TrimRight(string(b), "\x00")
}
