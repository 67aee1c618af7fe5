package decode

import "github.com/obinnaokechukwu/ffgo"

// AvailableHWDevices lists the hardware-acceleration device names usable
// with WithHWDevice on this build of FFmpeg, e.g. "vaapi", "cuda".
func AvailableHWDevices() []string {
	types := ffgo.AvailableHWDeviceTypes()
	names := make([]string, 0, len(types))
	for _, t := range types {
		names = append(names, ffgo.GetHWDeviceTypeName(t))
	}
	return names
}
