package enums

// DeviceClass groups clients by the processing budget their hardware allows.
type DeviceClass string

const (
	DeviceClassMobile  DeviceClass = "mobile"
	DeviceClassDesktop DeviceClass = "desktop"
)

// String returns the literal string for the class.
func (d DeviceClass) String() string {
	return string(d)
}

// IsValid reports whether the class is known.
func (d DeviceClass) IsValid() bool {
	return d == DeviceClassMobile || d == DeviceClassDesktop
}

// ParseDeviceClass converts raw input into a DeviceClass, defaulting to desktop.
func ParseDeviceClass(value string) DeviceClass {
	if value == string(DeviceClassMobile) {
		return DeviceClassMobile
	}
	return DeviceClassDesktop
}
