package bluedroid

import "github.com/go-ble/ble"

// This file includes constants from the BLE spec.

var (
	attrGAPUUID  = ble.UUID16(0x1800)
	attrGATTUUID = ble.UUID16(0x1801)

	attrUserDescriptionUUID = ble.UUID16(0x2901)
	attrClientCharCfgUUID   = ble.UUID16(0x2902)

	attrDeviceNameUUID = ble.UUID16(0x2A00)
	attrAppearanceUUID = ble.UUID16(0x2A01)
)

// CCCD contents, two bytes, little endian.
const (
	cccdNotifyBit   = 1 << 0
	cccdIndicateBit = 1 << 1
)

// Appearance is the GAP appearance of the device, advertised in the
// appearance AD structure.
// https://www.bluetooth.com/specifications/assigned-numbers/
type Appearance uint16

const (
	AppearanceUnknown                Appearance = 0
	AppearanceGenericPhone           Appearance = 64
	AppearanceGenericComputer        Appearance = 128
	AppearanceGenericWatch           Appearance = 192
	AppearanceGenericThermometer     Appearance = 768
	AppearanceGenericHeartRateSensor Appearance = 832
	AppearanceGenericPulseOximeter   Appearance = 3136
	AppearanceFingertipPulseOximeter Appearance = 3137
	AppearanceWristWornPulseOximeter Appearance = 3138
)
