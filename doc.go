// Package bluedroid provides a builder-style GATT server facade over a
// callback-oriented vendor BLE stack.
//
// Application code declares a static tree of profiles, services,
// characteristics and descriptors, attaches read and write callbacks to
// individual attributes, and starts the server. The facade walks the tree
// through the stack's asynchronous registration protocol, reconciles the
// handles the stack assigns with the declared UUIDs, routes inbound GATT
// events to the owning attribute, fans out notifications and indications
// to connected centrals when a value changes, and persists per-peer CCCD
// state in non-volatile storage so subscriptions survive reboots.
//
// USAGE
//
// Build the tree with fluent constructors, hand it to a server, and start:
//
//	char := bluedroid.NewCharacteristic(bluedroid.MustParseUUID("d4e0e0d0-1a2b-11e9-ab14-d663bd873d93")).
//		Name("Static Characteristic").
//		Permissions(stack.PermRead).
//		Properties(stack.PropRead).
//		MaxValueLength(20).
//		ShowName().
//		SetValue([]byte("Hello, world!"))
//
//	svc := bluedroid.NewService(bluedroid.MustParseUUID("fafafafa-fafa-fafa-fafa-fafafafafafa")).
//		Name("Example Service").
//		Primary().
//		Characteristic(char)
//
//	profile := bluedroid.NewProfile(0x0001).Name("Default Profile").Service(svc)
//
//	srv := bluedroid.NewServer(st).
//		Profile(profile).
//		DeviceName("GATT-Server").
//		Appearance(bluedroid.AppearanceWristWornPulseOximeter).
//		AdvertiseService(svc)
//	if err := srv.Start(); err != nil {
//		log.Fatal(err)
//	}
//
// After Start the tree is frozen. The only permitted mutation is
// Characteristic.SetValue, which pushes the new value to the stack and
// triggers notification fan-out for characteristics carrying the notify or
// indicate property.
//
// The vendor stack is abstracted behind the stack.Stack interface; the sim
// package ships an in-memory implementation used by the examples and tests.
//
// The server is meant to be initialized once per process and never torn
// down, matching the lifecycle of the underlying stack's dispatch point.
package bluedroid
