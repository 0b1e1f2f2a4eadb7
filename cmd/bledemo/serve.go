package main

import (
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/go-ble/ble"
	"github.com/spf13/cobra"

	"github.com/XC-/bluedroid"
	"github.com/XC-/bluedroid/nvs"
	"github.com/XC-/bluedroid/sim"
	"github.com/XC-/bluedroid/stack"
)

var (
	staticUUID    = bluedroid.MustParseUUID("d4e0e0d0-1a2b-11e9-ab14-d663bd873d93")
	notifyingUUID = bluedroid.MustParseUUID("a3c87500-8ed3-4bdf-8a39-a01bebede295")
	writableUUID  = bluedroid.MustParseUUID("3c9a3f00-8ed3-4bdf-8a39-a01bebede295")
	serviceUUID   = bluedroid.MustParseUUID("fafafafa-fafa-fafa-fafa-fafafafafafa")
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the demo server and a scripted peer session",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().StringP("config", "c", "", "Path to a YAML config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	log, err := configureLogger(cmd)
	if err != nil {
		return err
	}

	path, _ := cmd.Flags().GetString("config")
	cfg, err := loadConfig(path)
	if err != nil {
		return err
	}

	appearance, err := cfg.appearance()
	if err != nil {
		return err
	}

	store, err := nvs.Open(cfg.Namespace, cfg.StorageDir)
	if err != nil {
		return fmt.Errorf("cannot open storage: %w", err)
	}

	notifying := bluedroid.NewCharacteristic(notifyingUUID).
		Name("Counter").
		Permissions(stack.PermRead).
		Properties(stack.PropRead | stack.PropNotify).
		SetValue([]byte("Counter: 0"))

	service := bluedroid.NewService(serviceUUID).
		Name("Demo Service").
		Primary().
		Characteristic(bluedroid.NewCharacteristic(staticUUID).
			Name("Static").
			Permissions(stack.PermRead).
			Properties(stack.PropRead).
			ShowName().
			SetValue([]byte("Hello, world!"))).
		Characteristic(notifying).
		Characteristic(bluedroid.NewCharacteristic(writableUUID).
			Name("Writable").
			Permissions(stack.PermRead | stack.PermWrite).
			Properties(stack.PropRead | stack.PropWrite))

	st := sim.New(log)
	server := bluedroid.NewServer(st).
		Logger(log).
		Profile(bluedroid.NewProfile(0x0001).Name("Demo Profile").Service(service)).
		DeviceName(cfg.DeviceName).
		Appearance(appearance).
		AdvertiseService(service).
		AdvertisingParams(stack.AdvParams{
			IntervalMin: cfg.AdvInterval,
			IntervalMax: cfg.AdvInterval,
			ChannelMap:  0x07,
		}).
		Storage(store)

	if err := server.Start(); err != nil {
		return fmt.Errorf("cannot start server: %w", err)
	}

	heading := color.New(color.FgYellow, color.Bold)
	read := color.New(color.FgCyan)
	notif := color.New(color.FgGreen)

	heading.Printf("%s advertising, peer %s connecting\n", cfg.DeviceName, cfg.PeerAddress)

	peer, err := stack.ParseAddr(cfg.PeerAddress)
	if err != nil {
		return fmt.Errorf("invalid peer address: %w", err)
	}
	connID, err := st.Connect(peer)
	if err != nil {
		return err
	}
	if err := st.ExchangeMTU(connID, 185); err != nil {
		return err
	}

	if h, ok := charHandle(server, staticUUID); ok {
		v, status := st.Read(connID, h)
		read.Printf("read  0x%04X (Static)   status=%s value=%q\n", h, status, v)
	}

	if h, ok := charHandle(server, writableUUID); ok {
		st.Write(connID, h, []byte("hello from the demo peer"), true)
		v, status := st.Read(connID, h)
		read.Printf("read  0x%04X (Writable) status=%s value=%q\n", h, status, v)
	}

	cccd, ok := cccdHandle(server, notifyingUUID)
	if !ok {
		return fmt.Errorf("no CCCD found under the counter characteristic")
	}
	st.Write(connID, cccd, []byte{0x01, 0x00}, true)
	heading.Printf("subscribed to notifications via CCCD 0x%04X\n", cccd)

	seen := 0
	for i := 1; i <= cfg.Count; i++ {
		notifying.SetValue([]byte(fmt.Sprintf("Counter: %d", i)))
		time.Sleep(cfg.Interval)
		frames := st.Inbox(connID)
		for _, f := range frames[seen:] {
			notif.Printf("notif 0x%04X value=%q\n", f.Handle, f.Value)
		}
		seen = len(frames)
	}

	if err := st.Disconnect(connID, 0x13); err != nil {
		return err
	}
	heading.Printf("peer disconnected, advertising=%v\n", st.Advertising())
	return nil
}

// charHandle finds the value handle of the characteristic with the given
// UUID in the server-owned tree.
func charHandle(server *bluedroid.Server, u ble.UUID) (uint16, bool) {
	if c := findChar(server, u); c != nil {
		return c.Handle()
	}
	return 0, false
}

// cccdHandle finds the handle of the CCCD under the characteristic with
// the given UUID.
func cccdHandle(server *bluedroid.Server, u ble.UUID) (uint16, bool) {
	c := findChar(server, u)
	if c == nil {
		return 0, false
	}
	for _, d := range c.Descriptors() {
		if d.UUID().Equal(bluedroid.UUID16(0x2902)) {
			return d.Handle()
		}
	}
	return 0, false
}

func findChar(server *bluedroid.Server, u ble.UUID) *bluedroid.Characteristic {
	for _, p := range server.Profiles() {
		for _, svc := range p.Services() {
			for _, c := range svc.Characteristics() {
				if c.UUID().Equal(u) {
					return c
				}
			}
		}
	}
	return nil
}
