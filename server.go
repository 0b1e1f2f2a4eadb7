package bluedroid

import (
	"errors"
	"fmt"
	"sync"

	"github.com/go-ble/ble"
	"github.com/sirupsen/logrus"

	"github.com/XC-/bluedroid/nvs"
	"github.com/XC-/bluedroid/stack"
)

// defaultAdvParams mirror the stock advertising configuration: a 152.5 ms
// interval on all three advertising channels.
var defaultAdvParams = stack.AdvParams{
	IntervalMin: 0x00f4,
	IntervalMax: 0x00f4,
	ChannelMap:  0x07,
}

// A Server is the GATT peripheral facade. Servers are initialize-once
// types: build the attribute tree, configure the server, call Start, and
// keep it for the lifetime of the process.
//
// All event handling runs on the vendor stack's internal task, which
// delivers events serially; the server performs no locking between events.
// State the application may touch concurrently (connection table,
// characteristic values, non-volatile storage) is independently guarded.
type Server struct {
	mu      sync.Mutex
	started bool

	st  stack.Stack
	log *logrus.Logger

	deviceName  string
	appearance  Appearance
	profiles    []*Profile
	advServices []ble.UUID
	advParams   stack.AdvParams
	store       *nvs.Store

	// built at Start
	advData []byte
	scanRsp []byte

	// touched only on the stack task after Start
	advConfigured bool

	conns *connTable
}

// NewServer creates a server on top of the given vendor stack.
func NewServer(st stack.Stack) *Server {
	return &Server{
		st:        st,
		log:       logrus.StandardLogger(),
		advParams: defaultAdvParams,
		conns:     newConnTable(),
	}
}

// Logger sets the logger. Defaults to the logrus standard logger.
func (s *Server) Logger(l *logrus.Logger) *Server {
	s.log = l
	return s
}

// Profile attaches a profile, cloning it into server-owned storage.
func (s *Server) Profile(p *Profile) *Server {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		s.log.Warn("cannot add profiles after start")
		return s
	}
	s.profiles = append(s.profiles, p.clone())
	return s
}

// DeviceName sets the GAP device name.
func (s *Server) DeviceName(n string) *Server {
	s.deviceName = n
	return s
}

// Appearance sets the GAP appearance advertised by the device.
func (s *Server) Appearance(a Appearance) *Server {
	s.appearance = a
	return s
}

// AdvertiseService includes the service's UUID in the advertising payload,
// budget permitting.
func (s *Server) AdvertiseService(svc *Service) *Server {
	s.advServices = append(s.advServices, svc.uuid)
	return s
}

// AdvertisingParams overrides the default advertising parameters.
func (s *Server) AdvertisingParams(p stack.AdvParams) *Server {
	s.advParams = p
	return s
}

// Storage installs the non-volatile store used for CCCD persistence. It
// becomes the process-wide default store at Start. Without it, Start fails
// when the tree contains a CCCD and no default store has been set.
func (s *Server) Storage(store *nvs.Store) *Server {
	s.store = store
	return s
}

// Start freezes the attribute tree, validates the configuration, installs
// the server as the stack's event callback, and registers every profile.
// Advertising begins as soon as the first profile registration completes.
func (s *Server) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return errors.New("server already started")
	}
	if len(s.profiles) == 0 {
		return errors.New("no profiles declared")
	}

	for _, p := range s.profiles {
		if err := p.finalize(); err != nil {
			return err
		}
	}

	if s.treeHasCCCD() {
		if s.store != nil {
			nvs.SetDefault(s.store)
		}
		if nvs.Default() == nil {
			return errors.New("attribute tree contains a CCCD but no NVS store is configured")
		}
	}

	adv, fit := serviceAdvertisingPacket(s.appearance, s.advServices)
	if len(fit) < len(s.advServices) {
		s.log.WithFields(logrus.Fields{
			"declared": len(s.advServices),
			"fit":      len(fit),
		}).Warn("not all advertised services fit in the advertising packet")
	}
	s.advData = adv
	s.scanRsp = nameScanResponsePacket(s.deviceName)

	s.st.RegisterCallback(s.handleEvent)
	for _, p := range s.profiles {
		if err := s.st.RegisterApp(p.id); err != nil {
			return fmt.Errorf("cannot register %s: %w", p, err)
		}
	}

	s.started = true
	return nil
}

// Connections returns a snapshot of the active connections.
func (s *Server) Connections() []*Connection { return s.conns.snapshot() }

// Profiles returns the server-owned profile list.
func (s *Server) Profiles() []*Profile { return s.profiles }

func (s *Server) treeHasCCCD() bool {
	for _, p := range s.profiles {
		for _, svc := range p.services {
			for _, c := range svc.chars {
				if c.findDescriptor(attrClientCharCfgUUID) != nil {
					return true
				}
			}
		}
	}
	return false
}

// profileByIface locates a profile by its assigned stack interface.
func (s *Server) profileByIface(iface stack.Interface) *Profile {
	for _, p := range s.profiles {
		if p.registered && p.iface == iface {
			return p
		}
	}
	return nil
}

func (s *Server) profileByAppID(id uint16) *Profile {
	for _, p := range s.profiles {
		if p.id == id {
			return p
		}
	}
	return nil
}
