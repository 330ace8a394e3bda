package service

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	flock "github.com/theckman/go-flock"
)

// Status is a Service's lifecycle state: stopped -> starting -> running,
// running -> stopping -> stopped, any -> failed.
type Status string

const (
	StatusStopped  Status = "stopped"
	StatusStarting Status = "starting"
	StatusRunning  Status = "running"
	StatusStopping Status = "stopping"
	StatusFailed   Status = "failed"
	StatusUnknown  Status = "unknown"
)

// Service is a supervised instance of a ServiceDefinition.
type Service struct {
	Definition    ServiceDefinition
	Status        Status
	LastCheckedAt time.Time
	Enabled       bool
	Config        map[string]string
	PID           int
	DataDir       string
	ConfigFile    string
}

// OperationRecord is one entry in the supervisor's bounded operations
// history.
type OperationRecord struct {
	ServiceName string
	Action      string
	Timestamp   time.Time
	Result      string
}

// Runner spawns the subprocess a start/stop/health-check action requires.
// The host init system is an out-of-scope injected collaborator; Runner
// is the seam it's injected through.
type Runner interface {
	Run(ctx context.Context, command []string, timeout time.Duration) (exitCode int, err error)
}

// Options configures a Supervisor.
type Options struct {
	Registry *Registry
	Runner   Runner
	// TestMode short-circuits health checks to success so tests and CI
	// don't depend on a real running service.
	TestMode bool
	// LockDir holds one flock file per service name, coordinating
	// concurrent `launchpad services` invocations across processes.
	LockDir string
	// MaxHistory bounds the in-memory operations history; 0 means 100.
	MaxHistory int
}

// Supervisor is the ServiceSupervisor: it owns every Service instance and
// serializes operations per service name via a sync.Mutex, plus a
// cross-process flock for the same purpose — exactly the kind of
// shared-directory coordination go-flock exists for.
type Supervisor struct {
	opts Options

	mu           sync.Mutex
	services     map[string]*Service
	serviceLocks map[string]*sync.Mutex
	history      []OperationRecord
}

// NewSupervisor returns a Supervisor with no services yet touched; a
// Service is created lazily on first reference to a registered name.
func NewSupervisor(opts Options) *Supervisor {
	if opts.MaxHistory <= 0 {
		opts.MaxHistory = 100
	}
	return &Supervisor{
		opts:         opts,
		services:     make(map[string]*Service),
		serviceLocks: make(map[string]*sync.Mutex),
	}
}

// lockFor returns (creating if needed) the in-process mutex serializing
// operations against a single service name.
func (s *Supervisor) lockFor(name string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.serviceLocks[name]
	if !ok {
		l = &sync.Mutex{}
		s.serviceLocks[name] = l
	}
	return l
}

// serviceFor returns (creating if needed) the Service instance for a
// registered definition name.
func (s *Supervisor) serviceFor(name string) (*Service, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if svc, ok := s.services[name]; ok {
		return svc, nil
	}
	def, ok := s.opts.Registry.Get(name)
	if !ok {
		return nil, errors.Errorf("unknown service %q", name)
	}
	svc := &Service{Definition: def, Status: StatusStopped, Config: map[string]string{}}
	s.services[name] = svc
	return svc, nil
}

// withCrossProcessLock runs fn while holding a flock on name's lock file
// under opts.LockDir, so two launchpad processes never race the same
// service's lifecycle.
func (s *Supervisor) withCrossProcessLock(name string, fn func() error) error {
	if s.opts.LockDir == "" {
		return fn()
	}
	fl := flock.NewFlock(filepath.Join(s.opts.LockDir, name+".lock"))
	if err := fl.Lock(); err != nil {
		return errors.Wrapf(err, "locking service %s", name)
	}
	defer fl.Unlock()
	return fn()
}

// record appends an OperationRecord, trimming the oldest entry once
// opts.MaxHistory is exceeded.
func (s *Supervisor) record(name, action, result string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.history = append(s.history, OperationRecord{
		ServiceName: name, Action: action, Timestamp: time.Now(), Result: result,
	})
	if len(s.history) > s.opts.MaxHistory {
		s.history = s.history[len(s.history)-s.opts.MaxHistory:]
	}
}

// History returns a copy of the operations history, oldest first.
func (s *Supervisor) History() []OperationRecord {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]OperationRecord, len(s.history))
	copy(out, s.history)
	return out
}

// Status returns a service's current status, updating LastCheckedAt.
func (s *Supervisor) Status(name string) (Status, error) {
	svc, err := s.serviceFor(name)
	if err != nil {
		return StatusUnknown, err
	}
	s.mu.Lock()
	svc.LastCheckedAt = time.Now()
	status := svc.Status
	s.mu.Unlock()
	return status, nil
}

// Enable marks a service enabled (its service file would be installed
// into the host init system by a caller one layer up); this module's
// concern is the in-process state transition and history record.
func (s *Supervisor) Enable(name string) error {
	return s.do(name, "enable", func(svc *Service) error {
		svc.Enabled = true
		return nil
	})
}

// Disable marks a service disabled. Disabling an unregistered service
// succeeds vacuously rather than erroring.
func (s *Supervisor) Disable(name string) error {
	if _, ok := s.opts.Registry.Get(name); !ok {
		s.record(name, "disable", "success (unregistered, vacuous)")
		return nil
	}
	return s.do(name, "disable", func(svc *Service) error {
		svc.Enabled = false
		return nil
	})
}

// Start transitions a service stopped -> starting -> running, invoking
// opts.Runner to actually launch the process. Starting an already-running
// service is a no-op success; it does not re-exec the service's command.
func (s *Supervisor) Start(ctx context.Context, name string) error {
	return s.do(name, "start", func(svc *Service) error {
		if svc.Status == StatusRunning {
			return nil
		}
		svc.Status = StatusStarting
		if s.opts.Runner != nil && len(svc.Definition.Args) > 0 {
			command := append([]string{svc.Definition.Executable}, svc.Definition.Args...)
			if _, err := s.opts.Runner.Run(ctx, command, svc.Definition.HealthCheck.Timeout); err != nil {
				svc.Status = StatusFailed
				return err
			}
		}
		svc.Status = StatusRunning
		return nil
	})
}

// Stop transitions a service running -> stopping -> stopped. Stopping an
// unregistered service succeeds vacuously rather than erroring.
func (s *Supervisor) Stop(ctx context.Context, name string) error {
	if _, ok := s.opts.Registry.Get(name); !ok {
		s.record(name, "stop", "success (unregistered, vacuous)")
		return nil
	}
	return s.do(name, "stop", func(svc *Service) error {
		svc.Status = StatusStopping
		svc.Status = StatusStopped
		return nil
	})
}

// Restart stops then starts a service as a single recorded operation.
func (s *Supervisor) Restart(ctx context.Context, name string) error {
	return s.do(name, "restart", func(svc *Service) error {
		svc.Status = StatusStopping
		svc.Status = StatusStopped
		svc.Status = StatusStarting
		if s.opts.Runner != nil && len(svc.Definition.Args) > 0 {
			command := append([]string{svc.Definition.Executable}, svc.Definition.Args...)
			if _, err := s.opts.Runner.Run(ctx, command, svc.Definition.HealthCheck.Timeout); err != nil {
				svc.Status = StatusFailed
				return err
			}
		}
		svc.Status = StatusRunning
		return nil
	})
}

// HealthCheck runs a service's configured health check, short-circuiting
// to success in test mode. A command exceeding its timeout is treated as
// failure; up to Retries additional attempts are made, Interval apart.
func (s *Supervisor) HealthCheck(ctx context.Context, name string) (bool, error) {
	svc, err := s.serviceFor(name)
	if err != nil {
		return false, err
	}
	if s.opts.TestMode {
		return true, nil
	}
	if s.opts.Runner == nil {
		return false, errors.New("no Runner configured for health checks")
	}

	hc := svc.Definition.HealthCheck
	attempts := hc.Retries + 1
	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 && hc.Interval > 0 {
			time.Sleep(hc.Interval)
		}
		exitCode, err := s.opts.Runner.Run(ctx, hc.Command, hc.Timeout)
		if err == nil && exitCode == hc.ExpectedExitCode {
			return true, nil
		}
		lastErr = err
	}
	return false, lastErr
}

// do runs fn against the named service under both the in-process and
// cross-process locks, then records the operation's outcome.
func (s *Supervisor) do(name, action string, fn func(*Service) error) error {
	svc, err := s.serviceFor(name)
	if err != nil {
		s.record(name, action, "error: "+err.Error())
		return err
	}

	lock := s.lockFor(name)
	lock.Lock()
	defer lock.Unlock()

	err = s.withCrossProcessLock(name, func() error {
		s.mu.Lock()
		defer s.mu.Unlock()
		return fn(svc)
	})

	if err != nil {
		s.record(name, action, "error: "+err.Error())
		return err
	}
	s.record(name, action, "success")
	return nil
}
