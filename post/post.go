// Package post sequences the pre-operational self-test: CASTs, KATs under
// strict policy, and one PCT per enabled family, then drives the module
// state to Operational or Error.
package post

import (
	"errors"
	"log/slog"
	"os"
	"time"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/BackendStack21/pqc-fips-go/kem"
	"github.com/BackendStack21/pqc-fips-go/pct"
	"github.com/BackendStack21/pqc-fips-go/selftest"
	"github.com/BackendStack21/pqc-fips-go/sign"
	"github.com/BackendStack21/pqc-fips-go/state"
	"github.com/BackendStack21/pqc-fips-go/utils"
	"github.com/google/uuid"
)

// Config selects the phases and the providers a run exercises.
type Config struct {
	// Strict enables the KAT phase.
	Strict bool
	// Families are the asymmetric families covered by KAT and PCT.
	// Empty means every family.
	Families []pqcfips.Family

	Hasher pqcfips.Hasher
	KEM    pqcfips.KEM
	Signer pqcfips.Signer

	Logger  *slog.Logger
	Metrics *Metrics
}

// DefaultConfig returns the configuration compiled into this build.
func DefaultConfig() Config {
	return Config{Strict: pqcfips.FIPSMode()}
}

func (c Config) normalize() Config {
	if len(c.Families) == 0 {
		c.Families = append([]pqcfips.Family(nil), pqcfips.AllFamilies...)
	}
	if c.Hasher == nil {
		c.Hasher = utils.SHA3{}
	}
	if c.KEM == nil {
		c.KEM = kem.New()
	}
	if c.Signer == nil {
		c.Signer = sign.New()
	}
	if c.Logger == nil {
		c.Logger = slog.Default()
	}
	return c
}

// Seeds supplies every random input of a run so that it never reads the
// entropy source. RunWithSeeds zeroizes them before returning.
type Seeds struct {
	KEMKeyGen        []byte
	KEMEncapsulation []byte
	SignatureKeyGen  []byte
	SignatureSign    []byte
}

func (s *Seeds) zeroize() {
	if s == nil {
		return
	}
	utils.ZeroizeAll(s.KEMKeyGen, s.KEMEncapsulation, s.SignatureKeyGen, s.SignatureSign)
}

// StepResult is the outcome of one POST step.
type StepResult struct {
	Name     string        `json:"name"`
	Passed   bool          `json:"passed"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

// Report describes one POST run.
type Report struct {
	RunID    string              `json:"run_id"`
	Strict   bool                `json:"strict"`
	Families []pqcfips.Family    `json:"families"`
	Steps    []StepResult        `json:"steps"`
	Started  time.Time           `json:"started"`
	Duration time.Duration       `json:"duration_ns"`
	State    pqcfips.ModuleState `json:"-"`
	StateStr string              `json:"state"`
	Err      error               `json:"-"`
	Error    string              `json:"error,omitempty"`
}

// Passed reports whether every step succeeded.
func (r *Report) Passed() bool { return r != nil && r.Err == nil }

// Orchestrator runs POST against one state machine. Concurrent runs are not
// serialized; each converges to a terminal state on its own.
type Orchestrator struct {
	machine *state.Machine
	cfg     Config
}

// New returns an orchestrator driving machine.
func New(machine *state.Machine, cfg Config) *Orchestrator {
	if machine == nil {
		machine = state.New()
	}
	return &Orchestrator{machine: machine, cfg: cfg.normalize()}
}

// Config returns the normalized configuration.
func (o *Orchestrator) Config() Config { return o.cfg }

// Run executes POST using fresh entropy for the PCT key pairs and returns
// the first failure, if any.
func (o *Orchestrator) Run() error {
	return o.RunWithReport(nil).Err
}

// RunWithSeeds executes POST with explicit PCT seeds. The seeds are
// zeroized before it returns, on every path.
func (o *Orchestrator) RunWithSeeds(seeds Seeds) error {
	return o.RunWithReport(&seeds).Err
}

// RunWithReport executes POST and returns a report of every step that ran.
// A nil seeds reads the entropy source.
func (o *Orchestrator) RunWithReport(seeds *Seeds) *Report {
	defer seeds.zeroize()

	report := &Report{
		RunID:    uuid.NewString(),
		Strict:   o.cfg.Strict,
		Families: append([]pqcfips.Family(nil), o.cfg.Families...),
		Started:  time.Now(),
	}
	log := o.cfg.Logger.With("run_id", report.RunID)

	o.machine.EnterSelfTest()
	o.cfg.Metrics.setState(pqcfips.StateSelfTestInProgress)
	log.Info("post started", "strict", o.cfg.Strict, "families", report.Families)

	// A zero-seed invariant violation must not leave the module mid-test.
	defer func() {
		if r := recover(); r != nil {
			o.machine.EnterError()
			o.cfg.Metrics.setState(pqcfips.StateError)
			o.cfg.Metrics.observeResult("aborted", time.Since(report.Started).Seconds())
			log.Error("post aborted", "panic", r)
			panic(r)
		}
	}()

	err := o.runSteps(report, seeds, log)
	report.Duration = time.Since(report.Started)
	report.Err = err

	if err != nil {
		o.machine.EnterError()
		report.Error = err.Error()
		log.Error("post failed", "error", err, "duration", report.Duration)
	} else {
		o.machine.EnterOperational()
		log.Info("post passed", "duration", report.Duration)
	}
	report.State = o.machine.State()
	report.StateStr = report.State.String()
	o.cfg.Metrics.setState(report.State)
	o.cfg.Metrics.observeRun(err == nil, report.Duration.Seconds())
	return report
}

func (o *Orchestrator) runSteps(report *Report, seeds *Seeds, log *slog.Logger) error {
	step := func(name string, fn func() error) error {
		start := time.Now()
		err := fn()
		res := StepResult{Name: name, Passed: err == nil, Duration: time.Since(start)}
		if err != nil {
			res.Error = err.Error()
			o.cfg.Metrics.incFailure(name)
			log.Error("post step failed", "step", name, "error", err)
		} else {
			log.Debug("post step passed", "step", name)
		}
		report.Steps = append(report.Steps, res)
		return err
	}

	if err := step("cast", func() error { return selftest.RunCASTs(o.cfg.Hasher) }); err != nil {
		return err
	}
	if o.cfg.Strict {
		for _, f := range o.cfg.Families {
			if err := step("kat/"+string(f), func() error {
				return selftest.RunKATs(o.cfg.KEM, o.cfg.Signer, []pqcfips.Family{f})
			}); err != nil {
				return err
			}
		}
	}
	for _, f := range o.cfg.Families {
		if err := step("pct/"+string(f), func() error { return o.runPCT(f, seeds) }); err != nil {
			return err
		}
	}
	return nil
}

var errUnsupportedFamily = errors.New("unsupported family")

func pctFailure(f pqcfips.Family, step string, cause error) error {
	return pqcfips.NewError(pqcfips.KindConsistencyFailure, string(f)+" pct: "+step, cause)
}

// seedOrRandom returns a private copy of explicit, or n fresh random bytes.
func seedOrRandom(explicit []byte, useExplicit bool, n int) ([]byte, error) {
	if useExplicit {
		return utils.Clone(explicit), nil
	}
	return utils.SecureRandomBytes(n)
}

// runPCT generates one key pair for f and runs its PCT. The pair is
// discarded afterwards.
func (o *Orchestrator) runPCT(f pqcfips.Family, seeds *Seeds) error {
	explicit := seeds != nil
	switch f {
	case pqcfips.FamilyMLKEM1024:
		var ks, es []byte
		if explicit {
			ks, es = seeds.KEMKeyGen, seeds.KEMEncapsulation
		}
		seed, err := seedOrRandom(ks, explicit, o.cfg.KEM.SeedSize())
		if err != nil {
			return pctFailure(f, "randomness", err)
		}
		defer utils.Zeroize(seed)
		encSeed, err := seedOrRandom(es, explicit, o.cfg.KEM.EncapsulationSeedSize())
		if err != nil {
			return pctFailure(f, "randomness", err)
		}
		defer utils.Zeroize(encSeed)

		kp, err := o.cfg.KEM.KeyGen(seed)
		if err != nil {
			return pctFailure(f, "keygen", err)
		}
		defer utils.Zeroize(kp.SecretKey)
		return pct.KEMWithSeed(o.cfg.KEM, kp, encSeed)

	case pqcfips.FamilyMLDSA65:
		var ks, rs []byte
		if explicit {
			ks, rs = seeds.SignatureKeyGen, seeds.SignatureSign
		}
		seed, err := seedOrRandom(ks, explicit, o.cfg.Signer.SeedSize())
		if err != nil {
			return pctFailure(f, "randomness", err)
		}
		defer utils.Zeroize(seed)
		rnd, err := seedOrRandom(rs, explicit, pqcfips.MLDSASignSeedSize)
		if err != nil {
			return pctFailure(f, "randomness", err)
		}
		defer utils.Zeroize(rnd)

		kp, err := o.cfg.Signer.KeyGen(seed)
		if err != nil {
			return pctFailure(f, "keygen", err)
		}
		defer utils.Zeroize(kp.SecretKey)
		return pct.SignatureWithSeed(o.cfg.Signer, kp, rnd)
	}
	return pctFailure(f, "family", errUnsupportedFamily)
}

// exit terminates the process; tests replace it.
var exit = os.Exit

// RunOrExit runs POST and terminates the process with status 1 on failure,
// for callers that must not continue in a non-compliant state.
func (o *Orchestrator) RunOrExit() {
	if err := o.Run(); err != nil {
		o.cfg.Logger.Error("post failed, terminating", "error", err)
		exit(1)
	}
}

// RunOrExitWithSeeds is RunOrExit with explicit PCT seeds.
func (o *Orchestrator) RunOrExitWithSeeds(seeds Seeds) {
	if err := o.RunWithSeeds(seeds); err != nil {
		o.cfg.Logger.Error("post failed, terminating", "error", err)
		exit(1)
	}
}
