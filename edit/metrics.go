package edit

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts updater outcomes.
type Metrics interface {
	IncFilesUpdated()
	IncVerificationFailures()
	IncCommitFailures()
	IncUnsafeVerdicts(reason string)
}

// Noop implements Metrics without emitting anything.
type Noop struct{}

func (Noop) IncFilesUpdated()            {}
func (Noop) IncVerificationFailures()    {}
func (Noop) IncCommitFailures()          {}
func (Noop) IncUnsafeVerdicts(string)    {}

// Prom implements Metrics backed by Prometheus counters.
type Prom struct {
	filesUpdated         prometheus.Counter
	verificationFailures prometheus.Counter
	commitFailures       prometheus.Counter
	unsafeVerdicts       *prometheus.CounterVec
}

var registerOnce sync.Once

// NewProm constructs the updater counters and registers them with the default
// registry on first use.
func NewProm(namespace string) *Prom {
	p := &Prom{
		filesUpdated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "files_updated_total",
			Help:      "Files committed with an updated header",
		}),
		verificationFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "verification_failures_total",
			Help:      "Files whose speculative verification failed",
		}),
		commitFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commit_failures_total",
			Help:      "Files that verified but failed at save time",
		}),
		unsafeVerdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unsafe_verdicts_total",
			Help:      "Batch updates rejected by the safety classifier, by reason",
		}, []string{"reason"}),
	}
	registerOnce.Do(func() {
		prometheus.MustRegister(p.filesUpdated, p.verificationFailures, p.commitFailures, p.unsafeVerdicts)
	})
	return p
}

func (p *Prom) IncFilesUpdated()         { p.filesUpdated.Inc() }
func (p *Prom) IncVerificationFailures() { p.verificationFailures.Inc() }
func (p *Prom) IncCommitFailures()       { p.commitFailures.Inc() }

func (p *Prom) IncUnsafeVerdicts(reason string) {
	p.unsafeVerdicts.WithLabelValues(reason).Inc()
}
