package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

type LockupMetrics struct {
	deposits        *prometheus.CounterVec
	depositRejected *prometheus.CounterVec
	withdrawals     *prometheus.CounterVec
	transfers       prometheus.Counter
	depositCap      *prometheus.GaugeVec
	vaultHeld       *prometheus.GaugeVec
}

var (
	lockupOnce     sync.Once
	lockupRegistry *LockupMetrics
)

func Lockup() *LockupMetrics {
	lockupOnce.Do(func() {
		lockupRegistry = &LockupMetrics{
			deposits: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lockup_deposits_total",
				Help: "Count of accepted deposits by pool and funding path.",
			}, []string{"pool", "path"}),
			depositRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lockup_deposits_rejected_total",
				Help: "Count of rejected deposits by pool and reason.",
			}, []string{"pool", "reason"}),
			withdrawals: prometheus.NewCounterVec(prometheus.CounterOpts{
				Name: "lockup_withdrawals_total",
				Help: "Count of completed withdrawals by pool.",
			}, []string{"pool"}),
			transfers: prometheus.NewCounter(prometheus.CounterOpts{
				Name: "lockup_claim_transfers_total",
				Help: "Count of locked-claim transfers between members.",
			}),
			depositCap: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "lockup_deposit_cap",
				Help: "Current dynamic ceiling on naked deposits per pool.",
			}, []string{"pool"}),
			vaultHeld: prometheus.NewGaugeVec(prometheus.GaugeOpts{
				Name: "lockup_vault_held",
				Help: "Deposit asset currently held in the pool vault.",
			}, []string{"pool"}),
		}
		prometheus.MustRegister(
			lockupRegistry.deposits,
			lockupRegistry.depositRejected,
			lockupRegistry.withdrawals,
			lockupRegistry.transfers,
			lockupRegistry.depositCap,
			lockupRegistry.vaultHeld,
		)
	})
	return lockupRegistry
}

func (m *LockupMetrics) ObserveDeposit(pool, path string) {
	if m == nil {
		return
	}
	if path == "" {
		path = "direct"
	}
	m.deposits.WithLabelValues(pool, path).Inc()
}

func (m *LockupMetrics) ObserveDepositRejected(pool, reason string) {
	if m == nil {
		return
	}
	if reason == "" {
		reason = "unknown"
	}
	m.depositRejected.WithLabelValues(pool, reason).Inc()
}

func (m *LockupMetrics) ObserveWithdrawal(pool string) {
	if m == nil {
		return
	}
	m.withdrawals.WithLabelValues(pool).Inc()
}

func (m *LockupMetrics) ObserveClaimTransfer() {
	if m == nil {
		return
	}
	m.transfers.Inc()
}

func (m *LockupMetrics) SetDepositCap(pool string, cap float64) {
	if m == nil {
		return
	}
	m.depositCap.WithLabelValues(pool).Set(cap)
}

func (m *LockupMetrics) SetVaultHeld(pool string, held float64) {
	if m == nil {
		return
	}
	m.vaultHeld.WithLabelValues(pool).Set(held)
}
