package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// balanceClamps counts decrements that were truncated by the clamp-to-zero
// policy. A nonzero rate means the ledger is drifting (double settlement,
// deletion after settlement, ...) and is worth investigating.
var balanceClamps = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "ledger_balance_clamp_total",
		Help: "Number of balance decrements truncated at zero, by field.",
	},
	[]string{"field"},
)

// inviteCodeRetries counts invite-code candidates discarded because the
// code was already taken.
var inviteCodeRetries = promauto.NewCounter(
	prometheus.CounterOpts{
		Name: "ledger_invite_code_retries_total",
		Help: "Number of invite code candidates discarded due to collisions.",
	},
)

// InviteCodeRetried records one discarded invite-code candidate.
func InviteCodeRetried() {
	inviteCodeRetries.Inc()
}

// clamp decrements *field by amount, flooring at zero. A truncated
// decrement is recorded under the given metric label.
func clamp(field *float64, amount float64, label string) {
	if *field < amount {
		*field = 0
		balanceClamps.WithLabelValues(label).Inc()
		return
	}
	*field -= amount
}
