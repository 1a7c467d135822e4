package monitor

import (
	"github.com/prometheus/client_golang/prometheus"
)

// 设备侧指标，未调用 Init 时同样可以安全更新
var (
	APDUTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signer_apdu_total",
		Help: "APDUs handled, by instruction and status word.",
	}, []string{"ins", "sw"})

	SignOutcomeTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signer_sign_outcome_total",
		Help: "Sign sessions by classification and outcome.",
	}, []string{"kind", "outcome"})

	ChunksPerSign = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "signer_chunks_per_sign",
		Help:    "Chunks fetched from the host during one sign session.",
		Buckets: prometheus.ExponentialBuckets(1, 2, 10),
	})

	ObjectScansTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signer_object_scans_total",
		Help: "Object stream scans, by result.",
	}, []string{"result"})

	TokenDescriptorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "signer_token_descriptors_total",
		Help: "Trusted token descriptors received, by result.",
	}, []string{"result"})
)

func registerDeviceMetrics(r prometheus.Registerer) {
	r.MustRegister(APDUTotal, SignOutcomeTotal, ChunksPerSign, ObjectScansTotal, TokenDescriptorsTotal)
}
