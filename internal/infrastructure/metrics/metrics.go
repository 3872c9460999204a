package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_http_requests_total",
		Help: "Total de peticiones HTTP",
	}, []string{"method", "route", "status"})

	httpRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "stockledger_http_request_duration_seconds",
		Help:    "Duración de las peticiones HTTP",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route", "status"})

	resolutionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_identity_resolutions_total",
		Help: "Resoluciones de identidad por tipo de identificador y resultado",
	}, []string{"kind", "master_created", "link_created"})

	upsertConflicts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_identity_upsert_conflicts_total",
		Help: "Carreras de inserción resueltas por restricción única",
	}, []string{"target"})

	enrichmentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_enrichment_lookups_total",
		Help: "Consultas al servicio de enriquecimiento de GSTIN",
	}, []string{"result"})

	approvalsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_document_approvals_total",
		Help: "Aprobaciones de documentos por resultado",
	}, []string{"result"})

	postingsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_document_postings_total",
		Help: "Contabilizaciones de documentos por dirección y resultado",
	}, []string{"direction", "result"})

	ledgerEntriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_ledger_entries_total",
		Help: "Entradas agregadas al libro de stock",
	}, []string{"kind"})

	negativeStockWarnings = promauto.NewCounter(prometheus.CounterOpts{
		Name: "stockledger_negative_stock_warnings_total",
		Help: "Movimientos que dejaron stock negativo bajo la política warn",
	})

	isolationViolations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "stockledger_tenant_isolation_violations_total",
		Help: "Intentos de acceso a recursos de otro tenant",
	}, []string{"resource"})
)

// ObserveHTTPRequest registra una petición HTTP.
func ObserveHTTPRequest(method, route string, status int, duration time.Duration) {
	s := strconv.Itoa(status)
	httpRequestsTotal.WithLabelValues(method, route, s).Inc()
	httpRequestDuration.WithLabelValues(method, route, s).Observe(duration.Seconds())
}

// ObserveResolution registra una resolución de identidad exitosa.
func ObserveResolution(kind string, masterCreated, linkCreated bool) {
	resolutionsTotal.WithLabelValues(kind, strconv.FormatBool(masterCreated), strconv.FormatBool(linkCreated)).Inc()
}

// ObserveUpsertConflict target: master | link.
func ObserveUpsertConflict(target string) {
	upsertConflicts.WithLabelValues(target).Inc()
}

// ObserveEnrichment result: ok | not_found | error | cache_hit.
func ObserveEnrichment(result string) {
	enrichmentTotal.WithLabelValues(result).Inc()
}

// ObserveApproval result: approved | mismatch.
func ObserveApproval(result string) {
	approvalsTotal.WithLabelValues(result).Inc()
}

// ObservePosting result: posted | already_posted | insufficient_stock | error.
func ObservePosting(direction, result string) {
	postingsTotal.WithLabelValues(direction, result).Inc()
}

// ObserveLedgerEntries suma n entradas del tipo kind.
func ObserveLedgerEntries(kind string, n int) {
	if n <= 0 {
		return
	}
	ledgerEntriesTotal.WithLabelValues(kind).Add(float64(n))
}

// ObserveNegativeStockWarning cuenta un movimiento aceptado con stock resultante negativo.
func ObserveNegativeStockWarning() {
	negativeStockWarnings.Inc()
}

// ObserveIsolationViolation cuenta un acceso cruzado entre tenants.
func ObserveIsolationViolation(resource string) {
	isolationViolations.WithLabelValues(resource).Inc()
}
