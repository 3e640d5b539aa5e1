// Package prometheus renders shelfauth metrics in Prometheus text
// exposition format without pulling in the client library; the counter set
// is small and fixed.
package prometheus

import (
	"net/http"
	"strconv"
	"strings"

	shelfauth "github.com/shelfd/shelfauth"
	"github.com/shelfd/shelfauth/metrics/export/internaldefs"
)

type metricsSource interface {
	MetricsSnapshot() shelfauth.MetricsSnapshot
	AuditDropped() uint64
}

// Exporter renders engine metrics for a Prometheus scrape endpoint.
type Exporter struct {
	source metricsSource
}

// NewExporter creates an Exporter reading from the given engine.
func NewExporter(engine *shelfauth.Engine) *Exporter {
	return &Exporter{source: engine}
}

// NewExporterFromSource creates an Exporter from a custom source, mainly
// for tests.
func NewExporterFromSource(source metricsSource) *Exporter {
	return &Exporter{source: source}
}

// Handler returns an http.Handler serving the rendered metrics.
func (p *Exporter) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		_, _ = w.Write([]byte(p.Render()))
	})
}

// Render writes the current counters in text exposition format.
func (p *Exporter) Render() string {
	if p == nil || p.source == nil {
		return ""
	}

	snapshot := p.source.MetricsSnapshot()

	var b strings.Builder
	b.Grow(2048)

	for _, def := range internaldefs.CounterDefs {
		writeCounter(&b, def.Name, def.Help, snapshot.Counters[def.ID])
	}

	writeCounter(&b, "shelfauth_audit_dropped_total", "Dropped audit events due to dispatcher backpressure.", p.source.AuditDropped())

	return b.String()
}

func writeCounter(b *strings.Builder, name, help string, value uint64) {
	b.WriteString("# HELP ")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(help)
	b.WriteByte('\n')
	b.WriteString("# TYPE ")
	b.WriteString(name)
	b.WriteString(" counter\n")
	b.WriteString(name)
	b.WriteByte(' ')
	b.WriteString(strconv.FormatUint(value, 10))
	b.WriteByte('\n')
}
