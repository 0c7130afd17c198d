package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"

	"github.com/MrWong99/clearspeech/pkg/provider/llm"
)

// Compile-time interface assertion.
var _ llm.Provider = (*instrumentedLLM)(nil)

type instrumentedLLM struct {
	name    string
	next    llm.Provider
	metrics *Metrics
}

// InstrumentLLM wraps p so every completion is traced as an "llm.complete"
// span and counted in m's provider counters under name.
func InstrumentLLM(name string, p llm.Provider, m *Metrics) llm.Provider {
	return &instrumentedLLM{name: name, next: p, metrics: m}
}

// Complete implements [llm.Provider].
func (p *instrumentedLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	ctx, span := StartSpan(ctx, "llm.complete")
	span.SetAttributes(attribute.String("provider", p.name))

	resp, err := p.next.Complete(ctx, req)
	status := StatusOK
	if err != nil {
		status = StatusError
	} else if resp != nil {
		span.SetAttributes(attribute.Int("tokens.total", resp.Usage.TotalTokens))
	}
	p.metrics.RecordProviderRequest(ctx, p.name, status)
	EndSpan(span, err)
	return resp, err
}
