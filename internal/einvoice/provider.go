// Package einvoice talks to the electronic invoice provider.
package einvoice

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/eventpass/eventpass-api/internal/domain"
)

// SimulatedProvider stands in for a real e-invoice provider. It waits for
// the configured latency and then succeeds with probability successRate.
type SimulatedProvider struct {
	baseURL     string
	latency     time.Duration
	successRate float64

	mu  sync.Mutex
	rnd *rand.Rand
}

func NewSimulatedProvider(baseURL string, latency time.Duration, successRate float64, seed int64) *SimulatedProvider {
	return &SimulatedProvider{
		baseURL:     strings.TrimSuffix(baseURL, "/"),
		latency:     latency,
		successRate: successRate,
		rnd:         rand.New(rand.NewSource(seed)),
	}
}

func (p *SimulatedProvider) Issue(ctx context.Context, invoice domain.Invoice) (domain.IssueResult, error) {
	zap.L().Info("submitting invoice to e-invoice provider",
		zap.String("invoice_id", invoice.ID.String()),
		zap.String("tax_code", invoice.TaxCode),
	)

	if p.latency > 0 {
		t := time.NewTimer(p.latency)
		defer t.Stop()

		select {
		case <-ctx.Done():
			return domain.IssueResult{}, fmt.Errorf("e-invoice provider call aborted -> %w", ctx.Err())
		case <-t.C:
		}
	}

	p.mu.Lock()
	roll := p.rnd.Float64()
	n := p.rnd.Intn(100000)
	p.mu.Unlock()

	if roll >= p.successRate {
		return domain.IssueResult{Success: false}, nil
	}

	return domain.IssueResult{
		Success:     true,
		InvoiceCode: fmt.Sprintf("INV-%d", n),
		PDFURL:      fmt.Sprintf("%s/download/%s.pdf", p.baseURL, invoice.ID),
	}, nil
}
