// Package insights exposes the upload-to-insights pipeline as a Service that
// middlewares can decorate.
package insights

import (
	"context"
	"fmt"

	"github.com/cespare/xxhash/v2"

	"github.com/KaramelBytes/docloom-insights/internal/analysis"
	"github.com/KaramelBytes/docloom-insights/internal/parser"
)

// Upload is one file received for analysis.
type Upload struct {
	// Name is the client-supplied filename; its extension selects the parser.
	Name string
	Data []byte
}

// Digest returns the xxhash64 of the upload body as 16 hex digits.
func (u Upload) Digest() string {
	return fmt.Sprintf("%016x", xxhash.Sum64(u.Data))
}

// Service is the insights service interface.
// It enables middleware to be added to the service.
type Service interface {
	// Generate parses the upload and computes its trends, anomalies and correlations.
	Generate(ctx context.Context, up Upload) (*analysis.Insights, error)
}

// Middleware describes a service middleware.
type Middleware func(Service) Service

// ApplyMiddleware applies middlewares to a service. The last middleware is the outermost.
func ApplyMiddleware(svc Service, mw ...Middleware) Service {
	for _, m := range mw {
		svc = m(svc)
	}
	return svc
}

// Generator is the Service implementation backed by the parser registry and
// the analysis package. It holds no state between calls.
type Generator struct {
	opt parser.Options
}

// NewGenerator returns a Generator that parses and analyzes with opt.
func NewGenerator(opt parser.Options) *Generator {
	return &Generator{opt: opt}
}

// Generate implements Service.
func (g *Generator) Generate(ctx context.Context, up Upload) (*analysis.Insights, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tbl, err := parser.ParseBytes(up.Name, up.Data, g.opt)
	if err != nil {
		return nil, err
	}
	return analysis.Analyze(tbl, g.opt.Options)
}
