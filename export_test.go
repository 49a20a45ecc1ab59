/*
 *  export_test.go
 *  cgatflow
 *
 *  Copyright © 2026 the cgat-flow authors. All rights reserved.
 */

package cgatflow

import "context"

// Hooks for the external test package.
var (
	SniffType      = sniffType
	SanitizeColumn = sanitizeColumn
	QuoteIdent     = quoteIdent
	ReadGeneList   = readGeneList
)

// NewGeneInfoForTest assembles a GeneInfo around a prepared pipeline and
// mygene client without touching the live services.
func NewGeneInfoForTest(p *Pipeline, mygene *MyGeneClient) *GeneInfo {
	return &GeneInfo{Pipeline: p, mygene: mygene}
}

func (g *GeneInfo) AnnotatePathway(ctx context.Context, symbols []string) error {
	return g.annotatePathway(ctx, symbols)
}
