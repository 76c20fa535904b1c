// Copyright 2021 Rivulet Data, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package rivulet compiles bound SQL statements against a catalog
// snapshot into distributed batch plans, streaming dataflow graphs with
// their fragment/actor layout, and DDL descriptors. The engine holds no
// mutable state: each compilation reads one catalog snapshot and owns its
// plan trees exclusively.
package rivulet

import (
	"context"

	"github.com/pkg/errors"

	"github.com/rivuletdata/rivulet/sql"
	"github.com/rivuletdata/rivulet/sql/analyzer"
	"github.com/rivuletdata/rivulet/sql/ast"
	"github.com/rivuletdata/rivulet/sql/batch"
	"github.com/rivuletdata/rivulet/sql/fragment"
	"github.com/rivuletdata/rivulet/sql/planbuilder"
	"github.com/rivuletdata/rivulet/sql/stream"
	"github.com/rivuletdata/rivulet/sql/wire"
)

// Config tunes compilation. Zero values pick the defaults.
type Config struct {
	// Parallelism is the actor count of hash-distributed fragments.
	Parallelism int
	// VirtualNodes is the size of the consistent-hash space.
	VirtualNodes int
	// TrackingURL is the issue tracker named in NotYetImplemented errors.
	TrackingURL string
}

// Engine is the compilation facade.
type Engine struct {
	catalog  *sql.Catalog
	analyzer *analyzer.Analyzer
	builder  *planbuilder.Builder
	config   Config
}

// New creates an engine over a catalog snapshot.
func New(catalog *sql.Catalog, config Config) *Engine {
	if config.TrackingURL == "" {
		config.TrackingURL = sql.DefaultTrackingURL
	}
	return &Engine{
		catalog:  catalog,
		analyzer: analyzer.New(),
		builder:  planbuilder.New(catalog, config.TrackingURL),
		config:   config,
	}
}

// NewDefault creates an engine with default configuration.
func NewDefault(catalog *sql.Catalog) *Engine {
	return New(catalog, Config{})
}

// Catalog returns the snapshot the engine compiles against.
func (e *Engine) Catalog() *sql.Catalog { return e.catalog }

// NewContext creates the per-compilation context.
func (e *Engine) NewContext(ctx context.Context, opts ...sql.ContextOption) *sql.Context {
	opts = append([]sql.ContextOption{sql.WithTrackingURL(e.config.TrackingURL)}, opts...)
	return sql.NewContext(ctx, opts...)
}

// BatchResult is a compiled batch statement.
type BatchResult struct {
	Root  batch.Node
	Proto *wire.BatchPlan
}

// CompileBatch compiles a single-shot statement (SELECT, VALUES, INSERT,
// DELETE, UPDATE) into a distributed batch plan.
func (e *Engine) CompileBatch(ctx *sql.Context, stmt ast.Statement) (*BatchResult, error) {
	logical, err := e.builder.Build(ctx, stmt)
	if err != nil {
		return nil, err
	}
	analyzed, err := e.analyzer.Analyze(ctx, logical)
	if err != nil {
		return nil, err
	}
	root, err := batch.Plan(ctx, analyzed)
	if err != nil {
		return nil, err
	}
	proto, err := wire.FromBatchPlan(root)
	if err != nil {
		return nil, errors.Wrap(err, "serializing batch plan")
	}
	return &BatchResult{Root: root, Proto: proto}, nil
}

// StreamResult is a compiled CREATE MATERIALIZED VIEW: the stream plan,
// its fragment/actor layout, the serialized graph, and the catalog entry
// of the new view.
type StreamResult struct {
	Root  *stream.Materialize
	Graph *fragment.Graph
	Proto *wire.StreamGraph
	Table *sql.Table
}

// CompileStream compiles a CREATE MATERIALIZED VIEW into a deployable
// stream graph.
func (e *Engine) CompileStream(ctx *sql.Context, stmt *ast.CreateMaterializedView) (*StreamResult, error) {
	logical, err := e.builder.Build(ctx, stmt)
	if err != nil {
		return nil, err
	}
	analyzed, err := e.analyzer.Analyze(ctx, logical)
	if err != nil {
		return nil, err
	}
	root, err := stream.Plan(ctx, analyzed)
	if err != nil {
		return nil, err
	}
	graph, err := fragment.Build(ctx, root, fragment.Options{
		Parallelism:  e.config.Parallelism,
		VirtualNodes: e.config.VirtualNodes,
	})
	if err != nil {
		return nil, err
	}
	proto, err := wire.FromGraph(graph)
	if err != nil {
		return nil, errors.Wrap(err, "serializing stream graph")
	}
	return &StreamResult{Root: root, Graph: graph, Proto: proto, Table: root.Table()}, nil
}

// CompileDDL compiles CREATE TABLE and DROP TABLE into the descriptor
// forwarded to the meta service. For DROP the descriptor names the
// dropped table.
func (e *Engine) CompileDDL(ctx *sql.Context, stmt ast.Statement) (*sql.TableDescriptor, error) {
	switch stmt := stmt.(type) {
	case *ast.CreateTable:
		return e.builder.BuildTableDescriptor(ctx, stmt)
	case *ast.DropTable:
		table, err := e.builder.CheckDropTable(ctx, stmt)
		if err != nil {
			return nil, err
		}
		return &sql.TableDescriptor{Name: table.Name}, nil
	default:
		return nil, sql.ErrInternal.New("not a DDL statement")
	}
}
