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

package sql

import (
	"context"

	opentracing "github.com/opentracing/opentracing-go"
)

// DefaultTrackingURL is the issue tracker referenced by NotYetImplemented
// error messages.
const DefaultTrackingURL = "https://github.com/rivuletdata/rivulet/issues"

// Context carries the standard context, the tracer, session flags, and the
// per-compilation id allocators. One Context belongs to exactly one
// compilation; it is not safe for concurrent use and is discarded with the
// plan trees it produced.
type Context struct {
	context.Context
	tracer      opentracing.Tracer
	ids         *IDAllocator
	flags       SessionFlags
	trackingURL string
}

// SessionFlags are per-session toggles. They never alter plan shape.
type SessionFlags struct {
	ImplicitFlush bool
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithTracer sets the tracer used by Span.
func WithTracer(t opentracing.Tracer) ContextOption {
	return func(ctx *Context) {
		ctx.tracer = t
	}
}

// WithSessionFlags sets the session flags.
func WithSessionFlags(f SessionFlags) ContextOption {
	return func(ctx *Context) {
		ctx.flags = f
	}
}

// WithTrackingURL overrides the issue tracker named in NotYetImplemented
// messages.
func WithTrackingURL(url string) ContextOption {
	return func(ctx *Context) {
		ctx.trackingURL = url
	}
}

// NewContext creates a Context for one compilation.
func NewContext(ctx context.Context, opts ...ContextOption) *Context {
	c := &Context{
		Context:     ctx,
		tracer:      opentracing.NoopTracer{},
		ids:         NewIDAllocator(),
		trackingURL: DefaultTrackingURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewEmptyContext returns a default Context, mainly for tests.
func NewEmptyContext() *Context {
	return NewContext(context.TODO())
}

// Span starts a tracing span with the given operation name. The returned
// finish function must be called when the traced region ends.
func (ctx *Context) Span(opName string, opts ...opentracing.StartSpanOption) (opentracing.Span, func()) {
	span := ctx.tracer.StartSpan(opName, opts...)
	return span, func() { span.Finish() }
}

// IDs returns the per-compilation id allocator.
func (ctx *Context) IDs() *IDAllocator {
	return ctx.ids
}

// Flags returns the session flags.
func (ctx *Context) Flags() SessionFlags {
	return ctx.flags
}

// TrackingURL returns the issue tracker named in NotYetImplemented
// messages.
func (ctx *Context) TrackingURL() string {
	return ctx.trackingURL
}
