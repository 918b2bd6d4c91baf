// Copyright 2025 The Rivaas Authors
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

package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime/debug"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"lattice.dev/lattice/binding"
	"lattice.dev/lattice/cache"
	"lattice.dev/lattice/di"
	apperrors "lattice.dev/lattice/errors"
	"lattice.dev/lattice/router"
	"lattice.dev/lattice/validation"
)

// statusClientClosed is logged when the client went away before a response.
const statusClientClosed = 499

// ServeHTTP dispatches a request. The application is frozen on the first
// request; if freezing fails every request is answered with 500.
func (a *App) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := a.prop.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := a.tracer.Start(ctx, "lattice.request",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(
			attribute.String("http.request.method", r.Method),
			attribute.String("url.path", r.URL.Path),
		))
	defer span.End()
	rm := a.metrics.Start(ctx, r.Method)

	rw := &responseWriter{ResponseWriter: w}
	c := &Context{app: a, w: rw}
	c.req = r.WithContext(context.WithValue(ctx, ctxKey{}, c))
	defer a.release(c, rw)

	if err := a.Freeze(); err != nil {
		a.fail(c, apperrors.Internal(err))
	} else {
		a.dispatch(c)
	}
	rw.seal()
	c.w.seal()

	status, written := rw.state()
	if inner, _ := c.w.state(); inner == statusClientClosed {
		status = inner
	}
	if !written && status == 0 {
		status = http.StatusOK
	}
	var tpl string
	if c.route != nil {
		tpl = c.route.Path
		span.SetName(c.route.Method + " " + tpl)
		span.SetAttributes(attribute.String("http.route", tpl))
	}
	span.SetAttributes(attribute.Int("http.response.status_code", status))
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
	}
	a.metrics.Finish(ctx, rm, status, tpl)
	a.logger.LogRequest(c.req, tpl, status, time.Since(start))
}

func (a *App) dispatch(c *Context) {
	c.enter(PhaseMatching)
	m, err := a.match(c.req)
	if err != nil {
		a.fail(c, err)
		return
	}
	if m.Redirect != "" {
		target := m.Redirect
		if q := c.req.URL.RawQuery; q != "" {
			target += "?" + q
		}
		http.Redirect(c.w, c.req, target, http.StatusPermanentRedirect)
		c.enter(PhaseDone)
		return
	}

	c.ep = m.Route.Handler.(*endpoint)
	c.params = m.Params
	c.route = c.ep.infos[m.Route.Method]
	c.ep.serve.ServeHTTP(c.w, c.req)
}

// match looks up the request. HEAD falls back to GET.
func (a *App) match(r *http.Request) (*router.Match, error) {
	m, err := a.tree.Match(r.Method, r.URL.Path)
	var mna *router.MethodNotAllowedError
	if errors.As(err, &mna) && r.Method == http.MethodHead && slices.Contains(mna.Allowed, http.MethodGet) {
		m, err = a.tree.Match(http.MethodGet, r.URL.Path)
	}
	if err == nil {
		return m, nil
	}

	var perr *router.ParamError
	switch {
	case errors.As(err, &mna):
		allowed := mna.Allowed
		if slices.Contains(allowed, http.MethodGet) && !slices.Contains(allowed, http.MethodHead) {
			allowed = append(slices.Clone(allowed), http.MethodHead)
			slices.Sort(allowed)
		}
		return nil, apperrors.MethodNotAllowed(allowed, err)
	case errors.Is(err, router.ErrNotFound):
		return nil, apperrors.NotFound(err)
	case errors.As(err, &perr):
		return nil, apperrors.Validation(
			fmt.Sprintf("invalid path parameter %q", perr.Name), err,
			map[string]string{perr.Name: perr.Err.Error()},
		)
	}
	return nil, apperrors.Internal(err)
}

// serveEndpoint is the innermost handler of the middleware chain.
func (a *App) serveEndpoint(w http.ResponseWriter, r *http.Request) {
	c, ok := FromRequest(r)
	if !ok {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	c.req = r
	if rw, ok := w.(*responseWriter); !ok || rw != c.w {
		c.w = &responseWriter{ResponseWriter: w}
	}
	a.run(c)
}

func (a *App) run(c *Context) {
	defer func() {
		if v := recover(); v != nil {
			if v == http.ErrAbortHandler {
				panic(v)
			}
			a.fail(c, apperrors.Internal(&di.PanicError{Value: v, Stack: debug.Stack()}))
		}
	}()

	e, err := a.handle(c)
	if err != nil {
		a.fail(c, err)
		return
	}
	if e != nil {
		c.write(e)
	}
}

// handle runs the request from Resolving to Sending. It returns nil without
// an error when the handler wrote the response itself.
func (a *App) handle(c *Context) (*cache.Entry, error) {
	ep := c.ep
	ctx := c.req.Context()

	// The effective configuration was resolved when the application froze.
	c.enter(PhaseResolving)

	c.enter(PhaseGuarding)
	if err := a.guard(c); err != nil {
		return nil, err
	}

	var key string
	if ep.cached() && a.store != nil && (c.req.Method == http.MethodGet || c.req.Method == http.MethodHead) {
		key = cache.Key(c.req) + "#" + negotiate(c.req.Header.Get("Accept"), binding.MediaJSON, binding.MediaMsgPack)
		if e := a.cacheLoad(c, key); e != nil {
			c.enter(PhaseSending)
			return e, nil
		}
	}

	var resp *Response
	c.enter(PhaseBeforeHook)
	if h := ep.config.BeforeRequest; h != nil {
		v, err := safely(func() (any, error) { return h(c) })
		if err != nil {
			return nil, hookError(err)
		}
		if v != nil {
			resp = c.toResponse(v)
		}
	}

	if resp == nil {
		c.enter(PhaseInjecting)
		if err := a.inject(ctx, c); err != nil {
			return nil, err
		}

		c.enter(PhaseInvoking)
		v, err := a.invoke(ctx, c)
		if err != nil {
			return nil, err
		}
		if _, written := c.w.state(); written {
			return nil, nil
		}
		resp = c.toResponse(v)
	}

	c.enter(PhaseAfterHook)
	if h := ep.config.AfterRequest; h != nil {
		replaced, err := safely(func() (*Response, error) { return h(c, resp) })
		if err != nil {
			return nil, hookError(err)
		}
		if replaced != nil {
			resp = replaced
		}
	}

	c.enter(PhaseSending)
	e, err := c.render(resp)
	if err != nil {
		return nil, apperrors.Internal(err)
	}
	if key != "" && e.Status >= 200 && e.Status < 300 {
		a.cacheSave(c, key, e)
	}
	return e, nil
}

func (a *App) guard(c *Context) error {
	for _, g := range c.ep.config.Guards {
		_, err := safely(func() (struct{}, error) { return struct{}{}, g(c, c.route) })
		if err == nil {
			continue
		}
		err = denial(err)
		a.metrics.ObserveGuardDenial(c.req.Context(), c.route.Path, apperrors.StatusOf(err))
		return err
	}
	return nil
}

// denial maps a guard error. Errors without a status become 403 with the
// guard's message.
func denial(err error) error {
	var pe *di.PanicError
	if errors.As(err, &pe) {
		return apperrors.Internal(err)
	}
	var typed apperrors.ErrorType
	if errors.As(err, &typed) {
		return err
	}
	return &apperrors.Error{Kind: apperrors.KindForbidden, Message: err.Error(), Err: err}
}

// inject binds the handler inputs and resolves its dependencies.
func (a *App) inject(ctx context.Context, c *Context) error {
	args, err := c.bindInputs()
	if err != nil {
		return err
	}
	c.args = args
	if c.ep.graph.Len() == 0 {
		return nil
	}

	c.scope = di.NewScope(a.pool, di.WithObserver(a.metrics.ObserveProvider))
	values, err := c.ep.graph.Resolve(ctx, c.scope, func(_ context.Context, name string) (any, error) {
		if v, ok := args[name]; ok {
			return v, nil
		}
		return nil, &di.UnresolvedError{Name: name}
	})
	if err != nil {
		return providerError(err)
	}
	for _, name := range c.ep.graph.Required() {
		args[name] = values[name]
	}
	return nil
}

func (a *App) invoke(ctx context.Context, c *Context) (any, error) {
	fn := func() (any, error) { return c.ep.handler.fn(c) }
	if !c.ep.blocking {
		v, err := safely(fn)
		if err != nil {
			return nil, handlerError(err)
		}
		return v, nil
	}

	done, err := a.pool.Go(ctx, fn)
	if err != nil {
		return nil, err
	}
	select {
	case r := <-done:
		if r.Err != nil {
			return nil, handlerError(r.Err)
		}
		return r.Value, nil
	case <-ctx.Done():
		// The handler keeps running; release waits for it before cleanup.
		c.pending = done
		return nil, ctx.Err()
	}
}

// release runs once dispatch has returned. It seals the response writers,
// closes the dependency scope and starts the after_response hook. When an
// offloaded handler was abandoned, cleanup waits for it in the background.
func (a *App) release(c *Context, rw *responseWriter) {
	rw.seal()
	c.w.seal()

	var hook AfterResponseHook
	if c.ep != nil {
		hook = c.ep.config.AfterResponse
	}
	if c.pending == nil {
		a.closeScope(c)
		if hook == nil {
			if c.phase != PhaseErrored && c.phase != PhaseDone {
				c.enter(PhaseDone)
			}
			return
		}
	}
	if hook != nil {
		c.enter(PhaseAfterResponseHook)
	}

	a.background.Add(1)
	go func() {
		defer a.background.Done()
		if c.pending != nil {
			<-c.pending
			a.closeScope(c)
		}
		if hook != nil {
			a.afterResponse(c, hook)
		}
	}()
}

func (a *App) closeScope(c *Context) {
	if c.scope == nil {
		return
	}
	if err := c.scope.Close(context.WithoutCancel(c.req.Context())); err != nil {
		c.log().Error("dependency cleanup failed", "error", err)
	}
}

func (a *App) afterResponse(c *Context, hook AfterResponseHook) {
	defer func() {
		c.phase = PhaseDone
		if v := recover(); v != nil {
			c.log().Error("after_response hook panicked", "panic", fmt.Sprint(v), "stack", string(debug.Stack()))
		}
	}()
	if err := hook(c); err != nil {
		c.log().Error("after_response hook failed", "error", err)
	}
}

// fail answers the request with err. Exception handlers of the matched
// handler, or of the application before matching, are tried first.
func (a *App) fail(c *Context, err error) {
	from := c.phase
	c.enter(PhaseErrored)
	trace.SpanFromContext(c.req.Context()).RecordError(err)

	if c.req.Context().Err() != nil && errors.Is(err, c.req.Context().Err()) {
		c.w.abandon(statusClientClosed)
		c.log().Debug("request abandoned", "phase", from.String(), "error", err)
		return
	}
	if _, written := c.w.state(); written {
		c.log().Error("request failed after the response started", "phase", from.String(), "error", err)
		return
	}

	if apperrors.StatusOf(err) >= http.StatusInternalServerError {
		c.log().Error("request failed", "phase", from.String(), "error", err)
	} else {
		c.log().Debug("request rejected", "phase", from.String(), "error", err)
	}

	if resp := a.exception(c, err); resp != nil {
		e, rerr := c.render(resp)
		if rerr == nil {
			c.write(e)
			return
		}
		c.log().Error("exception handler response failed", "error", rerr)
		err = apperrors.Internal(errors.Join(err, rerr))
	}
	if werr := apperrors.Write(c.w, c.req, a.formatter, err); werr != nil {
		c.log().Debug("write error response failed", "error", werr)
	}
	c.status, _ = c.w.state()
}

func (a *App) exception(c *Context, err error) *Response {
	chain := exceptionChain{&a.root.exceptions}
	if c.ep != nil {
		chain = c.ep.config.exceptions
	}
	fn, target := chain.find(err)
	if fn == nil {
		return nil
	}
	resp, herr := safely(func() (*Response, error) { return fn(c, target), nil })
	if herr != nil {
		c.log().Error("exception handler failed", "error", herr)
		return nil
	}
	if resp != nil && resp.Status == 0 {
		resp.Status = apperrors.StatusOf(err)
	}
	return resp
}

func (a *App) cacheLoad(c *Context, key string) *cache.Entry {
	e, err := cache.Load(c.req.Context(), a.store, key)
	if err != nil {
		c.log().Warn("response cache read failed", "key", key, "error", err)
	}
	a.metrics.ObserveCache(c.req.Context(), c.route.Path, e != nil)
	return e
}

func (a *App) cacheSave(c *Context, key string, e *cache.Entry) {
	e.StoredAt = time.Now()
	if err := cache.Save(c.req.Context(), a.store, key, e, *c.ep.config.CacheTTL); err != nil {
		c.log().Warn("response cache write failed", "key", key, "error", err)
	}
}

// enter moves c to phase p and records it on the request span.
func (c *Context) enter(p Phase) {
	c.phase = p
	trace.SpanFromContext(c.req.Context()).AddEvent(p.String())
}

// bindInputs builds the handler inputs from the binding table. Parameter
// failures are collected into one validation error.
func (c *Context) bindInputs() (di.Values, error) {
	args := make(di.Values, len(c.ep.slots))
	var bad binding.MultiError
	for _, s := range c.ep.slots {
		switch s.kind {
		case slotReserved:
			v, err := c.reservedValue(s.reserved)
			if err != nil {
				return nil, bodyError(err)
			}
			args[s.name] = v
		case slotPath:
			args[s.name], _ = c.params.Get(s.name)
		case slotParam:
			v, berr := s.param.bind(c.getter(s.param.Source))
			if berr != nil {
				bad.Errors = append(bad.Errors, berr)
				continue
			}
			args[s.name] = v
		case slotBody:
			data, err := c.Body()
			if err != nil {
				return nil, bodyError(err)
			}
			v, err := c.ep.data.decode(c.req.Context(), c.app.body, c.req.Header.Get("Content-Type"), data)
			if err != nil {
				return nil, bodyError(err)
			}
			args[s.name] = v
		}
	}
	if len(bad.Errors) > 0 {
		return nil, apperrors.Validation("invalid request parameters", &bad, bad.Details())
	}
	return args, nil
}

func (c *Context) reservedValue(k reservedKind) (any, error) {
	switch k {
	case reservedRequest:
		return c.req, nil
	case reservedHeaders:
		return c.req.Header, nil
	case reservedCookies:
		return c.req.Cookies(), nil
	case reservedQuery:
		return c.Query(), nil
	case reservedBody:
		return c.Body()
	case reservedState:
		return c.app.state, nil
	case reservedPathParams:
		return c.params.Map(), nil
	}
	return nil, fmt.Errorf("unknown reserved input %d", k)
}

func bodyError(err error) error {
	e := apperrors.Validation("invalid request body", err, nil)
	var verr *validation.Error
	switch {
	case errors.Is(err, binding.ErrBodyTooLarge):
		e.Message, e.Status = "request body too large", http.StatusRequestEntityTooLarge
	case errors.Is(err, binding.ErrUnsupportedMediaType):
		e.Message, e.Status = "unsupported media type", http.StatusUnsupportedMediaType
	case errors.As(err, &verr):
		e.Fields = verr.Details()
	}
	return e
}

func providerError(err error) error {
	var rerr *di.ResolutionError
	if !errors.As(err, &rerr) {
		return err
	}
	var typed apperrors.ErrorType
	if errors.As(rerr.Err, &typed) {
		return err
	}
	return &apperrors.Error{Kind: apperrors.KindProvider, Err: err}
}

func handlerError(err error) error {
	var pe *di.PanicError
	if errors.As(err, &pe) {
		return apperrors.Internal(err)
	}
	var typed apperrors.ErrorType
	if errors.As(err, &typed) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return apperrors.HandlerFailed(err)
}

func hookError(err error) error {
	var pe *di.PanicError
	if errors.As(err, &pe) {
		return apperrors.Internal(err)
	}
	return handlerError(err)
}

// safely runs fn and converts a panic into a *di.PanicError.
func safely[T any](fn func() (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			if r == http.ErrAbortHandler {
				panic(r)
			}
			err = &di.PanicError{Value: r, Stack: debug.Stack()}
		}
	}()
	return fn()
}
