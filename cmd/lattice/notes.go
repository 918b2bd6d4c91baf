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

package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"lattice.dev/lattice/app"
	"lattice.dev/lattice/di"
	"lattice.dev/lattice/logging"
	"lattice.dev/lattice/metrics"
	"lattice.dev/lattice/middleware/compression"
	"lattice.dev/lattice/middleware/ratelimit"
	"lattice.dev/lattice/middleware/recovery"
	"lattice.dev/lattice/middleware/requestid"
	"lattice.dev/lattice/route"
)

// apiKey grants the identity allowed to delete notes.
const apiKey = "demo-admin-key"

var errNoteNotFound = errors.New("note not found")

type note struct {
	ID      uuid.UUID `json:"id"`
	Tenant  string    `json:"tenant"`
	Title   string    `json:"title"`
	Body    string    `json:"body,omitempty"`
	Created time.Time `json:"created"`
}

type noteInput struct {
	Title string `json:"title" validate:"required,max=80"`
	Body  string `json:"body" validate:"max=4000"`
}

// noteStore keeps notes in memory, per tenant.
type noteStore struct {
	mu    sync.RWMutex
	notes map[uuid.UUID]note
}

func newNoteStore() *noteStore {
	return &noteStore{notes: make(map[uuid.UUID]note)}
}

func (s *noteStore) add(tenant string, in noteInput) note {
	n := note{ID: uuid.New(), Tenant: tenant, Title: in.Title, Body: in.Body, Created: time.Now().UTC()}
	s.mu.Lock()
	s.notes[n.ID] = n
	s.mu.Unlock()
	return n
}

func (s *noteStore) get(tenant string, id uuid.UUID) (note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n, ok := s.notes[id]
	if !ok || n.Tenant != tenant {
		return note{}, fmt.Errorf("%w: %s", errNoteNotFound, id)
	}
	return n, nil
}

func (s *noteStore) list(tenant string, limit int) []note {
	s.mu.RLock()
	out := make([]note, 0, len(s.notes))
	for _, n := range s.notes {
		if n.Tenant == tenant {
			out = append(out, n)
		}
	}
	s.mu.RUnlock()
	slices.SortFunc(out, func(a, b note) int { return a.Created.Compare(b.Created) })
	return out[:min(limit, len(out))]
}

func (s *noteStore) remove(tenant string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notes[id]; !ok || n.Tenant != tenant {
		return fmt.Errorf("%w: %s", errNoteNotFound, id)
	}
	delete(s.notes, id)
	return nil
}

// authenticate accepts the demo API key as the admin identity.
func authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); ok && key == apiKey {
			r = r.WithContext(app.WithIdentity(r.Context(), "admin"))
		}
		next.ServeHTTP(w, r)
	})
}

// newNotesApp builds the demo service. logger and rec may be nil.
func newNotesApp(s app.Settings, logger *logging.Logger, rec *metrics.Recorder, extra ...app.AppOption) (*app.App, error) {
	if logger == nil {
		logger = logging.Nop()
	}
	opts := []app.AppOption{
		app.WithSettings(s),
		app.WithLogger(logger),
		app.WithLayer(
			app.Use(
				recovery.New(recovery.WithLogger(logger)),
				requestid.New(requestid.WithULID()),
				compression.New(compression.WithExcludeContentTypes("application/x-msgpack")),
				ratelimit.New(ratelimit.WithRequestsPerSecond(50), ratelimit.WithBurst(100), ratelimit.WithLogger(logger)),
				authenticate,
			),
			app.Provide("notes", di.New(func(_ context.Context, deps di.Values) (any, error) {
				state, err := di.Get[*app.State](deps, "state")
				if err != nil {
					return nil, err
				}
				store, ok := app.StateValue[*noteStore](state, "notes")
				if !ok {
					return nil, errors.New("note store is not open")
				}
				return store, nil
			}, di.DependsOn("state"))),
			app.OnErrorIs(errNoteNotFound, func(_ *app.Context, err error) *app.Response {
				return app.NewResponse(http.StatusNotFound, map[string]string{"message": err.Error()})
			}),
		),
	}
	if rec != nil {
		opts = append(opts, app.WithMetrics(rec))
	}
	a, err := app.New(append(opts, extra...)...)
	if err != nil {
		return nil, err
	}
	a.OnStartup(func(_ context.Context, a *app.App) error {
		return a.State().Set("notes", newNoteStore())
	})

	notes := app.NewController("/notes")
	if err = notes.Register(
		app.Get("/", listNotes, app.Name("listNotes"), app.Args("notes", "tenant"),
			app.Query("limit", app.Typed(route.TypeInt), app.Default(int64(20)))),
		app.Get("/{id:uuid}", getNote, app.Name("getNote"), app.Args("notes", "tenant", "id")),
		app.Post("/", createNote, app.Name("createNote"), app.Args("notes", "tenant"), app.Data[noteInput](),
			app.AfterResponse(func(c *app.Context) error {
				c.Logger().Info("note created", "tenant", app.MustArg[string](c, "tenant"))
				return nil
			})),
		app.Delete("/{id:uuid}", deleteNote, app.Name("deleteNote"), app.Args("notes", "tenant", "id"),
			app.Guards(app.RequireIdentity())),
	); err != nil {
		return nil, err
	}

	api := app.NewRouter("/api/v1", app.Tags("notes"),
		app.Header("tenant", app.Key("X-Tenant"), app.Default("public")),
	)
	if err = api.Register(notes); err != nil {
		return nil, err
	}
	if err = a.Register(api, app.Get("/healthz", func(*app.Context) (any, error) {
		return map[string]string{"status": "ok", "version": a.Settings().Version}, nil
	}, app.Name("health"), app.Cache(time.Second))); err != nil {
		return nil, err
	}
	return a, nil
}

func listNotes(c *app.Context) (any, error) {
	store := app.MustArg[*noteStore](c, "notes")
	return store.list(app.MustArg[string](c, "tenant"), int(app.MustArg[int64](c, "limit"))), nil
}

func getNote(c *app.Context) (any, error) {
	store := app.MustArg[*noteStore](c, "notes")
	return store.get(app.MustArg[string](c, "tenant"), app.MustArg[uuid.UUID](c, "id"))
}

func createNote(c *app.Context) (any, error) {
	store := app.MustArg[*noteStore](c, "notes")
	return store.add(app.MustArg[string](c, "tenant"), app.MustArg[noteInput](c, app.DataArg)), nil
}

func deleteNote(c *app.Context) (any, error) {
	store := app.MustArg[*noteStore](c, "notes")
	return nil, store.remove(app.MustArg[string](c, "tenant"), app.MustArg[uuid.UUID](c, "id"))
}
