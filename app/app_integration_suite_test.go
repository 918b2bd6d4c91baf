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

package app_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"lattice.dev/lattice/app"
	"lattice.dev/lattice/di"
	apperrors "lattice.dev/lattice/errors"
	"lattice.dev/lattice/route"
)

type order struct {
	ID       int64  `json:"id"`
	Item     string `json:"item" validate:"required"`
	Quantity int    `json:"quantity" validate:"min=1"`
}

// store is an in-memory order repository shared through state.
type store struct {
	mu     sync.Mutex
	orders []order
	log    []string
}

func (s *store) record(event string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.log = append(s.log, event)
}

func (s *store) events() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.log...)
}

func ordersApp(db *store) *app.App {
	var a *app.App
	a = app.MustNew(app.WithLayer(
		app.Provide("db", di.New(func(context.Context, di.Values) (any, error) {
			v, ok := app.StateValue[*store](a.State(), "db")
			if !ok {
				return nil, errors.New("database is not open")
			}
			return v, nil
		})),
		app.Provide("tx", di.NewScoped(func(_ context.Context, deps di.Values) (any, di.Cleanup, error) {
			s, err := di.Get[*store](deps, "db")
			if err != nil {
				return nil, nil, err
			}
			s.record("begin")
			return s, func(context.Context) error {
				s.record("commit")
				return nil
			}, nil
		}, di.DependsOn("db"))),
	))
	a.OnStartup(func(_ context.Context, a *app.App) error {
		return a.State().Set("db", db)
	})

	orders := app.NewController("/orders", app.Tags("orders"))
	Expect(orders.Register(
		app.Get("/", func(c *app.Context) (any, error) {
			s := app.MustArg[*store](c, "db")
			limit := app.MustArg[int64](c, "limit")
			s.mu.Lock()
			defer s.mu.Unlock()
			return s.orders[:min(int(limit), len(s.orders))], nil
		}, app.Args("db"), app.Query("limit", app.Typed(route.TypeInt), app.Default(int64(10)))),
		app.Get("/{id:int}", func(c *app.Context) (any, error) {
			s := app.MustArg[*store](c, "db")
			id := app.MustArg[int64](c, "id")
			s.mu.Lock()
			defer s.mu.Unlock()
			for _, o := range s.orders {
				if o.ID == id {
					return o, nil
				}
			}
			return nil, apperrors.NotFound(fmt.Errorf("order %d", id))
		}, app.Args("db", "id")),
		app.Post("/", func(c *app.Context) (any, error) {
			s := app.MustArg[*store](c, "tx")
			o := app.MustArg[order](c, app.DataArg)
			s.mu.Lock()
			o.ID = int64(len(s.orders) + 1)
			s.orders = append(s.orders, o)
			s.mu.Unlock()
			s.record("insert")
			return o, nil
		}, app.Args("tx"), app.Data[order](), app.AfterResponse(func(c *app.Context) error {
			app.MustArg[*store](c, "tx").record("notify")
			return nil
		})),
		app.Delete("/{id:int}", func(*app.Context) (any, error) {
			return nil, nil
		}, app.Guards(app.RequireIdentity())),
	)).To(Succeed())
	Expect(a.Register(orders)).To(Succeed())
	return a
}

func do(a *app.App, method, target, body string) (*http.Response, string) {
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, r)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := a.Test(req, app.WaitBackground())
	Expect(err).NotTo(HaveOccurred())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return resp, string(data)
}

var _ = Describe("Orders service", func() {
	var (
		db *store
		a  *app.App
	)

	BeforeEach(func() {
		db = &store{}
		a = ordersApp(db)
		Expect(a.Startup(context.Background())).To(Succeed())
		DeferCleanup(func() {
			Expect(a.Shutdown(context.Background())).To(Succeed())
		})
	})

	Describe("creating orders", func() {
		It("decodes, validates and stores the body", func() {
			resp, body := do(a, http.MethodPost, "/orders", `{"item":"pen","quantity":2}`)
			Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			Expect(body).To(MatchJSON(`{"id":1,"item":"pen","quantity":2}`))
		})

		It("closes the transaction before the after_response hook", func() {
			do(a, http.MethodPost, "/orders", `{"item":"pen","quantity":2}`)
			Expect(db.events()).To(Equal([]string{"begin", "insert", "commit", "notify"}))
		})

		It("rejects invalid bodies with field details", func() {
			resp, body := do(a, http.MethodPost, "/orders", `{"quantity":0}`)
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
			Expect(resp.Header.Get("Content-Type")).To(HavePrefix("application/problem+json"))

			var p map[string]any
			Expect(json.Unmarshal([]byte(body), &p)).To(Succeed())
			Expect(p).To(HaveKeyWithValue("code", "validation_failed"))
			Expect(p).To(HaveKey("errors"))
			Expect(db.events()).To(BeEmpty())
		})
	})

	Describe("reading orders", func() {
		BeforeEach(func() {
			for _, item := range []string{"pen", "ink", "pad"} {
				resp, _ := do(a, http.MethodPost, "/orders", fmt.Sprintf(`{"item":%q,"quantity":1}`, item))
				Expect(resp.StatusCode).To(Equal(http.StatusCreated))
			}
		})

		It("lists with a typed query default", func() {
			_, body := do(a, http.MethodGet, "/orders", "")
			var list []order
			Expect(json.Unmarshal([]byte(body), &list)).To(Succeed())
			Expect(list).To(HaveLen(3))

			_, body = do(a, http.MethodGet, "/orders?limit=2", "")
			Expect(json.Unmarshal([]byte(body), &list)).To(Succeed())
			Expect(list).To(HaveLen(2))

			resp, _ := do(a, http.MethodGet, "/orders?limit=two", "")
			Expect(resp.StatusCode).To(Equal(http.StatusBadRequest))
		})

		It("fetches one order by typed id", func() {
			resp, body := do(a, http.MethodGet, "/orders/2", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"id":2,"item":"ink","quantity":1}`))

			resp, _ = do(a, http.MethodGet, "/orders/9", "")
			Expect(resp.StatusCode).To(Equal(http.StatusNotFound))
		})

		It("answers HEAD like GET without a body", func() {
			resp, body := do(a, http.MethodHead, "/orders/1", "")
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			Expect(body).To(BeEmpty())
		})
	})

	It("guards deletion", func() {
		resp, _ := do(a, http.MethodDelete, "/orders/1", "")
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
	})

	It("lists its routes", func() {
		var paths []string
		for _, info := range a.Routes() {
			paths = append(paths, info.Method+" "+info.Path)
			Expect(info.Tags).To(ContainElement("orders"))
		}
		Expect(paths).To(ConsistOf(
			"GET /orders",
			"GET /orders/{id:int}",
			"POST /orders",
			"DELETE /orders/{id:int}",
		))
	})
})

var _ = Describe("Serving over TCP", func() {
	It("serves until the context is canceled", func() {
		a := ordersApp(&store{})
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		served := make(chan error, 1)
		go func() { served <- a.Serve(ctx, ln) }()

		url := "http://" + ln.Addr().String() + "/orders"
		Eventually(func() (int, error) {
			resp, err := http.Post(url, "application/json", strings.NewReader(`{"item":"pen","quantity":1}`)) //nolint:noctx // test
			if err != nil {
				return 0, err
			}
			defer resp.Body.Close()
			return resp.StatusCode, nil
		}).WithTimeout(2 * time.Second).Should(Equal(http.StatusCreated))

		cancel()
		Eventually(served).WithTimeout(3 * time.Second).Should(Receive(BeNil()))
	})

	It("refuses to start with registration errors", func() {
		a := app.MustNew()
		Expect(a.Register(app.Get("/x/{id:nope}", func(*app.Context) (any, error) { return nil, nil }))).To(Succeed())
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		Expect(err).NotTo(HaveOccurred())

		err = a.Serve(context.Background(), ln)
		var reg *app.RegistrationError
		Expect(errors.As(err, &reg)).To(BeTrue())
	})
})

func TestAppIntegration(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "App Integration Suite")
}
