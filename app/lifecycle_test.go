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
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type LifecycleSuite struct {
	suite.Suite

	app   *App
	mu    sync.Mutex
	trail []string
}

func TestLifecycleSuite(t *testing.T) {
	suite.Run(t, new(LifecycleSuite))
}

func (s *LifecycleSuite) SetupTest() {
	a, err := New()
	s.Require().NoError(err)
	s.app = a
	s.trail = nil
}

func (s *LifecycleSuite) record(name string) LifecycleHook {
	return func(context.Context, *App) error {
		s.mu.Lock()
		defer s.mu.Unlock()
		s.trail = append(s.trail, name)
		return nil
	}
}

func (s *LifecycleSuite) TestStartupRunsInOrder() {
	s.app.OnStartup(s.record("first"))
	s.app.OnStartup(s.record("second"))

	s.Require().NoError(s.app.Startup(context.Background()))
	s.Equal([]string{"first", "second"}, s.trail)
	s.True(s.app.State().Sealed())
}

func (s *LifecycleSuite) TestShutdownRunsInReverse() {
	s.app.OnShutdown(s.record("db"))
	s.app.OnShutdown(s.record("cache"))
	s.Require().NoError(s.app.Startup(context.Background()))

	s.Require().NoError(s.app.Shutdown(context.Background()))
	s.Equal([]string{"cache", "db"}, s.trail)
}

func (s *LifecycleSuite) TestStateWritableDuringHooks() {
	s.app.OnStartup(func(_ context.Context, a *App) error {
		return a.State().Set("pool", "open")
	})
	s.app.OnShutdown(func(_ context.Context, a *App) error {
		return a.State().Delete("pool")
	})

	s.Require().NoError(s.app.Startup(context.Background()))
	s.ErrorIs(s.app.State().Set("pool", "other"), ErrStateReadOnly)
	s.Require().NoError(s.app.Shutdown(context.Background()))
	_, ok := s.app.State().Get("pool")
	s.False(ok)
}

func (s *LifecycleSuite) TestStartupErrorAborts() {
	boom := errors.New("no database")
	s.app.OnStartup(func(context.Context, *App) error { return boom })
	s.app.OnStartup(s.record("never"))

	err := s.app.Startup(context.Background())
	s.Require().ErrorIs(err, boom)
	s.Empty(s.trail)
	s.False(s.app.State().Sealed())
}

func (s *LifecycleSuite) TestRegistrationErrorSkipsHooks() {
	s.app.OnStartup(s.record("never"))
	s.Require().NoError(s.app.Register(Get("/a/{id:nope}", returns(nil))))

	var reg *RegistrationError
	s.Require().ErrorAs(s.app.Startup(context.Background()), &reg)
	s.Empty(s.trail)
}

func (s *LifecycleSuite) TestShutdownCollectsErrors() {
	first, second := errors.New("first"), errors.New("second")
	s.app.OnShutdown(func(context.Context, *App) error { return first })
	s.app.OnShutdown(s.record("middle"))
	s.app.OnShutdown(func(context.Context, *App) error { return second })

	err := s.app.Shutdown(context.Background())
	s.ErrorIs(err, first)
	s.ErrorIs(err, second)
	s.Equal([]string{"middle"}, s.trail)
}

func (s *LifecycleSuite) TestShutdownWaitsForAfterResponse() {
	release := make(chan struct{})
	s.Require().NoError(s.app.Register(Get("/", returns("ok"), AfterResponse(func(*Context) error {
		<-release
		return s.record("after_response")(context.Background(), nil)
	}))))
	s.app.OnShutdown(s.record("shutdown"))

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/", nil))
	s.Require().NoError(err)
	s.Equal(http.StatusOK, resp.StatusCode)

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	s.Require().NoError(s.app.Shutdown(context.Background()))
	s.Equal([]string{"after_response", "shutdown"}, s.trail)
}
