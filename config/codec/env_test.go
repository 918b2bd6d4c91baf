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

//go:build !integration

package codec

import (
	"testing"

	"github.com/stretchr/testify/suite"
)

type EnvVarCodecTestSuite struct {
	suite.Suite
	codec EnvVarCodec
}

func TestEnvVarCodecTestSuite(t *testing.T) {
	suite.Run(t, new(EnvVarCodecTestSuite))
}

func (s *EnvVarCodecTestSuite) TestDecode_Flat() {
	var v map[string]any
	s.Require().NoError(s.codec.Decode([]byte("ADDR=:9000\nSHUTDOWN_TIMEOUT=5s"), &v))
	s.Equal(":9000", v["addr"])
	s.Equal("5s", v["shutdown_timeout"])
}

func (s *EnvVarCodecTestSuite) TestDecode_Nested() {
	var v map[string]any
	s.Require().NoError(s.codec.Decode([]byte("LOG__LEVEL=debug\nLOG__FORMAT= text \nCACHE__REDIS_ADDR=localhost:6379"), &v))

	log, ok := v["log"].(map[string]any)
	s.Require().True(ok)
	s.Equal("debug", log["level"])
	s.Equal("text", log["format"])

	cache, ok := v["cache"].(map[string]any)
	s.Require().True(ok)
	s.Equal("localhost:6379", cache["redis_addr"])
}

func (s *EnvVarCodecTestSuite) TestDecode_ScalarReplacedByGroup() {
	var v map[string]any
	s.Require().NoError(s.codec.Decode([]byte("LOG=on\nLOG__LEVEL=warn"), &v))
	s.Equal(map[string]any{"level": "warn"}, v["log"])
}

func (s *EnvVarCodecTestSuite) TestDecode_SkipsMalformed() {
	var v map[string]any
	s.Require().NoError(s.codec.Decode([]byte("NOEQUALS\n=value\n__=x\nOK=1"), &v))
	s.Equal(map[string]any{"ok": "1"}, v)
}

func (s *EnvVarCodecTestSuite) TestDecode_WrongTarget() {
	var v map[string]string
	s.Error(s.codec.Decode([]byte("A=1"), &v))
}

func (s *EnvVarCodecTestSuite) TestEncode_Unsupported() {
	_, err := s.codec.Encode(map[string]any{})
	s.Error(err)
}
