// Copyright 2026 Bindu Authors
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

package transport

import (
	"fmt"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials"

	"github.com/getbindu/bindu-go/pkg/auth"
	"github.com/getbindu/bindu-go/pkg/config"
	"github.com/getbindu/bindu-go/pkg/manager"
)

// NewGRPCServer builds the gRPC server with the JSON codec, auth
// interceptors and optional TLS, and registers the A2A service on it.
// The caller owns Serve and GracefulStop.
func NewGRPCServer(cfg config.GRPCSettings, mgr *manager.TaskManager, validator auth.TokenValidator) (*grpc.Server, error) {
	opts := []grpc.ServerOption{
		grpc.ForceServerCodec(JSONCodec{}),
		grpc.ChainUnaryInterceptor(auth.UnaryInterceptor(validator)),
		grpc.ChainStreamInterceptor(auth.StreamInterceptor(validator)),
	}
	if cfg.MaxWorkers > 0 {
		opts = append(opts, grpc.NumStreamWorkers(uint32(cfg.MaxWorkers)))
	}

	if cfg.TLSEnabled {
		creds, err := credentials.NewServerTLSFromFile(cfg.TLSCert, cfg.TLSKey)
		if err != nil {
			return nil, fmt.Errorf("failed to load gRPC TLS credentials: %w", err)
		}
		opts = append(opts, grpc.Creds(creds))
	}

	server := grpc.NewServer(opts...)
	NewGRPCService(mgr).Register(server)
	return server, nil
}
