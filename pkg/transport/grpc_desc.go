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
	"context"

	"google.golang.org/grpc"
)

// The service descriptor is written by hand: the wire format is JSON (see
// JSONCodec), so there is no generated protobuf code to lean on. Method
// names follow the a2a.v1 service layout.

func unaryHandler[Req any, Resp any](method string, call func(context.Context, *Req) (Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + a2aServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(ctx, req.(*Req))
			})
		},
	}
}

// ServiceDesc builds the grpc.ServiceDesc for this service instance.
func (s *GRPCService) ServiceDesc() *grpc.ServiceDesc {
	return &grpc.ServiceDesc{
		ServiceName: a2aServiceName,
		HandlerType: (*any)(nil),
		Methods: []grpc.MethodDesc{
			unaryHandler("SendMessage", s.SendMessage),
			unaryHandler("GetTask", s.GetTask),
			unaryHandler("ListTasks", s.ListTasks),
			unaryHandler("CancelTask", s.CancelTask),
			unaryHandler("TaskFeedback", s.TaskFeedback),
			unaryHandler("ListContexts", s.ListContexts),
			unaryHandler("ClearContext", s.ClearContext),
			unaryHandler("SetTaskPushNotification", s.SetTaskPushNotification),
			unaryHandler("GetTaskPushNotification", s.GetTaskPushNotification),
			unaryHandler("ListTaskPushNotifications", s.ListTaskPushNotifications),
			unaryHandler("DeleteTaskPushNotification", s.DeleteTaskPushNotification),
			unaryHandler("HealthCheck", s.HealthCheck),
		},
		Streams: []grpc.StreamDesc{
			{
				StreamName:    "StreamMessage",
				ServerStreams: true,
				Handler: func(srv any, stream grpc.ServerStream) error {
					in := new(SendMessageRequest)
					if err := stream.RecvMsg(in); err != nil {
						return err
					}
					return s.StreamMessage(in, stream)
				},
			},
		},
		Metadata: "a2a/v1/a2a.proto",
	}
}

// Register installs the service on a grpc.Server.
func (s *GRPCService) Register(server *grpc.Server) {
	server.RegisterService(s.ServiceDesc(), s)
}
