// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package supervisor

import (
	"context"
	"errors"
	"fmt"

	"github.com/thejerf/suture/v4"

	"github.com/OpenChatAlytics/ChatAlytics/internal/logging"
)

// FeedConnector is the connector surface the service wrapper needs,
// satisfied by *connector.Connector.
type FeedConnector interface {
	Connect(ctx context.Context) error
	Run(ctx context.Context) error
	Close()
}

// ConnectorService supervises the chat feed connector. The connector's
// resilience policy is front-loaded into Connect; once that fails, or once
// the established connection drops, the failure is permanent. The service
// therefore terminates the whole tree instead of letting suture restart it
// into a second connection.
type ConnectorService struct {
	conn FeedConnector
}

func NewConnectorService(conn FeedConnector) *ConnectorService {
	return &ConnectorService{conn: conn}
}

func (s *ConnectorService) String() string { return "chat-connector" }

// Serve implements suture.Service.
func (s *ConnectorService) Serve(ctx context.Context) error {
	if err := s.conn.Connect(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			return err
		}
		logging.Err(err).Msg("chat feed connection failed permanently")
		return fmt.Errorf("%w: %w", suture.ErrTerminateSupervisorTree, err)
	}
	defer s.conn.Close()

	err := s.conn.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		logging.Err(err).Msg("chat feed connection lost")
		return fmt.Errorf("%w: %w", suture.ErrTerminateSupervisorTree, err)
	}
	return err
}

// Service adapts any Serve-shaped component with a fixed name. Used for
// components that already follow the suture contract but do not name
// themselves.
type Service struct {
	Name string
	Run  func(ctx context.Context) error
}

func (s Service) String() string { return s.Name }

func (s Service) Serve(ctx context.Context) error { return s.Run(ctx) }
