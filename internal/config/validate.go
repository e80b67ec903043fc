// ChatAlytics - Realtime Chat Analytics Relay
// Copyright 2026 OpenChatAlytics
// SPDX-License-Identifier: Apache-2.0
// https://github.com/OpenChatAlytics/ChatAlytics

package config

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// Validate checks struct tags plus the cross-field constraints the tags
// cannot express. Returns the first violation found.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			v := verrs[0]
			return fmt.Errorf("field %s failed %q validation", v.Namespace(), v.Tag())
		}
		return err
	}

	if c.Chat.ConnectBackoffMax < c.Chat.ConnectRetryInterval {
		return fmt.Errorf("chat.connect_backoff_max (%s) must be >= chat.connect_retry_interval (%s)",
			c.Chat.ConnectBackoffMax, c.Chat.ConnectRetryInterval)
	}
	if c.Chat.ConnectDeadline < c.Chat.ConnectRetryInterval {
		return fmt.Errorf("chat.connect_deadline (%s) must be >= chat.connect_retry_interval (%s)",
			c.Chat.ConnectDeadline, c.Chat.ConnectRetryInterval)
	}

	return nil
}
