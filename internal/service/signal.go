// SPDX-FileCopyrightText: The fieldsync Authors
//
// SPDX-License-Identifier: MIT

package service

import (
	"context"
	"os"
)

// HandleStatusSignal prints the status immediately whenever a signal is
// received, without waiting for the next scheduled tick.
func (s *Service) HandleStatusSignal(ctx context.Context, sigChan chan os.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-sigChan:
			s.printStatus(ctx)
		}
	}
}
