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

package scheduler

import (
	"fmt"

	"github.com/getbindu/bindu-go/pkg/config"
)

// Open builds the scheduler backend selected by the settings.
func Open(cfg config.SchedulerSettings) (Scheduler, error) {
	switch cfg.Type {
	case config.SchedulerMemory:
		return NewMemoryScheduler(), nil
	case config.SchedulerRedis:
		return NewRedisScheduler(cfg.RedisURL)
	default:
		return nil, fmt.Errorf("unknown scheduler type: %q", cfg.Type)
	}
}
