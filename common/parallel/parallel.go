// Copyright 2020 gorse Project Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
// http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package parallel

import (
	"context"
	"sync"

	"github.com/gorse-io/hybrid/base/log"
	"github.com/juju/errors"
	"go.uber.org/zap"
)

const chanSize = 1024

// Parallel schedules and runs jobs in parallel. nJobs is the number of jobs. nWorkers is
// the number of executors. worker is the executed function which is passed the id of a
// worker and the id of a job. The ctx argument allows callers to cancel outstanding work.
// The first failed job stops all workers, and a panic in a job is returned as an error.
func Parallel(ctx context.Context, nJobs, nWorkers int, worker func(workerId, jobId int) error) error {
	if nWorkers <= 1 {
		for i := 0; i < nJobs; i++ {
			if err := ctx.Err(); err != nil {
				return errors.Trace(err)
			}
			if err := runJob(worker, 0, i); err != nil {
				return errors.Trace(err)
			}
		}
	} else {
		parent := ctx
		ctx, cancel := context.WithCancel(parent)
		defer cancel()
		var (
			once     sync.Once
			firstErr error
		)
		c := make(chan int, chanSize)
		// producer
		go func() {
			defer close(c)
			for i := 0; i < nJobs; i++ {
				select {
				case <-ctx.Done():
					return
				case c <- i:
				}
			}
		}()
		// consumer
		var wg sync.WaitGroup
		for j := 0; j < nWorkers; j++ {
			workerId := j
			wg.Add(1)
			go func() {
				defer wg.Done()
				for {
					select {
					case <-ctx.Done():
						return
					case jobId, ok := <-c:
						if !ok || ctx.Err() != nil {
							return
						}
						if err := runJob(worker, workerId, jobId); err != nil {
							once.Do(func() {
								firstErr = err
								cancel()
							})
							return
						}
					}
				}
			}()
		}
		wg.Wait()
		if firstErr != nil {
			return errors.Trace(firstErr)
		}
		if err := parent.Err(); err != nil {
			return errors.Trace(err)
		}
	}
	return nil
}

func runJob(worker func(workerId, jobId int) error, workerId, jobId int) (err error) {
	defer func() {
		if r := recover(); r != nil {
			log.Logger().Error("panic recovered", zap.Any("panic", r), zap.Int("job_id", jobId), zap.Stack("stack"))
			err = errors.Errorf("job %d panicked: %v", jobId, r)
		}
	}()
	return worker(workerId, jobId)
}
