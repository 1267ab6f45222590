package utils

import (
	"context"
	"runtime"
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.viam.com/utils"
)

// ParallelFactor controls the max level of parallelization. This might be useful
// to set in tests where too much parallelism actually slows tests down in
// aggregate.
var ParallelFactor = runtime.GOMAXPROCS(0)

func init() {
	if ParallelFactor <= 0 {
		ParallelFactor = 1
	}
	quarterProcs := float64(ParallelFactor) * .25
	if quarterProcs > 8 {
		ParallelFactor = int(quarterProcs)
	}
}

// GroupWorkFunc handles the work items [from, to) of one group.
type GroupWorkFunc func(groupNum, from, to int)

// GroupWorkParallel splits totalSize work items into at most ParallelFactor contiguous groups and runs
// each group on its own goroutine. The last group takes the remainder. It returns ctx.Err() if the
// context is done before the work starts. A group that panics stops early and its panic is returned
// as an error once every group is done.
func GroupWorkParallel(ctx context.Context, totalSize int, groupWork GroupWorkFunc) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if totalSize <= 0 {
		return nil
	}
	numGroups := ParallelFactor
	if numGroups > totalSize {
		numGroups = totalSize
	}
	groupSize := totalSize / numGroups

	groupErrs := make([]error, numGroups)
	var wait sync.WaitGroup
	wait.Add(numGroups)
	for groupNum := 0; groupNum < numGroups; groupNum++ {
		from := groupSize * groupNum
		to := from + groupSize
		if groupNum == numGroups-1 {
			to = totalSize
		}
		groupNum := groupNum
		utils.PanicCapturingGo(func() {
			defer wait.Done()
			defer func() {
				if r := recover(); r != nil {
					groupErrs[groupNum] = errors.Errorf("panic in work group %d [%d, %d): %v", groupNum, from, to, r)
				}
			}()
			groupWork(groupNum, from, to)
		})
	}
	wait.Wait()
	return multierr.Combine(groupErrs...)
}
