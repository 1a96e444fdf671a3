package field

import (
	"runtime"
	"sync"
)

// parallelRows executes fn for each row in [0,rows). The range is split
// among available CPUs. Every row is independent; fn must not touch rows
// other than its own.
func parallelRows(rows int, fn func(row int)) {
	if rows <= 0 {
		return
	}
	workers := runtime.GOMAXPROCS(0)
	if workers > rows {
		workers = rows
	}
	var wg sync.WaitGroup
	chunk := (rows + workers - 1) / workers
	for w := 0; w < workers; w++ {
		s := w * chunk
		e := s + chunk
		if e > rows {
			e = rows
		}
		if s >= rows {
			break
		}
		wg.Add(1)
		go func(ss, ee int) {
			for row := ss; row < ee; row++ {
				fn(row)
			}
			wg.Done()
		}(s, e)
	}
	wg.Wait()
}
