package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/d60-Lab/guestbook/config"
	"github.com/d60-Lab/guestbook/internal/repository"
	"github.com/d60-Lab/guestbook/internal/service"
	"github.com/d60-Lab/guestbook/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func envInt(key string, def int) int {
	if s := os.Getenv(key); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

// 并发提交留言，校验 id 唯一且递增，并输出延迟分布
func main() {
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))
	if err := repository.InitSchema(db); err != nil {
		panic(err)
	}
	repo := repository.NewEntryRepository(db)
	svc := service.NewGuestbookService(repo, nil, cfg.Guestbook.RecentLimit)
	ctx := context.Background()

	N := envInt("N", 2000)
	CONC := envInt("CONC", 8)
	if CONC > N {
		CONC = N
	}

	before := must(repo.Count(ctx))
	var mark uint64
	if top := must(repo.ListRecent(ctx, 1)); len(top) > 0 {
		mark = top[0].ID
	}

	feed := make(chan int, N)
	for i := 0; i < N; i++ {
		feed <- i
	}
	close(feed)

	var mu sync.Mutex
	lat := make([]time.Duration, 0, N)
	ids := make([]uint64, 0, N)
	failures := 0

	t0 := time.Now()
	var wg sync.WaitGroup
	for w := 0; w < CONC; w++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			for i := range feed {
				st := time.Now()
				res := svc.Submit(ctx, fmt.Sprintf("bench-%d", worker), fmt.Sprintf("message %d", i))
				d := time.Since(st)
				mu.Lock()
				lat = append(lat, d)
				if res.OK() {
					ids = append(ids, res.Entry.ID)
				} else {
					failures++
				}
				mu.Unlock()
			}
		}(w)
	}
	wg.Wait()
	total := time.Since(t0)

	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	dups := 0
	for i := 1; i < len(ids); i++ {
		if ids[i] == ids[i-1] {
			dups++
		}
	}

	after := must(repo.Count(ctx))
	since := must(repo.ListSince(ctx, mark))

	q0 := time.Now()
	all := must(repo.ListAll(ctx))
	listDur := time.Since(q0)
	ordered := sort.SliceIsSorted(all, func(i, j int) bool { return all[i].ID > all[j].ID })

	fmt.Printf("N=%d, CONC=%d, driver=%s\n", N, CONC, cfg.Database.Driver)
	fmt.Printf("Submit total: %v, per op: %v, p50: %v, p95: %v, p99: %v\n",
		total, total/time.Duration(N), pct(lat, 0.50), pct(lat, 0.95), pct(lat, 0.99))
	fmt.Printf("Written: %d (count delta %d, visible since id %d: %d), failures: %d, duplicate ids: %d\n",
		len(ids), after-before, mark, len(since), failures, dups)
	fmt.Printf("ListAll(%d) latency: %v, newest-first: %v\n", len(all), listDur, ordered)

	if dups > 0 || int64(len(ids)) != after-before || len(since) != len(ids) || !ordered {
		os.Exit(1)
	}
}
