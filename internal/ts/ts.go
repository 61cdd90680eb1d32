package ts

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"

	"fjShop/internal/opt"
	"fjShop/internal/shop"
)

// Solver - структура реализации табу-поиска.
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log *zap.Logger
}

// New возвращает новый TS-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
// Используется в фабриках.
func New(cfg Config, rng *rand.Rand) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	return &Solver{Cfg: cfg, Rng: rng, Log: zap.NewNop()}, nil
}

// neighbor — декодированное соседнее решение и породивший его ход.
type neighbor struct {
	mv    move
	sched *shop.Schedule
	cost  float64
}

// Solve — основной цикл алгоритма
func (s *Solver) Solve(ctx context.Context, inst *shop.Instance) (opt.Result, error) {
	start := time.Now()

	// Валидация входных данных
	if err := inst.Validate(); err != nil {
		return opt.Result{}, err
	}
	if err := s.Cfg.Validate(); err != nil {
		return opt.Result{}, err
	}
	if s.Rng == nil {
		return opt.Result{}, fmt.Errorf("генератор случайных чисел не инициализирован (nil)")
	}
	log := s.Log
	if log == nil {
		log = zap.NewNop()
	}
	log.Info("ts started",
		zap.Int("jobs", len(inst.Jobs)),
		zap.Int("machines", len(inst.Machines)),
		zap.Int("iterations", s.Cfg.Iterations),
		zap.Int("tabu_tenure", s.Cfg.TabuTenure),
	)

	curr := shop.Decode(inst, shop.DecodeOptions{Randomize: s.Cfg.Randomize, Rng: s.Rng})
	currCost := shop.Makespan(curr)
	evals := 1

	// Глобально лучшее решение
	best, bestCost := curr, currCost

	tabu := newTabuList(s.Cfg.TabuTenure)
	aspirations := 0
	idle := 0

	history := make([]float64, 0, s.Cfg.Iterations+1)
	history = append(history, bestCost)

	result := func(iters int, meta map[string]any) opt.Result {
		return opt.Result{
			Schedule:    best,
			Makespan:    bestCost,
			History:     history,
			Unscheduled: best.Unscheduled,
			Evaluations: evals,
			Iterations:  iters,
			Duration:    time.Since(start),
			Meta:        meta,
		}
	}

	for iter := 0; iter < s.Cfg.Iterations; iter++ {
		// Для поддержки отмены через context
		if err := ctx.Err(); err != nil {
			return result(iter, map[string]any{
				"stopped": "context",
			}), err
		}

		neighbors := s.neighbors(inst, curr)
		evals += len(neighbors)

		k := pickMove(neighbors, tabu, bestCost)
		if k < 0 {
			// Нет соседей или все ходы табуированы
			idle++
			history = append(history, bestCost)
			continue
		}
		chosen := neighbors[k]
		if tabu.IsTabu(chosen.mv) {
			aspirations++
		}

		curr, currCost = chosen.sched, chosen.cost
		tabu.Add(chosen.mv)

		// Обновление глобально лучшего решения
		if currCost < bestCost {
			best, bestCost = curr, currCost
			log.Debug("ts improved", zap.Int("iter", iter), zap.Float64("makespan", bestCost))
		}
		history = append(history, bestCost)
	}

	res := result(s.Cfg.Iterations, map[string]any{
		"tabu_tenure": s.Cfg.TabuTenure,
		"aspirations": aspirations,
		"idle_iters":  idle,
	})
	log.Info("ts finished",
		zap.Float64("makespan", res.Makespan),
		zap.Int("evaluations", res.Evaluations),
		zap.Int("aspirations", aspirations),
		zap.Int("unscheduled", len(res.Unscheduled)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// neighbors строит по одному соседу на каждую пару соседних операций
// в очереди каждого станка текущего решения.
func (s *Solver) neighbors(inst *shop.Instance, curr *shop.Schedule) []neighbor {
	seqs := curr.Sequences()
	var out []neighbor
	for m := range inst.Machines {
		name := inst.Machines[m].Name
		keys := seqs[name]
		for i := 0; i+1 < len(keys); i++ {
			cand := shop.Decode(inst, shop.DecodeOptions{
				Sequences: applySwap(seqs, name, i),
				Randomize: s.Cfg.Randomize,
				Rng:       s.Rng,
			})
			out = append(out, neighbor{
				mv:    move{machine: m, i: i, j: i + 1},
				sched: cand,
				cost:  shop.Makespan(cand),
			})
		}
	}
	return out
}

// pickMove возвращает индекс лучшего допустимого соседа или -1.
// Табуированный ход допустим, если улучшает рекорд (критерий аспирации).
func pickMove(neighbors []neighbor, tabu *tabuList, bestCost float64) int {
	k := -1
	cost := math.Inf(1)
	for n, nb := range neighbors {
		if tabu.IsTabu(nb.mv) && !(nb.cost < bestCost) {
			continue
		}
		if nb.cost < cost {
			k, cost = n, nb.cost
		}
	}
	return k
}

// applySwap возвращает копию seqs, в которой у станка machine
// обменяны позиции i и i+1. Остальные очереди разделяются с seqs.
func applySwap(seqs shop.Sequences, machine string, i int) shop.Sequences {
	out := make(shop.Sequences, len(seqs))
	for m, keys := range seqs {
		out[m] = keys
	}
	keys := append([]shop.OpKey(nil), seqs[machine]...)
	keys[i], keys[i+1] = keys[i+1], keys[i]
	out[machine] = keys
	return out
}
