package sa

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

// Solver - структура реализации алгоритма имитации отжига
type Solver struct {
	Cfg Config
	Rng *rand.Rand
	Log *zap.Logger
}

// New возвращает новый SA-солвер с валидацией конфигурации, с использованием инициализированного генератора случайных чисел.
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

// flexOp — операция, которую можно перенести на другой станок.
type flexOp struct {
	key      shop.OpKey
	machines []string
}

// Solve — реализация эвристики.
func (s *Solver) Solve(ctx context.Context, inst *shop.Instance) (opt.Result, error) {
	start := time.Now()

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
	log.Info("sa started",
		zap.Int("jobs", len(inst.Jobs)),
		zap.Int("machines", len(inst.Machines)),
		zap.Int("iterations", s.Cfg.Iterations),
		zap.Float64("initial_temp", s.Cfg.InitialTemp),
		zap.Float64("cooling_rate", s.Cfg.CoolingRate),
	)

	pool := flexibleOps(inst)

	// Начальное решение без подсказок
	curr := shop.Decode(inst, shop.DecodeOptions{Randomize: s.Cfg.Randomize, Rng: s.Rng})
	currCost := shop.Makespan(curr)
	best, bestCost := curr, currCost

	evals := 1
	accepted, acceptedWorse := 0, 0
	T := s.Cfg.InitialTemp

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
				"T":       T,
			}), err
		}

		opts := shop.DecodeOptions{
			Hints:     s.sampleHints(pool),
			Randomize: s.Cfg.Randomize,
			Rng:       s.Rng,
		}
		if s.Cfg.UseSequences {
			opts.Sequences = curr.Sequences()
		}
		cand := shop.Decode(inst, opts)
		candCost := shop.Makespan(cand)
		evals++

		// Обновление глобально лучшего решения
		if candCost < bestCost {
			best, bestCost = cand, candCost
			log.Debug("sa improved", zap.Int("iter", iter), zap.Float64("makespan", bestCost))
		}

		delta := candCost - currCost
		accept := delta < 0
		if !accept {
			// Критерий Метрополиса:
			// допускает принятие ухудшающих решений
			p := math.Exp(-delta / math.Max(T, s.Cfg.MinTemp))
			accept = s.Rng.Float64() < p
		}
		if accept {
			curr, currCost = cand, candCost
			accepted++
			if delta > 0 {
				acceptedWorse++
			}
		}

		// Охлаждение температуры
		T = math.Max(T*s.Cfg.CoolingRate, s.Cfg.MinTemp)
		history = append(history, bestCost)
	}

	res := result(s.Cfg.Iterations, map[string]any{
		"initial_temp":   s.Cfg.InitialTemp,
		"cooling_rate":   s.Cfg.CoolingRate,
		"final_temp":     T,
		"hints_per_move": s.Cfg.HintsPerMove,
		"accepted":       accepted,
		"accepted_worse": acceptedWorse,
	})
	log.Info("sa finished",
		zap.Float64("makespan", res.Makespan),
		zap.Int("evaluations", res.Evaluations),
		zap.Int("accepted", accepted),
		zap.Int("unscheduled", len(res.Unscheduled)),
		zap.Duration("duration", res.Duration),
	)
	return res, nil
}

// flexibleOps собирает операции, допустимые на двух и более станках.
func flexibleOps(inst *shop.Instance) []flexOp {
	var pool []flexOp
	for _, j := range inst.Jobs {
		for _, op := range j.Operations {
			el := inst.Eligible(op)
			if len(el) < 2 {
				continue
			}
			names := make([]string, len(el))
			for i, m := range el {
				names[i] = inst.Machines[m].Name
			}
			pool = append(pool, flexOp{key: shop.OpKey{Job: j.Name, Op: op.ID}, machines: names})
		}
	}
	return pool
}

// sampleHints выбирает без повторений до HintsPerMove гибких операций
// и назначает каждой случайный допустимый станок.
func (s *Solver) sampleHints(pool []flexOp) shop.Hints {
	if len(pool) == 0 {
		return nil
	}
	k := s.Cfg.HintsPerMove
	if k > len(pool) {
		k = len(pool)
	}
	hints := make(shop.Hints, k)
	for _, i := range s.Rng.Perm(len(pool))[:k] {
		fo := pool[i]
		hints[fo.key] = fo.machines[s.Rng.Intn(len(fo.machines))]
	}
	return hints
}
