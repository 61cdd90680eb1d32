package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"fjShop/internal/bench"
	"fjShop/internal/opt"
	"fjShop/internal/sa"
	"fjShop/internal/ts"
)

// Фабрики

func newSAFactory(cfg sa.Config, log *zap.Logger) func(seed int64) opt.Optimizer {
	return func(seed int64) opt.Optimizer {
		solver, _ := sa.New(cfg, rand.New(rand.NewSource(seed)))
		solver.Log = log
		return solver
	}
}

func newTSFactory(cfg ts.Config, log *zap.Logger) func(seed int64) opt.Optimizer {
	return func(seed int64) opt.Optimizer {
		solver, _ := ts.New(cfg, rand.New(rand.NewSource(seed)))
		solver.Log = log
		return solver
	}
}

func main() {
	// CLI флаги для настройки параметров алгоритмов и политики запуска
	var (
		out          = flag.String("out", "artifacts/results.csv", "путь к выходному CSV-файлу")
		pairs        = flag.String("pairs", "5x3x3,10x5x4,20x8x5", "конфигурации: работы x станки x операции на работу (через запятую)")
		capacity     = flag.Int("capacity", 3, "вместимость станков (единиц инструмента)")
		algos        = flag.String("algos", "SA,TS", "список алгоритмов: SA, TS (через запятую)")
		runs         = flag.Int("runs", 10, "количество запусков каждого алгоритма (с разными сидами)")
		baseSeed     = flag.Int64("seed", 1000, "базовый сид для запусков алгоритмов")
		instanceSeed = flag.Int64("instance_seed", 777, "базовый сид для генерации экземпляров задачи (фиксирован для конфигурации)")
		perRunTO     = flag.Duration("per_run_timeout", 0, "таймаут одного запуска; 0 — без ограничения")
		verbose      = flag.Bool("v", false, "подробный лог алгоритмов")

		// --- Алгоритм имитации отжига ---
		saIter  = flag.Int("sa_iter", 200, "количество итераций")
		saT0    = flag.Float64("sa_t0", 1000.0, "начальная температура")
		saTmin  = flag.Float64("sa_tmin", 1e-9, "нижняя граница температуры")
		saAlpha = flag.Float64("sa_alpha", 0.85, "коэффициент охлаждения (alpha)")
		saHints = flag.Int("sa_hints", 2, "количество операций, получающих новый станок в одном соседе")
		saSeq   = flag.Bool("sa_seq", true, "передавать декодеру порядок операций текущего решения")

		// --- Табу-поиск ---
		tsIter   = flag.Int("ts_iter", 300, "количество итераций")
		tsTenure = flag.Int("ts_tenure", 7, "длина табу-списка (в ходах)")

		randomize = flag.Bool("randomize", true, "случайный выбор станка для операций без подсказки")
	)
	flag.Parse()

	ctx := context.Background()

	log := zap.NewNop()
	if *verbose {
		l, err := zap.NewDevelopment()
		if err == nil {
			log = l
			defer log.Sync()
		}
	}

	if *capacity <= 0 {
		fmt.Fprintln(os.Stderr, "Конфликт: вместимость станков должна быть > 0")
		os.Exit(2)
	}
	cases, err := parsePairs(*pairs, *capacity, *instanceSeed)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Конфликт:", err)
		os.Exit(2)
	}

	saCfg := sa.Config{
		Iterations:   *saIter,
		InitialTemp:  *saT0,
		CoolingRate:  *saAlpha,
		MinTemp:      *saTmin,
		HintsPerMove: *saHints,
		UseSequences: *saSeq,
		Randomize:    *randomize,
	}
	if err := saCfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Конфликт в конфигурации алгоритма имитации отжига:", err)
		os.Exit(2)
	}

	tsCfg := ts.Config{
		Iterations: *tsIter,
		TabuTenure: *tsTenure,
		Randomize:  *randomize,
	}
	if err := tsCfg.Validate(); err != nil {
		fmt.Fprintln(os.Stderr, "Конфликт в конфигурации табу-поиска:", err)
		os.Exit(2)
	}

	available := map[string]bench.Algorithm{
		"SA": {Name: "SA", Factory: newSAFactory(saCfg, log)},
		"TS": {Name: "TS", Factory: newTSFactory(tsCfg, log)},
	}

	var selected []bench.Algorithm
	for _, a := range splitCSV(*algos) {
		al, ok := available[strings.ToUpper(a)]
		if !ok {
			fmt.Fprintf(os.Stderr, "Алгоритм не предоставлен в программе %q; доступные: %v\n", a, keys(available))
			os.Exit(2)
		}
		selected = append(selected, al)
	}

	runner := bench.Runner{
		Runs:          *runs,
		BaseSeed:      *baseSeed,
		PerRunTimeout: *perRunTO,
	}

	var records []bench.Record
	for _, c := range cases {
		for _, a := range selected {
			fmt.Printf("Запущен алгоритм %s; %d работ %d машин %d операций (общее кол-во запусков=%d)...\n",
				a.Name, c.Jobs, c.Machines, c.Ops, runner.Runs)

			rec, err := runner.RunCase(ctx, c, a)
			if err != nil {
				fmt.Fprintln(os.Stderr, "Ошибка:", err)
				os.Exit(1)
			}
			records = append(records, rec)

			fmt.Printf("  Значение целевой функции: лучшее=%.3f среднее=%.2f стандартное отклонение=%.2f | Время: среднее=%.2fms среднее отклонение=%.2fms | не размещено=%d\n",
				rec.MakespanBest, rec.MakespanMean, rec.MakespanStd,
				rec.TimeMeanMs, rec.TimeStdMs, rec.Unscheduled,
			)
		}
	}

	if err := bench.WriteCSV(*out, records); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка при записи в CSV:", err)
		os.Exit(1)
	}
	fmt.Println("Saved:", *out)
}

// helpers

func parsePairs(s string, capacity int, baseInstanceSeed int64) ([]bench.Case, error) {
	parts := splitCSV(s)
	cases := make([]bench.Case, 0, len(parts))

	for i, p := range parts {
		jmo := strings.Split(p, "x")
		if len(jmo) != 3 {
			return nil, fmt.Errorf("конфигурация %q невалидной схемы, пример: 10x5x4", p)
		}
		jobs, err := atoiStrict(jmo[0])
		if err != nil {
			return nil, fmt.Errorf("конфигурация %q: ошибка парсинга количества работ: %w", p, err)
		}
		machines, err := atoiStrict(jmo[1])
		if err != nil {
			return nil, fmt.Errorf("конфигурация %q: ошибка парсинга количества машин: %w", p, err)
		}
		ops, err := atoiStrict(jmo[2])
		if err != nil {
			return nil, fmt.Errorf("конфигурация %q: ошибка парсинга количества операций: %w", p, err)
		}
		if jobs <= 0 || machines <= 0 || ops <= 0 {
			return nil, fmt.Errorf("конфигурация %q: количество работ, машин и операций должно быть > 0", p)
		}

		seed := baseInstanceSeed + int64(i)*10_000 + int64(jobs)*100 + int64(machines)

		cases = append(cases, bench.Case{
			Jobs:         jobs,
			Machines:     machines,
			Ops:          ops,
			Capacity:     capacity,
			InstanceSeed: seed,
		})
	}

	return cases, nil
}

func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func atoiStrict(s string) (int, error) {
	s = strings.TrimSpace(s)
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	return v, nil
}

func keys(m map[string]bench.Algorithm) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
