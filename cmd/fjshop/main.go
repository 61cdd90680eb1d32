package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"fjShop/internal/config"
	"fjShop/internal/loader"
	"fjShop/internal/opt"
	"fjShop/internal/sa"
	"fjShop/internal/shop"
	"fjShop/internal/store"
	"fjShop/internal/ts"
)

func main() {
	var (
		data     = flag.String("data", "", "файл экземпляра (.yaml | .yml | .json)")
		jobs     = flag.String("jobs", "", "CSV с операциями работ (вместе с -machines)")
		machines = flag.String("machines", "", "CSV с вместимостью станков")
		algo     = flag.String("algo", "sa", "алгоритм: sa | ts")
		cfgPath  = flag.String("config", "", "YAML-файл конфигурации")
		seed     = flag.Int64("seed", 0, "сид генератора (по умолчанию берётся из конфигурации)")
		verbose  = flag.Bool("v", false, "подробный лог")

		historyOut = flag.String("history", "", "CSV для истории лучшего makespan по итерациям")
		reportOut  = flag.String("report-csv", "", "CSV с итоговым расписанием")
		persist    = flag.Bool("store", false, "сохранить запуск в базу (нужен store.dsn или FJSHOP_DSN)")

		gen      = flag.String("gen", "", "сгенерировать случайный экземпляр JxMxOps и вывести его в YAML")
		capacity = flag.Int("capacity", 3, "вместимость станков для -gen")
	)
	flag.Parse()

	log := newLogger(*verbose)
	defer log.Sync()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка конфигурации:", err)
		os.Exit(2)
	}
	flag.Visit(func(f *flag.Flag) {
		if f.Name == "seed" {
			cfg.Seed = *seed
		}
	})
	rng := rand.New(rand.NewSource(cfg.Seed))

	if *gen != "" {
		if err := generate(*gen, *capacity, rng); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка генерации:", err)
			os.Exit(2)
		}
		return
	}

	inst, err := loadInstance(*data, *jobs, *machines)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка загрузки экземпляра:", err)
		os.Exit(2)
	}

	var solver opt.Optimizer
	switch strings.ToLower(*algo) {
	case "sa":
		s, err := sa.New(cfg.SA, rng)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Конфликт в конфигурации алгоритма имитации отжига:", err)
			os.Exit(2)
		}
		s.Log = log
		solver = s
	case "ts":
		s, err := ts.New(cfg.TS, rng)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Конфликт в конфигурации табу-поиска:", err)
			os.Exit(2)
		}
		s.Log = log
		solver = s
	default:
		fmt.Fprintf(os.Stderr, "Алгоритм не предоставлен в программе %q; доступные: sa, ts\n", *algo)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	res, err := solver.Solve(ctx, inst)
	if err != nil && res.Schedule == nil {
		fmt.Fprintln(os.Stderr, "Ошибка:", err)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "Поиск прерван, выводится лучшее найденное решение:", err)
	}

	fmt.Printf("Best Cmax: %.3f (итераций=%d, вычислений=%d, время=%s)\n",
		res.Makespan, res.Iterations, res.Evaluations, res.Duration)
	if len(res.Unscheduled) > 0 {
		names := make([]string, len(res.Unscheduled))
		for i, k := range res.Unscheduled {
			names[i] = k.String()
		}
		fmt.Printf("Не размещены: %s\n", strings.Join(names, ", "))
	}

	rows := res.Schedule.Report()
	if err := shop.WriteReport(os.Stdout, rows); err != nil {
		fmt.Fprintln(os.Stderr, "Ошибка вывода расписания:", err)
		os.Exit(1)
	}

	if *reportOut != "" {
		if err := writeFile(*reportOut, func(f *os.File) error { return shop.WriteReportCSV(f, rows) }); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка при записи в CSV:", err)
			os.Exit(1)
		}
		fmt.Println("Saved:", *reportOut)
	}
	if *historyOut != "" {
		if err := writeFile(*historyOut, func(f *os.File) error { return shop.WriteHistoryCSV(f, res.History) }); err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка при записи в CSV:", err)
			os.Exit(1)
		}
		fmt.Println("Saved:", *historyOut)
	}

	if *persist {
		id, err := save(context.Background(), cfg.Store.DSN, strings.ToLower(*algo), cfg.Seed, res)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Ошибка сохранения запуска:", err)
			os.Exit(1)
		}
		fmt.Println("Run:", id)
	}
}

func loadInstance(data, jobs, machines string) (*shop.Instance, error) {
	switch {
	case data != "" && (jobs != "" || machines != ""):
		return nil, fmt.Errorf("укажите либо -data, либо -jobs и -machines")
	case data != "":
		return loader.LoadFile(data)
	case jobs != "" && machines != "":
		return loader.LoadCSV(jobs, machines)
	default:
		return nil, fmt.Errorf("не задан экземпляр: нужен -data или пара -jobs/-machines")
	}
}

func generate(size string, capacity int, rng *rand.Rand) error {
	var j, m, o int
	if _, err := fmt.Sscanf(size, "%dx%dx%d", &j, &m, &o); err != nil {
		return fmt.Errorf("конфигурация %q невалидной схемы, пример: 10x5x4: %w", size, err)
	}
	if j <= 0 || m <= 0 || o <= 0 || capacity <= 0 {
		return fmt.Errorf("конфигурация %q: все размеры должны быть > 0", size)
	}
	inst := shop.RandomInstance(j, m, o, capacity, 1, 99, rng)
	out, err := yaml.Marshal(loader.FromInstance(inst))
	if err != nil {
		return err
	}
	_, err = os.Stdout.Write(out)
	return err
}

func save(ctx context.Context, dsn, algo string, seed int64, res opt.Result) (string, error) {
	if dsn == "" {
		return "", fmt.Errorf("store.dsn не задан")
	}
	db, err := store.Open(ctx, dsn)
	if err != nil {
		return "", err
	}
	defer db.Close()
	if err := db.Migrate(ctx); err != nil {
		return "", err
	}
	run, err := store.NewRun(algo, seed, res)
	if err != nil {
		return "", err
	}
	if err := store.NewRunRepository(db).Create(ctx, run); err != nil {
		return "", err
	}
	return run.ID, nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := write(f); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func newLogger(verbose bool) *zap.Logger {
	var (
		log *zap.Logger
		err error
	)
	if verbose {
		log, err = zap.NewDevelopment()
	} else {
		log, err = zap.NewProduction()
	}
	if err != nil {
		return zap.NewNop()
	}
	return log
}
