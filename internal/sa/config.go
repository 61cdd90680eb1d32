package sa

import "fmt"

type Config struct {
	Iterations int `yaml:"iterations" json:"iterations"`

	InitialTemp float64 `yaml:"initial_temp" json:"initial_temp"`
	CoolingRate float64 `yaml:"cooling_rate" json:"cooling_rate"`
	// MinTemp — нижняя граница температуры, защищает от деления на ноль.
	MinTemp float64 `yaml:"min_temp" json:"min_temp"`

	// HintsPerMove — сколько операций получают случайный станок в одном соседе.
	HintsPerMove int `yaml:"hints_per_move" json:"hints_per_move"`

	// UseSequences передаёт декодеру порядок операций текущего решения.
	UseSequences bool `yaml:"use_sequences" json:"use_sequences"`
	Randomize    bool `yaml:"randomize" json:"randomize"`
}

func DefaultConfig() Config {
	return Config{
		Iterations: 200,

		InitialTemp: 1000.0,
		CoolingRate: 0.85,
		MinTemp:     1e-9,

		HintsPerMove: 2,

		UseSequences: true,
		Randomize:    true,
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf(
			"Iterations должно быть > 0 (получено %d)",
			c.Iterations,
		)
	}
	if c.InitialTemp <= 0 {
		return fmt.Errorf(
			"InitialTemp должно быть > 0 (получено %f)",
			c.InitialTemp,
		)
	}
	if c.MinTemp <= 0 {
		return fmt.Errorf(
			"MinTemp должно быть > 0 (получено %g)",
			c.MinTemp,
		)
	}
	if c.CoolingRate <= 0 || c.CoolingRate >= 1 {
		return fmt.Errorf(
			"CoolingRate должно лежать в интервале (0,1) (получено %f)",
			c.CoolingRate,
		)
	}
	if c.HintsPerMove <= 0 {
		return fmt.Errorf(
			"HintsPerMove должно быть > 0 (получено %d)",
			c.HintsPerMove,
		)
	}
	return nil
}
