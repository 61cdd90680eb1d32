package ts

import "fmt"

type Config struct {
	Iterations int `yaml:"iterations" json:"iterations"`

	// TabuTenure — сколько последних ходов запрещено повторять.
	TabuTenure int `yaml:"tabu_tenure" json:"tabu_tenure"`

	Randomize bool `yaml:"randomize" json:"randomize"`
}

func DefaultConfig() Config {
	return Config{
		Iterations: 300,
		TabuTenure: 7,
		Randomize:  true,
	}
}

func (c Config) Validate() error {
	if c.Iterations <= 0 {
		return fmt.Errorf(
			"Iterations должно быть > 0 (получено %d)",
			c.Iterations,
		)
	}
	if c.TabuTenure <= 0 {
		return fmt.Errorf(
			"TabuTenure должно быть > 0 (получено %d)",
			c.TabuTenure,
		)
	}
	return nil
}
