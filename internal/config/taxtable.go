package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/shopspring/decimal"
	taxdomain "github.com/smallbiznis/paystub/internal/tax/domain"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

var defaultTaxTablePaths = []string{
	"/var/lib/paystub/config", // Volume-mounted config
	"/etc/paystub",            // System config
	"./config",
	".", // Current directory (dev mode)
}

type TaxTableConfig struct {
	Federal []TaxLineConfig            `mapstructure:"federal"`
	Regions map[string][]TaxLineConfig `mapstructure:"regions"`
}

type TaxLineConfig struct {
	Name string  `mapstructure:"name"`
	Rate float64 `mapstructure:"rate"`
}

// Build converts the raw configuration into a validated tax table.
func (c TaxTableConfig) Build() (taxdomain.Table, error) {
	federal := make([]taxdomain.Line, 0, len(c.Federal))
	for _, line := range c.Federal {
		federal = append(federal, toLine(line))
	}

	regions := make(map[string][]taxdomain.Line, len(c.Regions))
	for code, lines := range c.Regions {
		out := make([]taxdomain.Line, 0, len(lines))
		for _, line := range lines {
			out = append(out, toLine(line))
		}
		regions[code] = out
	}
	if len(regions) == 0 {
		return taxdomain.Table{}, errors.New("taxrates.regions cannot be empty")
	}

	return taxdomain.NewTable(federal, regions)
}

func toLine(c TaxLineConfig) taxdomain.Line {
	return taxdomain.Line{
		Name: strings.TrimSpace(c.Name),
		Rate: decimal.NewFromFloat(c.Rate),
	}
}

type TaxTableHolder struct {
	current atomic.Value // holds taxdomain.Table
}

// NewTaxTableHolder loads taxrates.yml from the default search paths.
func NewTaxTableHolder(log *zap.Logger) (*TaxTableHolder, error) {
	return LoadTaxTable(log, defaultTaxTablePaths...)
}

// NewStaticTaxTableHolder wraps a fixed table without file watching.
func NewStaticTaxTableHolder(table taxdomain.Table) *TaxTableHolder {
	holder := &TaxTableHolder{}
	holder.current.Store(table)
	return holder
}

// LoadTaxTable reads taxrates.yml from the given paths. The built-in table is
// used when no file is found. A found file is watched and reloaded on change;
// invalid revisions are logged and ignored.
func LoadTaxTable(log *zap.Logger, paths ...string) (*TaxTableHolder, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("config.taxrates")

	v := viper.New()
	v.SetConfigName("taxrates")
	v.SetConfigType("yml")
	for _, path := range paths {
		v.AddConfigPath(path)
	}

	v.SetEnvPrefix("PAYSTUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		log.Info("tax rate file not found, using built-in table")
		return NewStaticTaxTableHolder(taxdomain.DefaultTable()), nil
	}

	table, err := readTaxTable(v)
	if err != nil {
		return nil, err
	}

	holder := NewStaticTaxTableHolder(table)
	log.Info("tax rate table loaded",
		zap.String("file", v.ConfigFileUsed()),
		zap.Strings("regions", table.Regions()),
	)

	v.OnConfigChange(func(e fsnotify.Event) {
		updated, err := readTaxTable(v)
		if err != nil {
			log.Warn("invalid tax rate table ignored", zap.String("file", e.Name), zap.Error(err))
			return
		}
		holder.current.Store(updated)
		log.Info("tax rate table reloaded", zap.String("file", e.Name), zap.Strings("regions", updated.Regions()))
	})
	v.WatchConfig()

	return holder, nil
}

func readTaxTable(v *viper.Viper) (taxdomain.Table, error) {
	var cfg TaxTableConfig
	if err := v.UnmarshalKey("taxrates", &cfg); err != nil {
		return taxdomain.Table{}, err
	}
	return cfg.Build()
}

func (h *TaxTableHolder) Table() taxdomain.Table {
	return h.current.Load().(taxdomain.Table)
}
