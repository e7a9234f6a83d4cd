package plan

import (
	"fmt"

	"github.com/recurra/billing/internal/billingcycle"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type planFile struct {
	Currency   string      `mapstructure:"currency"`
	TaxPercent float64     `mapstructure:"tax_percent"`
	Plans      []planEntry `mapstructure:"plans"`
}

type planEntry struct {
	Code     string `mapstructure:"code"`
	Name     string `mapstructure:"name"`
	Interval struct {
		Unit   string `mapstructure:"unit"`
		Length int    `mapstructure:"length"`
	} `mapstructure:"interval"`
	TotalOccurrences int     `mapstructure:"total_occurrences"`
	TrialOccurrences int     `mapstructure:"trial_occurrences"`
	Amount           float64 `mapstructure:"amount"`
	TrialAmount      float64 `mapstructure:"trial_amount"`
	TrialDays        int     `mapstructure:"trial_days"`
}

// LoadCatalog reads the plan catalog from plans.yml. Search order: a
// volume-mounted config dir, the system config dir, then the working
// directory for development.
func LoadCatalog() (*Catalog, error) {
	v := viper.New()

	v.SetConfigName("plans")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/recurra/config")
	v.AddConfigPath("/etc/recurra")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read plan catalog: %w", err)
	}

	var file planFile
	if err := v.Unmarshal(&file); err != nil {
		return nil, fmt.Errorf("parse plan catalog: %w", err)
	}

	return buildCatalog(file)
}

func buildCatalog(file planFile) (*Catalog, error) {
	plans := make([]Plan, 0, len(file.Plans))
	for _, entry := range file.Plans {
		p := Plan{
			Code:             entry.Code,
			Name:             entry.Name,
			TotalOccurrences: entry.TotalOccurrences,
			TrialOccurrences: entry.TrialOccurrences,
			Amount:           decimal.NewFromFloat(entry.Amount),
			TrialAmount:      decimal.NewFromFloat(entry.TrialAmount),
			TrialDays:        entry.TrialDays,
		}
		p.Interval.Unit = billingcycle.IntervalUnit(entry.Interval.Unit)
		p.Interval.Length = entry.Interval.Length
		if p.TotalOccurrences == 0 {
			p.TotalOccurrences = UnboundedOccurrences
		}
		plans = append(plans, p)
	}
	return NewCatalog(plans, file.Currency, decimal.NewFromFloat(file.TaxPercent))
}
