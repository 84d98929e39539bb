package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "breachstudy/internal/errors"
)

const registryHeader = "event_id,org,discovery_date,disclosure_date,delay_days,treated,breach_type,records_affected,prior_breaches,post_rule,health_data,exec_turnover,enforcement_action,manual_exclusion"

func writeTemp(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadRegistry(t *testing.T) {
	t.Run("valid rows parsed", func(t *testing.T) {
		path := writeTemp(t, "registry.csv", registryHeader+"\n"+
			"EV001,ACME,2019-02-01,2019-03-15,42,true,hacking,500000,2,true,false,false,false,false\n"+
			"EV002,GLOBEX,2019-05-10,2019-05-20,10,false,insider,1200,0,true,true,false,true,false\n")

		events, err := LoadRegistry(path)
		require.NoError(t, err)
		require.Len(t, events, 2)

		assert.Equal(t, "EV001", events[0].EventID)
		assert.Equal(t, "ACME", events[0].Org)
		assert.Equal(t, time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC), events[0].DisclosureDate)
		assert.Equal(t, 42, events[0].DelayDays)
		assert.True(t, events[0].Treated)
		assert.Equal(t, int64(500000), events[0].RecordsAffected)

		assert.True(t, events[1].HealthData)
		assert.True(t, events[1].EnforcementAction)
	})

	t.Run("header mismatch rejected", func(t *testing.T) {
		path := writeTemp(t, "registry.csv", "id,org\nEV001,ACME\n")
		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIngest))
	})

	t.Run("duplicate event id rejected", func(t *testing.T) {
		path := writeTemp(t, "registry.csv", registryHeader+"\n"+
			"EV001,ACME,2019-02-01,2019-03-15,42,true,hacking,500000,2,true,false,false,false,false\n"+
			"EV001,ACME,2019-02-01,2019-03-15,42,true,hacking,500000,2,true,false,false,false,false\n")
		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate event_id")
	})

	t.Run("disclosure before discovery rejected", func(t *testing.T) {
		path := writeTemp(t, "registry.csv", registryHeader+"\n"+
			"EV001,ACME,2019-03-15,2019-02-01,42,true,hacking,500000,2,true,false,false,false,false\n")
		_, err := LoadRegistry(path)
		require.Error(t, err)
		assert.True(t, apperrors.IsType(err, apperrors.ErrTypeIngest))
	})

	t.Run("bad boolean carries row number", func(t *testing.T) {
		path := writeTemp(t, "registry.csv", registryHeader+"\n"+
			"EV001,ACME,2019-02-01,2019-03-15,42,maybe,hacking,500000,2,true,false,false,false,false\n")
		_, err := LoadRegistry(path)
		require.Error(t, err)
		var appErr *apperrors.AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, 2, appErr.Context["row"])
	})
}

func TestLoadMarket(t *testing.T) {
	t.Run("grouped and sorted by date", func(t *testing.T) {
		path := writeTemp(t, "market.csv", "org,date,return,index_return\n"+
			"ACME,2019-01-03,0.012,0.004\n"+
			"ACME,2019-01-02,-0.005,0.001\n"+
			"GLOBEX,2019-01-02,0.020,0.001\n")

		series, err := LoadMarket(path)
		require.NoError(t, err)
		require.Len(t, series, 2)
		require.Len(t, series["ACME"], 2)
		assert.True(t, series["ACME"][0].Date.Before(series["ACME"][1].Date))
		assert.InDelta(t, -0.005, series["ACME"][0].Return, 1e-12)
	})

	t.Run("duplicate date rejected", func(t *testing.T) {
		path := writeTemp(t, "market.csv", "org,date,return,index_return\n"+
			"ACME,2019-01-02,0.01,0.004\n"+
			"ACME,2019-01-02,0.02,0.004\n")
		_, err := LoadMarket(path)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate trading date")
	})
}

func TestLoadFundamentals(t *testing.T) {
	path := writeTemp(t, "fundamentals.csv", "org,period_end,firm_size,leverage,roa\n"+
		"ACME,2019-12-31,8.2,0.45,0.06\n"+
		"ACME,2018-12-31,8.0,0.40,0.05\n")

	snaps, err := LoadFundamentals(path)
	require.NoError(t, err)
	require.Len(t, snaps["ACME"], 2)
	assert.True(t, snaps["ACME"][0].PeriodEnd.Before(snaps["ACME"][1].PeriodEnd))
}

func TestLoadAllTables(t *testing.T) {
	registry := writeTemp(t, "registry.csv", registryHeader+"\n"+
		"EV001,ACME,2019-02-01,2019-03-15,42,true,hacking,500000,2,true,false,false,false,false\n")
	market := writeTemp(t, "market.csv", "org,date,return,index_return\nACME,2019-01-02,0.01,0.004\n")
	fundamentals := writeTemp(t, "fundamentals.csv", "org,period_end,firm_size,leverage,roa\nACME,2018-12-31,8.0,0.40,0.05\n")

	tables, err := Load(context.Background(), Sources{
		RegistryFile:     registry,
		MarketFile:       market,
		FundamentalsFile: fundamentals,
	}, nil)
	require.NoError(t, err)

	assert.Len(t, tables.Events(), 1)
	assert.Len(t, tables.MarketSeries("ACME"), 1)
	assert.Nil(t, tables.MarketSeries("UNKNOWN"))
	assert.Len(t, tables.FundamentalsFor("ACME"), 1)
}
