package app

import (
	"github.com/bobmcallan/folio/internal/clients/amfi"
	"github.com/bobmcallan/folio/internal/clients/eodhd"
	"github.com/bobmcallan/folio/internal/clients/mfapi"
	"github.com/bobmcallan/folio/internal/clients/yahoo"
	"github.com/bobmcallan/folio/internal/common"
	"github.com/bobmcallan/folio/internal/interfaces"
	"github.com/bobmcallan/folio/internal/services/price"
	"github.com/bobmcallan/folio/internal/services/stockdata"
)

// providers groups the constructed adapters for the resolver and the
// stock data refresher.
type providers struct {
	adapters    price.Adapters
	metadata    stockdata.Metadata
	equityNames []string
	fundNames   []string
}

// newProviders builds one adapter per configured source. EODHD needs an
// API key and Yahoo can be switched off; the fund sources are keyless.
func newProviders(config *common.Config, instruments interfaces.InstrumentStore, logger *common.Logger) providers {
	var p providers
	cc := config.Clients

	eodhdKey, err := common.ResolveAPIKey("eodhd_api_key", cc.EODHD.APIKey)
	if err != nil {
		logger.Warn().Msg("EODHD API key not configured - primary equity prices unavailable")
	} else {
		client := eodhd.NewClient(eodhdKey,
			eodhd.WithBaseURL(cc.EODHD.BaseURL),
			eodhd.WithLogger(logger),
			eodhd.WithRateLimit(cc.EODHD.RateLimit),
			eodhd.WithTimeout(cc.EODHD.GetTimeout()),
		)
		adapter := eodhd.NewAdapter(client, cc.EODHD.Exchanges, logger)
		p.adapters.EquityPrimary = adapter
		p.metadata.Equity = append(p.metadata.Equity, adapter)
		p.equityNames = append(p.equityNames, adapter.Name())
	}

	if cc.Yahoo.Enabled {
		client := yahoo.NewClient(
			yahoo.WithLogger(logger),
			yahoo.WithRateLimit(cc.Yahoo.RateLimit),
			yahoo.WithTimeout(cc.Yahoo.GetTimeout()),
		)
		adapter := yahoo.NewAdapter(client, cc.Yahoo.Suffixes, config.Pricing.USDINRRate, logger)
		p.adapters.EquitySecondary = adapter
		p.metadata.Equity = append(p.metadata.Equity, adapter)
		p.equityNames = append(p.equityNames, adapter.Name())
	}

	mf := mfapi.NewAdapter(mfapi.NewClient(
		mfapi.WithBaseURL(cc.MFAPI.BaseURL),
		mfapi.WithLogger(logger),
		mfapi.WithRateLimit(cc.MFAPI.RateLimit),
		mfapi.WithTimeout(cc.MFAPI.GetTimeout()),
	), logger)
	p.adapters.FundPrimary = mf
	p.metadata.Funds = append(p.metadata.Funds, mf)

	nav := amfi.NewAdapter(amfi.NewClient(
		amfi.WithURL(cc.AMFI.URL),
		amfi.WithLogger(logger),
		amfi.WithTimeout(cc.AMFI.GetTimeout()),
		amfi.WithRefreshInterval(cc.AMFI.GetRefreshInterval()),
	), logger)
	p.adapters.FundSecondary = nav
	p.metadata.Funds = append(p.metadata.Funds, nav)
	p.fundNames = []string{mf.Name(), nav.Name()}

	if instruments != nil {
		p.adapters.Fallback = price.NewCacheAdapter(instruments, logger)
	}

	return p
}
